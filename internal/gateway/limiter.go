package gateway

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLimiterClosed is returned by Acquire after Close.
var ErrLimiterClosed = errors.New("gateway: limiter closed")

type waiter struct {
	ready     chan struct{}
	released  bool
	abandoned bool
}

// Limiter admits callers one at a time in arrival order, spacing consecutive
// admissions at least one interval apart. A single pump goroutine owns the
// time of the last admission.
type Limiter struct {
	interval time.Duration
	clock    Clock

	mu     sync.Mutex
	queue  []*waiter
	closed bool

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

// NewLimiter starts a limiter allowing requestsPerMinute admissions per
// minute. A non-positive rate admits without spacing.
func NewLimiter(requestsPerMinute int, clock Clock) *Limiter {
	if clock == nil {
		clock = RealClock()
	}
	var interval time.Duration
	if requestsPerMinute > 0 {
		interval = time.Minute / time.Duration(requestsPerMinute)
	}
	l := &Limiter{
		interval: interval,
		clock:    clock,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go l.pump()
	return l
}

// Interval returns the minimum spacing between admissions.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Acquire blocks until the caller is admitted or ctx ends.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w := &waiter{ready: make(chan struct{})}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLimiterClosed
	}
	l.queue = append(l.queue, w)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		l.mu.Lock()
		if !w.released {
			w.abandoned = true
		}
		l.mu.Unlock()
		return ctx.Err()
	case <-l.done:
		return ErrLimiterClosed
	}
}

// Pending reports how many callers are queued behind the one being paced.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, w := range l.queue {
		if !w.abandoned {
			n++
		}
	}
	return n
}

// Close stops the pump. Queued and future callers get ErrLimiterClosed.
func (l *Limiter) Close() {
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.queue = nil
		l.mu.Unlock()
		close(l.done)
	})
}

func (l *Limiter) next() *waiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	for len(l.queue) > 0 {
		w := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		if !w.abandoned {
			return w
		}
	}
	return nil
}

func (l *Limiter) pump() {
	var last time.Time
	admitted := false
	for {
		w := l.next()
		if w == nil {
			select {
			case <-l.wake:
				continue
			case <-l.done:
				return
			}
		}

		if admitted {
			if wait := l.interval - l.clock.Now().Sub(last); wait > 0 {
				select {
				case <-l.clock.After(wait):
				case <-l.done:
					return
				}
			}
		}

		l.mu.Lock()
		if w.abandoned {
			// The slot was never used; the next waiter may go immediately.
			l.mu.Unlock()
			continue
		}
		w.released = true
		close(w.ready)
		l.mu.Unlock()

		last = l.clock.Now()
		admitted = true
	}
}
