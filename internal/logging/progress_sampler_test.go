package logging

import "testing"

func TestNewProgressSamplerStep(t *testing.T) {
	for _, tc := range []struct {
		step, want int
	}{
		{0, 10},
		{-5, 10},
		{101, 10},
		{25, 25},
		{1, 1},
	} {
		if got := NewProgressSampler(tc.step).step; got != tc.want {
			t.Errorf("NewProgressSampler(%d).step = %d, want %d", tc.step, got, tc.want)
		}
	}
}

func TestProgressSamplerNilLogsEverything(t *testing.T) {
	var s *ProgressSampler
	if !s.Observe("matching", 1, 10) {
		t.Fatal("nil sampler should always log")
	}
	s.Reset()
}

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(25)
	var logged []int
	for completed := 1; completed <= 20; completed++ {
		if s.Observe("matching", completed, 20) {
			logged = append(logged, completed)
		}
	}
	// First item, each 25% crossing, and the final item.
	want := []int{1, 5, 10, 15, 20}
	if len(logged) != len(want) {
		t.Fatalf("logged %v, want %v", logged, want)
	}
	for i := range want {
		if logged[i] != want[i] {
			t.Fatalf("logged %v, want %v", logged, want)
		}
	}
	if s.Observe("matching", 20, 20) {
		t.Fatal("final item should only log once")
	}
}

func TestProgressSamplerPhaseChangeRestarts(t *testing.T) {
	s := NewProgressSampler(50)
	if !s.Observe("direct", 1, 4) {
		t.Fatal("first observation should log")
	}
	if s.Observe(" direct ", 1, 4) {
		t.Fatal("same phase and bucket should not log")
	}
	if !s.Observe("search", 1, 4) {
		t.Fatal("phase change should log")
	}
	s.Reset()
	if !s.Observe("search", 1, 4) {
		t.Fatal("observation after Reset should log")
	}
}

func TestProgressSamplerUnknownTotal(t *testing.T) {
	s := NewProgressSampler(10)
	if !s.Observe("matching", 3, 0) {
		t.Fatal("first phase observation should log")
	}
	if s.Observe("matching", 4, 0) {
		t.Fatal("unknown totals should only log phase changes")
	}
}
