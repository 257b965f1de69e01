package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mangamatch/internal/catalog"
)

// ErrResultNotFound is returned when a decision targets an unknown input key.
var ErrResultNotFound = errors.New("match result not found")

// SaveResults replaces the saved result set with results, preserving order.
func (s *Store) SaveResults(ctx context.Context, results []catalog.MatchResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM match_results"); err != nil {
		return fmt.Errorf("clear results: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO match_results (
            input_key, position, title, status, selected_id, payload, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(input_key) DO UPDATE SET
            position = excluded.position, title = excluded.title, status = excluded.status,
            selected_id = excluded.selected_id, payload = excluded.payload, updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for i, result := range results {
		payload, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal result %q: %w", result.Input.Title, err)
		}
		if _, err := stmt.ExecContext(ctx,
			result.Input.Key(),
			i,
			result.Input.Title,
			string(result.Status),
			selectedID(result.Selected),
			string(payload),
			now,
		); err != nil {
			return fmt.Errorf("insert result %q: %w", result.Input.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit results: %w", err)
	}
	return nil
}

// LoadResults returns saved results in their saved order.
func (s *Store) LoadResults(ctx context.Context) ([]catalog.MatchResult, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT payload FROM match_results ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []catalog.MatchResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var result catalog.MatchResult
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}

// CountByStatus summarizes saved results.
func (s *Store) CountByStatus(ctx context.Context) (map[catalog.ResultStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM match_results GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("count results: %w", err)
	}
	defer rows.Close()
	counts := make(map[catalog.ResultStatus]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[catalog.ResultStatus(status)] = count
	}
	return counts, rows.Err()
}

// SetDecision records the caller's decision for one saved result. For
// StatusMatched the selected record must be one of the result's candidates,
// identified by catalog id.
func (s *Store) SetDecision(ctx context.Context, inputKey string, status catalog.ResultStatus, selected int64) (catalog.MatchResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM match_results WHERE input_key = ?", inputKey).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.MatchResult{}, fmt.Errorf("%w: %s", ErrResultNotFound, inputKey)
	}
	if err != nil {
		return catalog.MatchResult{}, fmt.Errorf("select result: %w", err)
	}
	var result catalog.MatchResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return catalog.MatchResult{}, fmt.Errorf("decode result: %w", err)
	}

	result.Status = status
	result.Selected = nil
	if selected > 0 {
		for _, candidate := range result.Candidates {
			if candidate.Record.ID == selected {
				rec := candidate.Record
				result.Selected = &rec
				break
			}
		}
		if result.Selected == nil {
			return catalog.MatchResult{}, fmt.Errorf("catalog id %d is not a candidate for %q", selected, result.Input.Title)
		}
	}
	if status == catalog.StatusPending {
		result.MatchedAt = time.Time{}
	} else {
		result.MatchedAt = time.Now().UTC()
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return catalog.MatchResult{}, fmt.Errorf("marshal result: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		"UPDATE match_results SET status = ?, selected_id = ?, payload = ?, updated_at = ? WHERE input_key = ?",
		string(status), selectedID(result.Selected), string(encoded), time.Now().UTC().Format(time.RFC3339Nano), inputKey,
	); err != nil {
		return catalog.MatchResult{}, fmt.Errorf("update result: %w", err)
	}
	return result, nil
}

// ClearResults removes every saved result.
func (s *Store) ClearResults(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM match_results"); err != nil {
		return fmt.Errorf("clear results: %w", err)
	}
	return nil
}

func selectedID(rec *catalog.Record) any {
	if rec == nil {
		return nil
	}
	return rec.ID
}
