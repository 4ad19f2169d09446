package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Record appends e to the journal. The sequence number is one past the
// highest already recorded for e.Root, computed in the same transaction.
func (s *Store) Record(ctx context.Context, e Event) error {
	if e.Root == "" {
		return fmt.Errorf("record event: empty root")
	}
	if e.ID == "" {
		e.ID = s.ids.Generate()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.now()
	}
	e.ExpressionKey = ExpressionKey(e.Expression)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM events WHERE root = ?`, e.Root,
	).Scan(&e.Seq); err != nil {
		return fmt.Errorf("record event: next seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events
		(id, root, session_id, seq, kind, module_digest, expression, expression_key,
		 output, error_code, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.Root,
		e.SessionID,
		e.Seq,
		string(e.Kind),
		e.ModuleDigest,
		e.Expression,
		e.ExpressionKey,
		e.Output,
		e.ErrorCode,
		e.ErrorMessage,
		e.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record event: commit: %w", err)
	}
	return nil
}

// Recent returns up to limit events for root, newest first.
// A non-positive limit returns every event.
//
// Returns an empty slice (not nil) if nothing was recorded.
func (s *Store) Recent(ctx context.Context, root string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, root, session_id, seq, kind, module_digest, expression, expression_key,
		       output, error_code, error_message, created_at
		FROM events
		WHERE root = ?
		ORDER BY seq DESC
		LIMIT ?
	`, root, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Expressions returns the last limit distinct evaluated expressions for
// root, oldest first, ready to be replayed into a line editor's history.
// Expressions that differ only in normalization count once, using the most
// recent spelling.
func (s *Store) Expressions(ctx context.Context, root string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = -1
	}

	// SQLite returns the bare column from the row holding MAX(seq).
	rows, err := s.db.QueryContext(ctx, `
		SELECT expression, MAX(seq) AS last_seq
		FROM events
		WHERE root = ? AND kind = 'evaluate' AND expression_key != ''
		GROUP BY expression_key
		ORDER BY last_seq DESC
		LIMIT ?
	`, root, limit)
	if err != nil {
		return nil, fmt.Errorf("query expressions: %w", err)
	}
	defer rows.Close()

	var newestFirst []string
	for rows.Next() {
		var (
			expr string
			seq  int64
		)
		if err := rows.Scan(&expr, &seq); err != nil {
			return nil, fmt.Errorf("scan expression: %w", err)
		}
		newestFirst = append(newestFirst, expr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expressions: %w", err)
	}

	exprs := make([]string, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		exprs = append(exprs, newestFirst[i])
	}
	return exprs, nil
}

func scanEvent(rows *sql.Rows) (Event, error) {
	var (
		e       Event
		kind    string
		created string
	)
	err := rows.Scan(
		&e.ID,
		&e.Root,
		&e.SessionID,
		&e.Seq,
		&kind,
		&e.ModuleDigest,
		&e.Expression,
		&e.ExpressionKey,
		&e.Output,
		&e.ErrorCode,
		&e.ErrorMessage,
		&created,
	)
	if err != nil {
		return Event{}, fmt.Errorf("scan event: %w", err)
	}
	e.Kind = Kind(kind)

	e.Timestamp, err = time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Event{}, fmt.Errorf("scan event %s: timestamp: %w", e.ID, err)
	}
	return e, nil
}
