package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/listenupapp/liveplan/internal/fallback"
	"github.com/listenupapp/liveplan/internal/outcome"
)

// SaveOutcomes stores the stage outcomes and fallback uses of a run,
// replacing any recorded earlier.
func (s *Store) SaveOutcomes(ctx context.Context, runID string, notes []outcome.Note, uses []fallback.Use) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM outcomes WHERE run_id = ?`,
			`DELETE FROM fallback_uses WHERE run_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, runID); err != nil {
				return fmt.Errorf("clear outcomes: %w", err)
			}
		}

		for i, n := range notes {
			if _, err := tx.ExecContext(ctx, `INSERT INTO outcomes
				(run_id, seq, stage, subject, status, reason, detail) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				runID, i, n.Stage, n.Subject, string(n.Status), string(n.Reason), n.Detail); err != nil {
				return fmt.Errorf("insert outcome %s/%s: %w", n.Stage, n.Subject, err)
			}
		}
		for _, u := range uses {
			if _, err := tx.ExecContext(ctx, `INSERT INTO fallback_uses
				(run_id, quantity, count, first_subject) VALUES (?, ?, ?, ?)`,
				runID, string(u.Quantity), u.Count, u.First); err != nil {
				return fmt.Errorf("insert fallback use %s: %w", u.Quantity, err)
			}
		}
		return nil
	})
}

// ListOutcomes returns the outcomes of a run in recorded order.
func (s *Store) ListOutcomes(ctx context.Context, runID string) ([]outcome.Note, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT stage, subject, status, reason, detail
		FROM outcomes WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var out []outcome.Note
	for rows.Next() {
		var (
			n              outcome.Note
			status, reason string
		)
		if err := rows.Scan(&n.Stage, &n.Subject, &status, &reason, &n.Detail); err != nil {
			return nil, err
		}
		n.Status = outcome.Status(status)
		n.Reason = outcome.Reason(reason)
		out = append(out, n)
	}
	return out, rows.Err()
}

// ListFallbackUses returns the substituted quantities of a run.
func (s *Store) ListFallbackUses(ctx context.Context, runID string) ([]fallback.Use, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT quantity, count, first_subject
		FROM fallback_uses WHERE run_id = ? ORDER BY quantity`, runID)
	if err != nil {
		return nil, fmt.Errorf("list fallback uses: %w", err)
	}
	defer rows.Close()

	var out []fallback.Use
	for rows.Next() {
		var (
			u        fallback.Use
			quantity string
		)
		if err := rows.Scan(&quantity, &u.Count, &u.First); err != nil {
			return nil, err
		}
		u.Quantity = fallback.Quantity(quantity)
		out = append(out, u)
	}
	return out, rows.Err()
}
