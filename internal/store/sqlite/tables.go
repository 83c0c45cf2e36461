package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"errors"
	"fmt"

	"github.com/listenupapp/liveplan/internal/aggregate"
	"github.com/listenupapp/liveplan/internal/analysis"
	domainerrors "github.com/listenupapp/liveplan/internal/errors"
)

// SheetInfo describes a stored table without its rows.
type SheetInfo struct {
	Workbook string
	Sheet    string
	Rows     int
}

// SaveTables stores every table of an analysis result under runID in one
// transaction. It returns the number of rows written.
func (s *Store) SaveTables(ctx context.Context, runID string, res *analysis.Result) (int, error) {
	var written, position int
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		sheetStmt, err := tx.PrepareContext(ctx, `INSERT INTO sheets
			(run_id, workbook, sheet, position, dimensions, columns, row_count)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare sheet insert: %w", err)
		}
		defer sheetStmt.Close()

		rowStmt, err := tx.PrepareContext(ctx, `INSERT INTO aggregate_rows
			(run_id, workbook, sheet, row_index, keys, metric_values, count, rpm_placeholder)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare row insert: %w", err)
		}
		defer rowStmt.Close()

		for _, wb := range res.Workbooks {
			for _, t := range wb.Sheets {
				dims, err := json.Marshal(t.Dimensions)
				if err != nil {
					return err
				}
				cols, err := json.Marshal(t.Columns)
				if err != nil {
					return err
				}
				if _, err := sheetStmt.ExecContext(ctx, runID, wb.Name, t.Name, position, string(dims), string(cols), t.Len()); err != nil {
					return fmt.Errorf("insert sheet %s/%s: %w", wb.Name, t.Name, err)
				}
				position++

				for i, row := range t.Rows {
					keys, err := json.Marshal(row.Keys)
					if err != nil {
						return err
					}
					values, err := json.Marshal(row.Values)
					if err != nil {
						return err
					}
					if _, err := rowStmt.ExecContext(ctx, runID, wb.Name, t.Name, i,
						string(keys), string(values), row.Count, boolToInt(row.RPMPlaceholder)); err != nil {
						return fmt.Errorf("insert row %s/%s[%d]: %w", wb.Name, t.Name, i, err)
					}
					written++
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Debug("tables stored", "run_id", runID, "sheets", position, "rows", written)
	return written, nil
}

// ListSheets returns the tables stored for a run in output order.
func (s *Store) ListSheets(ctx context.Context, runID string) ([]SheetInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT workbook, sheet, row_count FROM sheets WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}
	defer rows.Close()

	var out []SheetInfo
	for rows.Next() {
		var info SheetInfo
		if err := rows.Scan(&info.Workbook, &info.Sheet, &info.Rows); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// LoadTable rebuilds a stored table.
func (s *Store) LoadTable(ctx context.Context, runID, workbook, sheet string) (*aggregate.Table, error) {
	var dims, cols string
	err := s.db.QueryRowContext(ctx,
		`SELECT dimensions, columns FROM sheets WHERE run_id = ? AND workbook = ? AND sheet = ?`,
		runID, workbook, sheet).Scan(&dims, &cols)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.NotFoundf("table %s/%s in run %s", workbook, sheet, runID)
	}
	if err != nil {
		return nil, err
	}

	t := &aggregate.Table{Name: sheet}
	if err := json.Unmarshal([]byte(dims), &t.Dimensions); err != nil {
		return nil, fmt.Errorf("decode dimensions: %w", err)
	}
	if err := json.Unmarshal([]byte(cols), &t.Columns); err != nil {
		return nil, fmt.Errorf("decode columns: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT keys, metric_values, count, rpm_placeholder
		FROM aggregate_rows WHERE run_id = ? AND workbook = ? AND sheet = ?
		ORDER BY row_index`, runID, workbook, sheet)
	if err != nil {
		return nil, fmt.Errorf("load rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			keys, values string
			row          aggregate.Row
			placeholder  int
		)
		if err := rows.Scan(&keys, &values, &row.Count, &placeholder); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(keys), &row.Keys); err != nil {
			return nil, fmt.Errorf("decode keys: %w", err)
		}
		if err := json.Unmarshal([]byte(values), &row.Values); err != nil {
			return nil, fmt.Errorf("decode values: %w", err)
		}
		row.RPMPlaceholder = placeholder != 0
		t.Rows = append(t.Rows, row)
	}
	return t, rows.Err()
}
