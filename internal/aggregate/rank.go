package aggregate

import (
	"cmp"
	"slices"

	"github.com/listenupapp/liveplan/internal/fallback"
)

// Rank returns the rows of t best first: revenue per minute descending, then
// revenue descending. A table with neither column is ordered by placeholder
// scores from fb, stable per table and key so ranking twice agrees. Ties go to the entity name, then the full key, ascending.
// t is not modified.
func Rank(t *Table, fb fallback.Provider) []Row {
	if t.Len() == 0 {
		return nil
	}
	rpm, revenue := t.Column(ColumnRPM), t.Column("revenue")

	var scores map[string]float64
	if rpm < 0 && revenue < 0 {
		scores = make(map[string]float64, len(t.Rows))
		for _, r := range t.Rows {
			scores[r.Key()] = fb.Stable(fallback.RankScore, t.Name+":"+r.Key())
		}
	}

	rows := slices.Clone(t.Rows)
	slices.SortStableFunc(rows, func(a, b Row) int {
		if rpm >= 0 {
			if c := cmp.Compare(b.Values[rpm], a.Values[rpm]); c != 0 {
				return c
			}
		}
		if revenue >= 0 {
			if c := cmp.Compare(b.Values[revenue], a.Values[revenue]); c != 0 {
				return c
			}
		}
		if scores != nil {
			if c := cmp.Compare(scores[b.Key()], scores[a.Key()]); c != 0 {
				return c
			}
		}
		if c := cmp.Compare(a.Name(), b.Name()); c != 0 {
			return c
		}
		return cmp.Compare(a.Key(), b.Key())
	})
	return rows
}

// RankBy orders rows by one column descending with the same tie-break as Rank.
func RankBy(t *Table, column string) []Row {
	i := t.Column(column)
	if t.Len() == 0 || i < 0 {
		return nil
	}
	rows := slices.Clone(t.Rows)
	slices.SortStableFunc(rows, func(a, b Row) int {
		if c := cmp.Compare(b.Values[i], a.Values[i]); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Name(), b.Name()); c != 0 {
			return c
		}
		return cmp.Compare(a.Key(), b.Key())
	})
	return rows
}

// Top returns at most n rows.
func Top(rows []Row, n int) []Row {
	if n >= 0 && len(rows) > n {
		return rows[:n]
	}
	return rows
}

// Ranked returns a copy of t with its rows in Rank order.
func Ranked(t *Table, fb fallback.Provider) *Table {
	return &Table{Name: t.Name, Dimensions: t.Dimensions, Columns: t.Columns, Rows: Rank(t, fb)}
}
