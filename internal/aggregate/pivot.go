package aggregate

import "slices"

// Matrix is a two-dimensional view of one table column. Cells without a
// group are absent, not zero.
type Matrix struct {
	Rows    []string
	Cols    []string
	Cells   [][]float64
	Present [][]bool
}

// Pivot spreads column over rowDim × colDim. Rows and columns follow the
// natural key order of their dimensions. ok is false when the table lacks a
// dimension or the column.
func Pivot(t *Table, rowDim, colDim Dimension, column string) (*Matrix, bool) {
	ri, ci, vi := t.Dimension(rowDim), t.Dimension(colDim), t.Column(column)
	if ri < 0 || ci < 0 || vi < 0 {
		return nil, false
	}

	var rows, cols []string
	for _, r := range t.Rows {
		if !slices.Contains(rows, r.Keys[ri]) {
			rows = append(rows, r.Keys[ri])
		}
		if !slices.Contains(cols, r.Keys[ci]) {
			cols = append(cols, r.Keys[ci])
		}
	}
	slices.SortFunc(rows, rowDim.Compare)
	slices.SortFunc(cols, colDim.Compare)

	m := &Matrix{Rows: rows, Cols: cols}
	m.Cells = make([][]float64, len(rows))
	m.Present = make([][]bool, len(rows))
	for i := range rows {
		m.Cells[i] = make([]float64, len(cols))
		m.Present[i] = make([]bool, len(cols))
	}
	for _, r := range t.Rows {
		i := slices.Index(rows, r.Keys[ri])
		j := slices.Index(cols, r.Keys[ci])
		m.Cells[i][j] += r.Values[vi]
		m.Present[i][j] = true
	}
	return m, true
}

// RowMeans averages each row over its present cells.
func (m *Matrix) RowMeans() []float64 {
	out := make([]float64, len(m.Rows))
	for i := range m.Rows {
		sum, n := 0.0, 0
		for j := range m.Cols {
			if m.Present[i][j] {
				sum += m.Cells[i][j]
				n++
			}
		}
		if n > 0 {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// ColMeans averages each column over its present cells.
func (m *Matrix) ColMeans() []float64 {
	out := make([]float64, len(m.Cols))
	for j := range m.Cols {
		sum, n := 0.0, 0
		for i := range m.Rows {
			if m.Present[i][j] {
				sum += m.Cells[i][j]
				n++
			}
		}
		if n > 0 {
			out[j] = sum / float64(n)
		}
	}
	return out
}

// Max returns the largest present cell, or 0.
func (m *Matrix) Max() float64 {
	best, seen := 0.0, false
	for i := range m.Rows {
		for j := range m.Cols {
			if m.Present[i][j] && (!seen || m.Cells[i][j] > best) {
				best, seen = m.Cells[i][j], true
			}
		}
	}
	return best
}

// Get returns the cell at (row, col) by key.
func (m *Matrix) Get(row, col string) (float64, bool) {
	i, j := slices.Index(m.Rows, row), slices.Index(m.Cols, col)
	if i < 0 || j < 0 || !m.Present[i][j] {
		return 0, false
	}
	return m.Cells[i][j], true
}
