package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"iter"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/listenupapp/liveplan/internal/errors"
)

var nonWord = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeColumn converts a header to lower snake case.
// "likeCount" -> "like_count", "Order Purchase Timestamp" -> "order_purchase_timestamp".
func NormalizeColumn(name string) string {
	var b strings.Builder
	runes := []rune(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return strings.Trim(nonWord.ReplaceAllString(b.String(), "_"), "_")
}

// Table is a parsed CSV file with columns resolved against a schema.
type Table struct {
	Source Source
	// columns maps canonical column names to their position in each record.
	columns map[string]int
	records [][]string
}

// ReadTable parses CSV from r and resolves its header against schema. A
// missing required column is a schema mismatch.
func ReadTable(r io.Reader, schema Schema) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.SchemaMismatchf("%s: empty file", schema.Source)
	}
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeSchemaMismatch, "%s: read header", schema.Source)
	}

	positions := make(map[string]int, len(header))
	for i, h := range header {
		name := NormalizeColumn(h)
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	t := &Table{Source: schema.Source, columns: make(map[string]int)}
	for canonical, candidates := range schema.Columns {
		for _, c := range candidates {
			if pos, ok := positions[c]; ok {
				t.columns[canonical] = pos
				break
			}
		}
	}

	var missing []string
	for _, col := range schema.Required {
		if _, ok := t.columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, errors.SchemaMismatchf("%s: missing required columns %s", schema.Source, strings.Join(missing, ", ")).
			WithDetails(map[string]any{"missing": missing, "header": header})
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeSchemaMismatch, "%s: read record", schema.Source)
		}
		t.records = append(t.records, rec)
	}
	return t, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.records)
}

// Has reports whether the canonical column is present.
func (t *Table) Has(column string) bool {
	_, ok := t.columns[column]
	return ok
}

// Rows iterates over data rows with their 1-based line numbers (header is line 1).
func (t *Table) Rows() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		for i, rec := range t.records {
			if !yield(i+2, Row{table: t, record: rec}) {
				return
			}
		}
	}
}

// Row is one CSV record addressed by canonical column names.
type Row struct {
	table  *Table
	record []string
}

// Get returns the trimmed value of column, or "" when absent.
func (r Row) Get(column string) string {
	pos, ok := r.table.columns[column]
	if !ok || pos >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[pos])
}

// Float parses column as a float. ok is false when the value is empty or
// unparseable.
func (r Row) Float(column string) (float64, bool) {
	v := r.Get(column)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Int parses column as an integer, accepting float notation ("3.0").
func (r Row) Int(column string) (int, bool) {
	f, ok := r.Float(column)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// timeLayouts are tried in order.
//
//nolint:gochecknoglobals // Fixed layout list.
var timeLayouts = []string{
	time.DateTime,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
	"01/02/2006 15:04",
	"01/02/2006",
}

// Time parses column with the supported layouts. hasClock is false for
// date-only values.
func (r Row) Time(column string) (t time.Time, hasClock bool, ok bool) {
	v := r.Get(column)
	if v == "" {
		return time.Time{}, false, false
	}
	for _, layout := range timeLayouts {
		parsed, err := time.Parse(layout, v)
		if err == nil {
			return parsed, strings.Contains(layout, "15"), true
		}
	}
	return time.Time{}, false, false
}

// rowError describes an unusable row.
func rowError(source Source, line int, format string, args ...any) error {
	return fmt.Errorf("%s line %d: %s", source, line, fmt.Sprintf(format, args...))
}
