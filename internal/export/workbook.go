// Package export writes the analysis workbooks as spreadsheets and CSV
// mirrors, and packs a run into a checksummed zip bundle.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/listenupapp/liveplan/internal/aggregate"
	"github.com/listenupapp/liveplan/internal/analysis"
	"github.com/listenupapp/liveplan/internal/domain"
	"github.com/listenupapp/liveplan/internal/outcome"
)

const stage = "export"

// AnalysisDir is the workbook directory under the output directory.
const AnalysisDir = "analysis"

// maxSheetName is the spreadsheet limit on sheet name length.
const maxSheetName = 31

// File is one written output.
type File struct {
	Path string `json:"path"`
	Rows int    `json:"rows"`
}

// Writer writes analysis outputs.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a writer.
func NewWriter(logger *slog.Logger) *Writer {
	return &Writer{logger: logger}
}

// Written lists the files WriteAnalysis produced and one note per workbook
// and failed sheet mirror.
type Written struct {
	Files []File
	Notes []outcome.Note
}

func (o *Written) failed(subject string, err error) {
	o.Notes = append(o.Notes, outcome.Note{
		Stage: stage, Subject: subject, Status: outcome.StatusFailed,
		Reason: outcome.ReasonRenderFailed, Detail: err.Error(),
	})
}

// WriteAnalysis writes analysis/<workbook>.xlsx and analysis/<workbook>/<sheet>.csv
// for every workbook. A file that cannot be written is logged, noted as
// failed and skipped; only cancellation is returned as an error.
func (w *Writer) WriteAnalysis(ctx context.Context, outputDir string, res *analysis.Result) (*Written, error) {
	out := &Written{}
	dir := filepath.Join(outputDir, AnalysisDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		err = fmt.Errorf("create analysis directory: %w", err)
		w.logger.Warn("workbooks skipped", "dir", dir, "error", err)
		for _, wb := range res.Workbooks {
			out.failed(wb.Name, err)
		}
		return out, nil
	}

	for _, wb := range res.Workbooks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows := 0
		for _, t := range wb.Sheets {
			rows += t.Len()
		}
		path := filepath.Join(dir, wb.Name+".xlsx")
		if err := WriteWorkbook(path, wb); err != nil {
			w.logger.Warn("workbook skipped", "workbook", wb.Name, "error", err)
			out.failed(wb.Name, err)
		} else {
			out.Files = append(out.Files, File{Path: path, Rows: rows})
			out.Notes = append(out.Notes, outcome.Note{Stage: stage, Subject: wb.Name, Status: outcome.StatusOK})
		}

		for _, t := range wb.Sheets {
			subject := wb.Name + "/" + t.Name
			csvPath := filepath.Join(dir, wb.Name, t.Name+".csv")
			if err := WriteCSV(csvPath, t); err != nil {
				w.logger.Warn("sheet mirror skipped", "sheet", subject, "error", err)
				out.failed(subject, err)
				continue
			}
			out.Files = append(out.Files, File{Path: csvPath, Rows: t.Len()})
		}
		w.logger.Info("workbook exported", "workbook", wb.Name, "sheets", len(wb.Sheets), "rows", rows)
	}
	return out, nil
}

// WriteWorkbook writes one sheet per table. Numeric columns are stored as
// numbers. A workbook without tables gets a single note sheet.
func WriteWorkbook(path string, wb *analysis.Workbook) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	const first = "Sheet1"
	if len(wb.Sheets) == 0 {
		if err := f.SetCellValue(first, "A1", domain.NoDataAvailable); err != nil {
			return err
		}
	}

	used := make(map[string]bool)
	for i, t := range wb.Sheets {
		name := sheetName(t.Name, used)
		if i == 0 {
			if err := f.SetSheetName(first, name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}
		if err := writeSheet(f, name, t, bold); err != nil {
			return fmt.Errorf("sheet %s: %w", t.Name, err)
		}
	}
	f.SetActiveSheet(0)

	tmp := path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create workbook: %w", err)
	}
	defer os.Remove(tmp)
	defer out.Close()
	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close workbook: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, t *aggregate.Table, headerStyle int) error {
	header := t.Header()
	cells := make([]any, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &cells); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	rpm := t.HasColumn(aggregate.ColumnRPM)
	for r, row := range t.Rows {
		cells := make([]any, 0, len(header))
		for _, k := range row.Keys {
			cells = append(cells, k)
		}
		for i, c := range t.Columns {
			if c.Kind == aggregate.KindCount {
				cells = append(cells, int64(row.Values[i]))
			} else {
				cells = append(cells, row.Values[i])
			}
		}
		if rpm {
			cells = append(cells, row.RPMPlaceholder)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}

	if len(t.Dimensions) > 0 {
		lastKey, err := excelize.ColumnNumberToName(len(t.Dimensions))
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "A", lastKey, 22); err != nil {
			return err
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// sheetName fits name within the spreadsheet limit, keeping names unique
// within a workbook.
func sheetName(name string, used map[string]bool) string {
	name = strings.NewReplacer("/", "_", "\\", "_", "?", "_", "*", "_", "[", "_", "]", "_", ":", "_").Replace(name)
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}
	base := name
	for i := 2; used[name]; i++ {
		suffix := fmt.Sprintf("~%d", i)
		name = base[:min(len(base), maxSheetName-len(suffix))] + suffix
	}
	used[name] = true
	return name
}
