package export

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"encoding/json/v2"

	"github.com/listenupapp/liveplan/internal/analysis"
	"github.com/listenupapp/liveplan/internal/domain"
	"github.com/listenupapp/liveplan/internal/outcome"
	"github.com/listenupapp/liveplan/internal/recommend"
)

// FormatVersion is the bundle format version. Increment major on breaking changes.
const FormatVersion = "1.0"

// BundleDir is the bundle directory under the output directory.
const BundleDir = "bundle"

// Bundle entry names.
const (
	EntryManifest        = "manifest.json"
	EntryRecommendations = "recommendations.jsonl"
	EntryTables          = "tables.jsonl"
	EntryOutcomes        = "outcomes.jsonl"
	EntryReport          = "programming_strategy.md"
)

// BundlePath returns the bundle location for a run.
func BundlePath(outputDir, runID string) string {
	return filepath.Join(outputDir, BundleDir, "liveplan-"+runID+".zip")
}

// BundleOptions selects what goes into a bundle.
type BundleOptions struct {
	RunID      string
	OutputPath string
	Plan       *recommend.Plan
	Analysis   *analysis.Result
	Notes      []outcome.Note
	// Report is the markdown document; empty leaves it out.
	Report string
}

// BundleCounts summarizes a bundle's contents.
type BundleCounts struct {
	Recommendations int `json:"recommendations"`
	Tables          int `json:"tables"`
	Rows            int `json:"rows"`
	Outcomes        int `json:"outcomes"`
}

// BundleManifest describes a bundle. It is written last, with final counts.
type BundleManifest struct {
	Version        string       `json:"version"`
	RunID          string       `json:"run_id"`
	CreatedAt      time.Time    `json:"created_at"`
	Counts         BundleCounts `json:"counts"`
	IncludesReport bool         `json:"includes_report"`
}

// BundleResult is the outcome of writing a bundle.
type BundleResult struct {
	Path     string
	Size     int64
	Counts   BundleCounts
	Duration time.Duration
	Checksum string
}

// Bundle writes a run's recommendations, tables, outcomes and report into a
// zip archive. The archive is written to a temp file and renamed into place;
// its SHA-256 is returned.
func (w *Writer) Bundle(ctx context.Context, opts BundleOptions) (*BundleResult, error) {
	start := time.Now()

	if err := os.MkdirAll(filepath.Dir(opts.OutputPath), 0o755); err != nil {
		return nil, fmt.Errorf("create bundle directory: %w", err)
	}
	tmpPath := opts.OutputPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create bundle file: %w", err)
	}
	defer os.Remove(tmpPath)
	defer f.Close()

	hash := sha256.New()
	zw := zip.NewWriter(io.MultiWriter(f, hash))

	manifest := &BundleManifest{
		Version:        FormatVersion,
		RunID:          opts.RunID,
		CreatedAt:      time.Now().UTC(),
		IncludesReport: opts.Report != "",
	}
	counts := &manifest.Counts

	steps := []struct {
		name string
		fn   func(*zip.Writer, BundleOptions, *BundleCounts) error
	}{
		{"recommendations", writeRecommendations},
		{"tables", writeTables},
		{"outcomes", writeOutcomes},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := step.fn(zw, opts, counts); err != nil {
			return nil, fmt.Errorf("bundle %s: %w", step.name, err)
		}
	}

	if opts.Report != "" {
		rw, err := zw.Create(EntryReport)
		if err != nil {
			return nil, fmt.Errorf("bundle report: %w", err)
		}
		if _, err := io.WriteString(rw, opts.Report); err != nil {
			return nil, fmt.Errorf("bundle report: %w", err)
		}
	}

	mw, err := zw.Create(EntryManifest)
	if err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	if err := json.MarshalWrite(mw, manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmpPath, opts.OutputPath); err != nil {
		return nil, fmt.Errorf("rename bundle: %w", err)
	}

	info, err := os.Stat(opts.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("stat bundle: %w", err)
	}
	res := &BundleResult{
		Path:     opts.OutputPath,
		Size:     info.Size(),
		Counts:   *counts,
		Duration: time.Since(start),
		Checksum: hex.EncodeToString(hash.Sum(nil)),
	}
	w.logger.Info("bundle written",
		"path", res.Path,
		"bytes", res.Size,
		"sha256", res.Checksum,
		"recommendations", counts.Recommendations,
		"tables", counts.Tables,
	)
	return res, nil
}

// ReadManifest opens a bundle and decodes its manifest.
func ReadManifest(path string) (*BundleManifest, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	defer zr.Close()

	rc, err := OpenEntry(zr, EntryManifest)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var m BundleManifest
	if err := json.UnmarshalRead(rc, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

func writeRecommendations(zw *zip.Writer, opts BundleOptions, counts *BundleCounts) error {
	lw, err := newLineWriter(zw, EntryRecommendations)
	if err != nil {
		return err
	}
	for _, rec := range Recommendations(opts.Plan) {
		if err := lw.Write(rec); err != nil {
			return err
		}
	}
	counts.Recommendations = lw.count
	return nil
}

func writeTables(zw *zip.Writer, opts BundleOptions, counts *BundleCounts) error {
	lw, err := newLineWriter(zw, EntryTables)
	if err != nil {
		return err
	}
	if opts.Analysis == nil {
		return nil
	}
	for _, wb := range opts.Analysis.Workbooks {
		for _, t := range wb.Sheets {
			line := TableRecord{Workbook: wb.Name, Sheet: t.Name, Header: t.Header(), Rows: t.Records()}
			if err := lw.Write(line); err != nil {
				return err
			}
			counts.Rows += t.Len()
		}
	}
	counts.Tables = lw.count
	return nil
}

func writeOutcomes(zw *zip.Writer, opts BundleOptions, counts *BundleCounts) error {
	lw, err := newLineWriter(zw, EntryOutcomes)
	if err != nil {
		return err
	}
	for _, n := range opts.Notes {
		if err := lw.Write(n); err != nil {
			return err
		}
	}
	counts.Outcomes = lw.count
	return nil
}

// TableRecord is one line of tables.jsonl: a sheet as header and text rows.
type TableRecord struct {
	Workbook string     `json:"workbook"`
	Sheet    string     `json:"sheet"`
	Header   []string   `json:"header"`
	Rows     [][]string `json:"rows"`
}

// Recommendation kinds.
const (
	KindCreator                = "creator"
	KindTierStrategy           = "tier_strategy"
	KindCategory               = "category"
	KindCrossPromotion         = "cross_promotion"
	KindTimeSlots              = "time_slots"
	KindBestHour               = "best_hour"
	KindCalendar               = "calendar"
	KindEngagementDriven       = "engagement_driven"
	KindTierEngagementStrategy = "tier_engagement_strategy"
	KindSeasonal               = "seasonal"
)

// Recommendation is one line of recommendations.jsonl.
type Recommendation struct {
	Kind   string         `json:"kind"`
	Rank   int            `json:"rank"`
	Status outcome.Status `json:"status"`
	Value  any            `json:"value"`
}

type slotSummary struct {
	Best    string `json:"best"`
	Worst   string `json:"worst"`
	BestDay string `json:"best_day"`
}

type bestHour struct {
	Day         string `json:"day"`
	Hour        int    `json:"hour"`
	Description string `json:"description"`
	Fallback    bool   `json:"fallback,omitempty"`
}

type calendarDay struct {
	Day   string              `json:"day"`
	Slots map[string][]string `json:"slots"`
}

// Recommendations flattens a plan into ranked records, one per pick.
func Recommendations(p *recommend.Plan) []Recommendation {
	if p == nil {
		return nil
	}
	var out []Recommendation
	add := func(kind string, status outcome.Status, values ...any) {
		for i, v := range values {
			out = append(out, Recommendation{Kind: kind, Rank: i + 1, Status: status, Value: v})
		}
	}

	add(KindCreator, p.Creators.Status, anySlice(p.Creators.Value)...)
	add(KindTierStrategy, outcome.StatusOK, anySlice(p.TierStrategies)...)
	add(KindCategory, p.Categories.Status, anySlice(p.Categories.Value)...)
	add(KindCrossPromotion, p.CrossPromotion.Status, anySlice(p.CrossPromotion.Value)...)

	if p.Slots.Status != outcome.StatusSkipped {
		s := p.Slots.Value
		add(KindTimeSlots, p.Slots.Status, slotSummary{Best: string(s.Best), Worst: string(s.Worst), BestDay: s.BestDay.String()})
	}
	for i, h := range p.BestHours.Value {
		out = append(out, Recommendation{Kind: KindBestHour, Rank: i + 1, Status: p.BestHours.Status, Value: bestHour{
			Day: h.Day.String(), Hour: h.Hour, Description: h.Description, Fallback: h.Fallback,
		}})
	}
	if p.Calendar.Status != outcome.StatusSkipped {
		for i, day := range domain.Weekdays() {
			cd := calendarDay{Day: day.String(), Slots: make(map[string][]string)}
			for _, slot := range domain.TimeSlots() {
				cd.Slots[string(slot)] = p.Calendar.Value.Get(day, slot)
			}
			out = append(out, Recommendation{Kind: KindCalendar, Rank: i + 1, Status: p.Calendar.Status, Value: cd})
		}
	}

	add(KindEngagementDriven, p.EngagementDriven.Status, anySlice(p.EngagementDriven.Value)...)
	add(KindTierEngagementStrategy, outcome.StatusOK, anySlice(p.TierEngagementStrategies)...)
	add(KindSeasonal, p.Seasonal.Status, anySlice(p.Seasonal.Value)...)
	return out
}

func anySlice[T any](s []T) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
