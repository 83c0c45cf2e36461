// Package loader reads the input CSV sources into the canonical dataset,
// substituting synthetic tables for sources that cannot be used.
package loader

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/listenupapp/liveplan/internal/category"
	"github.com/listenupapp/liveplan/internal/domain"
	"github.com/listenupapp/liveplan/internal/errors"
	"github.com/listenupapp/liveplan/internal/outcome"
	"github.com/listenupapp/liveplan/internal/sample"
)

const stage = "load"

// Config configures a Loader.
type Config struct {
	DataDir string
	// Files overrides file names per source; unset sources use "<source>.csv".
	Files map[Source]string
	// Seed drives the synthetic replacement data.
	Seed uint64
	// Strict turns any degraded source into an error.
	Strict bool
	// UseSample skips the data directory and loads the demo dataset.
	UseSample bool
}

// Result is the loaded dataset with the outcome of every source.
type Result struct {
	Dataset *domain.Dataset
	Notes   []outcome.Note
	// Sample is true when the commerce tables are synthetic.
	Sample bool
	// Mapper resolved the categories of this dataset.
	Mapper *category.Mapper
}

// Loader reads sources from a data directory.
type Loader struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a loader.
func New(cfg Config, logger *slog.Logger) *Loader {
	return &Loader{cfg: cfg, logger: logger}
}

// Path returns the file path of a source.
func (l *Loader) Path(source Source) string {
	name := source.DefaultFile()
	if f, ok := l.cfg.Files[source]; ok && f != "" {
		name = f
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(l.cfg.DataDir, name)
}

// Load reads every source. Each source is attempted once. In strict mode a
// degraded source aborts the load with a coded error.
func (l *Loader) Load(ctx context.Context) (*Result, error) {
	log := outcome.NewLog()
	res := &Result{Mapper: category.NewMapper(nil)}

	if l.cfg.UseSample {
		res.Dataset = sample.New(l.cfg.Seed).Dataset()
		res.Sample = true
		log.Add(outcome.Note{Stage: stage, Subject: "dataset", Status: outcome.StatusOK, Detail: "demo dataset requested"})
		res.Notes = log.Notes()
		l.logCounts(res.Dataset)
		return res, nil
	}

	if t, ok := l.optional(log, SourceCategoryTranslation); ok {
		res.Mapper = category.NewMapper(parseTranslations(t))
		l.logger.Info("loaded category translations", "entries", res.Mapper.Translations())
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds, ok := l.loadCommerce(log, res.Mapper)
	if !ok {
		ds = sample.New(l.cfg.Seed).Dataset()
		res.Sample = true
		log.Degrade(stage, "dataset", outcome.ReasonSourceUnavailable, "commerce tables replaced with synthetic data")
		l.logger.Warn("using synthetic dataset", "seed", l.cfg.Seed)
	} else {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		l.loadCreators(log, ds, res.Mapper)
		l.loadSessions(log, ds, res.Mapper)
		l.loadEngagement(log, ds)
	}

	res.Dataset = ds
	res.Notes = log.Notes()
	l.logCounts(ds)

	if l.cfg.Strict {
		if err := log.Err(); err != nil {
			return nil, fmt.Errorf("strict load: %w", err)
		}
	}
	return res, nil
}

// loadCommerce reads products, orders and order items. ok is false when any
// of them is unusable; the three tables are replaced together so their keys
// stay consistent.
func (l *Loader) loadCommerce(log *outcome.Log, mapper *category.Mapper) (*domain.Dataset, bool) {
	ds := &domain.Dataset{}
	healthy := true

	if t, ok := l.required(log, SourceProducts); ok {
		p := parseProducts(t, mapper)
		ds.Products = p.rows
		healthy = l.finish(log, SourceProducts, len(p.rows), p.skipped) && healthy
	} else {
		healthy = false
	}

	if t, ok := l.required(log, SourceOrders); ok {
		p := parseOrders(t)
		ds.Orders = p.rows
		healthy = l.finish(log, SourceOrders, len(p.rows), p.skipped) && healthy
	} else {
		healthy = false
	}

	if t, ok := l.required(log, SourceOrderItems); ok {
		p := parseOrderItems(t)
		ds.OrderItems = p.rows
		healthy = l.finish(log, SourceOrderItems, len(p.rows), p.skipped) && healthy
	} else {
		healthy = false
	}

	return ds, healthy
}

func (l *Loader) loadCreators(log *outcome.Log, ds *domain.Dataset, mapper *category.Mapper) {
	if t, ok := l.optional(log, SourceCreators); ok {
		p := parseCreators(t, mapper)
		if l.finish(log, SourceCreators, len(p.rows), p.skipped) {
			ds.Creators = p.rows
			return
		}
	}

	var names map[string]string
	if t, ok := l.optional(log, SourceSellers); ok {
		names = parseSellerNames(t)
	}
	if derived := creatorsFromSellers(ds.OrderItems, ds.ProductIndex(), names); len(derived) > 0 {
		ds.Creators = derived
		l.logger.Info("derived creators from sellers", "creators", len(derived))
		return
	}

	ds.Creators = sample.New(l.cfg.Seed).Dataset().Creators
	log.Degrade(stage, "creators", outcome.ReasonFallbackUsed, "no creator or seller data; using demo roster")
	l.logger.Warn("no creator or seller data, using demo roster", "creators", len(ds.Creators))
}

func (l *Loader) loadSessions(log *outcome.Log, ds *domain.Dataset, mapper *category.Mapper) {
	t, ok := l.optional(log, SourceSessions)
	if !ok {
		return
	}
	p := parseSessions(t, mapper, ds.CreatorIndex())
	if !l.finish(log, SourceSessions, len(p.rows), p.skipped) {
		return
	}
	ds.Sessions = p.rows

	// Sessions may reference creators the creator source does not list.
	known := ds.CreatorIndex()
	for _, s := range ds.Sessions {
		if _, ok := known[s.CreatorID]; ok {
			continue
		}
		c := domain.Creator{
			ID:       s.CreatorID,
			Name:     creatorName(s.CreatorID),
			Tier:     domain.TierEmerging,
			Category: s.Category,
		}
		ds.Creators = append(ds.Creators, c)
		known[c.ID] = c
		l.logger.Debug("added creator referenced by session", "creator_id", c.ID)
	}
}

func (l *Loader) loadEngagement(log *outcome.Log, ds *domain.Dataset) {
	t, ok := l.optional(log, SourceEngagement)
	if !ok {
		return
	}
	p, unattributed := parseEngagement(t, ds.Creators)
	if len(p.rows) == 0 && len(p.skipped) == 0 && t.Len() > 0 {
		err := errors.SchemaMismatch("engagement: needs a like count or engagement level column")
		log.Add(outcome.Degraded(0, outcome.ReasonSchemaMismatch, err).Note(stage, string(SourceEngagement)))
		l.logger.Warn("engagement source unusable", "error", err)
		return
	}
	if !l.finish(log, SourceEngagement, len(p.rows), p.skipped) {
		return
	}
	ds.Engagement = p.rows
	if unattributed > 0 {
		log.Degrade(stage, string(SourceEngagement), outcome.ReasonFallbackUsed,
			fmt.Sprintf("%d rows without creator_id attributed round-robin", unattributed))
		l.logger.Warn("engagement rows without creator", "rows", unattributed)
	}
}

// required opens a commerce source. Failures are recorded as degraded.
func (l *Loader) required(log *outcome.Log, source Source) (*Table, bool) {
	t, err := l.read(source)
	if err != nil {
		log.Add(outcome.FromError(0, err).Note(stage, string(source)))
		l.logger.Warn("source unavailable", "source", source, "error", err)
		return nil, false
	}
	return t, true
}

// optional opens a supplementary source. A missing file is skipped; any other
// failure is degraded.
func (l *Loader) optional(log *outcome.Log, source Source) (*Table, bool) {
	t, err := l.read(source)
	switch {
	case err == nil:
		return t, true
	case errors.Is(err, errors.ErrNotFound):
		log.Skip(stage, string(source), outcome.ReasonSourceUnavailable, "not provided")
		l.logger.Debug("optional source not provided", "source", source)
	default:
		log.Add(outcome.FromError(0, err).Note(stage, string(source)))
		l.logger.Warn("optional source unusable", "source", source, "error", err)
	}
	return nil, false
}

func (l *Loader) read(source Source) (*Table, error) {
	path := l.Path(source)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.NotFoundf("%s: %s does not exist", source, path)
		}
		return nil, errors.Wrapf(err, errors.CodeSourceUnavailable, "%s: open %s", source, path)
	}
	defer f.Close()

	return ReadTable(f, Schemas()[source])
}

// finish records a parsed source. Dropped rows degrade the source; a source
// with no usable rows fails.
func (l *Loader) finish(log *outcome.Log, source Source, rows int, skipped []error) bool {
	l.logger.Info("loaded source", "source", source, "rows", rows, "skipped", len(skipped))

	if rows == 0 {
		err := errors.EmptyResultf("%s: no usable rows", source)
		if len(skipped) > 0 {
			err = err.WithCause(skipped[0])
		}
		log.Add(outcome.Degraded(0, outcome.ReasonEmptyResult, err).Note(stage, string(source)))
		l.logger.Warn("source has no usable rows", "source", source)
		return false
	}
	if len(skipped) > 0 {
		log.Degrade(stage, string(source), outcome.ReasonSchemaMismatch,
			fmt.Sprintf("%d rows skipped, first: %v", len(skipped), skipped[0]))
		l.logger.Warn("skipped malformed rows", "source", source, "rows", len(skipped), "first", skipped[0])
		return true
	}
	log.Add(outcome.Ok(rows).Note(stage, string(source)))
	return true
}

func (l *Loader) logCounts(ds *domain.Dataset) {
	c := ds.Counts()
	l.logger.Info("dataset loaded",
		"creators", c.Creators,
		"products", c.Products,
		"orders", c.Orders,
		"order_items", c.OrderItems,
		"sessions", c.Sessions,
		"engagement", c.Engagement,
	)
}
