package matcher

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"cpelink/internal/classify"
	"cpelink/internal/config"
	"cpelink/internal/consolidate"
	"cpelink/internal/dedupe"
	"cpelink/internal/labelled"
	"cpelink/internal/linkage"
	"cpelink/internal/logging"
	"cpelink/internal/similarity"
	"cpelink/internal/stagectx"
)

// Stage names, also used as store keys.
const (
	StageVendor   = "vendor"
	StageSoftware = "software"
)

// TableStore persists linkage tables keyed by stage name.
type TableStore interface {
	SaveTable(ctx context.Context, stage, runID string, t *linkage.Table) error
	LoadTable(ctx context.Context, stage string) (*linkage.Table, error)
}

// Report carries the row counts of one Match call.
type Report struct {
	Stage              string
	Left               int
	Right              int
	Candidates         int
	Rejected           map[string]int
	MissingPartitions  []string
	Labelled           int
	Unlabelled         int
	ModelLoaded        bool
	ClassifiedPositive int
	DedupedClassified  int
	DedupedLabelled    int
	Matches            int
	Elapsed            time.Duration
}

// Option configures a matcher.
type Option func(*options)

type options struct {
	model        classify.Model
	modelSet     bool
	modelPath    *string
	labelledPath *string
	logger       *slog.Logger
}

// WithModel injects a classifier instead of loading the configured artifact.
// A nil model runs the stage without predictions.
func WithModel(model classify.Model) Option {
	return func(o *options) {
		o.model = model
		o.modelSet = true
	}
}

// WithModelPath overrides the configured model artifact path.
func WithModelPath(path string) Option {
	return func(o *options) { o.modelPath = &path }
}

// WithLabelledPath overrides the configured labelled source path.
func WithLabelledPath(path string) Option {
	return func(o *options) { o.labelledPath = &path }
}

// WithLogger sets the matcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// core holds everything the two stages share: the schema, the labelled and
// classifier steps, and the current linkage table.
type core struct {
	cfg          *config.Config
	stage        string
	schemaCfg    config.Schema
	schema       linkage.Schema
	modelPath    string
	labelledPath string
	foldColumns  []string
	opts         options
	logger       *slog.Logger

	mu    sync.RWMutex
	table *linkage.Table
}

func newCore(cfg *config.Config, stage string, schemaCfg config.Schema, modelPath, labelledPath string, foldColumns []string, opts []Option) (*core, error) {
	schema, err := linkage.NewSchema(stage, schemaCfg.KeyColumns, schemaCfg.FeatureColumns, schemaCfg.AttrColumns)
	if err != nil {
		return nil, err
	}
	c := &core{
		cfg:          cfg,
		stage:        stage,
		schemaCfg:    schemaCfg,
		schema:       schema,
		modelPath:    modelPath,
		labelledPath: labelledPath,
		foldColumns:  foldColumns,
		table:        linkage.Empty(schema),
	}
	for _, opt := range opts {
		opt(&c.opts)
	}
	if c.opts.modelPath != nil {
		c.modelPath = *c.opts.modelPath
	}
	if c.opts.labelledPath != nil {
		c.labelledPath = *c.opts.labelledPath
	}
	c.logger = logging.NewComponentLogger(c.opts.logger, stage+"_matcher")
	return c, nil
}

func (c *core) featureSet(bindings map[string]string) (*similarity.FeatureSet, error) {
	metric, err := similarity.NewMetric(c.cfg.Similarity.Metric)
	if err != nil {
		return nil, linkage.Wrap(nil, c.stage, "features", "", err)
	}
	return similarity.NewFeatureSet(similarity.NewScorer(metric), c.schema.FeatureColumns, bindings)
}

func (c *core) stageContext(ctx context.Context) context.Context {
	if _, ok := stagectx.StageFromContext(ctx); ok {
		return ctx
	}
	return stagectx.WithStage(ctx, c.stage)
}

func (c *core) model(ctx context.Context) (classify.Model, error) {
	if c.opts.modelSet {
		return c.opts.model, nil
	}
	model, err := classify.LoadModel(ctx, c.modelPath, c.schema, c.opts.logger)
	if err != nil && !linkage.Recoverable(err) {
		return nil, err
	}
	return model, nil
}

// finish runs every step after candidate generation and stores the result.
func (c *core) finish(ctx context.Context, logger *slog.Logger, candidates *linkage.Table, report *Report) error {
	examples, err := labelled.Load(ctx, c.labelledPath, c.schema, labelled.ReadOptions{FoldColumns: c.foldColumns}, c.opts.logger)
	if err != nil && !linkage.Recoverable(err) {
		return err
	}
	reconciled, stats := labelled.Reconcile(ctx, candidates, examples, c.opts.logger)
	report.Labelled = stats.Labelled
	report.Unlabelled = stats.Unlabelled
	_, unlabelled := labelled.Split(reconciled)

	model, err := c.model(ctx)
	if err != nil {
		return err
	}
	adapter, err := classify.New(model, c.schema, classify.WithLogger(c.opts.logger))
	if err != nil {
		return err
	}
	report.ModelLoaded = adapter.HasModel()
	classified, err := adapter.Classify(ctx, unlabelled)
	if err != nil {
		return err
	}
	report.ClassifiedPositive = classified.Counts()[linkage.Positive]

	resolver := dedupe.New(c.schemaCfg.DedupeColumns, c.schemaCfg.TieBreakFeature, c.opts.logger)
	dedupedClassified, err := resolver.Resolve(ctx, classified)
	if err != nil {
		return err
	}
	labelledRows, err := examples.Table(candidates)
	if err != nil {
		return err
	}
	dedupedLabelled, err := resolver.Resolve(ctx, labelledRows)
	if err != nil {
		return err
	}
	report.DedupedClassified = dedupedClassified.Len()
	report.DedupedLabelled = dedupedLabelled.Len()

	final, err := consolidate.Consolidate(ctx, c.schema, c.schemaCfg.LinkageKey, dedupedLabelled, dedupedClassified, c.opts.logger)
	if err != nil {
		return err
	}
	report.Matches = final.Len()

	c.mu.Lock()
	c.table = final
	c.mu.Unlock()

	c.logSamples(logger, final)
	return nil
}

func (c *core) logSamples(logger *slog.Logger, t *linkage.Table) {
	limit := min(c.cfg.Matching.SampleSize, t.Len())
	if limit <= 0 || !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	refs, err := c.schema.Resolve(c.schemaCfg.OutputColumns...)
	if err != nil {
		return
	}
	for i := 0; i < limit; i++ {
		logger.Debug("sample match",
			logging.Int("index", i),
			logging.String("match", strings.Join(t.Tuple(i, refs), " | ")),
			logging.Floats("features", t.FeatureRow(i)),
			logging.String("source", string(t.Source(i))),
		)
	}
}

func (c *core) logReport(logger *slog.Logger, report Report) {
	attrs := []logging.Attr{
		logging.Int("left", report.Left),
		logging.Int("right", report.Right),
		logging.Int("candidates", report.Candidates),
		logging.Int("labelled", report.Labelled),
		logging.Int("unlabelled", report.Unlabelled),
		logging.Bool("model_loaded", report.ModelLoaded),
		logging.Int("classified_positive", report.ClassifiedPositive),
		logging.Int("deduped_classified", report.DedupedClassified),
		logging.Int("deduped_labelled", report.DedupedLabelled),
		logging.Int("matches", report.Matches),
		logging.Duration("elapsed", report.Elapsed),
	}
	for _, rule := range slices.Sorted(maps.Keys(report.Rejected)) {
		attrs = append(attrs, logging.Int("rejected_"+rule, report.Rejected[rule]))
	}
	logger.Info("stage complete", logging.Args(attrs...)...)
}

// Get returns the current linkage table. Tables are immutable, so the
// snapshot is safe to share.
func (c *core) Get() *linkage.Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table
}

// Schema returns the stage's candidate table layout.
func (c *core) Schema() linkage.Schema { return c.schema.Clone() }

// OutputColumns returns the columns exported for this stage.
func (c *core) OutputColumns() []string { return append([]string(nil), c.schemaCfg.OutputColumns...) }

// Save persists the current table under the stage name. The run id is taken
// from ctx when present.
func (c *core) Save(ctx context.Context, store TableStore) error {
	runID, _ := stagectx.RunIDFromContext(ctx)
	if err := store.SaveTable(ctx, c.stage, runID, c.Get()); err != nil {
		return linkage.Wrap(nil, c.stage, "save", "", err)
	}
	return nil
}

// Load replaces the current table with the one persisted for the stage.
// A stored table with a different schema is linkage.ErrSchemaMismatch.
func (c *core) Load(ctx context.Context, store TableStore) error {
	t, err := store.LoadTable(ctx, c.stage)
	if err != nil {
		return linkage.Wrap(nil, c.stage, "load", "", err)
	}
	if !t.Schema().Equal(c.schema) {
		return linkage.Wrap(linkage.ErrSchemaMismatch, c.stage, "load", "stored table has a different column layout", nil)
	}
	c.mu.Lock()
	c.table = t
	c.mu.Unlock()
	return nil
}

func rejectedByName[R ~string](rejected map[R]int) map[string]int {
	out := make(map[string]int, len(rejected))
	for rule, n := range rejected {
		out[string(rule)] = n
	}
	return out
}
