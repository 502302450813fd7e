package classify

import (
	"context"
	"fmt"
	"log/slog"

	"cpelink/internal/linkage"
	"cpelink/internal/logging"
)

// Model is a pretrained binary classifier over an ordered feature vector.
type Model interface {
	Features() []string
	Predict(rows [][]float64) ([]linkage.Label, error)
}

type staged interface {
	StageName() string
}

// Adapter feeds a stage's unlabelled rows to its model.
type Adapter struct {
	model  Model
	schema linkage.Schema
	logger *slog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the adapter logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) { a.logger = logger }
}

// New binds model to schema. A nil model is allowed and leaves every row
// Unknown. A model trained on a different feature list or stage is a
// linkage.ErrSchemaMismatch.
func New(model Model, schema linkage.Schema, opts ...Option) (*Adapter, error) {
	a := &Adapter{model: model, schema: schema.Clone()}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.NewComponentLogger(a.logger, "classify")
	if model == nil {
		return a, nil
	}
	if err := schema.CheckFeatures(model.Features()); err != nil {
		return nil, err
	}
	if s, ok := model.(staged); ok && s.StageName() != "" && s.StageName() != schema.Stage {
		return nil, linkage.Wrap(linkage.ErrSchemaMismatch, schema.Stage, "classify",
			fmt.Sprintf("model was trained for stage %q", s.StageName()), nil)
	}
	return a, nil
}

// HasModel reports whether predictions are available.
func (a *Adapter) HasModel() bool { return a.model != nil }

// Classify replaces the Unknown label of every row with the model's verdict.
// An empty table is returned as is without consulting the model.
func (a *Adapter) Classify(ctx context.Context, unlabelled *linkage.Table) (*linkage.Table, error) {
	logger := logging.WithContext(ctx, a.logger)
	if unlabelled.Len() == 0 {
		logger.Info("nothing to classify")
		return unlabelled, nil
	}
	if err := a.schema.CheckFeatures(unlabelled.Schema().FeatureColumns); err != nil {
		return nil, err
	}
	if a.model == nil {
		logging.WarnWithContext(logger, "no classifier loaded; unlabelled candidates stay unknown",
			"classifier_unavailable",
			logging.Int("unlabelled", unlabelled.Len()),
			logging.String(logging.FieldErrorHint, "check the model_path setting and run cpelink check"),
			logging.String(logging.FieldImpact, "only labelled matches reach the linkage table"),
		)
		return unlabelled, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	labels, err := a.model.Predict(unlabelled.FeatureMatrix())
	if err != nil {
		return nil, linkage.Wrap(nil, a.schema.Stage, "classify", "predict", err)
	}
	if len(labels) != unlabelled.Len() {
		return nil, linkage.Wrap(linkage.ErrSchemaMismatch, a.schema.Stage, "classify",
			fmt.Sprintf("model returned %d labels for %d rows", len(labels), unlabelled.Len()), nil)
	}

	out := unlabelled.Relabel(func(i int, _ linkage.Label, _ linkage.Source) (linkage.Label, linkage.Source) {
		return labels[i], linkage.SourceClassified
	})
	counts := out.Counts()
	logger.Info("classification complete",
		logging.Int("classified", out.Len()),
		logging.Int("positive", counts[linkage.Positive]),
		logging.Int("negative", counts[linkage.Negative]),
	)
	return out, nil
}

// LoadModel reads the forest at path for schema's stage. A load failure is
// logged as critical and returned marked linkage.ErrModelLoad with a nil
// model, so the stage can run without predictions.
func LoadModel(ctx context.Context, path string, schema linkage.Schema, logger *slog.Logger) (Model, error) {
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "classify"))
	forest, err := LoadForest(path)
	if err != nil {
		logging.ErrorWithContext(logger, "classifier failed to load; continuing without predictions",
			"model_load_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.Alert("critical"),
			logging.String(logging.FieldErrorHint, "check that the model artifact exists and is valid JSON"),
			logging.String(logging.FieldImpact, "only labelled matches reach the linkage table"),
		)
		return nil, err
	}
	logger.Info("classifier loaded",
		logging.String("path", path),
		logging.String("name", forest.Name),
		logging.Int("trees", len(forest.Trees)),
		logging.String("schema_fingerprint", schema.Fingerprint()),
	)
	return forest, nil
}
