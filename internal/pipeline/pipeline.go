package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"cpelink/internal/candidates"
	"cpelink/internal/config"
	"cpelink/internal/logging"
	"cpelink/internal/matcher"
	"cpelink/internal/records"
	"cpelink/internal/stagectx"
)

// ErrRunInProgress is returned when another run holds the data directory lock.
var ErrRunInProgress = errors.New("another cpelink run is already in progress")

// Inputs overrides the configured record set locations. Empty fields fall
// back to the configuration.
type Inputs struct {
	CatalogPath   string
	InventoryPath string
}

// StageResult is the outcome of one stage of a run.
type StageResult struct {
	RunID  string
	Report matcher.Report
}

// Result is the outcome of a run.
type Result struct {
	Vendor   StageResult
	Software StageResult
	Elapsed  time.Duration
}

// Pipeline runs the vendor and software stages against one store.
type Pipeline struct {
	cfg    *config.Config
	store  matcher.TableStore
	opts   []matcher.Option
	logger *slog.Logger
}

// New returns a pipeline persisting to store. opts are applied to both
// stage matchers, after the logger.
func New(cfg *config.Config, store matcher.TableStore, logger *slog.Logger, opts ...matcher.Option) (*Pipeline, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("pipeline requires config and store")
	}
	return &Pipeline{
		cfg:    cfg,
		store:  store,
		opts:   append([]matcher.Option{matcher.WithLogger(logger)}, opts...),
		logger: logging.NewComponentLogger(logger, "pipeline"),
	}, nil
}

// Run reads the record sets, links vendors, resolves each inventory item's
// vendor, links software, and saves both tables. A vendor stage failure
// aborts the run before the software stage.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (Result, error) {
	start := time.Now()
	var result Result

	unlock, err := p.lock()
	if err != nil {
		return result, err
	}
	defer unlock()

	catalog, inventory, err := p.readInputs(in)
	if err != nil {
		return result, err
	}

	vendors, err := matcher.NewVendorMatcher(p.cfg, p.opts...)
	if err != nil {
		return result, err
	}
	result.Vendor, err = p.runStage(ctx, matcher.StageVendor, func(ctx context.Context) (matcher.Report, error) {
		report, err := vendors.Match(ctx, catalog, inventory)
		if err != nil {
			return report, err
		}
		return report, vendors.Save(ctx, p.store)
	})
	if err != nil {
		return result, fmt.Errorf("vendor stage: %w", err)
	}

	groups, err := matcher.ResolveVendors(vendors.Get(), inventory)
	if err != nil {
		return result, fmt.Errorf("resolve vendors: %w", err)
	}
	result.Software, err = p.runSoftware(ctx, catalog, groups)
	if err != nil {
		return result, err
	}

	result.Elapsed = time.Since(start)
	p.logger.Info("run complete",
		logging.String("vendor_run_id", result.Vendor.RunID),
		logging.String("software_run_id", result.Software.RunID),
		logging.Int("vendor_links", result.Vendor.Report.Matches),
		logging.Int("software_links", result.Software.Report.Matches),
		logging.Duration("elapsed", result.Elapsed),
	)
	return result, nil
}

// RunVendors runs and saves the vendor stage only.
func (p *Pipeline) RunVendors(ctx context.Context, in Inputs) (StageResult, error) {
	unlock, err := p.lock()
	if err != nil {
		return StageResult{}, err
	}
	defer unlock()

	catalog, inventory, err := p.readInputs(in)
	if err != nil {
		return StageResult{}, err
	}
	vendors, err := matcher.NewVendorMatcher(p.cfg, p.opts...)
	if err != nil {
		return StageResult{}, err
	}
	return p.runStage(ctx, matcher.StageVendor, func(ctx context.Context) (matcher.Report, error) {
		report, err := vendors.Match(ctx, catalog, inventory)
		if err != nil {
			return report, err
		}
		return report, vendors.Save(ctx, p.store)
	})
}

// RunSoftware runs and saves the software stage against the vendor table
// already in the store.
func (p *Pipeline) RunSoftware(ctx context.Context, in Inputs) (StageResult, error) {
	unlock, err := p.lock()
	if err != nil {
		return StageResult{}, err
	}
	defer unlock()

	catalog, inventory, err := p.readInputs(in)
	if err != nil {
		return StageResult{}, err
	}
	vendors, err := matcher.NewVendorMatcher(p.cfg, p.opts...)
	if err != nil {
		return StageResult{}, err
	}
	if err := vendors.Load(ctx, p.store); err != nil {
		return StageResult{}, fmt.Errorf("load vendor links (run the vendor stage first): %w", err)
	}
	groups, err := matcher.ResolveVendors(vendors.Get(), inventory)
	if err != nil {
		return StageResult{}, fmt.Errorf("resolve vendors: %w", err)
	}
	return p.runSoftware(ctx, catalog, groups)
}

func (p *Pipeline) runSoftware(ctx context.Context, catalog []records.CatalogEntry, groups []candidates.InventoryGroup) (StageResult, error) {
	software, err := matcher.NewSoftwareMatcher(p.cfg, p.opts...)
	if err != nil {
		return StageResult{}, err
	}
	result, err := p.runStage(ctx, matcher.StageSoftware, func(ctx context.Context) (matcher.Report, error) {
		report, err := software.Match(ctx, catalog, groups)
		if err != nil {
			return report, err
		}
		return report, software.Save(ctx, p.store)
	})
	if err != nil {
		return result, fmt.Errorf("software stage: %w", err)
	}
	return result, nil
}

func (p *Pipeline) runStage(ctx context.Context, stage string, fn func(context.Context) (matcher.Report, error)) (StageResult, error) {
	runID := uuid.NewString()
	ctx = stagectx.WithRunID(stagectx.WithStage(ctx, stage), runID)
	logger := logging.WithContext(ctx, p.logger)
	logger.Info("stage started")

	report, err := fn(ctx)
	result := StageResult{RunID: runID, Report: report}
	if err != nil {
		logging.ErrorWithContext(logger, "stage failed", "stage_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the configured schema, model and labelled sources"),
		)
		return result, err
	}
	return result, nil
}

func (p *Pipeline) readInputs(in Inputs) ([]records.CatalogEntry, []records.InventoryItem, error) {
	catalogPath := firstNonEmpty(in.CatalogPath, p.cfg.Paths.CatalogCSV)
	inventoryPath := firstNonEmpty(in.InventoryPath, p.cfg.Paths.InventoryCSV)
	catalog, err := records.LoadCatalog(catalogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read catalog: %w", err)
	}
	inventory, err := records.LoadInventory(inventoryPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read inventory: %w", err)
	}
	p.logger.Info("record sets loaded",
		logging.String("catalog", catalogPath),
		logging.Int("catalog_entries", len(catalog)),
		logging.String("inventory", inventoryPath),
		logging.Int("inventory_items", len(inventory)),
	)
	return catalog, inventory, nil
}

// lock takes the run lock in the data directory and returns its release func.
func (p *Pipeline) lock() (func(), error) {
	lockPath := p.cfg.LockPath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock directory: %w", err)
	}
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrRunInProgress, lockPath)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			p.logger.Warn("failed to release run lock", logging.Error(err))
		}
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
