package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"cpelink/internal/config"
	"cpelink/internal/linkage"
	"cpelink/internal/logging"
	"cpelink/internal/matcher"
	"cpelink/internal/pipeline"
	"cpelink/internal/store"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil {
			if level := strings.TrimSpace(*c.logLevelFlag); level != "" {
				cfg.Logging.Level = strings.ToLower(level)
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) withStore(fn func(*config.Config, *store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	s, err := store.Open(cfg.Paths.StorePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()
	return fn(cfg, s)
}

func (c *commandContext) withPipeline(fn func(*pipeline.Pipeline) error) error {
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	return c.withStore(func(cfg *config.Config, s *store.Store) error {
		p, err := pipeline.New(cfg, s, logger)
		if err != nil {
			return err
		}
		return fn(p)
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// parseStage accepts the stage names users tend to type.
func parseStage(arg string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "vendor", "vendors":
		return matcher.StageVendor, nil
	case "software":
		return matcher.StageSoftware, nil
	default:
		return "", fmt.Errorf("unknown stage %q (expected vendor or software)", arg)
	}
}

func stageSchema(cfg *config.Config, stage string) config.Schema {
	if stage == matcher.StageSoftware {
		return cfg.Software.Schema
	}
	return cfg.Vendor.Schema
}

func loadStageTable(cmd *cobra.Command, s *store.Store, stage string) (*linkage.Table, error) {
	t, err := s.LoadTable(cmd.Context(), stage)
	if errors.Is(err, linkage.ErrNotFound) {
		return nil, fmt.Errorf("no %s table saved yet; run `cpelink run` first", stage)
	}
	return t, err
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
