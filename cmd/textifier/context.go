package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"textifier/internal/config"
	"textifier/internal/history"
	"textifier/internal/logging"
	"textifier/internal/metrics"
	"textifier/internal/models"
	"textifier/internal/workflow"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	store   *history.Store
	metrics *metrics.Metrics
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
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
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

// historyStore opens the job history on first use. It returns nil when
// history is disabled.
func (c *commandContext) historyStore() (*history.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.History.Enabled {
		return nil, nil
	}
	if c.store == nil {
		store, err := history.Open(cfg)
		if err != nil {
			return nil, fmt.Errorf("open job history: %w", err)
		}
		c.store = store
	}
	return c.store, nil
}

func (c *commandContext) metricsRegistry() *metrics.Metrics {
	if c.metrics == nil {
		c.metrics = metrics.New()
	}
	return c.metrics
}

func (c *commandContext) registry() (*models.WorkerRegistry, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return models.NewWorkerRegistry(cfg, logger), nil
}

// newManager wires a workflow manager with the production dependencies.
func (c *commandContext) newManager() (*workflow.Manager, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	store, err := c.historyStore()
	if err != nil {
		logging.WarnWithContext(logger, "job history disabled for this run", "history_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "jobs will not be recorded"),
		)
		store = nil
	}
	deps, err := workflow.DefaultDependencies(cfg, logger, store, c.metricsRegistry())
	if err != nil {
		return nil, err
	}
	return workflow.NewManager(cfg, deps, logger), nil
}

// close writes the metrics textfile and releases the history store.
func (c *commandContext) close() error {
	var errs []error
	if c.metrics != nil && c.config != nil && strings.TrimSpace(c.config.Metrics.TextfilePath) != "" {
		if err := c.metrics.WriteTextfile(c.config.Metrics.TextfilePath); err != nil {
			errs = append(errs, fmt.Errorf("write metrics textfile: %w", err))
		}
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close job history: %w", err))
		}
		c.store = nil
	}
	return errors.Join(errs...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
