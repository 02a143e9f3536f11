package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satslab/satslab/internal/badges"
	"github.com/satslab/satslab/internal/catalog"
	"github.com/satslab/satslab/internal/config"
	"github.com/satslab/satslab/internal/explorer"
	"github.com/satslab/satslab/internal/flow"
	"github.com/satslab/satslab/internal/learner"
	"github.com/satslab/satslab/internal/llm"
	"github.com/satslab/satslab/internal/logging"
	"github.com/satslab/satslab/internal/progress"
	"github.com/satslab/satslab/internal/store"
	"github.com/satslab/satslab/internal/tutor"
	"github.com/satslab/satslab/internal/validation"
)

// deps holds the collaborators shared by the TUI and the HTTP server.
type deps struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     *store.Store
	catalog   *catalog.Catalog
	validator *validation.Service
	badges    *badges.Service
	tracker   *progress.StoreTracker
	tutor     *tutor.Service
	registry  *learner.Registry

	closers []func() error
}

// buildDeps wires everything from configuration. logOpts only needs the
// destination; the level comes from the config.
func buildDeps(ctx context.Context, cmd *cobra.Command, logOpts logging.Options) (_ *deps, err error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	d := &deps{cfg: cfg}
	defer func() {
		if err != nil {
			d.Close()
		}
	}()

	logOpts.Level = cfg.LogLevel
	if cfg.LogFile != "" && logOpts.File != "" {
		logOpts.File = cfg.LogFile
	}
	logger, closeLog, err := logging.New(logOpts)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	d.logger = logger
	d.closers = append(d.closers, closeLog)

	if d.catalog, err = loadCatalog(cmd); err != nil {
		return nil, err
	}

	if d.store, err = openStore(cmd, cfg); err != nil {
		return nil, err
	}
	d.closers = append(d.closers, d.store.Close)

	lookup, err := d.buildLookup(ctx)
	if err != nil {
		return nil, err
	}
	d.validator = validation.NewService(lookup,
		validation.WithTimeout(cfg.Explorer.Timeout),
		validation.WithLogger(logger))

	d.badges = badges.NewService(d.store.BadgeRepo(), logger)
	d.tracker = progress.NewStoreTracker(d.store.ProgressRepo())
	d.tutor = d.buildTutor(ctx)

	d.registry = learner.NewRegistry(d.catalog, d.flowDeps, flow.Settings{
		PassRatio: cfg.PassRatio,
		Policy:    cfg.Hints,
	}, logger)
	return d, nil
}

func (d *deps) buildLookup(ctx context.Context) (explorer.Lookup, error) {
	ec := d.cfg.Explorer
	if ec.Offline {
		d.logger.Info("explorer lookups disabled")
		return explorer.Disabled{}, nil
	}
	client := explorer.NewClient(ec.URL, &http.Client{Timeout: ec.Timeout})
	if ec.CacheTTL == 0 {
		return client, nil
	}
	cached, err := explorer.NewCachedLookup(ctx, client, ec.CacheTTL, d.logger)
	if err != nil {
		return nil, fmt.Errorf("init explorer cache: %w", err)
	}
	d.closers = append(d.closers, cached.Close)
	return cached, nil
}

// buildTutor returns nil when no LLM provider is configured; the app works
// without it.
func (d *deps) buildTutor(ctx context.Context) *tutor.Service {
	llmCfg, ok := llm.ConfigFromEnv()
	if !ok {
		d.logger.Info("no LLM provider configured, tutor disabled")
		return nil
	}
	provider, err := llm.NewProvider(ctx, llmCfg, d.store.EventRepo(), d.logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
		fmt.Fprintln(os.Stderr, "The tutor will be unavailable.")
		d.logger.Warn("tutor disabled", zap.Error(err))
		return nil
	}
	d.logger.Info("tutor enabled",
		zap.String("provider", llmCfg.Provider),
		zap.String("model", llmCfg.Model))
	return tutor.New(provider, tutor.DefaultConfig(), d.logger)
}

// flowDeps gives guests memory-only collaborators.
func (d *deps) flowDeps(userID string, guest bool) flow.Deps {
	fd := flow.Deps{Validator: d.validator, Logger: d.logger}
	if guest {
		fd.Tracker = progress.Guest{}
		return fd
	}
	fd.Tracker = d.tracker
	fd.Badges = d.badges
	fd.Events = d.store.EventRepo()
	return fd
}

// Close releases resources in reverse order of acquisition.
func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		_ = d.closers[i]()
	}
	d.closers = nil
}

// loadCatalog reads --content when given, else the built-in modules.
func loadCatalog(cmd *cobra.Command) (*catalog.Catalog, error) {
	path, _ := cmd.Flags().GetString("content")
	if path == "" {
		cat, err := catalog.Default()
		if err != nil {
			return nil, fmt.Errorf("load built-in modules: %w", err)
		}
		return cat, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	cat, err := catalog.Load(data)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	return cat, nil
}

// defaultLogFile is where play writes its log, since the terminal belongs
// to the TUI.
func defaultLogFile() (string, error) {
	dir, err := store.DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "satslab.log"), nil
}
