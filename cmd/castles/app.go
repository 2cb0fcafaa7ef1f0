package main

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"castlemap/pkg/cache"
	"castlemap/pkg/config"
	"castlemap/pkg/db"
	"castlemap/pkg/logging"
	"castlemap/pkg/request"
	"castlemap/pkg/tracker"
	"castlemap/pkg/version"
)

// annotationNoSetup marks commands that run without config and logging.
const annotationNoSetup = "castles/no-setup"

// app holds the state shared by one CLI invocation.
type app struct {
	configPath string

	cfg     *config.Config
	logger  *slog.Logger
	tracker *tracker.Tracker
	client  *request.Client

	cleanups []func()
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "castles",
		Short: "Build the European castles dataset",
		Long: `castles fetches castle records from Wikidata, OpenStreetMap and
Wikimedia Commons and merges them into one JSON dataset.

A full refresh runs:
  castles wikidata data/raw/wd_castles_raw.json
  castles osm data/raw/osm_castles_raw.json
  castles thumbs data/raw/wd_castles_raw.json data/raw/thumbs.json
  castles normalize data/raw/wd_castles_raw.json data/raw/osm_castles_raw.json data/castles.min.json --thumbs data/raw/thumbs.json
  castles split data/castles.min.json data/eu`,
		Version:           version.Version,
		PersistentPreRunE: a.setup,
		SilenceErrors:     true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath, "path to the YAML config file")

	root.AddCommand(
		a.wikidataCommand(),
		a.osmCommand(),
		a.thumbsCommand(),
		a.normalizeCommand(),
		a.splitCommand(),
		a.geojsonCommand(),
		a.statsCommand(),
		a.initConfigCommand(),
	)
	return root
}

// setup runs after argument validation, so a usage error never touches
// the config file or the logs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true
	if cmd.Annotations[annotationNoSetup] != "" {
		return nil
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg

	cleanupLogs, err := logging.Init(&cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	a.cleanups = append(a.cleanups, cleanupLogs)

	a.logger = slog.Default().With("run_id", uuid.NewString())
	a.tracker = tracker.New()
	a.logger.Info("Castles pipeline started", "version", version.Version, "command", cmd.Name())
	return nil
}

// requestClient builds the HTTP client on first use, opening the response
// cache if it is enabled.
func (a *app) requestClient() (*request.Client, error) {
	if a.client != nil {
		return a.client, nil
	}

	var c cache.Cacher
	if a.cfg.Cache.Enabled {
		d, err := db.Init(a.cfg.Cache.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open response cache: %w", err)
		}
		a.cleanups = append(a.cleanups, func() { d.Close() })

		ttl := a.cfg.Cache.TTL.Std()
		if ttl > 0 {
			if n, err := d.PruneCache(ttl); err != nil {
				a.logger.Warn("Cache pruning failed", "error", err)
			} else if n > 0 {
				a.logger.Info("Pruned stale cache entries", "count", n)
			}
		}
		c = cache.NewSQLiteCache(d, ttl)
		a.logger.Info("Response cache enabled", "path", a.cfg.Cache.Path, "ttl", ttl)
	}

	a.client = request.New(c, a.tracker, request.ClientConfig{
		UserAgent: a.cfg.Contact.UserAgent(version.Version),
		Retries:   a.cfg.Request.Retries,
		BaseDelay: a.cfg.Request.BaseDelay.Std(),
	})
	a.client.Logger = logging.RequestLogger
	return a.client, nil
}

func (a *app) close() {
	if a.client != nil {
		a.tracker.LogSummary(a.logger)
	}
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
}
