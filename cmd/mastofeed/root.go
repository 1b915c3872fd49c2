package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/pders01/mastofeed/internal/config"
	"github.com/pders01/mastofeed/internal/debuglog"
	"github.com/pders01/mastofeed/internal/feed"
	"github.com/pders01/mastofeed/internal/mastodon"
	"github.com/pders01/mastofeed/internal/metrics"
	"github.com/pders01/mastofeed/internal/page"
	"github.com/pders01/mastofeed/internal/render"
	"github.com/pders01/mastofeed/internal/settings"
	"github.com/pders01/mastofeed/internal/storage"
	"github.com/pders01/mastofeed/internal/validation"
)

// cli holds the global flags and everything opened from them.
type cli struct {
	configPath string
	dbPath     string
	logLevel   string

	cfg   *config.Config
	store *storage.Store

	// httpClient overrides the client used to reach Mastodon instances.
	httpClient *http.Client
}

// app is the wired set of components a command works with.
type app struct {
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	client   *mastodon.Client
	settings *settings.Manager
	feed     *feed.Service
	renderer *render.Renderer
	pipeline *page.Pipeline
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	return c.rootCmd()
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mastofeed",
		Short: "Embed Mastodon feeds as HTML",
		Long: `mastofeed renders the posts of a Mastodon account or hashtag as embeddable HTML.

Feeds are fetched through a local cache and rendered with the stored display
settings, either on demand from the command line or through the HTTP server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "generate-config" {
				return nil
			}
			return c.load()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return c.close()
		},
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "Path to configuration file")
	root.PersistentFlags().StringVar(&c.dbPath, "db", "", "Path to database file (overrides config)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level: DEBUG, INFO, WARN, ERROR or OFF (overrides config)")

	root.AddCommand(
		c.serveCmd(),
		c.fetchCmd(),
		c.lookupCmd(),
		c.cacheCmd(),
		c.settingsCmd(),
		c.generateConfigCmd(),
		c.versionCmd(),
	)
	return root
}

func (c *cli) load() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.dbPath != "" {
		cfg.Database.Path = c.dbPath
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	c.cfg = cfg

	return debuglog.Setup(debuglog.ParseLogLevel(cfg.Log.Level), cfg.Log.File)
}

func (c *cli) openStore() (*storage.Store, error) {
	if c.store != nil {
		return c.store, nil
	}
	path, err := validation.ValidateDBPath(c.cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}
	store, err := storage.NewStoreWithTimeout(path, c.cfg.Database.Timeout)
	if err != nil {
		return nil, err
	}
	c.store = store
	return store, nil
}

func (c *cli) close() error {
	var err error
	if c.store != nil {
		err = c.store.Close()
		c.store = nil
	}
	if cerr := debuglog.Close(); err == nil {
		err = cerr
	}
	return err
}

// wire opens the store and builds the fetch and render components on it.
func (c *cli) wire() (*app, error) {
	store, err := c.openStore()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	manager := settings.NewManager(store, c.cfg.Settings)
	current, err := manager.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	hc := c.httpClient
	if hc == nil {
		hc = &http.Client{}
	}
	client := mastodon.NewClientWithHTTP(hc, current.Timeout(), c.cfg.Mastodon.UserAgent)

	renderer, err := render.New()
	if err != nil {
		return nil, err
	}

	service := feed.NewService(store, client, m)
	return &app{
		registry: reg,
		metrics:  m,
		client:   client,
		settings: manager,
		feed:     service,
		renderer: renderer,
		pipeline: page.NewPipeline(manager, service, renderer, m),
	}, nil
}
