package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/FabianFlo/bookapp/internal/config"
	"github.com/FabianFlo/bookapp/internal/cover"
	"github.com/FabianFlo/bookapp/internal/network"
	"github.com/FabianFlo/bookapp/internal/openlibrary"
	"github.com/FabianFlo/bookapp/internal/prefetch"
	"github.com/FabianFlo/bookapp/internal/search"
	"github.com/FabianFlo/bookapp/internal/storage"
)

var (
	// flagConfig is set by the --config flag.
	flagConfig string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bookapp",
	Short: "Offline-first cache and prefetch engine for the OpenLibrary catalog",
	Long: `bookapp keeps a local SQLite cache of OpenLibrary listings, work
details, search results and cover images, warms it in the background,
and serves it to the UI layer over HTTP, online or offline.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ./bookapp.yaml or ~/.bookapp/bookapp.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(prefetchCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

// app bundles the wired components a command needs.
type app struct {
	store     *storage.Store
	catalog   *openlibrary.Client
	monitor   *network.Monitor
	covers    *cover.Resolver
	index     *search.Index
	preloader *prefetch.Preloader
}

// openApp wires the engine from the loaded config. withIndex also opens
// the Bleve index, which creates files under the data dir.
func openApp(withIndex bool) (*app, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	store := storage.New(cfg.DBPath())
	catalog := openlibrary.NewClient(cfg.APIBaseURL)
	monitor := network.NewMonitor(cfg.ProbeURL)
	covers := cover.NewResolver(store, monitor, cfg.CoversBaseURL, logger)

	var idx *search.Index
	if withIndex {
		var err error
		idx, err = search.Open(cfg.IndexPath())
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("open search index: %w", err)
		}
		idx.SetStore(store)
	}

	pcfg := prefetch.Config{
		Genres:            cfg.Prefetch.Genres,
		PagesPerGenre:     cfg.Prefetch.PagesPerGenre,
		PageSize:          cfg.Prefetch.PageSize,
		TTL:               cfg.Prefetch.TTL,
		DetailConcurrency: cfg.Prefetch.DetailConcurrency,
	}
	var indexer prefetch.Indexer
	if idx != nil {
		indexer = idx
	}
	preloader := prefetch.New(store, catalog, monitor, indexer, pcfg, logger)

	return &app{
		store:     store,
		catalog:   catalog,
		monitor:   monitor,
		covers:    covers,
		index:     idx,
		preloader: preloader,
	}, nil
}

// close releases the app's resources.
func (a *app) close() {
	if a.index != nil {
		if err := a.index.Close(); err != nil {
			logger.Warn("close index", "error", err)
		}
	}
	if err := a.store.Close(); err != nil {
		logger.Warn("close store", "error", err)
	}
}
