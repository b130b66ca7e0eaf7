package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/FabianFlo/bookapp/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the cache API over HTTP",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openApp(true)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if err := a.store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	// Keep the online flag current while serving.
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.monitor.Probe(watchCtx)
	go a.monitor.Watch(watchCtx, 30*time.Second)

	server := web.NewServer(a.store, a.catalog, a.covers, a.preloader, a.index, a.monitor, cfg.Prefetch.TTL, logger)

	logger.Info("serving", "addr", cfg.HTTPAddr)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return httpServer.ListenAndServe()
}
