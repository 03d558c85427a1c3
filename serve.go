package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"car-scout/models"
	"car-scout/server"
	"car-scout/services"
	"car-scout/storage"
)

var serveFlags struct {
	addr       string
	references []string
	persist    bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ranking pass over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", "", "listen address (default SERVER_ADDR)")
	serveCmd.Flags().StringSliceVar(&serveFlags.references, "references", nil, "reference files loaded at startup")
	serveCmd.Flags().BoolVar(&serveFlags.persist, "persist", false, "store every run in PostgreSQL")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := newPipeline()
	if err != nil {
		return err
	}

	var catalog []models.ReferenceRecord
	for _, path := range serveFlags.references {
		records, err := storage.LoadReferences(path)
		if err != nil {
			return err
		}
		catalog = append(catalog, records...)
	}

	rc, closeCache, err := referenceCache(ctx)
	if err != nil {
		return err
	}
	defer closeCache()

	container := &server.Container{
		Pipeline:   pipeline,
		Insights:   services.NewInsightService(logger),
		Catalog:    catalog,
		Enricher:   newEnricher(rc),
		RunHistory: cfg.RunHistory,
		Logger:     logger,
	}
	if serveFlags.persist {
		pg, err := storage.NewPostgresWriter(cfg.DSN())
		if err != nil {
			return err
		}
		defer pg.Close()
		container.Reports = pg
	}

	addr := serveFlags.addr
	if addr == "" {
		addr = cfg.ServerAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.NewRouter(container),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("[server] Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("[server] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
