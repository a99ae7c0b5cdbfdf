package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/json-to-terraform/atc/internal/api"
	"github.com/json-to-terraform/atc/internal/archive"
	"github.com/json-to-terraform/atc/internal/component"
	"github.com/json-to-terraform/atc/internal/filter"
	_ "github.com/json-to-terraform/atc/internal/handler" // register handlers
	"github.com/json-to-terraform/atc/internal/persistence"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  `Start the HTTP API server: catalog, archives, editor sessions and filters.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 0, "listen port (overrides server.port)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	store := component.NewStore(cfg.Catalog.Dir, log)
	if cfg.Catalog.Watch {
		if err := store.Watch(ctx); err != nil {
			log.Warn("catalog watch disabled", zap.Error(err))
		}
	}

	filters := filter.NewStore(time.Now(), log)
	var source filter.OptionsSource
	if cfg.Filters.OptionsURL != "" {
		source = filter.NewHTTPSource(cfg.Filters.OptionsURL)
		go func() {
			// Failure keeps the All-only lists; the error is already logged.
			_ = filters.Refresh(ctx, source)
		}()
	}

	server := api.New(cfg, log, api.Deps{
		Store:        store,
		Catalog:      sessionCatalog(store),
		Archives:     archive.NewStore(cfg.Storage.ArchiveDir),
		Backend:      backendFor,
		Filters:      filters,
		FilterSource: source,
	})

	errChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

// sessionCatalog is the catalog editor sessions resolve against: the remote
// catalog service when configured, otherwise the local store.
func sessionCatalog(store *component.Store) component.Catalog {
	if cfg.Catalog.URL != "" {
		return component.NewClient(cfg.Catalog.URL, nil)
	}
	return store
}

// backendFor returns the configured persistence backend for a provider.
func backendFor(provider string) persistence.Backend {
	if cfg.Storage.Backend == "remote" {
		return persistence.NewRemote(cfg.Storage.RemoteURL, provider, &http.Client{Timeout: cfg.Storage.Timeout})
	}
	return persistence.NewDirectory(cfg.Storage.Directory)
}
