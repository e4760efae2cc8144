package cli

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
	"golang.org/x/sync/errgroup"

	"github.com/MimeLyc/chapter-translator/internal/config"
	"github.com/MimeLyc/chapter-translator/internal/httpapi"
	"github.com/MimeLyc/chapter-translator/internal/jobs"
	"github.com/MimeLyc/chapter-translator/internal/library"
	"github.com/MimeLyc/chapter-translator/internal/service"
	"github.com/MimeLyc/chapter-translator/pkg/icron"
	"github.com/MimeLyc/chapter-translator/pkg/log"
)

const shutdownTimeout = 10 * time.Second

type retryScheduler interface {
	Schedule() error
}

type cronRunner interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

type workerPool interface {
	Stop()
}

func newServeCommand(flags *rootFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chapter job queue, retry sweep and HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "override HTTP_ADDR")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("Failed to close database: %v", err)
		}
	}()

	queue := jobs.NewQueue(cfg.Translate.Workers, a.store)
	queue.Start(service.NewJobExecutor(a.translator))

	cronEngine := icron.NewCron()
	scheduler := service.NewRetryScheduler(cfg.Translate.RetryCron, cronEngine, queue)

	srv := httpapi.NewServer(queue,
		httpapi.WithChapterStore(a.store),
		httpapi.WithSettingsStore(a.settings),
		httpapi.WithModelManager(a.provider),
		httpapi.WithLibrary(library.NewScanner(cfg.Storage.NovelStorage, a.store)),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runWithComponents(ctx, cfg, scheduler, cronEngine, srv, queue)
}

// runWithComponents blocks until ctx is done or the HTTP server fails, then
// shuts everything down.
func runWithComponents(
	ctx context.Context,
	cfg *config.Config,
	scheduler retryScheduler,
	cronEngine cronRunner,
	httpSrv httpServer,
	workers workerPool,
) error {
	if err := scheduler.Schedule(); err != nil {
		workers.Stop()
		return fmt.Errorf("schedule retry sweep: %w", err)
	}
	cronEngine.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP API listening on %s", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(cfg.HTTP.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := httpSrv.Shutdown(shutdownCtx)
		select {
		case <-cronEngine.Stop().Done():
		case <-shutdownCtx.Done():
			log.Warn("Retry sweep did not stop within %s", shutdownTimeout)
		}
		workers.Stop()
		return err
	})
	return g.Wait()
}
