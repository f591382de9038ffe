package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "Conflux/internal/domain/repository"
	"Conflux/internal/handler/api"
	"Conflux/internal/repository"
	"Conflux/internal/usecase"
	"Conflux/pkg/config"
	xhttp "Conflux/pkg/http"
	pkgkafka "Conflux/pkg/kafka"
	applogger "Conflux/pkg/logger"
	"Conflux/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	store      *repository.MemoryStore
	handler    *api.ConfluenceEchoHandler
	collector  *usecase.RecordCollector
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	archive    domrepo.Archive
	snap       domrepo.Snapshotter
	jobQueue   *queue.RedisQueue
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	logger *applogger.Logger,
	store *repository.MemoryStore,
	handler *api.ConfluenceEchoHandler,
	collector *usecase.RecordCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	archive domrepo.Archive,
) *App {
	return &App{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		handler:   handler,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		archive:   archive,
	}
}

// SetSnapshotter enables state snapshot persistence.
func (a *App) SetSnapshotter(s domrepo.Snapshotter) { a.snap = s }

// SetJobQueue enables the deferred archive job queue.
func (a *App) SetJobQueue(q *queue.RedisQueue) { a.jobQueue = q }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.logger

	// Restore state from the last snapshot before accepting traffic.
	if a.snap != nil {
		if b, ok, err := a.snap.Load(ctx); err != nil {
			l.Warn("snapshot load error", applogger.Error(err))
		} else if ok {
			if err := a.store.Import(b); err != nil {
				l.Warn("snapshot import error", applogger.Error(err))
			} else {
				l.Info("state restored from snapshot", applogger.Int("bytes", len(b)))
			}
		}
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start extraction stream collector
	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				l.Error("collector error", applogger.Error(err))
			}
		}()
		l.Info("record collector started", applogger.Strings("channels", a.cfg.Extraction.Channels))
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start archive job queue workers
	if a.jobQueue != nil {
		if err := a.jobQueue.Start(); err != nil {
			l.Error("archive queue start error", applogger.Error(err))
			return err
		}
		l.Info("archive job queue started")

		// Ship duplicate error logs through the queue as periodic digests.
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          usecase.LogDigestMessageType,
			Publisher:      a.jobQueue,
		})
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Periodic snapshot loop
	if a.snap != nil && a.cfg.Snapshot.Interval > 0 {
		go a.snapshotLoop(ctx)
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) snapshotLoop(ctx context.Context) {
	t := time.NewTicker(a.cfg.Snapshot.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.saveSnapshot(ctx)
		}
	}
}

func (a *App) saveSnapshot(ctx context.Context) {
	b, err := a.store.Export()
	if err != nil {
		a.logger.Warn("snapshot export error", applogger.Error(err))
		return
	}
	if err := a.snap.Save(ctx, b); err != nil {
		a.logger.Warn("snapshot save error", applogger.Error(err))
		return
	}
	a.logger.Debug("snapshot saved", applogger.Int("bytes", len(b)))
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.logger

	// Stop collector (pipeline + stream)
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Stop archive queue workers
	if a.jobQueue != nil {
		l.RemoveCollector()
		if err := a.jobQueue.Stop(ctx); err != nil {
			l.Warn("archive queue stop error", applogger.Error(err))
		}
	}

	// Final snapshot so a restart resumes where we left off
	if a.snap != nil {
		a.saveSnapshot(ctx)
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			l.Error("http shutdown error", applogger.Error(err))
		}
	}

	// Close the archive sink last, after all producers stopped.
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			l.Warn("archive close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
