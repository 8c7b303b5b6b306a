package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"content-targeting-engine/internal/api"
	"content-targeting-engine/internal/config"
	"content-targeting-engine/internal/engine"
	"content-targeting-engine/internal/listener"
	"content-targeting-engine/internal/storage"
)

// Server owns the engine and keeps its snapshot fresh.
type Server struct {
	cfg config.Config
	src engine.Source
	eng *engine.TargetingEngine

	rebuildMu sync.Mutex
}

func New(cfg config.Config, src engine.Source, eng *engine.TargetingEngine) *Server {
	return &Server{cfg: cfg, src: src, eng: eng}
}

// Rebuild reloads the whole bundle and swaps the snapshot. Concurrent
// triggers are serialized so snapshots are installed in load order.
func (s *Server) Rebuild(ctx context.Context) error {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()
	return s.eng.BuildSnapshot(ctx, s.src)
}

// StartRefresher rebuilds on a fixed interval as a safety net for missed
// change notifications. Stop it with Shutdown.
func (s *Server) StartRefresher(ctx context.Context, every time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	_, err = sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			if err := s.Rebuild(ctx); err != nil {
				log.Error().Err(err).Msg("scheduled refresh failed; keeping previous snapshot")
			}
		}),
		gocron.WithName("snapshot-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule refresh: %w", err)
	}
	sched.Start()
	return sched, nil
}

func (s *Server) Handler() http.Handler {
	return api.Router(api.NewTargetingHandler(s.eng, s.cfg.RecommendationTTL()))
}

// watch starts whichever change feed the source supports.
func (s *Server) watch(ctx context.Context) {
	switch src := s.src.(type) {
	case *storage.Store:
		go listener.ListenAndRefresh(ctx, src.PgxPool(), s, s.cfg.Listener.Channel, s.cfg.Backoff())
	case storage.FileSource:
		go func() {
			err := src.Watch(ctx, 300*time.Millisecond, func() {
				if err := s.Rebuild(ctx); err != nil {
					log.Error().Err(err).Msg("refresh snapshot error")
				}
			})
			if err != nil {
				log.Error().Err(err).Msg("content watcher stopped")
			}
		}()
	}
}

// OpenSource returns the configured content source. The close func is never nil.
func OpenSource(ctx context.Context, cfg config.Config) (engine.Source, func(), error) {
	switch cfg.Source.Kind {
	case config.SourceFile:
		return storage.FileSource{Path: cfg.Source.Path}, func() {}, nil
	case config.SourcePostgres:
		store, err := storage.New(ctx, cfg)
		if err != nil {
			return nil, func() {}, err
		}
		return store, store.Close, nil
	default:
		return nil, func() {}, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

func Run(cfg config.Config) {
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	src, closeSrc, err := OpenSource(rootCtx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init source")
	}
	defer closeSrc()

	// Engine
	eng := engine.NewEngine(nil, engine.Options{WholeWordTerms: cfg.Glossary.WholeWords})
	srv := New(cfg, src, eng)
	if err := srv.Rebuild(rootCtx); err != nil {
		log.Fatal().Err(err).Msg("initial snapshot build")
	}

	// Change feeds
	srv.watch(rootCtx)
	sched, err := srv.StartRefresher(rootCtx, cfg.RefreshInterval())
	if err != nil {
		log.Fatal().Err(err).Msg("start refresher")
	}

	// HTTP
	httpSrv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Server goroutine
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("source", cfg.Source.Kind).Msg("http server starting")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server crashed")
		}
	}()

	// Wait for signal
	waitForSignal()
	log.Info().Msg("shutdown...")

	// Graceful shutdown
	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	cancel() // stop background goroutines
	_ = sched.Shutdown()
	_ = httpSrv.Shutdown(shCtx)
}

func waitForSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
