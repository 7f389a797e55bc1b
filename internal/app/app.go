package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/slidequiz/engine/internal/config"
	"github.com/slidequiz/engine/internal/deck"
	"github.com/slidequiz/engine/internal/engine"
	"github.com/slidequiz/engine/internal/logging"
	"github.com/slidequiz/engine/internal/metrics"
	"github.com/slidequiz/engine/internal/scoring"
	"github.com/slidequiz/engine/internal/server"
	"github.com/slidequiz/engine/internal/session"
	"github.com/slidequiz/engine/internal/storage/memory"
	"github.com/slidequiz/engine/internal/storage/redisstore"
	ws "github.com/slidequiz/engine/pkg/http/ws"
)

// Application aggregates shared infrastructure (deck, store, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	redis    *redis.Client
	sessions *engine.Manager
	http     *http.Server
}

// New bootstraps config, logger, the deck, the session store and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	quizDeck, err := deck.Load(cfg.Deck.Path)
	if err != nil {
		return nil, fmt.Errorf("load deck: %w", err)
	}
	logger.Info().
		Str("deck", quizDeck.Title).
		Int("quiz_slides", len(quizDeck.QuizSlides())).
		Int("total_possible", quizDeck.TotalPossible()).
		Msg("deck loaded")

	var redisClient *redis.Client
	var stores engine.StoreFactory
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		stores = func(sessionID string) session.Store {
			return redisstore.NewStore(redisClient, sessionID, cfg.Redis.TTL, logger)
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("redis session store configured")
	} else {
		memStores := make(map[string]*memory.Store)
		stores = func(sessionID string) session.Store {
			// one store per session id so re-attaching finds prior state
			if st, ok := memStores[sessionID]; ok {
				return st
			}
			st := memory.NewStore()
			memStores[sessionID] = st
			return st
		}
		logger.Warn().Msg("no REDIS_ADDR set; sessions will not survive restarts")
	}

	calc := scoring.NewCalculator(scoring.Config{
		MinAward:         cfg.Engine.MinAwardPoints,
		DefaultTimeLimit: cfg.Engine.DefaultTimeLimitSeconds,
	})
	engineMetrics := metrics.New(prometheus.DefaultRegisterer)
	manager := engine.NewManager(quizDeck, calc, nil, engineMetrics, stores, logger)

	httpHandlers := engine.NewHTTPHandlers(manager, logger)
	wsHub := ws.NewHub(logger)
	wsHandler := engine.NewWSHandler(manager, wsHub, logger)

	apiServer := server.NewHTTPServer(cfg, logger, redisClient, server.QuizRoutes{
		CreateSession: httpHandlers.CreateSession,
		GetScore:      httpHandlers.GetScore,
		EnterQuestion: httpHandlers.EnterQuestion,
		SubmitAnswer:  httpHandlers.SubmitAnswer,
		SkipQuestion:  httpHandlers.SkipQuestion,
		LeaveQuestion: httpHandlers.LeaveQuestion,
		RestartQuiz:   httpHandlers.RestartQuiz,
		WebSocket:     wsHandler.HandleWebSocket,
	})

	return &Application{
		cfg:      cfg,
		logger:   logger,
		redis:    redisClient,
		sessions: manager,
		http:     apiServer,
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	a.sessions.Close()

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
