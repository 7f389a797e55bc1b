package server

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/slidequiz/engine/internal/config"
)

// WSUpgrader handles WebSocket upgrades for the tick stream. The engine runs
// next to its presentation, so any origin is accepted.
var WSUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// QuizRoutes bundles the session endpoints mounted by the server. Handlers
// are plain funcs so the server package stays free of engine imports.
type QuizRoutes struct {
	CreateSession http.HandlerFunc
	GetScore      http.HandlerFunc
	EnterQuestion http.HandlerFunc
	SubmitAnswer  http.HandlerFunc
	SkipQuestion  http.HandlerFunc
	LeaveQuestion http.HandlerFunc
	RestartQuiz   http.HandlerFunc
	WebSocket     http.HandlerFunc
}

// NewHTTPServer wires base routes (health, metrics) plus the quiz API.
// redisClient may be nil when the in-memory store is active.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, redisClient *redis.Client, routes QuizRoutes) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), redisClient); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	mux.HandleFunc("POST /v1/sessions", routes.CreateSession)
	mux.HandleFunc("GET /v1/sessions/{id}/score", routes.GetScore)
	mux.HandleFunc("POST /v1/sessions/{id}/questions/{qid}/enter", routes.EnterQuestion)
	mux.HandleFunc("POST /v1/sessions/{id}/questions/{qid}/answer", routes.SubmitAnswer)
	mux.HandleFunc("POST /v1/sessions/{id}/questions/{qid}/skip", routes.SkipQuestion)
	mux.HandleFunc("POST /v1/sessions/{id}/questions/{qid}/leave", routes.LeaveQuestion)
	mux.HandleFunc("POST /v1/sessions/{id}/restart", routes.RestartQuiz)
	mux.HandleFunc("GET /ws/sessions/{id}", routes.WebSocket)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}
}

func pingDependencies(ctx context.Context, redisClient *redis.Client) error {
	if redisClient == nil {
		return nil
	}
	return redisClient.Ping(ctx).Err()
}
