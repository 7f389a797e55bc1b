package engine

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/slidequiz/engine/internal/server"
	"github.com/slidequiz/engine/internal/timer"
	ws "github.com/slidequiz/engine/pkg/http/ws"
)

// WSHandler streams per-second tick snapshots and timeout events to the
// presentation over a WebSocket, one connection per session.
type WSHandler struct {
	manager *Manager
	hub     *ws.Hub
	logger  zerolog.Logger
}

// NewWSHandler creates the tick-streaming handler.
func NewWSHandler(manager *Manager, hub *ws.Hub, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		manager: manager,
		hub:     hub,
		logger:  logger.With().Str("component", "engine_ws").Logger(),
	}
}

// HandleWebSocket handles GET /ws/sessions/{id}.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	raw, err := server.WSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := ws.NewConnection(raw, h.logger)
	h.hub.Register(sessionID, conn)

	eng := h.manager.GetOrCreate(r.Context(), sessionID)
	unsubscribe := eng.Subscribe(
		func(questionID string, snap timer.Snapshot) {
			_ = h.hub.Send(sessionID, ws.NewMessage(ws.TypeQuestionTick, ws.QuestionTickPayload{
				QuestionID:       questionID,
				RemainingSeconds: snap.RemainingSeconds,
				DisplayedPoints:  snap.DisplayedPoints,
				Phase:            string(snap.Phase),
			}))
		},
		func(questionID string) {
			_ = h.hub.Send(sessionID, ws.NewMessage(ws.TypeQuestionTimeout, ws.QuestionTimeoutPayload{
				QuestionID: questionID,
			}))
			_ = h.hub.Send(sessionID, ws.NewMessage(ws.TypeScoreUpdate, ws.ScoreUpdatePayload{
				Score:         eng.Session().Score(),
				TotalPossible: eng.Session().TotalPossible(),
			}))
		},
	)

	// Read loop keeps the connection alive and answers pings; any read error
	// tears the subscription down.
	go func() {
		defer func() {
			unsubscribe()
			h.hub.Unregister(sessionID, conn)
		}()
		for {
			msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msg.Type == ws.TypePing {
				_ = conn.Send(ws.Message{Type: ws.TypePong})
			}
		}
	}()
}
