package engine

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/slidequiz/engine/internal/deck"
	"github.com/slidequiz/engine/internal/metrics"
	"github.com/slidequiz/engine/internal/scoring"
	"github.com/slidequiz/engine/internal/session"
	"github.com/slidequiz/engine/internal/timer"
)

// StoreFactory yields a session-scoped store for a session id.
type StoreFactory func(sessionID string) session.Store

// Manager owns the live engines, one per quiz attempt. Attaching to a known
// session id rebuilds its engine from the durable store, which is how a
// reloaded presentation gets its score and answers back.
type Manager struct {
	deck    *deck.Deck
	calc    *scoring.Calculator
	sched   timer.Scheduler
	metrics *metrics.Metrics
	logger  zerolog.Logger
	stores  StoreFactory

	mu      sync.RWMutex
	engines map[string]*Engine
}

// NewManager creates a session manager.
func NewManager(d *deck.Deck, calc *scoring.Calculator, sched timer.Scheduler, m *metrics.Metrics, stores StoreFactory, logger zerolog.Logger) *Manager {
	if calc == nil {
		calc = scoring.NewCalculator(scoring.DefaultConfig())
	}
	return &Manager{
		deck:    d,
		calc:    calc,
		sched:   sched,
		metrics: m,
		logger:  logger,
		stores:  stores,
		engines: make(map[string]*Engine),
	}
}

// Create starts a brand-new session with a generated id.
func (m *Manager) Create(ctx context.Context) *Engine {
	return m.GetOrCreate(ctx, uuid.NewString())
}

// Get returns the live engine for a session id, if any.
func (m *Manager) Get(sessionID string) (*Engine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	eng, ok := m.engines[sessionID]
	return eng, ok
}

// GetOrCreate returns the engine for a session id, building one over the
// durable store when none is live.
func (m *Manager) GetOrCreate(ctx context.Context, sessionID string) *Engine {
	m.mu.Lock()
	defer m.mu.Unlock()
	if eng, ok := m.engines[sessionID]; ok {
		return eng
	}

	sess := session.New(ctx, sessionID, m.stores(sessionID), m.calc, m.logger)
	eng := New(m.deck, sess, m.calc, m.sched, m.metrics, m.logger)
	m.engines[sessionID] = eng
	if m.metrics != nil {
		m.metrics.SessionsStarted.Inc()
	}
	m.logger.Info().Str("session_id", sessionID).Msg("session attached")
	return eng
}

// Drop stops a session's timer and forgets its engine. Durable state is kept.
func (m *Manager) Drop(sessionID string) {
	m.mu.Lock()
	eng, ok := m.engines[sessionID]
	delete(m.engines, sessionID)
	m.mu.Unlock()
	if ok {
		eng.Close()
	}
}

// Close stops every live engine.
func (m *Manager) Close() {
	m.mu.Lock()
	engines := m.engines
	m.engines = make(map[string]*Engine)
	m.mu.Unlock()
	for _, eng := range engines {
		eng.Close()
	}
}
