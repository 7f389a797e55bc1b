package session

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/rs/zerolog"

	"github.com/slidequiz/engine/internal/scoring"
)

// Session owns one quiz attempt's scoring state: answer outcomes, choice
// shuffle orders and the two running totals. It is constructed once per
// attempt, loads whatever the store already holds, and writes through on every
// mutation so a reloaded presentation reconstructs identical state.
//
// The two totals only move upward between resets; negative inputs are clamped
// to zero rather than rejected.
type Session struct {
	id     string
	store  Store
	calc   *scoring.Calculator
	logger zerolog.Logger

	mu            sync.Mutex
	answers       map[string]AnswerState
	shuffles      map[string]ShuffleOrder
	score         int
	totalPossible int
	counted       map[string]struct{}
}

// New builds a session over the given store, loading any persisted state.
// Corrupted or unreadable state degrades to an empty session rather than
// failing the attempt.
func New(ctx context.Context, id string, store Store, calc *scoring.Calculator, logger zerolog.Logger) *Session {
	if calc == nil {
		calc = scoring.NewCalculator(scoring.DefaultConfig())
	}
	s := &Session{
		id:      id,
		store:   store,
		calc:    calc,
		logger:  logger.With().Str("session_id", id).Logger(),
		counted: make(map[string]struct{}),
	}

	answers, err := store.LoadAnswers(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("load answers failed, starting empty")
		answers = nil
	}
	if answers == nil {
		answers = make(map[string]AnswerState)
	}
	s.answers = answers

	shuffles, err := store.LoadShuffles(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("load shuffles failed, starting empty")
		shuffles = nil
	}
	if shuffles == nil {
		shuffles = make(map[string]ShuffleOrder)
	}
	s.shuffles = shuffles

	score, total, err := store.LoadTotals(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("load totals failed, starting at zero")
		score, total = 0, 0
	}
	if score < 0 {
		score = 0
	}
	if total < 0 {
		total = 0
	}
	s.score = score
	s.totalPossible = total

	// Questions with a recorded outcome already contributed to totalPossible.
	for qid := range s.answers {
		s.counted[qid] = struct{}{}
	}

	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// AnswerState returns the recorded outcome for a question, if any.
func (s *Session) AnswerState(questionID string) (AnswerState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.answers[questionID]
	return st, ok
}

// SetAnswerState upserts a question's outcome and persists the answer map.
// An incorrect outcome never carries points.
func (s *Session) SetAnswerState(ctx context.Context, questionID string, state AnswerState) error {
	if !state.IsCorrect {
		state.PointsAwarded = 0
	}
	if state.PointsAwarded < 0 {
		state.PointsAwarded = 0
	}
	if state.SelectedIndex != nil {
		state.IsSkipped = false
		state.IsTimedOut = false
	}
	// At most one of the two flags may be set; expiry takes precedence.
	if state.IsSkipped && state.IsTimedOut {
		state.IsSkipped = false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[questionID] = state
	if err := s.store.SaveAnswers(ctx, s.answers); err != nil {
		return fmt.Errorf("persist answers: %w", err)
	}
	return nil
}

// RecordAnswer stores a selected-choice outcome. Awarded points are kept only
// for correct answers.
func (s *Session) RecordAnswer(ctx context.Context, questionID string, selectedIndex int, correct bool, awarded int) error {
	return s.SetAnswerState(ctx, questionID, AnswerState{
		SelectedIndex: &selectedIndex,
		IsCorrect:     correct,
		PointsAwarded: awarded,
	})
}

// RecordTimeout stores an expired-without-answer outcome.
func (s *Session) RecordTimeout(ctx context.Context, questionID string) error {
	return s.SetAnswerState(ctx, questionID, AnswerState{IsTimedOut: true})
}

// RecordSkip stores a learner-skipped outcome.
func (s *Session) RecordSkip(ctx context.Context, questionID string) error {
	return s.SetAnswerState(ctx, questionID, AnswerState{IsSkipped: true})
}

// ShuffleOrder returns the persisted display order for a question, if any.
func (s *Session) ShuffleOrder(questionID string) (ShuffleOrder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ord, ok := s.shuffles[questionID]
	return ord, ok
}

// SetShuffleOrder upserts a question's display order and persists the map.
func (s *Session) SetShuffleOrder(ctx context.Context, questionID string, order ShuffleOrder) error {
	if !order.Valid() {
		return fmt.Errorf("shuffle order for %q is not a valid permutation", questionID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuffles[questionID] = order
	if err := s.store.SaveShuffles(ctx, s.shuffles); err != nil {
		return fmt.Errorf("persist shuffles: %w", err)
	}
	return nil
}

// EnsureShuffleOrder returns the question's display order, generating and
// persisting one on first visit. An existing entry is never regenerated, so
// the display order is stable across reloads. correctChoice is the index of
// the correct option in the question's original choice order.
func (s *Session) EnsureShuffleOrder(ctx context.Context, questionID string, choiceCount, correctChoice int) (ShuffleOrder, error) {
	if choiceCount <= 0 || correctChoice < 0 || correctChoice >= choiceCount {
		return ShuffleOrder{}, fmt.Errorf("invalid choice layout for %q: count=%d correct=%d", questionID, choiceCount, correctChoice)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if ord, ok := s.shuffles[questionID]; ok {
		return ord, nil
	}

	perm := rand.Perm(choiceCount)
	ord := ShuffleOrder{ChoiceIndices: perm}
	for pos, original := range perm {
		if original == correctChoice {
			ord.CorrectIndex = pos
			break
		}
	}
	s.shuffles[questionID] = ord
	if err := s.store.SaveShuffles(ctx, s.shuffles); err != nil {
		return ShuffleOrder{}, fmt.Errorf("persist shuffles: %w", err)
	}
	return ord, nil
}

// Score returns the running awarded total.
func (s *Session) Score() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score
}

// TotalPossible returns the running maximum-possible total.
func (s *Session) TotalPossible() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalPossible
}

// AddPoints adds awarded points to the score and persists the totals.
func (s *Session) AddPoints(ctx context.Context, points int) error {
	if points < 0 {
		points = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.score += points
	return s.saveTotalsLocked(ctx)
}

// AddPossiblePoints adds a question's base value to the maximum-possible
// total. The session does not deduplicate; callers invoke this once per
// question, or use MarkPossible for a guarded variant.
func (s *Session) AddPossiblePoints(ctx context.Context, points int) error {
	if points < 0 {
		points = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalPossible += points
	return s.saveTotalsLocked(ctx)
}

// MarkPossible adds a question's base value to the maximum-possible total at
// most once per question id for the life of this session object.
func (s *Session) MarkPossible(ctx context.Context, questionID string, points int) error {
	if points < 0 {
		points = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, done := s.counted[questionID]; done {
		return nil
	}
	s.counted[questionID] = struct{}{}
	s.totalPossible += points
	return s.saveTotalsLocked(ctx)
}

// SetTotalPossible overwrites the maximum-possible total, used to seed it from
// the full quiz deck in one step.
func (s *Session) SetTotalPossible(ctx context.Context, points int) error {
	if points < 0 {
		points = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalPossible = points
	return s.saveTotalsLocked(ctx)
}

// ResetScore zeroes both totals and removes their durable entries. Idempotent.
func (s *Session) ResetScore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.score = 0
	s.totalPossible = 0
	s.counted = make(map[string]struct{})
	if err := s.store.ClearTotals(ctx); err != nil {
		return fmt.Errorf("clear totals: %w", err)
	}
	return nil
}

// ClearAllAnswers empties both maps and removes their durable entries.
// Idempotent.
func (s *Session) ClearAllAnswers(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = make(map[string]AnswerState)
	s.shuffles = make(map[string]ShuffleOrder)
	s.counted = make(map[string]struct{})
	if err := s.store.ClearAnswers(ctx); err != nil {
		return fmt.Errorf("clear answers: %w", err)
	}
	return nil
}

// CalculateTimeAdjustedPoints exposes the decay calculator as a bound
// operation for callers that already hold the session.
func (s *Session) CalculateTimeAdjustedPoints(basePoints, elapsedSeconds, timeLimit int) int {
	return s.calc.AwardedPoints(basePoints, elapsedSeconds, timeLimit)
}

func (s *Session) saveTotalsLocked(ctx context.Context) error {
	if err := s.store.SaveTotals(ctx, s.score, s.totalPossible); err != nil {
		return fmt.Errorf("persist totals: %w", err)
	}
	return nil
}
