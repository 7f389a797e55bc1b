// Package memory provides an in-process session.Store, used in tests and as
// the fallback when no Redis address is configured.
package memory

import (
	"context"
	"sync"

	"github.com/slidequiz/engine/internal/session"
)

// Store keeps session state in process memory. It survives quiz restarts but
// not process restarts, which matches a presentation served from one process.
type Store struct {
	mu            sync.RWMutex
	answers       map[string]session.AnswerState
	shuffles      map[string]session.ShuffleOrder
	score         int
	totalPossible int
	hasTotals     bool
}

var _ session.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{}
}

func (s *Store) LoadAnswers(_ context.Context) (map[string]session.AnswerState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyAnswers(s.answers), nil
}

func (s *Store) SaveAnswers(_ context.Context, answers map[string]session.AnswerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = copyAnswers(answers)
	return nil
}

func (s *Store) LoadShuffles(_ context.Context) (map[string]session.ShuffleOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyShuffles(s.shuffles), nil
}

func (s *Store) SaveShuffles(_ context.Context, shuffles map[string]session.ShuffleOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuffles = copyShuffles(shuffles)
	return nil
}

func (s *Store) LoadTotals(_ context.Context) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasTotals {
		return 0, 0, nil
	}
	return s.score, s.totalPossible, nil
}

func (s *Store) SaveTotals(_ context.Context, score, totalPossible int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.score = score
	s.totalPossible = totalPossible
	s.hasTotals = true
	return nil
}

func (s *Store) ClearAnswers(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = nil
	s.shuffles = nil
	return nil
}

func (s *Store) ClearTotals(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.score = 0
	s.totalPossible = 0
	s.hasTotals = false
	return nil
}

func copyAnswers(in map[string]session.AnswerState) map[string]session.AnswerState {
	if in == nil {
		return nil
	}
	out := make(map[string]session.AnswerState, len(in))
	for k, v := range in {
		if v.SelectedIndex != nil {
			idx := *v.SelectedIndex
			v.SelectedIndex = &idx
		}
		out[k] = v
	}
	return out
}

func copyShuffles(in map[string]session.ShuffleOrder) map[string]session.ShuffleOrder {
	if in == nil {
		return nil
	}
	out := make(map[string]session.ShuffleOrder, len(in))
	for k, v := range in {
		indices := make([]int, len(v.ChoiceIndices))
		copy(indices, v.ChoiceIndices)
		v.ChoiceIndices = indices
		out[k] = v
	}
	return out
}
