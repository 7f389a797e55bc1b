package session

import "context"

// Store persists one session's quiz state. The layout mirrors the durable
// storage the presentation layer observes: the answer and shuffle maps are
// each saved as a single JSON document, the two running totals as
// string-encoded integers.
//
// Loads must degrade: a malformed or missing entry is returned as empty/zero
// state, never as an error. Errors are reserved for the backing store being
// unreachable.
type Store interface {
	LoadAnswers(ctx context.Context) (map[string]AnswerState, error)
	SaveAnswers(ctx context.Context, answers map[string]AnswerState) error

	LoadShuffles(ctx context.Context) (map[string]ShuffleOrder, error)
	SaveShuffles(ctx context.Context, shuffles map[string]ShuffleOrder) error

	// LoadTotals returns (score, totalPossible).
	LoadTotals(ctx context.Context) (int, int, error)
	SaveTotals(ctx context.Context, score, totalPossible int) error

	// ClearAnswers removes both the answer and shuffle entries. Idempotent.
	ClearAnswers(ctx context.Context) error
	// ClearTotals removes both total entries. Idempotent.
	ClearTotals(ctx context.Context) error
}
