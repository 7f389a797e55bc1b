package session

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStore records persisted state in memory and can simulate load failures.
type stubStore struct {
	answers       map[string]AnswerState
	shuffles      map[string]ShuffleOrder
	score         int
	totalPossible int

	loadErr error

	saveAnswerCalls  int
	saveShuffleCalls int
	saveTotalCalls   int
}

func newStubStore() *stubStore {
	return &stubStore{}
}

func (s *stubStore) LoadAnswers(context.Context) (map[string]AnswerState, error) {
	return s.answers, s.loadErr
}

func (s *stubStore) SaveAnswers(_ context.Context, answers map[string]AnswerState) error {
	s.answers = answers
	s.saveAnswerCalls++
	return nil
}

func (s *stubStore) LoadShuffles(context.Context) (map[string]ShuffleOrder, error) {
	return s.shuffles, s.loadErr
}

func (s *stubStore) SaveShuffles(_ context.Context, shuffles map[string]ShuffleOrder) error {
	s.shuffles = shuffles
	s.saveShuffleCalls++
	return nil
}

func (s *stubStore) LoadTotals(context.Context) (int, int, error) {
	return s.score, s.totalPossible, s.loadErr
}

func (s *stubStore) SaveTotals(_ context.Context, score, totalPossible int) error {
	s.score = score
	s.totalPossible = totalPossible
	s.saveTotalCalls++
	return nil
}

func (s *stubStore) ClearAnswers(context.Context) error {
	s.answers = nil
	s.shuffles = nil
	return nil
}

func (s *stubStore) ClearTotals(context.Context) error {
	s.score = 0
	s.totalPossible = 0
	return nil
}

func newTestSession(store Store) *Session {
	return New(context.Background(), "attempt-1", store, nil, zerolog.Nop())
}

func TestScoreMonotonicity(t *testing.T) {
	sess := newTestSession(newStubStore())
	ctx := context.Background()

	prev := 0
	for _, pts := range []int{100, 0, 94, 10, 16} {
		require.NoError(t, sess.AddPoints(ctx, pts))
		assert.GreaterOrEqual(t, sess.Score(), prev)
		prev = sess.Score()
	}
	assert.Equal(t, 220, sess.Score())

	// negative input clamps to zero instead of decreasing the score
	require.NoError(t, sess.AddPoints(ctx, -50))
	assert.Equal(t, 220, sess.Score())
}

func TestResetThenReuse(t *testing.T) {
	store := newStubStore()
	sess := newTestSession(store)
	ctx := context.Background()

	require.NoError(t, sess.AddPoints(ctx, 750))
	require.NoError(t, sess.AddPossiblePoints(ctx, 1000))
	require.NoError(t, sess.ResetScore(ctx))
	assert.Zero(t, sess.Score())
	assert.Zero(t, sess.TotalPossible())

	require.NoError(t, sess.AddPoints(ctx, 300))
	assert.Equal(t, 300, sess.Score())

	// reset is idempotent
	require.NoError(t, sess.ResetScore(ctx))
	require.NoError(t, sess.ResetScore(ctx))
	assert.Zero(t, sess.Score())
	assert.Zero(t, sess.TotalPossible())
}

func TestAnswerStateLifecycle(t *testing.T) {
	store := newStubStore()
	sess := newTestSession(store)
	ctx := context.Background()

	_, ok := sess.AnswerState("q1")
	assert.False(t, ok)

	require.NoError(t, sess.RecordAnswer(ctx, "q1", 2, true, 94))
	st, ok := sess.AnswerState("q1")
	require.True(t, ok)
	require.NotNil(t, st.SelectedIndex)
	assert.Equal(t, 2, *st.SelectedIndex)
	assert.True(t, st.IsCorrect)
	assert.Equal(t, 94, st.PointsAwarded)
	assert.False(t, st.IsSkipped)
	assert.False(t, st.IsTimedOut)
	assert.Equal(t, 1, store.saveAnswerCalls, "write-through on record")

	// re-answering overwrites
	require.NoError(t, sess.RecordAnswer(ctx, "q1", 0, false, 94))
	st, _ = sess.AnswerState("q1")
	assert.False(t, st.IsCorrect)
	assert.Zero(t, st.PointsAwarded, "incorrect answers never carry points")
}

func TestTimeoutAndSkipOutcomes(t *testing.T) {
	sess := newTestSession(newStubStore())
	ctx := context.Background()

	require.NoError(t, sess.RecordTimeout(ctx, "q1"))
	st, _ := sess.AnswerState("q1")
	assert.Nil(t, st.SelectedIndex)
	assert.True(t, st.IsTimedOut)
	assert.False(t, st.IsSkipped)

	require.NoError(t, sess.RecordSkip(ctx, "q2"))
	st, _ = sess.AnswerState("q2")
	assert.Nil(t, st.SelectedIndex)
	assert.True(t, st.IsSkipped)
	assert.False(t, st.IsTimedOut)
}

func TestSetAnswerStateNormalizesConflictingFlags(t *testing.T) {
	sess := newTestSession(newStubStore())
	ctx := context.Background()

	// an outcome carries at most one flag; expiry wins over skip
	require.NoError(t, sess.SetAnswerState(ctx, "q1", AnswerState{IsSkipped: true, IsTimedOut: true}))
	st, _ := sess.AnswerState("q1")
	assert.True(t, st.IsTimedOut)
	assert.False(t, st.IsSkipped)

	// a selected choice clears both flags
	idx := 2
	require.NoError(t, sess.SetAnswerState(ctx, "q2", AnswerState{SelectedIndex: &idx, IsSkipped: true, IsTimedOut: true}))
	st, _ = sess.AnswerState("q2")
	assert.False(t, st.IsTimedOut)
	assert.False(t, st.IsSkipped)
}

func TestEnsureShuffleOrderGeneratesValidPermutation(t *testing.T) {
	sess := newTestSession(newStubStore())
	ctx := context.Background()

	for n := 1; n <= 8; n++ {
		qid := string(rune('a' + n))
		correct := n / 2
		ord, err := sess.EnsureShuffleOrder(ctx, qid, n, correct)
		require.NoError(t, err)
		assert.True(t, ord.Valid(), "n=%d", n)
		assert.Len(t, ord.ChoiceIndices, n)
		assert.Equal(t, correct, ord.ChoiceIndices[ord.CorrectIndex],
			"correct index must point at the originally-correct choice")
	}
}

func TestEnsureShuffleOrderIsStable(t *testing.T) {
	store := newStubStore()
	sess := newTestSession(store)
	ctx := context.Background()

	first, err := sess.EnsureShuffleOrder(ctx, "q1", 6, 3)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := sess.EnsureShuffleOrder(ctx, "q1", 6, 3)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, 1, store.saveShuffleCalls, "persisted once, never regenerated")
}

func TestEnsureShuffleOrderRejectsInvalidLayout(t *testing.T) {
	sess := newTestSession(newStubStore())
	ctx := context.Background()

	_, err := sess.EnsureShuffleOrder(ctx, "q1", 0, 0)
	assert.Error(t, err)
	_, err = sess.EnsureShuffleOrder(ctx, "q1", 4, 4)
	assert.Error(t, err)
	_, err = sess.EnsureShuffleOrder(ctx, "q1", 4, -1)
	assert.Error(t, err)
}

func TestSetShuffleOrderValidatesPermutation(t *testing.T) {
	sess := newTestSession(newStubStore())
	ctx := context.Background()

	err := sess.SetShuffleOrder(ctx, "q1", ShuffleOrder{ChoiceIndices: []int{0, 0, 1}, CorrectIndex: 0})
	assert.Error(t, err)
	err = sess.SetShuffleOrder(ctx, "q1", ShuffleOrder{ChoiceIndices: []int{2, 0, 1}, CorrectIndex: 3})
	assert.Error(t, err)
	err = sess.SetShuffleOrder(ctx, "q1", ShuffleOrder{ChoiceIndices: []int{2, 0, 1}, CorrectIndex: 1})
	assert.NoError(t, err)
}

func TestMarkPossibleIsIdempotentPerQuestion(t *testing.T) {
	sess := newTestSession(newStubStore())
	ctx := context.Background()

	require.NoError(t, sess.MarkPossible(ctx, "q1", 100))
	require.NoError(t, sess.MarkPossible(ctx, "q1", 100))
	require.NoError(t, sess.MarkPossible(ctx, "q2", 50))
	assert.Equal(t, 150, sess.TotalPossible())

	// raw accumulation stays caller-disciplined
	require.NoError(t, sess.AddPossiblePoints(ctx, 100))
	require.NoError(t, sess.AddPossiblePoints(ctx, 100))
	assert.Equal(t, 350, sess.TotalPossible())
}

func TestSetTotalPossibleSeedsFromDeck(t *testing.T) {
	sess := newTestSession(newStubStore())
	ctx := context.Background()

	require.NoError(t, sess.SetTotalPossible(ctx, 1250))
	assert.Equal(t, 1250, sess.TotalPossible())
	require.NoError(t, sess.SetTotalPossible(ctx, -5))
	assert.Zero(t, sess.TotalPossible())
}

func TestClearAllAnswers(t *testing.T) {
	store := newStubStore()
	sess := newTestSession(store)
	ctx := context.Background()

	require.NoError(t, sess.RecordSkip(ctx, "q1"))
	_, err := sess.EnsureShuffleOrder(ctx, "q1", 4, 0)
	require.NoError(t, err)

	require.NoError(t, sess.ClearAllAnswers(ctx))
	_, ok := sess.AnswerState("q1")
	assert.False(t, ok)
	_, ok = sess.ShuffleOrder("q1")
	assert.False(t, ok)
	assert.Nil(t, store.answers)
	assert.Nil(t, store.shuffles)

	// idempotent
	require.NoError(t, sess.ClearAllAnswers(ctx))
}

func TestNewLoadsPersistedState(t *testing.T) {
	store := newStubStore()
	one := 1
	store.answers = map[string]AnswerState{"q1": {SelectedIndex: &one, IsCorrect: true, PointsAwarded: 94}}
	store.shuffles = map[string]ShuffleOrder{"q1": {ChoiceIndices: []int{1, 0}, CorrectIndex: 0}}
	store.score = 94
	store.totalPossible = 100

	sess := newTestSession(store)
	st, ok := sess.AnswerState("q1")
	require.True(t, ok)
	assert.True(t, st.IsCorrect)
	assert.Equal(t, 94, sess.Score())
	assert.Equal(t, 100, sess.TotalPossible())

	// an already-answered question does not inflate the possible total again
	require.NoError(t, sess.MarkPossible(context.Background(), "q1", 100))
	assert.Equal(t, 100, sess.TotalPossible())
}

func TestNewDegradesOnLoadFailure(t *testing.T) {
	store := newStubStore()
	store.score = 500
	store.loadErr = errors.New("backend unreachable")

	sess := newTestSession(store)
	assert.Zero(t, sess.Score())
	assert.Zero(t, sess.TotalPossible())
	_, ok := sess.AnswerState("q1")
	assert.False(t, ok)
}

func TestCalculateTimeAdjustedPoints(t *testing.T) {
	sess := newTestSession(newStubStore())

	assert.Equal(t, 94, sess.CalculateTimeAdjustedPoints(100, 1, 15))
	assert.Equal(t, 10, sess.CalculateTimeAdjustedPoints(50, 8, 10))
	assert.Equal(t, 0, sess.CalculateTimeAdjustedPoints(100, 15, 15))
}
