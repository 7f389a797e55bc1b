// Package engine wires the deck, session store and per-question countdowns
// together: it is the slide-to-scoring glue the presentation layer talks to.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/slidequiz/engine/internal/deck"
	"github.com/slidequiz/engine/internal/metrics"
	"github.com/slidequiz/engine/internal/scoring"
	"github.com/slidequiz/engine/internal/session"
	"github.com/slidequiz/engine/internal/timer"
)

var (
	// ErrSlideNotFound is returned when a question id is not in the deck.
	ErrSlideNotFound = errors.New("slide not found")
	// ErrNotQuizSlide is returned when the slide carries no scoring fields.
	ErrNotQuizSlide = errors.New("slide is not a quiz slide")
	// ErrAlreadyAnswered is returned when a question already has an outcome.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrNoShuffleOrder is returned when answering a question that was never entered.
	ErrNoShuffleOrder = errors.New("no shuffle order for question")
	// ErrQuestionNotActive is returned when answering a question whose countdown
	// is not the running one.
	ErrQuestionNotActive = errors.New("question has no active countdown")
)

// TickListener receives per-second display state for the active question.
type TickListener func(questionID string, snap timer.Snapshot)

// TimeoutListener is notified when the active question's countdown expires.
type TimeoutListener func(questionID string)

// EnterResult is what the presentation needs to mount a question slide.
type EnterResult struct {
	Order           session.ShuffleOrder `json:"order"`
	Snapshot        timer.Snapshot       `json:"snapshot"`
	AlreadyAnswered bool                 `json:"alreadyAnswered"`
	Answer          *session.AnswerState `json:"answer,omitempty"`
}

// AnswerResult summarizes a recorded outcome plus the updated totals.
type AnswerResult struct {
	QuestionID          string `json:"questionId"`
	IsCorrect           bool   `json:"isCorrect"`
	PointsAwarded       int    `json:"pointsAwarded"`
	CorrectDisplayIndex int    `json:"correctDisplayIndex"`
	Score               int    `json:"score"`
	TotalPossible       int    `json:"totalPossible"`
}

// Engine drives one session through the deck: it lazily fixes shuffle orders,
// counts each question into the possible total once, runs one countdown at a
// time and converts elapsed time into awarded points on submission.
type Engine struct {
	deck    *deck.Deck
	sess    *session.Session
	calc    *scoring.Calculator
	sched   timer.Scheduler
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu        sync.Mutex
	active    *timer.Countdown
	activeQID string
	subGen    uint64
	onTick    TickListener
	onTimeout TimeoutListener
}

// New builds an engine for one session. scheduler may be nil for wall-clock
// ticking; metrics may be nil.
func New(d *deck.Deck, sess *session.Session, calc *scoring.Calculator, sched timer.Scheduler, m *metrics.Metrics, logger zerolog.Logger) *Engine {
	if calc == nil {
		calc = scoring.NewCalculator(scoring.DefaultConfig())
	}
	return &Engine{
		deck:    d,
		sess:    sess,
		calc:    calc,
		sched:   sched,
		metrics: m,
		logger:  logger.With().Str("session_id", sess.ID()).Logger(),
	}
}

// Session exposes the underlying session for score reads.
func (e *Engine) Session() *session.Session { return e.sess }

// Deck exposes the loaded deck.
func (e *Engine) Deck() *deck.Deck { return e.deck }

// Subscribe registers the presentation's tick and timeout listeners,
// replacing any previous subscription. The returned cancel func clears the
// listeners only while this subscription is still the current one, so a stale
// teardown cannot wipe a replacement's listeners.
func (e *Engine) Subscribe(onTick TickListener, onTimeout TimeoutListener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subGen++
	gen := e.subGen
	e.onTick = onTick
	e.onTimeout = onTimeout
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.subGen != gen {
			return
		}
		e.onTick = nil
		e.onTimeout = nil
	}
}

// EnterQuestion mounts a question slide: it fixes the shuffle order on first
// visit, counts the question's base value into the possible total once, and,
// unless the question already has an outcome, starts a fresh countdown
// (stopping any countdown left over from a previous slide).
func (e *Engine) EnterQuestion(ctx context.Context, questionID string) (EnterResult, error) {
	slide, ok := e.deck.Slide(questionID)
	if !ok {
		return EnterResult{}, fmt.Errorf("%w: %s", ErrSlideNotFound, questionID)
	}
	if !slide.IsQuiz() {
		return EnterResult{}, fmt.Errorf("%w: %s", ErrNotQuizSlide, questionID)
	}

	order, err := e.sess.EnsureShuffleOrder(ctx, questionID, len(slide.Choices), slide.CorrectChoice)
	if err != nil {
		return EnterResult{}, err
	}
	if err := e.sess.MarkPossible(ctx, questionID, slide.BasePoints); err != nil {
		return EnterResult{}, err
	}

	if answer, answered := e.sess.AnswerState(questionID); answered {
		e.stopActive("")
		return EnterResult{
			Order:           order,
			Snapshot:        timer.Snapshot{Phase: timer.PhaseExpired},
			AlreadyAnswered: true,
			Answer:          &answer,
		}, nil
	}

	cd := timer.New(timer.Config{
		BasePoints: slide.BasePoints,
		TimeLimit:  slide.TimeLimitSeconds,
		OnTick:     func(int) { e.publishTick(questionID) },
		OnTimeout:  func() { e.handleTimeout(questionID) },
	}, e.calc, e.sched)

	e.mu.Lock()
	prev := e.active
	e.active = cd
	e.activeQID = questionID
	e.mu.Unlock()
	if prev != nil {
		prev.Stop()
	}
	cd.Start()

	e.logger.Debug().Str("question_id", questionID).Int("base_points", slide.BasePoints).Msg("question entered")
	return EnterResult{Order: order, Snapshot: cd.Snapshot()}, nil
}

// SubmitAnswer stops the active countdown and records the outcome.
// displayIndex is the chosen position in display order; correctness is judged
// against the session's persisted shuffle order, and the award comes from the
// decay calculator at the elapsed countdown time.
func (e *Engine) SubmitAnswer(ctx context.Context, questionID string, displayIndex int) (AnswerResult, error) {
	slide, ok := e.deck.Slide(questionID)
	if !ok {
		return AnswerResult{}, fmt.Errorf("%w: %s", ErrSlideNotFound, questionID)
	}
	if !slide.IsQuiz() {
		return AnswerResult{}, fmt.Errorf("%w: %s", ErrNotQuizSlide, questionID)
	}
	if _, answered := e.sess.AnswerState(questionID); answered {
		return AnswerResult{}, fmt.Errorf("%w: %s", ErrAlreadyAnswered, questionID)
	}
	order, ok := e.sess.ShuffleOrder(questionID)
	if !ok {
		return AnswerResult{}, fmt.Errorf("%w: %s", ErrNoShuffleOrder, questionID)
	}

	// Elapsed time is only meaningful while this question's countdown is the
	// running one.
	elapsed, wasActive := e.stopActive(questionID)
	if !wasActive {
		return AnswerResult{}, fmt.Errorf("%w: %s", ErrQuestionNotActive, questionID)
	}

	correct := displayIndex == order.CorrectIndex
	awarded := 0
	if correct {
		awarded = e.calc.AwardedPoints(slide.BasePoints, elapsed, slide.TimeLimitSeconds)
	}

	if err := e.sess.RecordAnswer(ctx, questionID, displayIndex, correct, awarded); err != nil {
		return AnswerResult{}, err
	}
	if correct {
		if err := e.sess.AddPoints(ctx, awarded); err != nil {
			return AnswerResult{}, err
		}
	}

	if e.metrics != nil {
		outcome := metrics.OutcomeIncorrect
		if correct {
			outcome = metrics.OutcomeCorrect
		}
		e.metrics.AnswersRecorded.WithLabelValues(outcome).Inc()
		e.metrics.PointsAwarded.Add(float64(awarded))
	}

	e.logger.Info().
		Str("question_id", questionID).
		Bool("correct", correct).
		Int("elapsed", elapsed).
		Int("awarded", awarded).
		Msg("answer recorded")

	return AnswerResult{
		QuestionID:          questionID,
		IsCorrect:           correct,
		PointsAwarded:       awarded,
		CorrectDisplayIndex: order.CorrectIndex,
		Score:               e.sess.Score(),
		TotalPossible:       e.sess.TotalPossible(),
	}, nil
}

// Skip stops the active countdown and records a skipped outcome.
func (e *Engine) Skip(ctx context.Context, questionID string) error {
	slide, ok := e.deck.Slide(questionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSlideNotFound, questionID)
	}
	if !slide.IsQuiz() {
		return fmt.Errorf("%w: %s", ErrNotQuizSlide, questionID)
	}
	if _, answered := e.sess.AnswerState(questionID); answered {
		return fmt.Errorf("%w: %s", ErrAlreadyAnswered, questionID)
	}

	e.stopActive(questionID)
	if err := e.sess.RecordSkip(ctx, questionID); err != nil {
		return err
	}
	if e.metrics != nil {
		e.metrics.AnswersRecorded.WithLabelValues(metrics.OutcomeSkip).Inc()
	}
	return nil
}

// LeaveQuestion stops the active countdown without recording an outcome, used
// when the slide unmounts (navigation away) so no scheduled work leaks.
func (e *Engine) LeaveQuestion(questionID string) {
	e.stopActive(questionID)
}

// Restart clears both stores and zeroes the totals, returning the session to
// its initial state. Idempotent.
func (e *Engine) Restart(ctx context.Context) error {
	e.stopActive("")
	if err := e.sess.ResetScore(ctx); err != nil {
		return err
	}
	if err := e.sess.ClearAllAnswers(ctx); err != nil {
		return err
	}
	e.logger.Info().Msg("quiz restarted")
	return nil
}

// Close releases the active countdown. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.stopActive("")
}

// stopActive stops the running countdown and returns its elapsed seconds and
// whether a countdown was actually stopped. With a non-empty questionID only a
// countdown for that question is stopped.
func (e *Engine) stopActive(questionID string) (int, bool) {
	e.mu.Lock()
	cd := e.active
	qid := e.activeQID
	if cd != nil && (questionID == "" || qid == questionID) {
		e.active = nil
		e.activeQID = ""
	} else {
		cd = nil
	}
	e.mu.Unlock()

	if cd == nil {
		return 0, false
	}
	cd.Stop()
	return cd.Elapsed(), true
}

func (e *Engine) publishTick(questionID string) {
	e.mu.Lock()
	cd := e.active
	listener := e.onTick
	match := e.activeQID == questionID
	e.mu.Unlock()
	if !match || cd == nil || listener == nil {
		return
	}
	listener(questionID, cd.Snapshot())
}

func (e *Engine) handleTimeout(questionID string) {
	e.mu.Lock()
	if e.activeQID == questionID {
		e.active = nil
		e.activeQID = ""
	}
	listener := e.onTimeout
	e.mu.Unlock()

	// Outcome persistence must not depend on a live request context.
	if err := e.sess.RecordTimeout(context.Background(), questionID); err != nil {
		e.logger.Warn().Err(err).Str("question_id", questionID).Msg("record timeout failed")
	}
	if e.metrics != nil {
		e.metrics.TimersExpired.Inc()
		e.metrics.AnswersRecorded.WithLabelValues(metrics.OutcomeTimeout).Inc()
	}
	e.logger.Info().Str("question_id", questionID).Msg("question timed out")
	if listener != nil {
		listener(questionID)
	}
}
