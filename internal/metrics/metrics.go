package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Answer outcome labels.
const (
	OutcomeCorrect   = "correct"
	OutcomeIncorrect = "incorrect"
	OutcomeTimeout   = "timeout"
	OutcomeSkip      = "skip"
)

// Metrics exposes engine counters on the /metrics endpoint.
type Metrics struct {
	SessionsStarted prometheus.Counter
	AnswersRecorded *prometheus.CounterVec
	PointsAwarded   prometheus.Counter
	TimersExpired   prometheus.Counter
}

// New registers the engine counters against the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_sessions_started_total",
			Help: "Quiz sessions created.",
		}),
		AnswersRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quiz_answers_recorded_total",
			Help: "Question outcomes recorded, by outcome.",
		}, []string{"outcome"}),
		PointsAwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_points_awarded_total",
			Help: "Points added to running scores.",
		}),
		TimersExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_timers_expired_total",
			Help: "Question countdowns that reached expiry.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.SessionsStarted, m.AnswersRecorded, m.PointsAwarded, m.TimersExpired)
	}
	return m
}
