package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/victornm/etrivia/internal/domain"
	"github.com/victornm/etrivia/internal/event"
)

const namespace = "etrivia"

// Fetch attempt outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeEmpty       = "empty"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

var (
	FetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_attempts_total",
		Help:      "Question source requests by difficulty tier and outcome.",
	}, []string{"difficulty", "outcome"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Question batch cache lookups by store and result.",
	}, []string{"store", "result"})

	Answers = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "answers_total",
		Help:      "Submitted answers by correctness.",
	}, []string{"result"})

	FinishedScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "finished_score_percent",
		Help:      "Final score of finished quizzes, as a percentage.",
		Buckets:   prometheus.LinearBuckets(0, 20, 6),
	})
)

// RecordQuizEvents feeds quiz events from the bus into the metrics above.
func RecordQuizEvents(eb *event.Bus) {
	eb.Subscribe(domain.EventNameAnswerSubmitted, func(_ context.Context, e event.Event) error {
		result := "incorrect"
		if e.(domain.EventAnswerSubmitted).Feedback.Correct {
			result = "correct"
		}
		Answers.WithLabelValues(result).Inc()
		return nil
	})

	eb.Subscribe(domain.EventNameQuizFinished, func(_ context.Context, e event.Event) error {
		FinishedScores.Observe(e.(domain.EventQuizFinished).Snapshot.Percent().InexactFloat64())
		return nil
	})
}
