package trivia

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/victornm/etrivia/internal/domain"
	"github.com/victornm/etrivia/internal/errors"
	"github.com/victornm/etrivia/internal/telemetry"
)

const (
	DefaultAmount = 5

	msgNoQuestions = "No questions available for this category. Try another."
	msgUnavailable = "Could not reach the trivia service. Please try again."
)

// Source returns raw question records for a single request.
type Source interface {
	FetchQuestions(ctx context.Context, req domain.FetchRequest) ([]domain.RawQuestion, error)
}

type Config struct {
	Source Source
	// Amount is the batch size requested per attempt.
	Amount int
	// Fallback decides which tiers to try, in order. Defaults to EasyFallback.
	Fallback FallbackPolicy
	// Rand shuffles answer choices. Defaults to a time-seeded PCG.
	Rand *rand.Rand
}

// Service fetches a batch of questions for a session config and normalizes them.
type Service struct {
	source   Source
	amount   int
	fallback FallbackPolicy

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewService(c Config) *Service {
	if c.Amount <= 0 {
		c.Amount = DefaultAmount
	}
	if c.Fallback == nil {
		c.Fallback = EasyFallback
	}
	if c.Rand == nil {
		seed := uint64(time.Now().UnixNano())
		c.Rand = rand.New(rand.NewPCG(seed, seed>>1|1))
	}

	return &Service{
		source:   c.Source,
		amount:   c.Amount,
		fallback: c.Fallback,
		rnd:      c.Rand,
	}
}

// Fetch walks the fallback ladder until a tier yields questions.
//
// Empty results and "no results" responses move on to the next tier. Transport
// failures are logged and the next tier is still tried. When every tier fails the
// error is CodeUnavailable if any attempt failed in transport, CodeNotFound otherwise.
// Receiving fewer questions than requested is a success.
func (s *Service) Fetch(ctx context.Context, c domain.SessionConfig) ([]domain.Question, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var transportErr error
	for _, d := range s.fallback(c.Difficulty) {
		raw, err := s.source.FetchQuestions(ctx, domain.FetchRequest{
			Amount:     s.amount,
			CategoryID: c.CategoryID,
			Difficulty: d,
		})
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		switch {
		case err == nil && len(raw) > 0:
			questions := s.normalize(ctx, raw)
			if len(questions) > 0 {
				telemetry.FetchAttempts.WithLabelValues(string(d), telemetry.OutcomeOK).Inc()
				if d != c.Difficulty {
					slog.InfoContext(ctx, "trivia: fell back to easier difficulty",
						"requested", c.Difficulty, "used", d, "category", c.CategoryID)
				}
				return questions, nil
			}
			telemetry.FetchAttempts.WithLabelValues(string(d), telemetry.OutcomeEmpty).Inc()
		case err == nil, errors.Is(err, errors.CodeNotFound):
			telemetry.FetchAttempts.WithLabelValues(string(d), telemetry.OutcomeEmpty).Inc()
		case errors.Is(err, errors.CodeUnavailable):
			telemetry.FetchAttempts.WithLabelValues(string(d), telemetry.OutcomeUnavailable).Inc()
			slog.WarnContext(ctx, "trivia: source unavailable", "difficulty", d, "error", err)
			transportErr = err
		default:
			telemetry.FetchAttempts.WithLabelValues(string(d), telemetry.OutcomeError).Inc()
			slog.ErrorContext(ctx, "trivia: fetch failed", "difficulty", d, "error", err)
			transportErr = err
		}
	}

	if transportErr != nil {
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithMessagef(msgUnavailable),
			errors.WithCause(transportErr))
	}

	return nil, errors.New(errors.CodeNotFound,
		errors.WithMessagef(msgNoQuestions),
		errors.WithCause(fmt.Errorf("category=%d difficulty=%s", c.CategoryID, c.Difficulty)))
}

func (s *Service) normalize(ctx context.Context, raw []domain.RawQuestion) []domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()

	questions, skipped := Normalize(raw, s.rnd)
	for _, err := range skipped {
		slog.WarnContext(ctx, "trivia: skipped malformed question", "error", err)
	}
	return questions
}

// Normalize merges each record's correct and incorrect answers into one choice list,
// shuffles it once with r and freezes the result into a Question.
// Records that cannot form a valid question are returned as errors.
func Normalize(raw []domain.RawQuestion, r *rand.Rand) ([]domain.Question, []error) {
	var (
		questions = make([]domain.Question, 0, len(raw))
		skipped   []error
	)

	for _, rq := range raw {
		if rq.Question == "" || rq.CorrectAnswer == "" {
			skipped = append(skipped, fmt.Errorf("question %q: empty text or answer", rq.Question))
			continue
		}
		if slices.Contains(rq.IncorrectAnswers, rq.CorrectAnswer) {
			skipped = append(skipped, fmt.Errorf("question %q: correct answer repeated among incorrect answers", rq.Question))
			continue
		}

		choices := make([]string, 0, len(rq.IncorrectAnswers)+1)
		choices = append(choices, rq.IncorrectAnswers...)
		choices = append(choices, rq.CorrectAnswer)
		r.Shuffle(len(choices), func(i, j int) {
			choices[i], choices[j] = choices[j], choices[i]
		})

		q, err := domain.NewQuestion(rq.Question, rq.CorrectAnswer, choices)
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		questions = append(questions, q)
	}

	return questions, skipped
}
