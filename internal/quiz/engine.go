package quiz

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/victornm/etrivia/internal/domain"
	"github.com/victornm/etrivia/internal/event"
)

// Fetcher produces the questions for a session config.
type Fetcher interface {
	Fetch(ctx context.Context, c domain.SessionConfig) ([]domain.Question, error)
}

type Config struct {
	Fetcher  Fetcher
	EventBus *event.Bus
	Session  domain.SessionConfig
}

// Engine owns one quiz session for one SessionConfig. Restarting with a new
// config means closing this engine and creating another.
type Engine struct {
	fetcher Fetcher
	eb      *event.Bus

	mu     sync.Mutex
	state  Session
	cancel context.CancelFunc
	closed bool
}

// NewEngine validates the config and returns an engine in the loading phase.
// Call Load to fetch the first batch.
func NewEngine(c Config) (*Engine, error) {
	if err := c.Session.Validate(); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	return &Engine{
		fetcher: c.Fetcher,
		eb:      c.EventBus,
		state:   NewSession(id.String(), c.Session),
	}, nil
}

// Load fetches a fresh batch of questions and resets progress.
//
// Starting a load cancels any load still in flight; only the latest load's result
// is applied. A failed fetch moves the session to FetchFailed and the error is
// also returned for logging.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return context.Canceled
	}
	if e.cancel != nil {
		e.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	gen := e.state.Generation + 1
	_ = e.applyLocked(ctx, Begin{Generation: gen})
	config := e.state.Config
	e.mu.Unlock()

	defer cancel()

	questions, err := e.fetcher.Fetch(ctx, config)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Generation != gen || e.closed {
		slog.DebugContext(ctx, "quiz: dropped superseded fetch result",
			"session", e.state.ID, "generation", gen, "current", e.state.Generation)
		return context.Canceled
	}
	e.cancel = nil

	_ = e.applyLocked(ctx, Fetched{Generation: gen, Questions: questions, Err: err})
	if err != nil {
		slog.WarnContext(ctx, "quiz: fetch failed", "session", e.state.ID, "error", err)
	}
	return err
}

// Replay starts over with the same config. It is accepted in any phase and
// supersedes a load still in flight.
func (e *Engine) Replay(ctx context.Context) error {
	return e.Load(ctx)
}

func (e *Engine) Select(ctx context.Context, choice string) (domain.Snapshot, error) {
	return e.dispatch(ctx, Select{Choice: choice})
}

func (e *Engine) Submit(ctx context.Context) (domain.Snapshot, error) {
	return e.dispatch(ctx, Submit{})
}

func (e *Engine) Next(ctx context.Context) (domain.Snapshot, error) {
	return e.dispatch(ctx, Next{})
}

// Snapshot returns the current renderer view.
func (e *Engine) Snapshot() domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Snapshot()
}

// Config returns the session config the engine was built with.
func (e *Engine) Config() domain.SessionConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Config
}

// Close cancels any load in flight. The engine accepts no further loads.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Engine) dispatch(ctx context.Context, a Action) (domain.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.applyLocked(ctx, a); err != nil {
		return e.state.Snapshot(), err
	}
	return e.state.Snapshot(), nil
}

func (e *Engine) applyLocked(ctx context.Context, a Action) error {
	prev := e.state
	next, err := Reduce(prev, a)
	if err != nil {
		return err
	}
	next.Version = prev.Version + 1
	e.state = next

	e.publish(ctx, prev, next, a)
	return nil
}

func (e *Engine) publish(ctx context.Context, prev, next Session, a Action) {
	if e.eb == nil {
		return
	}

	if _, ok := a.(Submit); ok && next.Feedback != nil {
		e.eb.Publish(ctx, domain.EventAnswerSubmitted{
			SessionID: next.ID,
			Index:     next.Index,
			Feedback:  *next.Feedback,
		})
	}

	if prev.Phase == next.Phase && prev.Index == next.Index && prev.Selected == next.Selected && prev.Generation == next.Generation {
		return
	}

	snap := next.Snapshot()
	e.eb.Publish(ctx, domain.EventPhaseChanged{From: prev.Phase, Snapshot: snap})

	if next.Phase == domain.PhaseFinished && prev.Phase != domain.PhaseFinished {
		e.eb.Publish(ctx, domain.EventQuizFinished{Snapshot: snap})
	}
}
