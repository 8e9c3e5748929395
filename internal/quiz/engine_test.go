package quiz_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/etrivia/internal/domain"
	"github.com/victornm/etrivia/internal/errors"
	"github.com/victornm/etrivia/internal/event"
	"github.com/victornm/etrivia/internal/quiz"
)

func TestEngine_Play(t *testing.T) {
	type (
		inputs struct {
			fetcher quiz.Fetcher
			play    func(t *testing.T, e *quiz.Engine)
		}

		outputs struct {
			snapshot domain.Snapshot
		}
	)

	tests := map[string]struct {
		arrange func(t *testing.T) inputs
		assert  func(t *testing.T, out outputs)
	}{
		"all answers correct": {
			arrange: func(t *testing.T) inputs {
				return inputs{
					fetcher: staticFetcher{questions: questions(t, 3)},
					play: func(t *testing.T, e *quiz.Engine) {
						for range 3 {
							answer(t, e, "right")
						}
					},
				}
			},
			assert: func(t *testing.T, out outputs) {
				assert.Equal(t, domain.PhaseFinished, out.snapshot.Phase)
				assert.Equal(t, 3, out.snapshot.Score)
				assert.Equal(t, "100", out.snapshot.Percent().String())
			},
		},

		"mixed answers": {
			arrange: func(t *testing.T) inputs {
				return inputs{
					fetcher: staticFetcher{questions: questions(t, 3)},
					play: func(t *testing.T, e *quiz.Engine) {
						answer(t, e, "right")
						answer(t, e, "wrong 2")
						answer(t, e, "wrong 3")
					},
				}
			},
			assert: func(t *testing.T, out outputs) {
				assert.Equal(t, domain.PhaseFinished, out.snapshot.Phase)
				assert.Equal(t, 1, out.snapshot.Score)
				assert.Equal(t, "33", out.snapshot.Percent().String())
			},
		},

		"replay after finishing starts over": {
			arrange: func(t *testing.T) inputs {
				return inputs{
					fetcher: staticFetcher{questions: questions(t, 1)},
					play: func(t *testing.T, e *quiz.Engine) {
						answer(t, e, "right")
						require.NoError(t, e.Replay(context.Background()))
					},
				}
			},
			assert: func(t *testing.T, out outputs) {
				assert.Equal(t, domain.PhaseAwaitingAnswer, out.snapshot.Phase)
				assert.Equal(t, 0, out.snapshot.Score)
				assert.Equal(t, 0, out.snapshot.Index)
				assert.Nil(t, out.snapshot.Feedback)
			},
		},

		"failed fetch is shown in the snapshot": {
			arrange: func(t *testing.T) inputs {
				return inputs{
					fetcher: staticFetcher{err: errors.New(errors.CodeNotFound,
						errors.WithMessagef("No questions available for this category. Try another."))},
				}
			},
			assert: func(t *testing.T, out outputs) {
				assert.Equal(t, domain.PhaseFetchFailed, out.snapshot.Phase)
				assert.Equal(t, "No questions available for this category. Try another.", out.snapshot.Error)
				assert.Nil(t, out.snapshot.Question)
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			in := tt.arrange(t)
			e, err := quiz.NewEngine(quiz.Config{Fetcher: in.fetcher, Session: ann()})
			require.NoError(t, err)
			t.Cleanup(e.Close)

			_ = e.Load(context.Background())
			if in.play != nil {
				in.play(t, e)
			}

			tt.assert(t, outputs{snapshot: e.Snapshot()})
		})
	}
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	_, err := quiz.NewEngine(quiz.Config{
		Fetcher: staticFetcher{},
		Session: domain.SessionConfig{PlayerName: "Ann", CategoryID: 9, Difficulty: "impossible"},
	})
	assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(err))
}

func TestEngine_ReplaySupersedesLoad(t *testing.T) {
	f := newGatedFetcher()
	e, err := quiz.NewEngine(quiz.Config{Fetcher: f, Session: ann()})
	require.NoError(t, err)
	t.Cleanup(e.Close)

	first := make(chan error, 1)
	go func() { first <- e.Load(context.Background()) }()
	firstCall := <-f.calls

	second := make(chan error, 1)
	go func() { second <- e.Replay(context.Background()) }()
	secondCall := <-f.calls

	select {
	case <-firstCall.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("first load should be canceled by replay")
	}

	secondCall.release <- questions(t, 4)
	require.NoError(t, <-second)

	firstCall.release <- questions(t, 2)
	require.ErrorIs(t, <-first, context.Canceled)

	snap := e.Snapshot()
	assert.Equal(t, domain.PhaseAwaitingAnswer, snap.Phase)
	assert.Equal(t, 4, snap.Total, "only the latest load may populate the session")
}

func TestEngine_CloseCancelsLoad(t *testing.T) {
	f := newGatedFetcher()
	e, err := quiz.NewEngine(quiz.Config{Fetcher: f, Session: ann()})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- e.Load(context.Background()) }()
	call := <-f.calls

	e.Close()
	<-call.ctx.Done()
	call.release <- questions(t, 2)

	require.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, domain.PhaseLoading, e.Snapshot().Phase)
	assert.ErrorIs(t, e.Load(context.Background()), context.Canceled)
}

func TestEngine_PublishesEvents(t *testing.T) {
	eb := event.NewBus()

	var (
		mu       sync.Mutex
		received = map[string]int{}
		finished = make(chan domain.Snapshot, 1)
	)
	record := func(_ context.Context, ev event.Event) error {
		mu.Lock()
		received[ev.Name()]++
		mu.Unlock()
		if f, ok := ev.(domain.EventQuizFinished); ok {
			finished <- f.Snapshot
		}
		return nil
	}
	eb.Subscribe(domain.EventNamePhaseChanged, record)
	eb.Subscribe(domain.EventNameAnswerSubmitted, record)
	eb.Subscribe(domain.EventNameQuizFinished, record)

	e, err := quiz.NewEngine(quiz.Config{
		Fetcher:  staticFetcher{questions: questions(t, 2)},
		EventBus: eb,
		Session:  ann(),
	})
	require.NoError(t, err)
	t.Cleanup(e.Close)

	require.NoError(t, e.Load(context.Background()))
	answer(t, e, "right")
	answer(t, e, "wrong 1")

	select {
	case snap := <-finished:
		assert.Equal(t, 1, snap.Score)
		assert.Equal(t, 2, snap.Total)
	case <-time.After(time.Second):
		t.Fatal("expected a finished event")
	}

	eb.Stop()
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, received[domain.EventNameAnswerSubmitted])
	assert.Equal(t, 1, received[domain.EventNameQuizFinished])
	assert.Positive(t, received[domain.EventNamePhaseChanged])
}

func TestEngine_RejectedActionsKeepState(t *testing.T) {
	e, err := quiz.NewEngine(quiz.Config{Fetcher: staticFetcher{questions: questions(t, 2)}, Session: ann()})
	require.NoError(t, err)
	t.Cleanup(e.Close)

	_, err = e.Submit(context.Background())
	assert.Equal(t, errors.CodeFailedPrecondition, errors.CodeOf(err), "submit while loading")

	require.NoError(t, e.Load(context.Background()))
	loaded := e.Snapshot().Version

	snap, err := e.Submit(context.Background())
	assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(err))
	assert.Equal(t, domain.PhaseAwaitingAnswer, snap.Phase)

	_, err = e.Next(context.Background())
	assert.Equal(t, errors.CodeFailedPrecondition, errors.CodeOf(err))
	assert.Equal(t, 0, e.Snapshot().Index)
	assert.Equal(t, loaded, e.Snapshot().Version, "rejected actions keep the version")

	snap, err = e.Select(context.Background(), "right")
	require.NoError(t, err)
	assert.Equal(t, loaded+1, snap.Version)
}

func answer(t *testing.T, e *quiz.Engine, choice string) {
	t.Helper()

	ctx := context.Background()
	_, err := e.Select(ctx, choice)
	require.NoError(t, err)
	snap, err := e.Submit(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseShowingFeedback, snap.Phase)
	_, err = e.Next(ctx)
	require.NoError(t, err)
}

type staticFetcher struct {
	questions []domain.Question
	err       error
}

func (f staticFetcher) Fetch(context.Context, domain.SessionConfig) ([]domain.Question, error) {
	return f.questions, f.err
}

// gatedFetcher blocks each fetch until a batch is sent on that call's release
// channel, so tests can interleave loads deterministically.
type gatedFetcher struct {
	calls chan gatedCall
}

type gatedCall struct {
	ctx     context.Context
	release chan []domain.Question
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{calls: make(chan gatedCall)}
}

func (f *gatedFetcher) Fetch(ctx context.Context, _ domain.SessionConfig) ([]domain.Question, error) {
	c := gatedCall{ctx: ctx, release: make(chan []domain.Question)}
	f.calls <- c
	return <-c.release, nil
}
