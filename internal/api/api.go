// Package api exposes the single active quiz over HTTP and WebSocket.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/victornm/etrivia/internal/domain"
	"github.com/victornm/etrivia/internal/errors"
	"github.com/victornm/etrivia/internal/event"
	"github.com/victornm/etrivia/internal/quiz"
)

type Config struct {
	Router   gin.IRouter
	EventBus *event.Bus
	Trivia   quiz.Fetcher

	// Redis is optional. When set, snapshots are published to PubsubPrefix:player:<name>.
	Redis        Redis
	PubsubPrefix string
}

type Redis interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// API hosts at most one active quiz. Creating a quiz discards the previous one.
type API struct {
	trivia quiz.Fetcher
	eb     *event.Bus

	redis  Redis
	prefix string

	// pubMu orders notifications; published holds the newest one sent.
	pubMu     sync.Mutex
	published domain.Snapshot

	upgrader websocket.Upgrader

	mu     sync.Mutex
	engine *quiz.Engine
}

func New(c Config) *API {
	a := &API{
		trivia: c.Trivia,
		eb:     c.EventBus,
		redis:  c.Redis,
		prefix: c.PubsubPrefix,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	v1 := c.Router.Group("/v1")
	v1.GET("/categories", a.ListCategories)
	v1.POST("/quiz", a.CreateQuiz)
	v1.GET("/quiz", a.GetQuiz)
	v1.DELETE("/quiz", a.DeleteQuiz)
	v1.POST("/quiz/select", a.SelectAnswer)
	v1.POST("/quiz/submit", a.SubmitAnswer)
	v1.POST("/quiz/next", a.NextQuestion)
	v1.POST("/quiz/replay", a.Replay)
	v1.GET("/quiz/ws", a.Stream)

	// Register event handlers
	if a.redis != nil {
		c.EventBus.Subscribe(domain.EventNamePhaseChanged, func(ctx context.Context, e event.Event) error {
			return a.PublishPhaseChanged(ctx, e.(domain.EventPhaseChanged))
		})
	}

	return a
}

// Close discards the active quiz, if any.
func (a *API) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.engine != nil {
		a.engine.Close()
		a.engine = nil
	}
}

type createQuizRequest struct {
	Name       string `json:"name"`
	Category   int    `json:"category"`
	Difficulty string `json:"difficulty"`
}

func (a *API) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": domain.Categories})
}

func (a *API) CreateQuiz(c *gin.Context) {
	var req createQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid request body"),
			errors.WithCause(err)))
		return
	}
	if req.Difficulty == "" {
		req.Difficulty = string(domain.DifficultyEasy)
	}

	e, err := quiz.NewEngine(quiz.Config{
		Fetcher:  a.trivia,
		EventBus: a.eb,
		Session: domain.SessionConfig{
			PlayerName: req.Name,
			CategoryID: req.Category,
			Difficulty: domain.Difficulty(req.Difficulty),
		},
	})
	if err != nil {
		renderError(c, err)
		return
	}

	a.mu.Lock()
	if a.engine != nil {
		a.engine.Close()
	}
	a.engine = e
	a.mu.Unlock()

	// Fetch failures are reported in the snapshot.
	_ = e.Load(c.Request.Context())

	c.JSON(http.StatusCreated, e.Snapshot())
}

func (a *API) GetQuiz(c *gin.Context) {
	e, err := a.active()
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, e.Snapshot())
}

func (a *API) DeleteQuiz(c *gin.Context) {
	a.Close()
	c.Status(http.StatusNoContent)
}

type selectAnswerRequest struct {
	Choice string `json:"choice"`
}

func (a *API) SelectAnswer(c *gin.Context) {
	var req selectAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid request body"),
			errors.WithCause(err)))
		return
	}

	a.dispatch(c, func(ctx context.Context, e *quiz.Engine) (domain.Snapshot, error) {
		return e.Select(ctx, req.Choice)
	})
}

func (a *API) SubmitAnswer(c *gin.Context) {
	a.dispatch(c, func(ctx context.Context, e *quiz.Engine) (domain.Snapshot, error) {
		return e.Submit(ctx)
	})
}

func (a *API) NextQuestion(c *gin.Context) {
	a.dispatch(c, func(ctx context.Context, e *quiz.Engine) (domain.Snapshot, error) {
		return e.Next(ctx)
	})
}

func (a *API) Replay(c *gin.Context) {
	a.dispatch(c, func(ctx context.Context, e *quiz.Engine) (domain.Snapshot, error) {
		if err := e.Replay(ctx); err != nil {
			slog.DebugContext(ctx, "api: replay finished with error", "error", err)
		}
		return e.Snapshot(), nil
	})
}

func (a *API) dispatch(c *gin.Context, fn func(context.Context, *quiz.Engine) (domain.Snapshot, error)) {
	e, err := a.active()
	if err != nil {
		renderError(c, err)
		return
	}

	snap, err := fn(c.Request.Context(), e)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (a *API) active() (*quiz.Engine, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.engine == nil {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("no active quiz"))
	}
	return a.engine, nil
}

func renderError(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: request failed", "path", c.FullPath(), "error", err)
	}

	c.JSON(e.HTTPStatusCode(), gin.H{
		"code":    e.Code.String(),
		"message": e.Message,
	})
}
