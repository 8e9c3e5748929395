package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/victornm/etrivia/internal/domain"
	"github.com/victornm/etrivia/internal/event"
)

// SetupLogger installs the default slog logger. format is "text" or "json".
func SetupLogger(w io.Writer, level, format string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	slog.SetDefault(slog.New(h))
	return nil
}

// LogQuizEvents logs answers and finished quizzes from the bus.
func LogQuizEvents(eb *event.Bus) {
	eb.Subscribe(domain.EventNameAnswerSubmitted, func(ctx context.Context, e event.Event) error {
		ev := e.(domain.EventAnswerSubmitted)
		slog.DebugContext(ctx, "quiz: answer submitted",
			"session", ev.SessionID, "index", ev.Index, "correct", ev.Feedback.Correct)
		return nil
	})

	eb.Subscribe(domain.EventNameQuizFinished, func(ctx context.Context, e event.Event) error {
		snap := e.(domain.EventQuizFinished).Snapshot
		slog.InfoContext(ctx, "quiz: finished",
			"session", snap.SessionID,
			"player", snap.PlayerName,
			"score", snap.Score,
			"total", snap.Total,
			"percent", snap.Percent().String())
		return nil
	})
}
