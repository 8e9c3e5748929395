// Package terminal plays quizzes interactively over a line-based reader and writer.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"html"
	"io"
	"strconv"
	"strings"

	"github.com/victornm/etrivia/internal/domain"
	"github.com/victornm/etrivia/internal/errors"
	"github.com/victornm/etrivia/internal/event"
	"github.com/victornm/etrivia/internal/quiz"
)

type Config struct {
	In       io.Reader
	Out      io.Writer
	Trivia   quiz.Fetcher
	EventBus *event.Bus

	// Preset skips the matching setup prompts for fields that are already set.
	Preset domain.SessionConfig
}

type menuChoice int

const (
	menuReplay menuChoice = iota
	menuNew
	menuQuit
)

type player struct {
	c     Config
	out   io.Writer
	lines <-chan string
}

// Run plays quizzes until the player quits or input ends.
func Run(ctx context.Context, c Config) error {
	p := &player{
		c:     c,
		out:   c.Out,
		lines: scanLines(c.In),
	}

	preset := c.Preset
	for {
		cfg, err := p.setup(ctx, preset)
		if err != nil {
			return ignoreEOF(err)
		}
		preset = domain.SessionConfig{}

		choice, err := p.play(ctx, cfg)
		if err != nil {
			return ignoreEOF(err)
		}
		if choice == menuQuit {
			p.printf("Bye, %s!\n", cfg.PlayerName)
			return nil
		}
	}
}

func (p *player) setup(ctx context.Context, preset domain.SessionConfig) (domain.SessionConfig, error) {
	cfg := preset

	for strings.TrimSpace(cfg.PlayerName) == "" {
		p.printf("Your name: ")
		line, err := p.readLine(ctx)
		if err != nil {
			return cfg, err
		}
		cfg.PlayerName = strings.TrimSpace(line)
	}

	for cfg.CategoryID <= 0 {
		p.printf("\nCategories:\n")
		for _, c := range domain.Categories {
			p.printf("  %2d. %s\n", c.ID, c.Name)
		}
		p.printf("Category id [%d]: ", domain.Categories[0].ID)

		line, err := p.readLine(ctx)
		if err != nil {
			return cfg, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			cfg.CategoryID = domain.Categories[0].ID
			continue
		}
		id, err := strconv.Atoi(line)
		if err != nil || id <= 0 {
			p.printf("Invalid category %q.\n", line)
			continue
		}
		cfg.CategoryID = id
	}

	for !cfg.Difficulty.Valid() {
		p.printf("Difficulty (easy, medium, hard) [easy]: ")
		line, err := p.readLine(ctx)
		if err != nil {
			return cfg, err
		}
		if strings.TrimSpace(line) == "" {
			cfg.Difficulty = domain.DifficultyEasy
			continue
		}
		d, err := domain.ParseDifficulty(line)
		if err != nil {
			p.printf("%s\n", errors.Convert(err).Message)
			continue
		}
		cfg.Difficulty = d
	}

	return cfg, nil
}

// play runs one engine until the player picks something from a terminal menu other than replay.
func (p *player) play(ctx context.Context, cfg domain.SessionConfig) (menuChoice, error) {
	e, err := quiz.NewEngine(quiz.Config{
		Fetcher:  p.c.Trivia,
		EventBus: p.c.EventBus,
		Session:  cfg,
	})
	if err != nil {
		return menuNew, err
	}
	defer e.Close()

	p.printf("\n%s, here comes %s on %s.\n", cfg.PlayerName, domain.CategoryName(cfg.CategoryID), cfg.Difficulty)
	if err := p.load(ctx, e.Load); err != nil {
		return menuQuit, err
	}

	for {
		snap := e.Snapshot()

		switch snap.Phase {
		case domain.PhaseAwaitingAnswer:
			if err := p.ask(ctx, e, snap); err != nil {
				return menuQuit, err
			}

		case domain.PhaseShowingFeedback:
			p.showFeedback(snap)
			prompt := "Press Enter for the next question."
			if snap.Index+1 == snap.Total {
				prompt = "Press Enter to see your score."
			}
			p.printf("%s", prompt)
			if _, err := p.readLine(ctx); err != nil {
				return menuQuit, err
			}
			if _, err := e.Next(ctx); err != nil {
				return menuQuit, err
			}

		case domain.PhaseFinished, domain.PhaseFetchFailed:
			if snap.Phase == domain.PhaseFinished {
				p.printf("\nQuiz complete, %s! You scored %d/%d (%s%%).\n",
					snap.PlayerName, snap.Score, snap.Total, snap.Percent().String())
			} else {
				p.printf("\n%s\n", snap.Error)
			}

			choice, err := p.menu(ctx, snap.Phase)
			if err != nil || choice != menuReplay {
				return choice, err
			}
			if err := p.load(ctx, e.Replay); err != nil {
				return menuQuit, err
			}

		default:
			return menuQuit, errors.New(errors.CodeInternal, errors.WithMessagef("unexpected phase %s", snap.Phase))
		}
	}
}

func (p *player) load(ctx context.Context, fn func(context.Context) error) error {
	p.printf("Loading questions...\n")
	// Fetch failures are shown from the snapshot.
	_ = fn(ctx)
	return ctx.Err()
}

func (p *player) ask(ctx context.Context, e *quiz.Engine, snap domain.Snapshot) error {
	q := snap.Question
	p.printf("\nQuestion %d/%d: %s\n", snap.Index+1, snap.Total, html.UnescapeString(q.Text))
	for i, c := range q.Choices {
		p.printf("  %c. %s\n", 'A'+i, html.UnescapeString(c))
	}
	last := 'A' + rune(len(q.Choices)) - 1

	for {
		p.printf("Your answer: ")
		line, err := p.readLine(ctx)
		if err != nil {
			return err
		}

		answer := strings.ToUpper(strings.TrimSpace(line))
		if answer != "" {
			if len(answer) != 1 || rune(answer[0]) < 'A' || rune(answer[0]) > last {
				p.printf("Invalid input. Please enter a letter A-%c.\n", last)
				continue
			}
			if _, err := e.Select(ctx, q.Choices[answer[0]-'A']); err != nil {
				return err
			}
		}

		_, err = e.Submit(ctx)
		if errors.Is(err, errors.CodeInvalidArgument) {
			p.printf("%s\n", errors.Convert(err).Message)
			continue
		}
		return err
	}
}

func (p *player) showFeedback(snap domain.Snapshot) {
	f := snap.Feedback
	if f.Correct {
		p.printf("✅ %s, %s\n", snap.PlayerName, f.Message)
		return
	}
	p.printf("❌ %s, %s\n", snap.PlayerName, html.UnescapeString(f.Message))
}

func (p *player) menu(ctx context.Context, phase domain.Phase) (menuChoice, error) {
	again := "play again"
	if phase == domain.PhaseFetchFailed {
		again = "try again"
	}

	for {
		p.printf("[r] %s, [n] new quiz, [q] quit: ", again)
		line, err := p.readLine(ctx)
		if err != nil {
			return menuQuit, err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "r":
			return menuReplay, nil
		case "n":
			return menuNew, nil
		case "q":
			return menuQuit, nil
		}
	}
}

func (p *player) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-p.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}

func (p *player) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

// scanLines feeds r line by line so reads can be abandoned on cancellation.
func scanLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		s := bufio.NewScanner(r)
		for s.Scan() {
			lines <- s.Text()
		}
	}()
	return lines
}

func ignoreEOF(err error) error {
	if err == io.EOF {
		return nil
	}
	return err
}
