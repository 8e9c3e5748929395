package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/victornm/etrivia/internal/errors"
)

// Difficulty is a trivia difficulty tier.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Difficulties lists the tiers from easiest to hardest.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

func (d Difficulty) Valid() bool {
	return slices.Contains(Difficulties, d)
}

// Easier returns the next easier tier, or false when d is already the easiest.
func (d Difficulty) Easier() (Difficulty, bool) {
	i := slices.Index(Difficulties, d)
	if i <= 0 {
		return "", false
	}
	return Difficulties[i-1], true
}

func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid difficulty %q: want one of easy, medium, hard", s))
	}
	return d, nil
}

// Category is a trivia category known to the source.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Categories is the catalogue offered at setup. Other positive IDs are still accepted.
var Categories = []Category{
	{ID: 9, Name: "General Knowledge"},
	{ID: 11, Name: "Film"},
	{ID: 12, Name: "Music"},
	{ID: 15, Name: "Video Games"},
}

// CategoryName returns the catalogue name for id, or a generic label.
func CategoryName(id int) string {
	for _, c := range Categories {
		if c.ID == id {
			return c.Name
		}
	}
	return fmt.Sprintf("Category %d", id)
}

// SessionConfig parameterizes one quiz. It is created once at setup and never mutated.
type SessionConfig struct {
	PlayerName string     `json:"name"`
	CategoryID int        `json:"category"`
	Difficulty Difficulty `json:"difficulty"`
}

// Validate checks that every field is populated.
func (c SessionConfig) Validate() error {
	switch {
	case strings.TrimSpace(c.PlayerName) == "":
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("player name is required"))
	case c.CategoryID <= 0:
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("category must be a positive id, got %d", c.CategoryID))
	case !c.Difficulty.Valid():
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid difficulty %q", c.Difficulty))
	}
	return nil
}

// FetchRequest is one outbound request for a batch of questions.
type FetchRequest struct {
	Amount     int
	CategoryID int
	Difficulty Difficulty
}

// RawQuestion is a multiple-choice record as returned by the question source.
type RawQuestion struct {
	Category         string   `json:"category"`
	Difficulty       string   `json:"difficulty"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

// Question is an immutable multiple-choice question. The choice order is fixed at construction.
type Question struct {
	text    string
	correct string
	choices []string
}

// NewQuestion freezes choices into a Question. correct must be one of choices.
func NewQuestion(text, correct string, choices []string) (Question, error) {
	if !slices.Contains(choices, correct) {
		return Question{}, fmt.Errorf("question %q: correct answer %q not among choices", text, correct)
	}
	return Question{
		text:    text,
		correct: correct,
		choices: slices.Clone(choices),
	}, nil
}

func (q Question) Text() string          { return q.text }
func (q Question) CorrectAnswer() string { return q.correct }

// Choices returns a copy of the frozen choice order.
func (q Question) Choices() []string { return slices.Clone(q.choices) }

func (q Question) HasChoice(choice string) bool {
	return slices.Contains(q.choices, choice)
}

// Phase is the state of a quiz session.
type Phase string

const (
	PhaseLoading         Phase = "loading"
	PhaseAwaitingAnswer  Phase = "awaiting_answer"
	PhaseShowingFeedback Phase = "showing_feedback"
	PhaseFinished        Phase = "finished"
	PhaseFetchFailed     Phase = "fetch_failed"
)

// Terminal reports whether the phase only changes on replay or restart.
func (p Phase) Terminal() bool {
	return p == PhaseFinished || p == PhaseFetchFailed
}

// Feedback describes the outcome of the latest submission.
type Feedback struct {
	Correct       bool   `json:"correct"`
	Selected      string `json:"selected"`
	CorrectAnswer string `json:"correct_answer"`
	Message       string `json:"message"`
}

func NewFeedback(selected, correct string) Feedback {
	f := Feedback{
		Correct:       selected == correct,
		Selected:      selected,
		CorrectAnswer: correct,
		Message:       "Correct!",
	}
	if !f.Correct {
		f.Message = "Incorrect! The correct answer was: " + correct
	}
	return f
}

// QuestionView is the rendering-layer view of a question. It does not reveal the answer.
type QuestionView struct {
	Text    string   `json:"text"`
	Choices []string `json:"choices"`
}

// Snapshot is the read-only view of a quiz session handed to renderers.
type Snapshot struct {
	SessionID  string        `json:"session_id"`
	PlayerName string        `json:"player_name"`
	CategoryID int           `json:"category"`
	Difficulty Difficulty    `json:"difficulty"`
	Phase      Phase         `json:"phase"`
	Question   *QuestionView `json:"question,omitempty"`
	Selected   string        `json:"selected,omitempty"`
	Feedback   *Feedback     `json:"feedback,omitempty"`
	Score      int           `json:"score"`
	Index      int           `json:"index"`
	Total      int           `json:"total"`
	Error      string        `json:"error,omitempty"`

	// Version increases with every accepted state change of the session.
	Version uint64 `json:"version"`
}

// MarshalJSON adds the percent score to the snapshot fields.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type snapshot Snapshot
	return json.Marshal(struct {
		snapshot
		Percent decimal.Decimal `json:"percent"`
	}{snapshot(s), s.Percent()})
}

// Percent is the score as a whole percentage of the total.
func (s Snapshot) Percent() decimal.Decimal {
	if s.Total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(s.Score)).
		Div(decimal.NewFromInt(int64(s.Total))).
		Mul(decimal.NewFromInt(100)).
		Round(0)
}
