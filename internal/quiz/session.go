package quiz

import (
	"github.com/victornm/etrivia/internal/domain"
	"github.com/victornm/etrivia/internal/errors"
)

// Session is the owned state of one play-through. It is a value: Reduce returns a
// new Session instead of mutating its input.
type Session struct {
	ID     string
	Config domain.SessionConfig

	// Generation identifies the latest fetch. Results of older fetches are ignored.
	Generation uint64

	// Version counts accepted state changes.
	Version uint64

	Phase     domain.Phase
	Questions []domain.Question
	Index     int
	Selected  string
	Score     int
	Feedback  *domain.Feedback
	Error     string
}

// Action is an input to Reduce.
type Action interface {
	action()
}

// Begin starts a fetch and discards any previous progress.
type Begin struct {
	Generation uint64
}

// Fetched carries the outcome of the fetch started by the matching Begin.
type Fetched struct {
	Generation uint64
	Questions  []domain.Question
	Err        error
}

// Select records the player's current choice.
type Select struct {
	Choice string
}

// Submit checks the selected choice against the current question.
type Submit struct{}

// Next advances past the current question's feedback.
type Next struct{}

func (Begin) action()   {}
func (Fetched) action() {}
func (Select) action()  {}
func (Submit) action()  {}
func (Next) action()    {}

// NewSession returns a session waiting for its first fetch.
func NewSession(id string, c domain.SessionConfig) Session {
	return Session{
		ID:     id,
		Config: c,
		Phase:  domain.PhaseLoading,
	}
}

// Reduce applies a to s. On error s is returned unchanged.
func Reduce(s Session, a Action) (Session, error) {
	switch a := a.(type) {
	case Begin:
		return Session{
			ID:         s.ID,
			Config:     s.Config,
			Generation: a.Generation,
			Phase:      domain.PhaseLoading,
		}, nil

	case Fetched:
		if a.Generation != s.Generation || s.Phase != domain.PhaseLoading {
			return s, nil
		}
		if a.Err != nil || len(a.Questions) == 0 {
			s.Phase = domain.PhaseFetchFailed
			s.Error = fetchFailedMessage(a.Err)
			return s, nil
		}
		s.Phase = domain.PhaseAwaitingAnswer
		s.Questions = a.Questions
		s.Index = 0
		s.Score = 0
		s.Selected = ""
		s.Feedback = nil
		s.Error = ""
		return s, nil

	case Select:
		if err := requirePhase(s, domain.PhaseAwaitingAnswer, "select an answer"); err != nil {
			return s, err
		}
		if !s.Questions[s.Index].HasChoice(a.Choice) {
			return s, errors.New(errors.CodeInvalidArgument,
				errors.WithMessagef("%q is not one of the available choices", a.Choice))
		}
		s.Selected = a.Choice
		return s, nil

	case Submit:
		if err := requirePhase(s, domain.PhaseAwaitingAnswer, "submit"); err != nil {
			return s, err
		}
		if s.Selected == "" {
			return s, errors.New(errors.CodeInvalidArgument,
				errors.WithMessagef("Please select an answer before submitting."))
		}
		f := domain.NewFeedback(s.Selected, s.Questions[s.Index].CorrectAnswer())
		if f.Correct {
			s.Score++
		}
		s.Feedback = &f
		s.Phase = domain.PhaseShowingFeedback
		return s, nil

	case Next:
		if err := requirePhase(s, domain.PhaseShowingFeedback, "advance"); err != nil {
			return s, err
		}
		if s.Index+1 >= len(s.Questions) {
			s.Phase = domain.PhaseFinished
			return s, nil
		}
		s.Index++
		s.Selected = ""
		s.Feedback = nil
		s.Phase = domain.PhaseAwaitingAnswer
		return s, nil
	}

	return s, errors.New(errors.CodeInternal, errors.WithMessagef("unknown action %T", a))
}

func requirePhase(s Session, want domain.Phase, op string) error {
	if s.Phase != want {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("cannot %s while %s", op, s.Phase))
	}
	return nil
}

func fetchFailedMessage(err error) string {
	if err == nil {
		return "No questions available for this category. Try another."
	}
	e := errors.Convert(err)
	switch e.Code {
	case errors.CodeCanceled:
		return "Loading was canceled. Please try again."
	case errors.CodeInternal:
		return "Something went wrong while loading questions. Please try again."
	}
	return e.Message
}

// Snapshot returns the renderer view of s.
func (s Session) Snapshot() domain.Snapshot {
	snap := domain.Snapshot{
		SessionID:  s.ID,
		PlayerName: s.Config.PlayerName,
		CategoryID: s.Config.CategoryID,
		Difficulty: s.Config.Difficulty,
		Phase:      s.Phase,
		Selected:   s.Selected,
		Score:      s.Score,
		Index:      s.Index,
		Total:      len(s.Questions),
		Error:      s.Error,
		Version:    s.Version,
	}
	if s.Feedback != nil {
		f := *s.Feedback
		snap.Feedback = &f
	}
	if s.Phase == domain.PhaseAwaitingAnswer || s.Phase == domain.PhaseShowingFeedback {
		q := s.Questions[s.Index]
		snap.Question = &domain.QuestionView{
			Text:    q.Text(),
			Choices: q.Choices(),
		}
	}
	return snap
}
