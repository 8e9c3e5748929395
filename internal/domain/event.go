package domain

const (
	EventNamePhaseChanged    = "quiz.phase_changed"
	EventNameAnswerSubmitted = "quiz.answer_submitted"
	EventNameQuizFinished    = "quiz.finished"
)

type EventPhaseChanged struct {
	From     Phase
	Snapshot Snapshot
}

func (EventPhaseChanged) Name() string { return EventNamePhaseChanged }

type EventAnswerSubmitted struct {
	SessionID string
	Index     int
	Feedback  Feedback
}

func (EventAnswerSubmitted) Name() string { return EventNameAnswerSubmitted }

type EventQuizFinished struct {
	Snapshot Snapshot
}

func (EventQuizFinished) Name() string { return EventNameQuizFinished }
