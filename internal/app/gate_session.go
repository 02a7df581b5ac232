package app

import (
	"sync"

	"linkletter-service/internal/domain"
)

// AttemptBudget is the fixed number of incorrect submissions allowed per
// question before the session locks. The budget resets when the viewer
// advances to the next question.
const AttemptBudget = 3

// GateState is the quiz gate position within one viewer session.
type GateState int

const (
	// StateAnswering means the viewer is working through the question list.
	StateAnswering GateState = iota
	// StateRevealed unlocks the protected payload for the rest of the session.
	StateRevealed
	// StateLocked is terminal: the attempt budget was exhausted.
	StateLocked
)

// String renders the state for transport payloads.
func (s GateState) String() string {
	switch s {
	case StateRevealed:
		return "revealed"
	case StateLocked:
		return "locked"
	default:
		return "answering"
	}
}

// GateSession is the ephemeral per-viewer quiz state. It lives only as long
// as the viewer stays on the letter: a reconnect starts over at question 0
// with a fresh budget. Sessions are never shared across viewers or tabs.
type GateSession struct {
	id     string
	letter domain.Letter
	viewer *domain.Identity

	mu        sync.Mutex
	questions []domain.Question
	index     int
	completed []int
	attempts  int
	state     GateState
	hasLiked  bool
}

func newGateSession(id string, letter domain.Letter, viewer *domain.Identity) *GateSession {
	s := &GateSession{
		id:        id,
		letter:    letter,
		viewer:    viewer,
		questions: letter.GateQuestions(),
	}
	// No usable questions means no gate: the payload is immediately visible
	// and the engine is never invoked.
	if len(s.questions) == 0 {
		s.state = StateRevealed
	}
	return s
}

// ID returns the opaque session key.
func (s *GateSession) ID() string { return s.id }

// Letter returns the letter this session was opened against.
func (s *GateSession) Letter() domain.Letter { return s.letter }

// Viewer returns the authenticated viewer, or nil for anonymous sessions.
func (s *GateSession) Viewer() *domain.Identity { return s.viewer }

// SubmitResult summarizes one submission against the gate.
type SubmitResult struct {
	Correct        bool
	State          GateState
	QuestionIndex  int
	TotalQuestions int
	AttemptsLeft   int
}

// Submit evaluates an answer for the current question and advances the state
// machine. Once Revealed the engine does not re-evaluate; once Locked no
// further submission is possible.
func (s *GateSession) Submit(answer domain.Answer) (SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateLocked:
		return SubmitResult{}, domain.ErrSessionLocked
	case StateRevealed:
		return SubmitResult{}, domain.ErrAlreadyRevealed
	}
	if answer.Empty() {
		return SubmitResult{}, domain.ErrNoAnswerSelected
	}

	question := s.questions[s.index]
	total := len(s.questions)

	if question.Matches(answer) {
		s.completed = append(s.completed, s.index)
		if s.index == total-1 {
			s.state = StateRevealed
		} else {
			s.index++
			s.attempts = 0
		}
		return SubmitResult{
			Correct:        true,
			State:          s.state,
			QuestionIndex:  s.index,
			TotalQuestions: total,
			AttemptsLeft:   AttemptBudget - s.attempts,
		}, nil
	}

	s.attempts++
	if s.attempts >= AttemptBudget {
		s.state = StateLocked
	}
	return SubmitResult{
		Correct:        false,
		State:          s.state,
		QuestionIndex:  s.index,
		TotalQuestions: total,
		AttemptsLeft:   AttemptBudget - s.attempts,
	}, nil
}

// Hint returns the current question's hint. Requesting it has no effect on
// attempts or state.
func (s *GateSession) Hint() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAnswering {
		return "", domain.ErrNoHint
	}
	q := s.questions[s.index]
	if !q.HasHint() {
		return "", domain.ErrNoHint
	}
	return q.Hint, nil
}

// State returns the current gate state.
func (s *GateSession) State() GateState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Revealed reports whether the payload is unlocked for this session.
func (s *GateSession) Revealed() bool {
	return s.State() == StateRevealed
}

// CurrentQuestion returns the question the viewer is answering, its index,
// the total count, and whether the gate is still active.
func (s *GateSession) CurrentQuestion() (domain.Question, int, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAnswering {
		return domain.Question{}, 0, len(s.questions), false
	}
	return s.questions[s.index], s.index, len(s.questions), true
}

// AttemptsLeft returns the remaining budget for the current question.
func (s *GateSession) AttemptsLeft() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AttemptBudget - s.attempts
}

// CompletedQuestions returns the indices passed so far, in completion order.
func (s *GateSession) CompletedQuestions() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.completed))
	copy(out, s.completed)
	return out
}

// HasLiked returns the session-local liked flag.
func (s *GateSession) HasLiked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasLiked
}

func (s *GateSession) setLiked(liked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasLiked = liked
}
