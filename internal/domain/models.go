package domain

import (
	"strings"
	"time"
)

// MaxReplyLength bounds reply content, counted in runes.
const MaxReplyLength = 1000

// Identity identifies a letter author or viewer.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
}

// Handle derives a short handle from the contact email (local part),
// falling back to the display name.
func (i Identity) Handle() string {
	if at := strings.IndexByte(i.Email, '@'); at > 0 {
		return i.Email[:at]
	}
	return i.DisplayName
}

// Background is the visual theme attached to a letter.
type Background struct {
	Type  string `json:"type"` // color, gradient, image, default
	Value string `json:"value,omitempty"`
}

// Recipient is the optional addressee recorded on a letter.
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Question is a single challenge guarding a letter. Either Options with a
// correct index, or a canonical free-text answer.
type Question struct {
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options,omitempty"`
	CorrectOption int      `json:"correctOption"`
	AnswerText    string   `json:"answerText,omitempty"`
	Hint          string   `json:"hint,omitempty"`
}

// Answer is a viewer's submission for one question.
type Answer struct {
	Option *int
	Text   string
}

// Empty reports whether nothing was selected or typed. Empty answers are
// rejected at the boundary and never reach the gate engine.
func (a Answer) Empty() bool {
	return a.Option == nil && strings.TrimSpace(a.Text) == ""
}

// Matches checks the answer against the question's correct reference.
// Free-text answers match case-insensitively after trimming whitespace.
func (q Question) Matches(a Answer) bool {
	if len(q.Options) > 0 {
		return a.Option != nil && *a.Option == q.CorrectOption
	}
	return strings.EqualFold(strings.TrimSpace(a.Text), strings.TrimSpace(q.AnswerText))
}

// HasHint reports whether the question declares a non-empty hint.
func (q Question) HasHint() bool {
	return strings.TrimSpace(q.Hint) != ""
}

// Quiz carries the challenge definitions in both stored shapes: the current
// multi-question list and the legacy single-question fields.
type Quiz struct {
	Questions []Question `json:"questions,omitempty"`

	// legacy single-question shape
	Question      string   `json:"question,omitempty"`
	Options       []string `json:"options,omitempty"`
	CorrectOption int      `json:"correctAnswer,omitempty"`
	Hint          string   `json:"hint,omitempty"`
}

// Letter is the gated content unit: title, challenge questions, and the
// protected payload that stays hidden until the gate is passed.
type Letter struct {
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Category   string      `json:"category,omitempty"` // confession, gratitude, friendship, filial, apology, celebration
	Quiz       Quiz        `json:"quiz"`
	Body       string      `json:"body"`
	Images     []string    `json:"images,omitempty"`
	Background *Background `json:"background,omitempty"`
	Author     Identity    `json:"author"`
	Recipient  *Recipient  `json:"recipient,omitempty"`
	IsPublic   bool        `json:"isPublic"`
	ViewCount  int64       `json:"viewCount"`
	LikeCount  int64       `json:"likeCount"`
	CreatedAt  time.Time   `json:"createdAt"`

	// Declared for forward compatibility; no code path enforces them.
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
}

// GateQuestions normalizes both quiz shapes into one ordered question list.
// A letter with no usable questions returns nil and carries no gate at all.
func (l Letter) GateQuestions() []Question {
	if len(l.Quiz.Questions) > 0 {
		return l.Quiz.Questions
	}
	if l.Quiz.Question != "" {
		return []Question{{
			Prompt:        l.Quiz.Question,
			Options:       l.Quiz.Options,
			CorrectOption: l.Quiz.CorrectOption,
			Hint:          l.Quiz.Hint,
		}}
	}
	return nil
}

// Reply is a viewer-authored comment on a revealed letter. Replies are
// append-only; visibility is decided at read time, never at write time.
type Reply struct {
	ID        int64     `json:"id"`
	LetterID  string    `json:"letterId"`
	Content   string    `json:"content"`
	Author    Identity  `json:"author"`
	IsPrivate bool      `json:"isPrivate"`
	CreatedAt time.Time `json:"createdAt"`
}
