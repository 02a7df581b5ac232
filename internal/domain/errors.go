package domain

import "errors"

var (
	// ErrLetterNotFound indicates the letter record could not be loaded.
	ErrLetterNotFound = errors.New("letter not found")
	// ErrSessionNotFound is returned when a viewer session does not exist or was terminated.
	ErrSessionNotFound = errors.New("viewer session not found")
	// ErrSessionLocked indicates the attempt budget was exhausted and the session terminated.
	ErrSessionLocked = errors.New("session locked: attempt budget exhausted")
	// ErrAlreadyRevealed indicates a submission after the letter was already unlocked.
	ErrAlreadyRevealed = errors.New("letter already revealed")
	// ErrNoAnswerSelected rejects an empty submission before it reaches the gate engine.
	ErrNoAnswerSelected = errors.New("no answer selected")
	// ErrNoHint indicates the current question declares no hint.
	ErrNoHint = errors.New("question has no hint")
	// ErrViewerRequired indicates the operation needs an authenticated viewer.
	ErrViewerRequired = errors.New("authenticated viewer required")
	// ErrNotRevealed indicates the reply subsystem was used before the letter was unlocked.
	ErrNotRevealed = errors.New("letter not revealed")
	// ErrEmptyReply rejects a reply with no content.
	ErrEmptyReply = errors.New("reply content is empty")
	// ErrReplyTooLong rejects a reply exceeding the content bound.
	ErrReplyTooLong = errors.New("reply content too long")
)
