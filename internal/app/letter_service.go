package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"strings"
	"unicode/utf8"

	"linkletter-service/internal/domain"
)

// LetterRepository loads letter content (from cache/backing store).
type LetterRepository interface {
	GetLetter(ctx context.Context, letterID string) (domain.Letter, error)
}

// SessionRepository abstracts how gate sessions are stored for the lifetime
// of a viewer's connection.
type SessionRepository interface {
	Create(session *GateSession)
	Get(sessionID string) (*GateSession, bool)
	Delete(sessionID string)
}

// ReplyRepository persists and lists replies. Listing returns the full reply
// set in ascending creation order; visibility filtering happens in the
// application layer, not in the query.
type ReplyRepository interface {
	CreateReply(ctx context.Context, letterID, content string, author domain.Identity, isPrivate bool) (domain.Reply, error)
	ListReplies(ctx context.Context, letterID string) ([]domain.Reply, error)
}

// CounterStore mutates the letter's counters via delta increments, never via
// read-modify-write, so concurrent writers cannot lose updates.
type CounterStore interface {
	IncrementViewCount(ctx context.Context, letterID string, delta int64) error
	IncrementLikeCount(ctx context.Context, letterID string, delta int64) error
}

// LikeMarkerStore holds the per-(letter, viewer) idempotence marker that
// keeps one viewer from incrementing the like counter more than once.
type LikeMarkerStore interface {
	HasLiked(ctx context.Context, letterID, viewerID string) (bool, error)
	SetLiked(ctx context.Context, letterID, viewerID string, liked bool) error
}

// LetterService drives the quiz-gated reveal protocol: opening letters,
// submitting answers, the optimistic like toggle, and the reply subsystem.
type LetterService struct {
	letters  LetterRepository
	sessions SessionRepository
	replies  ReplyRepository
	counters CounterStore
	markers  LikeMarkerStore
	feeds    *replyFeedRegistry
}

func NewLetterService(
	letters LetterRepository,
	sessions SessionRepository,
	replies ReplyRepository,
	counters CounterStore,
	markers LikeMarkerStore,
) *LetterService {
	return &LetterService{
		letters:  letters,
		sessions: sessions,
		replies:  replies,
		counters: counters,
		markers:  markers,
		feeds:    newReplyFeedRegistry(),
	}
}

// OpenResult is the outcome of opening a letter: a fresh gate session plus
// the viewer's liked flag.
type OpenResult struct {
	SessionID string
	Letter    domain.Letter
	State     GateState
	HasLiked  bool
}

// OpenLetter loads the letter, creates an ephemeral gate session, and fires
// the view-count increment. The increment is fire-and-forget: a failure is
// logged and never blocks or alters the read path.
func (s *LetterService) OpenLetter(ctx context.Context, letterID string, viewer *domain.Identity) (OpenResult, error) {
	letter, err := s.letters.GetLetter(ctx, letterID)
	if err != nil {
		return OpenResult{}, err
	}

	session := newGateSession(newSessionID(), letter, viewer)
	if viewer != nil {
		liked, err := s.markers.HasLiked(ctx, letterID, viewer.UID)
		if err != nil {
			log.Printf("like marker read failed for letter %s: %v", letterID, err)
		}
		session.setLiked(liked)
	}
	s.sessions.Create(session)

	go func() {
		if err := s.counters.IncrementViewCount(context.Background(), letterID, 1); err != nil {
			log.Printf("view count increment failed for letter %s: %v", letterID, err)
		}
	}()

	return OpenResult{
		SessionID: session.ID(),
		Letter:    letter,
		State:     session.State(),
		HasLiked:  session.HasLiked(),
	}, nil
}

// Session resolves a live gate session.
func (s *LetterService) Session(sessionID string) (*GateSession, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// SubmitAnswer runs one submission through the gate engine. Reaching Locked
// terminates the session outright, so a further submission finds no session.
func (s *LetterService) SubmitAnswer(sessionID string, answer domain.Answer) (SubmitResult, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return SubmitResult{}, domain.ErrSessionNotFound
	}
	result, err := session.Submit(answer)
	if err != nil {
		return SubmitResult{}, err
	}
	if result.State == StateLocked {
		s.sessions.Delete(sessionID)
	}
	return result, nil
}

// Hint returns the current question's hint without touching the attempt budget.
func (s *LetterService) Hint(sessionID string) (string, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	return session.Hint()
}

// ToggleLike flips the viewer's liked state optimistically: the local flag
// and idempotence marker change first, then the remote ±1 delta is issued.
// If the remote mutation fails, both are reverted and the error surfaces to
// the caller. The remote counter is never read back to reconcile.
func (s *LetterService) ToggleLike(ctx context.Context, sessionID string) (bool, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return false, domain.ErrSessionNotFound
	}
	viewer := session.Viewer()
	if viewer == nil {
		return false, domain.ErrViewerRequired
	}

	letterID := session.Letter().ID
	prev := session.HasLiked()
	next := !prev

	session.setLiked(next)
	if err := s.markers.SetLiked(ctx, letterID, viewer.UID, next); err != nil {
		session.setLiked(prev)
		return prev, err
	}

	delta := int64(1)
	if !next {
		delta = -1
	}
	if err := s.counters.IncrementLikeCount(ctx, letterID, delta); err != nil {
		// Roll back the optimistic flip; the protocol trusts its own delta.
		session.setLiked(prev)
		if markerErr := s.markers.SetLiked(ctx, letterID, viewer.UID, prev); markerErr != nil {
			log.Printf("like marker rollback failed for letter %s: %v", letterID, markerErr)
		}
		return prev, err
	}
	return next, nil
}

// PostReply creates a reply on a revealed letter and publishes it to live
// subscribers. The reply record always stores the declared visibility;
// filtering happens when other viewers read it.
func (s *LetterService) PostReply(ctx context.Context, sessionID, content string, isPrivate bool) (domain.Reply, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.Reply{}, domain.ErrSessionNotFound
	}
	if !session.Revealed() {
		return domain.Reply{}, domain.ErrNotRevealed
	}
	viewer := session.Viewer()
	if viewer == nil {
		return domain.Reply{}, domain.ErrViewerRequired
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return domain.Reply{}, domain.ErrEmptyReply
	}
	if utf8.RuneCountInString(content) > domain.MaxReplyLength {
		return domain.Reply{}, domain.ErrReplyTooLong
	}

	reply, err := s.replies.CreateReply(ctx, session.Letter().ID, content, *viewer, isPrivate)
	if err != nil {
		return domain.Reply{}, err
	}
	s.feeds.publish(session.Letter().ID, session.Letter().Author, reply)
	return reply, nil
}

// ReplyView pairs a reply with its author label.
type ReplyView struct {
	Reply      domain.Reply
	FromAuthor bool
}

// Replies returns the reply list visible to this session's viewer, in
// ascending creation order. The full set is fetched and filtered here.
func (s *LetterService) Replies(ctx context.Context, sessionID string) ([]ReplyView, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if !session.Revealed() {
		return nil, domain.ErrNotRevealed
	}

	all, err := s.replies.ListReplies(ctx, session.Letter().ID)
	if err != nil {
		return nil, err
	}
	author := session.Letter().Author
	visible := domain.VisibleReplies(all, session.Viewer(), author)
	views := make([]ReplyView, 0, len(visible))
	for _, r := range visible {
		views = append(views, ReplyView{Reply: r, FromAuthor: domain.FromLetterAuthor(r, author)})
	}
	return views, nil
}

// SubscribeReplies returns a channel of newly posted replies, already
// filtered for this session's viewer, appended in arrival order. The caller
// must invoke the returned cancel function to avoid leaks.
func (s *LetterService) SubscribeReplies(sessionID string) (<-chan domain.Reply, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	if !session.Revealed() {
		return nil, nil, domain.ErrNotRevealed
	}
	ch, cancel := s.feeds.subscribe(session.Letter().ID, session.Viewer())
	return ch, cancel, nil
}

// Close discards the viewer session. In-flight counter mutations are allowed
// to complete or fail on their own; there is no partial-quiz state to clean.
func (s *LetterService) Close(sessionID string) {
	s.sessions.Delete(sessionID)
}

func newSessionID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // rand.Read does not fail on supported platforms
	}
	return hex.EncodeToString(buf)
}
