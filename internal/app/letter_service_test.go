package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"linkletter-service/internal/app"
	"linkletter-service/internal/domain"
)

func TestViewCountIncrementsOnOpen(t *testing.T) {
	counters := newSignalCounter()
	service, _ := newTestService(counters)

	mustOpen(t, service, "letter-open", nil)

	select {
	case letterID := <-counters.views:
		if letterID != "letter-open" {
			t.Fatalf("expected view increment for letter-open, got %s", letterID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a view increment")
	}
	if counters.viewDelta("letter-open") != 1 {
		t.Fatalf("expected view delta 1, got %d", counters.viewDelta("letter-open"))
	}
}

func TestViewCountFailureDoesNotBlockOpen(t *testing.T) {
	counters := &failingCounter{failViews: true}
	service, _ := newTestService(counters)

	opened := mustOpen(t, service, "letter-open", nil)
	if opened.State != app.StateRevealed {
		t.Fatalf("view failure must not alter the read path, got %v", opened.State)
	}
}

func TestLikeToggleIdempotence(t *testing.T) {
	service, counters := newTestService(nil)
	viewer := &domain.Identity{UID: "v1", DisplayName: "Alice"}
	opened := mustOpen(t, service, "letter-open", viewer)

	liked, err := service.ToggleLike(context.Background(), opened.SessionID)
	if err != nil || !liked {
		t.Fatalf("toggle to liked: liked=%v err=%v", liked, err)
	}
	if counters.LikeCount("letter-open") != 1 {
		t.Fatalf("expected like delta +1, got %d", counters.LikeCount("letter-open"))
	}

	liked, err = service.ToggleLike(context.Background(), opened.SessionID)
	if err != nil || liked {
		t.Fatalf("toggle to unliked: liked=%v err=%v", liked, err)
	}
	// Net delta is zero and the marker is cleared.
	if counters.LikeCount("letter-open") != 0 {
		t.Fatalf("expected net like delta 0, got %d", counters.LikeCount("letter-open"))
	}

	reopened := mustOpen(t, service, "letter-open", viewer)
	if reopened.HasLiked {
		t.Fatalf("expected marker cleared after unlike")
	}
}

func TestLikeMarkerSurvivesReconnect(t *testing.T) {
	service, _ := newTestService(nil)
	viewer := &domain.Identity{UID: "v1", DisplayName: "Alice"}

	first := mustOpen(t, service, "letter-open", viewer)
	if _, err := service.ToggleLike(context.Background(), first.SessionID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	service.Close(first.SessionID)

	second := mustOpen(t, service, "letter-open", viewer)
	if !second.HasLiked {
		t.Fatalf("expected liked flag derived from marker on reconnect")
	}
}

func TestLikeRollbackOnRemoteFailure(t *testing.T) {
	counters := &failingCounter{failLikes: true}
	service, _ := newTestService(counters)
	viewer := &domain.Identity{UID: "v1", DisplayName: "Alice"}
	opened := mustOpen(t, service, "letter-open", viewer)

	liked, err := service.ToggleLike(context.Background(), opened.SessionID)
	if err == nil {
		t.Fatalf("expected remote failure to surface")
	}
	if liked {
		t.Fatalf("expected liked flag reverted to pre-toggle value")
	}

	session, sessErr := service.Session(opened.SessionID)
	if sessErr != nil {
		t.Fatalf("session: %v", sessErr)
	}
	if session.HasLiked() {
		t.Fatalf("expected session flag rolled back")
	}

	// The marker is back to its pre-toggle value too.
	reopened := mustOpen(t, service, "letter-open", viewer)
	if reopened.HasLiked {
		t.Fatalf("expected marker rolled back")
	}
}

func TestLikeRequiresViewer(t *testing.T) {
	service, _ := newTestService(nil)
	opened := mustOpen(t, service, "letter-open", nil)

	if _, err := service.ToggleLike(context.Background(), opened.SessionID); !errors.Is(err, domain.ErrViewerRequired) {
		t.Fatalf("expected ErrViewerRequired, got %v", err)
	}
}

func TestPostReplyRequiresReveal(t *testing.T) {
	service, _ := newTestService(nil)
	viewer := &domain.Identity{UID: "v1", DisplayName: "Alice"}
	opened := mustOpen(t, service, "letter-1q", viewer)

	if _, err := service.PostReply(context.Background(), opened.SessionID, "hello", false); !errors.Is(err, domain.ErrNotRevealed) {
		t.Fatalf("expected ErrNotRevealed, got %v", err)
	}
}

func TestPostReplyValidation(t *testing.T) {
	service, _ := newTestService(nil)
	viewer := &domain.Identity{UID: "v1", DisplayName: "Alice"}
	opened := mustOpen(t, service, "letter-open", viewer)
	ctx := context.Background()

	if _, err := service.PostReply(ctx, opened.SessionID, "   ", false); !errors.Is(err, domain.ErrEmptyReply) {
		t.Fatalf("expected ErrEmptyReply, got %v", err)
	}
	long := strings.Repeat("a", domain.MaxReplyLength+1)
	if _, err := service.PostReply(ctx, opened.SessionID, long, false); !errors.Is(err, domain.ErrReplyTooLong) {
		t.Fatalf("expected ErrReplyTooLong, got %v", err)
	}

	anon := mustOpen(t, service, "letter-open", nil)
	if _, err := service.PostReply(ctx, anon.SessionID, "hello", false); !errors.Is(err, domain.ErrViewerRequired) {
		t.Fatalf("expected ErrViewerRequired, got %v", err)
	}
}

func TestRepliesFilteredPerViewer(t *testing.T) {
	service, _ := newTestService(nil)
	ctx := context.Background()

	author := &domain.Identity{UID: "author-1", DisplayName: "Author"}
	writer := &domain.Identity{UID: "writer", DisplayName: "Writer"}
	stranger := &domain.Identity{UID: "stranger", DisplayName: "Stranger"}

	writerSession := mustOpen(t, service, "letter-open", writer)
	if _, err := service.PostReply(ctx, writerSession.SessionID, "public note", false); err != nil {
		t.Fatalf("post public: %v", err)
	}
	if _, err := service.PostReply(ctx, writerSession.SessionID, "secret note", true); err != nil {
		t.Fatalf("post private: %v", err)
	}

	authorSession := mustOpen(t, service, "letter-open", author)
	authorReplies, err := service.Replies(ctx, authorSession.SessionID)
	if err != nil {
		t.Fatalf("author replies: %v", err)
	}
	if len(authorReplies) != 2 {
		t.Fatalf("letter author must see private replies, got %d", len(authorReplies))
	}

	strangerSession := mustOpen(t, service, "letter-open", stranger)
	strangerReplies, err := service.Replies(ctx, strangerSession.SessionID)
	if err != nil {
		t.Fatalf("stranger replies: %v", err)
	}
	if len(strangerReplies) != 1 || strangerReplies[0].Reply.Content != "public note" {
		t.Fatalf("stranger must only see public replies, got %+v", strangerReplies)
	}

	// The writer sees their own private reply.
	writerReplies, err := service.Replies(ctx, writerSession.SessionID)
	if err != nil {
		t.Fatalf("writer replies: %v", err)
	}
	if len(writerReplies) != 2 {
		t.Fatalf("reply author must see their private reply, got %d", len(writerReplies))
	}
}

func TestRepliesLabelLetterAuthor(t *testing.T) {
	service, _ := newTestService(nil)
	ctx := context.Background()

	author := &domain.Identity{UID: "author-1", DisplayName: "Author"}
	authorSession := mustOpen(t, service, "letter-open", author)
	if _, err := service.PostReply(ctx, authorSession.SessionID, "from the sender", false); err != nil {
		t.Fatalf("post: %v", err)
	}

	replies, err := service.Replies(ctx, authorSession.SessionID)
	if err != nil {
		t.Fatalf("replies: %v", err)
	}
	if len(replies) != 1 || !replies[0].FromAuthor {
		t.Fatalf("expected author label, got %+v", replies)
	}
}

func TestSubscribeFiltersPrivateReplies(t *testing.T) {
	service, _ := newTestService(nil)
	ctx := context.Background()

	writer := &domain.Identity{UID: "writer", DisplayName: "Writer"}
	stranger := &domain.Identity{UID: "stranger", DisplayName: "Stranger"}

	writerSession := mustOpen(t, service, "letter-open", writer)
	strangerSession := mustOpen(t, service, "letter-open", stranger)

	writerCh, cancelWriter, err := service.SubscribeReplies(writerSession.SessionID)
	if err != nil {
		t.Fatalf("subscribe writer: %v", err)
	}
	defer cancelWriter()
	strangerCh, cancelStranger, err := service.SubscribeReplies(strangerSession.SessionID)
	if err != nil {
		t.Fatalf("subscribe stranger: %v", err)
	}
	defer cancelStranger()

	if _, err := service.PostReply(ctx, writerSession.SessionID, "secret", true); err != nil {
		t.Fatalf("post private: %v", err)
	}

	select {
	case reply := <-writerCh:
		if reply.Content != "secret" {
			t.Fatalf("expected private reply delivered to its author, got %+v", reply)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected writer to receive their private reply")
	}
	select {
	case reply := <-strangerCh:
		t.Fatalf("stranger must not receive private replies, got %+v", reply)
	default:
	}

	if _, err := service.PostReply(ctx, writerSession.SessionID, "hello all", false); err != nil {
		t.Fatalf("post public: %v", err)
	}
	select {
	case reply := <-strangerCh:
		if reply.Content != "hello all" {
			t.Fatalf("expected public reply, got %+v", reply)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected stranger to receive public reply")
	}
}

func TestReplyFailureLeavesRevealIntact(t *testing.T) {
	service, _ := newTestService(nil)
	viewer := &domain.Identity{UID: "v1", DisplayName: "Alice"}
	opened := mustOpen(t, service, "letter-open", viewer)

	if _, err := service.PostReply(context.Background(), opened.SessionID, "", false); err == nil {
		t.Fatalf("expected reply failure")
	}

	// The reveal flag is never rolled back by unrelated failures.
	session, err := service.Session(opened.SessionID)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if !session.Revealed() {
		t.Fatalf("reveal must survive reply failures")
	}
}

// signalCounter signals each view increment so tests can wait for the
// fire-and-forget goroutine.
type signalCounter struct {
	views  chan string
	counts map[string]int64
}

func newSignalCounter() *signalCounter {
	return &signalCounter{views: make(chan string, 8), counts: make(map[string]int64)}
}

func (c *signalCounter) IncrementViewCount(_ context.Context, letterID string, delta int64) error {
	c.counts[letterID] += delta
	c.views <- letterID
	return nil
}

func (c *signalCounter) IncrementLikeCount(_ context.Context, _ string, _ int64) error {
	return nil
}

func (c *signalCounter) viewDelta(letterID string) int64 {
	return c.counts[letterID]
}

// failingCounter simulates remote mutation failures.
type failingCounter struct {
	failViews bool
	failLikes bool
}

func (c *failingCounter) IncrementViewCount(_ context.Context, _ string, _ int64) error {
	if c.failViews {
		return errors.New("remote view increment rejected")
	}
	return nil
}

func (c *failingCounter) IncrementLikeCount(_ context.Context, _ string, _ int64) error {
	if c.failLikes {
		return errors.New("remote like increment rejected")
	}
	return nil
}
