package app

import (
	"sync"

	"linkletter-service/internal/domain"
)

// replyFeedRegistry fans newly posted replies out to live subscribers, one
// feed per letter. Feeds exist only while someone is subscribed.
type replyFeedRegistry struct {
	mu    sync.Mutex
	feeds map[string]*replyFeed
}

func newReplyFeedRegistry() *replyFeedRegistry {
	return &replyFeedRegistry{feeds: make(map[string]*replyFeed)}
}

func (r *replyFeedRegistry) subscribe(letterID string, viewer *domain.Identity) (<-chan domain.Reply, func()) {
	r.mu.Lock()
	feed, ok := r.feeds[letterID]
	if !ok {
		feed = newReplyFeed()
		r.feeds[letterID] = feed
	}
	r.mu.Unlock()

	ch, cancel := feed.subscribe(viewer)
	return ch, func() {
		cancel()
		r.mu.Lock()
		if feed.isEmpty() {
			delete(r.feeds, letterID)
		}
		r.mu.Unlock()
	}
}

func (r *replyFeedRegistry) publish(letterID string, letterAuthor domain.Identity, reply domain.Reply) {
	r.mu.Lock()
	feed, ok := r.feeds[letterID]
	r.mu.Unlock()
	if !ok {
		return
	}
	feed.publish(letterAuthor, reply)
}

type replySubscriber struct {
	viewer *domain.Identity
}

// replyFeed delivers replies in arrival order. The visibility policy runs per
// subscriber at delivery time, so concurrently arriving private replies are
// filtered exactly like the initial snapshot.
type replyFeed struct {
	mu          sync.Mutex
	subscribers map[chan domain.Reply]replySubscriber
}

func newReplyFeed() *replyFeed {
	return &replyFeed{subscribers: make(map[chan domain.Reply]replySubscriber)}
}

func (f *replyFeed) subscribe(viewer *domain.Identity) (<-chan domain.Reply, func()) {
	ch := make(chan domain.Reply, 16)

	f.mu.Lock()
	f.subscribers[ch] = replySubscriber{viewer: viewer}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

func (f *replyFeed) publish(letterAuthor domain.Identity, reply domain.Reply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch, sub := range f.subscribers {
		if !domain.CanViewReply(reply, sub.viewer, letterAuthor) {
			continue
		}
		select {
		case ch <- reply:
		default:
			// Drop the oldest pending reply so a slow reader cannot block
			// delivery to everyone else.
			select {
			case <-ch:
			default:
			}
			ch <- reply
		}
	}
}

func (f *replyFeed) isEmpty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers) == 0
}
