package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"linkletter-service/internal/app"
	"linkletter-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler exposes the letter viewing session over a websocket. One
// connection is one viewer session: closing the socket discards the gate
// state, so a reload always restarts the quiz.
type WSHandler struct {
	service  *app.LetterService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.LetterService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Option *int   `json:"option,omitempty"`
	Text   string `json:"text,omitempty"`
}

type replyInPayload struct {
	Content   string `json:"content"`
	IsPrivate bool   `json:"isPrivate"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type letterPreview struct {
	ID             string             `json:"id"`
	Title          string             `json:"title"`
	Category       string             `json:"category,omitempty"`
	AuthorName     string             `json:"authorName"`
	AuthorHandle   string             `json:"authorHandle,omitempty"`
	Background     *domain.Background `json:"background,omitempty"`
	IsPublic       bool               `json:"isPublic"`
	ViewCount      int64              `json:"viewCount"`
	LikeCount      int64              `json:"likeCount"`
	TotalQuestions int                `json:"totalQuestions"`
	HasLiked       bool               `json:"hasLiked"`
	CreatedAt      time.Time          `json:"createdAt"`
}

// questionView is the gated view of a question: the correct reference and
// canonical answer never cross the wire.
type questionView struct {
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options,omitempty"`
	Index        int      `json:"index"`
	Total        int      `json:"total"`
	AttemptsLeft int      `json:"attemptsLeft"`
	HasHint      bool     `json:"hasHint"`
}

type answerResultPayload struct {
	Correct        bool   `json:"correct"`
	State          string `json:"state"`
	QuestionIndex  int    `json:"questionIndex"`
	TotalQuestions int    `json:"totalQuestions"`
	AttemptsLeft   int    `json:"attemptsLeft"`
}

type revealedPayload struct {
	Body       string             `json:"body"`
	Images     []string           `json:"images,omitempty"`
	Background *domain.Background `json:"background,omitempty"`
	Replies    []replyView        `json:"replies"`
}

type replyView struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	AuthorName string    `json:"authorName"`
	AuthorUID  string    `json:"authorUid"`
	FromAuthor bool      `json:"fromAuthor"`
	IsPrivate  bool      `json:"isPrivate"`
	CreatedAt  time.Time `json:"createdAt"`
}

type likeResultPayload struct {
	Liked bool `json:"liked"`
}

type hintPayload struct {
	Hint string `json:"hint"`
}

type lockedPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and drives the quiz-gated
// reveal protocol for one viewer session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	letterID := r.URL.Query().Get("letterId")
	if letterID == "" {
		http.Error(w, "missing letterId", http.StatusBadRequest)
		return
	}
	viewer := viewerFromQuery(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	opened, err := h.service.OpenLetter(r.Context(), letterID, viewer)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: openErrorMessage(err)}})
		return
	}
	sessionID := opened.SessionID
	defer h.service.Close(sessionID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	feedDone := make(chan struct{})
	feedStarted := false

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "letter", Payload: previewOf(opened)}

	// startFeed wires the live reply stream into the connection once the
	// session reaches Revealed. The feed is already filtered per viewer.
	startFeed := func() bool {
		updates, cancelFeed, err := h.service.SubscribeReplies(sessionID)
		if err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "failed to subscribe to replies"}}
			return false
		}
		feedStarted = true
		go func() {
			defer close(feedDone)
			defer cancelFeed()
			for {
				select {
				case reply, ok := <-updates:
					if !ok {
						return
					}
					view := replyViewOf(reply, opened.Letter.Author)
					select {
					case send <- outboundMessage[any]{Type: "reply", Payload: view}:
					case <-closeSignals:
						return
					}
				case <-closeSignals:
					return
				}
			}
		}()
		return true
	}

	// reveal sends the protected payload and the visible reply snapshot.
	// Payload bytes are never written before this point.
	reveal := func() bool {
		views, err := h.service.Replies(r.Context(), sessionID)
		if err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "failed to load replies"}}
			return false
		}
		replies := make([]replyView, 0, len(views))
		for _, v := range views {
			rv := replyViewOf(v.Reply, opened.Letter.Author)
			rv.FromAuthor = v.FromAuthor
			replies = append(replies, rv)
		}
		send <- outboundMessage[any]{Type: "revealed", Payload: revealedPayload{
			Body:       opened.Letter.Body,
			Images:     opened.Letter.Images,
			Background: opened.Letter.Background,
			Replies:    replies,
		}}
		return startFeed()
	}

	if opened.State == app.StateRevealed {
		// No usable questions: no gate, payload immediately visible.
		reveal()
	} else if session, err := h.service.Session(sessionID); err == nil {
		if q, idx, total, ok := session.CurrentQuestion(); ok {
			send <- outboundMessage[any]{Type: "question", Payload: questionViewOf(q, idx, total, session.AttemptsLeft())}
		}
	}

	locked := false
	for !locked {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			result, err := h.service.SubmitAnswer(sessionID, domain.Answer{Option: payload.Option, Text: payload.Text})
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: answerResultPayload{
				Correct:        result.Correct,
				State:          result.State.String(),
				QuestionIndex:  result.QuestionIndex,
				TotalQuestions: result.TotalQuestions,
				AttemptsLeft:   result.AttemptsLeft,
			}}
			switch result.State {
			case app.StateRevealed:
				reveal()
			case app.StateLocked:
				send <- outboundMessage[any]{Type: "locked", Payload: lockedPayload{
					Message: "all attempts used, come back later",
				}}
				locked = true
			default:
				if session, err := h.service.Session(sessionID); err == nil {
					if q, idx, total, ok := session.CurrentQuestion(); ok && result.Correct {
						send <- outboundMessage[any]{Type: "question", Payload: questionViewOf(q, idx, total, session.AttemptsLeft())}
					}
				}
			}
		case "hint":
			hint, err := h.service.Hint(sessionID)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "hint", Payload: hintPayload{Hint: hint}}
		case "like":
			liked, err := h.service.ToggleLike(r.Context(), sessionID)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: likeErrorMessage(err)}}
				continue
			}
			send <- outboundMessage[any]{Type: "likeResult", Payload: likeResultPayload{Liked: liked}}
		case "reply":
			var payload replyInPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid reply payload"}}
				continue
			}
			if _, err := h.service.PostReply(r.Context(), sessionID, payload.Content, payload.IsPrivate); err != nil {
				// The composer keeps its draft; the viewer can resubmit.
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			// The posted reply reaches the author through the feed.
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	if feedStarted {
		<-feedDone
	}
	close(send)
	<-writerDone
}

func viewerFromQuery(r *http.Request) *domain.Identity {
	uid := r.URL.Query().Get("viewerId")
	if uid == "" {
		return nil
	}
	return &domain.Identity{
		UID:         uid,
		DisplayName: r.URL.Query().Get("name"),
		Email:       r.URL.Query().Get("email"),
	}
}

func previewOf(opened app.OpenResult) letterPreview {
	letter := opened.Letter
	return letterPreview{
		ID:             letter.ID,
		Title:          letter.Title,
		Category:       letter.Category,
		AuthorName:     letter.Author.DisplayName,
		AuthorHandle:   letter.Author.Handle(),
		Background:     letter.Background,
		IsPublic:       letter.IsPublic,
		ViewCount:      letter.ViewCount,
		LikeCount:      letter.LikeCount,
		TotalQuestions: len(letter.GateQuestions()),
		HasLiked:       opened.HasLiked,
		CreatedAt:      letter.CreatedAt,
	}
}

func questionViewOf(q domain.Question, index, total, attemptsLeft int) questionView {
	return questionView{
		Prompt:       q.Prompt,
		Options:      q.Options,
		Index:        index,
		Total:        total,
		AttemptsLeft: attemptsLeft,
		HasHint:      q.HasHint(),
	}
}

func replyViewOf(reply domain.Reply, letterAuthor domain.Identity) replyView {
	return replyView{
		ID:         reply.ID,
		Content:    reply.Content,
		AuthorName: reply.Author.DisplayName,
		AuthorUID:  reply.Author.UID,
		FromAuthor: domain.FromLetterAuthor(reply, letterAuthor),
		IsPrivate:  reply.IsPrivate,
		CreatedAt:  reply.CreatedAt,
	}
}

func openErrorMessage(err error) string {
	if errors.Is(err, domain.ErrLetterNotFound) {
		return "letter not found or failed to load"
	}
	return err.Error()
}

func likeErrorMessage(err error) string {
	if errors.Is(err, domain.ErrViewerRequired) {
		return "sign in to like this letter"
	}
	return "like failed, please try again"
}
