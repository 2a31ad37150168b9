package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/aura/backend/internal/model/chat"
	chatService "github.com/zhouzirui/aura/backend/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Handler lets a browser submit utterances and receive conversation events over one WebSocket.
type Handler struct {
	chatSvc  *chatService.Service
	upgrader websocket.Upgrader
}

// New creates a WebSocket handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes registers the WebSocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/conversations/{conversationID}/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type outgoingMessage struct {
	Type  string      `json:"type"`
	Event *chat.Event `json:"event,omitempty"`
	Error string      `json:"error,omitempty"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	state, events, cancelSub, err := h.chatSvc.Subscribe(r.Context(), conversationID)
	if err != nil {
		if errors.Is(err, chatService.ErrConversationNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	defer cancelSub()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new connection for conversation=%s", conversationID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	replies := make(chan outgoingMessage, 8)
	writerDone := make(chan struct{})

	initial := chat.Event{
		Type:           chat.EventState,
		ConversationID: conversationID,
		State:          &state,
		Busy:           state.Busy,
		Notice:         state.Notice,
	}
	go func() {
		defer close(writerDone)
		// Unblocks the read loop once nothing more can be written.
		defer conn.Close()
		defer cancel()
		h.writeLoop(ctx, conn, initial, events, replies)
	}()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				h.reply(ctx, replies, outgoingMessage{Type: "error", Error: "invalid message"})
				continue
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		h.handleMessage(ctx, conversationID, msg, replies)
	}

	cancel()
	<-writerDone
	log.Printf("[websocket] connection closed for conversation=%s", conversationID)
}

func (h *Handler) handleMessage(ctx context.Context, conversationID string, msg inboundMessage, replies chan<- outgoingMessage) {
	switch msg.Type {
	case "submit":
		// The reply arrives through the subscription, so the read loop must not wait for it.
		go func() {
			if _, err := h.chatSvc.SubmitUtterance(ctx, conversationID, msg.Text); err != nil {
				h.reply(ctx, replies, outgoingMessage{Type: "error", Error: err.Error()})
			}
		}()
	case "dismiss":
		if err := h.chatSvc.DismissNotice(ctx, conversationID); err != nil {
			h.reply(ctx, replies, outgoingMessage{Type: "error", Error: err.Error()})
		}
	default:
		h.reply(ctx, replies, outgoingMessage{Type: "error", Error: "unsupported message type: " + msg.Type})
	}
}

func (h *Handler) reply(ctx context.Context, replies chan<- outgoingMessage, msg outgoingMessage) {
	select {
	case replies <- msg:
	case <-ctx.Done():
	}
}

// writeLoop is the only goroutine writing to conn.
func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, initial chat.Event, events <-chan chat.Event, replies <-chan outgoingMessage) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	if err := h.write(conn, outgoingMessage{Type: "event", Event: &initial}); err != nil {
		log.Printf("[websocket] failed to send state: %v", err)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "conversation closed"))
				return
			}
			if err := h.write(conn, outgoingMessage{Type: "event", Event: &evt}); err != nil {
				log.Printf("[websocket] failed to send event: %v", err)
				return
			}
		case msg := <-replies:
			if err := h.write(conn, msg); err != nil {
				log.Printf("[websocket] failed to send reply: %v", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, msg outgoingMessage) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteJSON(msg)
}
