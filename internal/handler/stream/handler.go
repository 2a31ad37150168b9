package stream

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/aura/backend/internal/model/chat"
	chatService "github.com/zhouzirui/aura/backend/internal/service/chat"
	"github.com/zhouzirui/aura/backend/pkg/utils"
)

const heartbeatInterval = 15 * time.Second

// Handler pushes conversation events to the browser via Server-Sent Events.
type Handler struct {
	chatSvc   *chatService.Service
	heartbeat time.Duration
}

// New creates a stream handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{
		chatSvc:   chatSvc,
		heartbeat: heartbeatInterval,
	}
}

// RegisterRoutes registers the event stream route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/conversations/{conversationID}/events", h.handleEvents)
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	if err := h.StreamEvents(r.Context(), w, conversationID); err != nil {
		if errors.Is(err, chatService.ErrConversationNotFound) {
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		if errors.Is(err, errStreamingUnsupported) {
			utils.RespondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		log.Printf("[stream] conversation=%s ended: %v", conversationID, err)
	}
}

var errStreamingUnsupported = errors.New("streaming unsupported")

// StreamEvents writes the current state followed by every event until the client leaves or the
// conversation is closed.
func (h *Handler) StreamEvents(ctx context.Context, w http.ResponseWriter, conversationID string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return errStreamingUnsupported
	}

	state, events, cancel, err := h.chatSvc.Subscribe(ctx, conversationID)
	if err != nil {
		return err
	}
	defer cancel()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	log.Printf("[stream] opening event stream for conversation=%s", conversationID)

	if err := utils.SendSSEEvent(w, flusher, string(chat.EventState), chat.Event{
		Type:           chat.EventState,
		ConversationID: conversationID,
		State:          &state,
		Busy:           state.Busy,
		Notice:         state.Notice,
	}); err != nil {
		return err
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[stream] client left conversation=%s", conversationID)
			return nil
		case evt, ok := <-events:
			if !ok {
				log.Printf("[stream] conversation=%s closed", conversationID)
				return nil
			}
			if err := utils.SendSSEEvent(w, flusher, string(evt.Type), evt); err != nil {
				return fmt.Errorf("send %s event: %w", evt.Type, err)
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return err
			}
		}
	}
}
