package chat

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/aura/backend/internal/model/chat"
	"github.com/zhouzirui/aura/backend/internal/service/ai"
	chatService "github.com/zhouzirui/aura/backend/internal/service/chat"
	"github.com/zhouzirui/aura/backend/pkg/utils"
)

// Handler exposes the conversation controller over HTTP.
type Handler struct {
	chatSvc *chatService.Service
}

// New creates a conversation handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{
		chatSvc: chatSvc,
	}
}

// RegisterRoutes registers conversation routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/conversations", h.handleCreateConversation)
	r.Route("/conversations/{conversationID}", func(cr chi.Router) {
		cr.Get("/", h.handleGetConversation)
		cr.Delete("/", h.handleCloseConversation)
		cr.Post("/messages", h.handleSubmitUtterance)
		cr.Delete("/notice", h.handleDismissNotice)
	})
}

type submitRequest struct {
	Text string `json:"text"`
}

type submitResponse struct {
	User    chat.Message `json:"user"`
	Reply   chat.Message `json:"reply"`
	Failure string       `json:"failure,omitempty"`
	Notice  string       `json:"notice,omitempty"`
}

func (h *Handler) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	state, err := h.chatSvc.CreateConversation(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusCreated, state)
}

func (h *Handler) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	state, err := h.chatSvc.State(r.Context(), chi.URLParam(r, "conversationID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, state)
}

func (h *Handler) handleCloseConversation(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.Close(r.Context(), chi.URLParam(r, "conversationID")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSubmitUtterance(w http.ResponseWriter, r *http.Request) {
	var payload submitRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	outcome, err := h.chatSvc.SubmitUtterance(r.Context(), chi.URLParam(r, "conversationID"), payload.Text)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	resp := submitResponse{
		User:   outcome.User,
		Reply:  outcome.Reply,
		Notice: outcome.Notice,
	}
	if outcome.Failure != ai.NoFailure {
		resp.Failure = outcome.Failure.String()
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDismissNotice(w http.ResponseWriter, r *http.Request) {
	if err := h.chatSvc.DismissNotice(r.Context(), chi.URLParam(r, "conversationID")); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrConversationNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatService.ErrEmptyUtterance):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chatService.ErrBusy):
		utils.RespondError(w, http.StatusConflict, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
