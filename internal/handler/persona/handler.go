package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/aura/backend/internal/model/persona"
	"github.com/zhouzirui/aura/backend/pkg/utils"
)

// Handler serves the assistant persona shown on the greeting screen.
type Handler struct {
	personas persona.Store
}

// New creates a persona handler.
func New(personas persona.Store) *Handler {
	return &Handler{
		personas: personas,
	}
}

// RegisterRoutes registers persona routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/assistant", h.handleAssistant)
	r.Get("/personas", h.handleListPersonas)
}

func (h *Handler) handleAssistant(w http.ResponseWriter, r *http.Request) {
	assistant, ok := h.personas.FindByID(persona.DefaultID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "assistant not configured")
		return
	}
	utils.RespondJSON(w, http.StatusOK, assistant)
}

func (h *Handler) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.personas.List())
}
