package persona

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rainit/rainit/backend/internal/model/persona"
	"github.com/rainit/rainit/backend/pkg/utils"
)

// Handler serves the read-only persona catalog.
type Handler struct {
	personas persona.Store
}

// New creates a persona handler.
func New(personas persona.Store) *Handler {
	return &Handler{
		personas: personas,
	}
}

// RegisterRoutes mounts the persona routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/persona", h.handleActivePersona)
	r.Get("/personas", h.handleListPersonas)
	r.Get("/personas/{id}", h.handleGetPersona)
}

// handleActivePersona returns the card of the persona the server talks as.
func (h *Handler) handleActivePersona(w http.ResponseWriter, r *http.Request) {
	active := h.personas.Default()
	if active.ID == "" {
		utils.RespondError(w, http.StatusNotFound, "persona not configured")
		return
	}
	utils.RespondJSON(w, http.StatusOK, active)
}

func (h *Handler) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.personas.List())
}

func (h *Handler) handleGetPersona(w http.ResponseWriter, r *http.Request) {
	p, ok := h.personas.FindByID(chi.URLParam(r, "id"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "persona not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}
