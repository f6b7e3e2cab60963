package checkout

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-boutique/internal/cart"
	"github.com/noah-isme/backend-boutique/internal/common"
)

// Handler exposes checkout over HTTP.
type Handler struct {
	Svc *Service
}

// Routes mounts the checkout endpoints under /checkout.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/whatsapp", h.WhatsApp)
}

// WhatsApp builds the order message and deep link for a cart.
func (h *Handler) WhatsApp(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "checkout service not configured", nil)
		return
	}
	var payload Input
	if err := common.DecodeJSON(r, &payload); err != nil {
		h.writeError(w, err)
		return
	}
	out, err := h.Svc.WhatsApp(r.Context(), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().
		Str("reference", out.Reference).
		Int64("total", out.Total).
		Msg("whatsapp checkout prepared")
	common.Data(w, http.StatusCreated, out)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case common.IsAppError(err):
		common.WriteError(w, err)
	case errors.Is(err, cart.ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, common.CodeBadRequest, err.Error(), nil)
	case errors.Is(err, cart.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, common.CodeNotFound, "cart not found", nil)
	default:
		common.WriteError(w, err)
	}
}
