package order

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-boutique/internal/common"
)

// AdminHandler exposes recorded order requests to the back office.
type AdminHandler struct {
	Store        Store
	DefaultLimit int
	MaxLimit     int
}

// Routes mounts the admin order endpoints under /orders.
func (h *AdminHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
}

// List returns order requests newest first.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "order store not configured", nil)
		return
	}
	defaultLimit := h.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	page, perPage := common.ParsePagination(r, defaultLimit, h.MaxLimit)
	records, total, err := h.Store.List(r.Context(), perPage, common.Offset(page, perPage))
	if err != nil {
		common.WriteError(w, common.Internal(err))
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       records,
		"pagination": common.NewPagination(page, perPage, int(total)),
	})
}
