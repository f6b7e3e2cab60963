package auth

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-boutique/internal/common"
)

// Handler exposes admin authentication endpoints.
type Handler struct {
	Service *Service
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/v1/admin/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "auth service not configured", nil)
		return
	}
	var req loginRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.Service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if !common.IsAppError(err) {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("admin login")
		}
		common.WriteError(w, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().Str("admin_id", result.Admin.ID).Msg("admin logged in")
	common.Data(w, http.StatusOK, result)
}

// Me handles GET /api/v1/admin/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	adminID, ok := common.AdminID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "missing or invalid token", nil)
		return
	}
	admin, err := h.Service.Me(r.Context(), adminID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, admin)
}
