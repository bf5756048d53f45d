package admin

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/byteaxis/byteaxis-api/internal/common"
	"github.com/byteaxis/byteaxis-api/internal/store"
)

// Handler serves admin endpoints. Routes must sit behind identity.RequireAdmin.
type Handler struct {
	Service   *Service
	ProjectID string
	Dataset   string
	Now       func() time.Time
}

// Overview handles GET /api/v1/admin/overview.
func (h Handler) Overview(w http.ResponseWriter, r *http.Request) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	overview, err := h.Service.Overview(r.Context(), now())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("admin overview failed")
		appErr := common.NewAppError("STORE_UNAVAILABLE", "dashboard data is unavailable", http.StatusBadGateway, err)
		if errors.Is(err, store.ErrUnavailable) {
			appErr = appErr.WithDetails(map[string]any{"retryable": true})
		}
		common.WriteError(w, appErr)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"overview": overview,
		"store": map[string]string{
			"projectId": h.ProjectID,
			"dataset":   h.Dataset,
		},
	})
}
