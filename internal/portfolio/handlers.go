package portfolio

import (
	"net/http"

	"github.com/byteaxis/byteaxis-api/internal/common"
)

// Handler exposes portfolio endpoints.
type Handler struct {
	Service *Service
}

// List handles GET /api/v1/projects.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"projects": h.Service.Projects(r.Context())})
}
