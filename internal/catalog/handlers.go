package catalog

import (
	"net/http"

	"github.com/byteaxis/byteaxis-api/internal/common"
)

// Handler exposes the public catalog.
type Handler struct {
	catalog *Catalog
	vatRate float64
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Catalog *Catalog
	// VATRate is echoed to clients so they can label the tax line.
	VATRate float64
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{catalog: cfg.Catalog, vatRate: cfg.VATRate}
}

// List handles GET /api/v1/catalog.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog not configured", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"items":      h.catalog.Items(),
		"categories": h.catalog.Categories(),
		"vatRate":    h.vatRate,
	})
}
