package catalog_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/byteaxis/byteaxis-api/internal/catalog"
)

func TestCatalogHandlerList(t *testing.T) {
	h := catalog.NewHandler(catalog.HandlerConfig{Catalog: catalog.Default(), VATRate: 0.15})
	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Items      []catalog.Item `json:"items"`
		Categories []string       `json:"categories"`
		VATRate    float64        `json:"vatRate"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Items, 14)
	require.Equal(t, "website", body.Items[0].ID)
	require.Equal(t, body.Categories, catalog.Default().Categories())
	require.Equal(t, 0.15, body.VATRate)
}

func TestCatalogHandlerNotConfigured(t *testing.T) {
	h := catalog.NewHandler(catalog.HandlerConfig{})
	rr := httptest.NewRecorder()
	h.List(rr, httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
}
