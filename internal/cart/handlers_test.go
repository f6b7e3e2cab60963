package cart

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-boutique/internal/common"
	"github.com/noah-isme/backend-boutique/internal/pricing"
)

type viewResponse struct {
	Data View `json:"data"`
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	h := &Handler{Svc: newFixture(t).svc}
	r := chi.NewRouter()
	r.Route("/api/v1/carts", h.Routes)
	r.Post("/api/v1/pricing/quote", h.Quote)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCartHTTPFlow(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/api/v1/carts/", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created viewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	base := "/api/v1/carts/" + created.Data.ID

	rec = do(t, router, http.MethodPost, base+"/items", `{"product_id":2,"quantity":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view viewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, pricing.Dirhams(480), view.Data.Pricing.PromotionalTotal)
	require.Equal(t, []string{"2 articles à 259 DHS pour 480 DHS"}, view.Data.Pricing.AppliedPromotions)

	rec = do(t, router, http.MethodPatch, base+"/items/2-no-size-no-color", `{"quantity":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, pricing.Money(0), view.Data.Pricing.Savings)

	rec = do(t, router, http.MethodPatch, base+"/items/2-no-size-no-color", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodDelete, base+"/items/2-no-size-no-color", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodDelete, base+"/items/2-no-size-no-color", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodDelete, base+"/items", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCartHTTPErrors(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodGet, "/api/v1/carts/nope", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/v1/carts/3f1c2a9e-6a43-4c47-9a3f-2b7d7f0d9f11", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	var body struct {
		Error common.ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, common.CodeNotFound, body.Error.Code)
}

func TestQuote(t *testing.T) {
	router := newRouter(t)

	payload := `{"items":[
		{"product_id":"t1","name":"T-shirt Basique","category":"T-shirts","unit_price":18000,"quantity":1},
		{"product_id":"t2","name":"T-shirt Col V","category":"T-shirts","unit_price":19000,"quantity":1},
		{"product_id":"p1","name":"Pantalon Chino","category":"Pantalons","unit_price":25000,"quantity":1}
	]}`
	rec := do(t, router, http.MethodPost, "/api/v1/pricing/quote", payload)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data pricing.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, pricing.Dirhams(620), resp.Data.RegularTotal)
	require.Equal(t, pricing.Dirhams(550), resp.Data.PromotionalTotal)
	require.Equal(t, pricing.Dirhams(70), resp.Data.Savings)

	rec = do(t, router, http.MethodPost, "/api/v1/pricing/quote", `{"items":[{"product_id":"x","unit_price":100,"quantity":0}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/v1/pricing/quote", `{"items":[{"product_id":"x","unit_price":4611686018427387904,"quantity":2}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
