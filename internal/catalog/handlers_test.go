package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-boutique/internal/catalog"
	"github.com/noah-isme/backend-boutique/internal/common"
	"github.com/noah-isme/backend-boutique/internal/pricing"
)

type productsResponse struct {
	Data       []catalog.Product `json:"data"`
	Pagination common.Pagination `json:"pagination"`
}

type productResponse struct {
	Data catalog.Product `json:"data"`
}

type errorResponse struct {
	Error common.ErrorBody `json:"error"`
}

func money(v pricing.Money) *pricing.Money { return &v }

func seededStore() *memStore {
	store := newMemStore()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	store.put(catalog.Product{
		ID: 1, Name: "Polo Classique", Category: "Polos", Price: pricing.Dirhams(200),
		InStock: true, Featured: true, Image1: "/img/polo.jpg", CreatedAt: base,
		Variants: []catalog.Variant{
			{ID: 1, ProductID: 1, Size: "M", StockQuantity: 3},
			{ID: 2, ProductID: 1, Size: "L", StockQuantity: 2, Color: "Bleu", ImageURL: "/img/polo-bleu.jpg"},
		},
	})
	store.put(catalog.Product{
		ID: 2, Name: "Jean Slim", Category: "Pantalons", Price: pricing.Dirhams(300),
		PromotionPrice: money(pricing.Dirhams(259)), IsOnPromotion: true,
		InStock: true, CreatedAt: base.Add(time.Hour),
	})
	store.put(catalog.Product{
		ID: 3, Name: "Short Lin", Category: "Shorts", Price: pricing.Dirhams(150),
		InStock: false, CreatedAt: base.Add(2 * time.Hour),
	})
	store.cities = []catalog.DeliveryCity{
		{Ref: "1", City: "Casablanca", DeliveryFee: pricing.Dirhams(25), ReturnFee: pricing.Dirhams(15)},
		{Ref: "2", City: "Rabat", DeliveryFee: pricing.Dirhams(35), ReturnFee: pricing.Dirhams(20)},
	}
	return store
}

func newService(t *testing.T, store catalog.Store, cache *catalog.Cache) *catalog.Service {
	t.Helper()
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: store, Cache: cache, DefaultLimit: 20, MaxLimit: 100})
	require.NoError(t, err)
	return svc
}

func newCache(t *testing.T) (*catalog.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return catalog.NewCache(client, time.Minute), mr
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestProductsListsInStockNewestFirst(t *testing.T) {
	handler := catalog.NewHandler(catalog.HandlerConfig{Service: newService(t, seededStore(), nil)})

	rec := httptest.NewRecorder()
	handler.Products(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?limit=1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "2", rec.Header().Get("X-Total-Count"))
	var resp productsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, "Jean Slim", resp.Data[0].Name)
	require.Equal(t, 2, resp.Pagination.TotalPages)
	require.True(t, resp.Pagination.HasNext)
	require.False(t, resp.Pagination.HasPrev)
}

func TestProductsFilters(t *testing.T) {
	handler := catalog.NewHandler(catalog.HandlerConfig{Service: newService(t, seededStore(), nil)})

	cases := []struct {
		target string
		want   []string
	}{
		{target: "/api/v1/products?category=%20POLOS%20", want: []string{"Polo Classique"}},
		{target: "/api/v1/products?search=jean", want: []string{"Jean Slim"}},
		{target: "/api/v1/products?featured=true", want: []string{"Polo Classique"}},
		{target: "/api/v1/products?category=shorts", want: []string{}},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		handler.Products(rec, httptest.NewRequest(http.MethodGet, tc.target, nil))
		require.Equal(t, http.StatusOK, rec.Code, tc.target)
		var resp productsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		names := []string{}
		for _, p := range resp.Data {
			names = append(names, p.Name)
		}
		require.Equal(t, tc.want, names, tc.target)
	}
}

func TestProductsRejectsBadPaging(t *testing.T) {
	handler := catalog.NewHandler(catalog.HandlerConfig{Service: newService(t, seededStore(), nil)})

	rec := httptest.NewRecorder()
	handler.Products(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products?page=0", nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, common.CodeBadRequest, resp.Error.Code)
}

func TestProductDetailDerivesMainImage(t *testing.T) {
	handler := catalog.NewHandler(catalog.HandlerConfig{Service: newService(t, seededStore(), nil)})

	rec := httptest.NewRecorder()
	handler.ProductDetail(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/products/1", nil), "id", "1"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp productResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Polo Classique", resp.Data.Name)
	require.Len(t, resp.Data.Variants, 2)
	require.Equal(t, "/img/polo-bleu.jpg", resp.Data.MainImage)

	rec = httptest.NewRecorder()
	handler.ProductDetail(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/products/99", nil), "id", "99"))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	handler.ProductDetail(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/products/abc", nil), "id", "abc"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVariantsOrderedBySize(t *testing.T) {
	handler := catalog.NewHandler(catalog.HandlerConfig{Service: newService(t, seededStore(), nil)})

	rec := httptest.NewRecorder()
	handler.Variants(rec, withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/products/1/variants", nil), "id", "1"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []catalog.Variant `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "L", resp.Data[0].Size)
	require.Equal(t, "M", resp.Data[1].Size)
}

func TestDeliveryCities(t *testing.T) {
	handler := catalog.NewHandler(catalog.HandlerConfig{Service: newService(t, seededStore(), nil)})

	rec := httptest.NewRecorder()
	handler.DeliveryCities(rec, httptest.NewRequest(http.MethodGet, "/api/v1/delivery-cities", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"city":"Casablanca"`)
	require.Contains(t, rec.Body.String(), `"delivery_fee":2500`)
}

func TestAdminProductLifecycle(t *testing.T) {
	store := seededStore()
	cache, _ := newCache(t)
	svc := newService(t, store, cache)
	public := catalog.NewHandler(catalog.HandlerConfig{Service: svc})
	admin := catalog.NewAdminHandler(svc)

	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) {
		public.Routes(r)
		r.Route("/admin", admin.Routes)
	})

	// Warm the detail cache so the update has to invalidate it.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := `{"name":"Polo Piqué","price":22000,"category":"Polos","variants":[{"size":"S","stock_quantity":4,"color":"Blanc","image_url":"/img/blanc.jpg"}]}`
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/admin/products/1", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/1", nil))
	var resp productResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Polo Piqué", resp.Data.Name)
	require.Len(t, resp.Data.Variants, 1)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", strings.NewReader(`{"name":"T-shirt","price":15000}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, catalog.PlaceholderImage, resp.Data.MainImage)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/admin/products/1", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/admin/products/1", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminCreateProductValidation(t *testing.T) {
	admin := catalog.NewAdminHandler(newService(t, seededStore(), nil))

	cases := []struct {
		body  string
		field string
	}{
		{body: `{"price":1000}`, field: "name"},
		{body: `{"name":"Polo","price":0}`, field: "price"},
		{body: `{"name":"Polo","price":1000,"variants":[{"stock_quantity":1}]}`, field: "variants[0].size"},
		{body: `{"name":"Polo","price":1000,"is_on_promotion":true}`, field: "promotion_price"},
		{body: `{"name":"Polo","price":1000,"is_on_promotion":true,"promotion_price":1500}`, field: "promotion_price"},
	}
	for _, tc := range cases {
		body, field := tc.body, tc.field
		rec := httptest.NewRecorder()
		admin.CreateProduct(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", strings.NewReader(body)))
		require.Equal(t, http.StatusBadRequest, rec.Code, body)
		var resp struct {
			Error struct {
				Code    string              `json:"code"`
				Details []common.FieldError `json:"details"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, common.CodeValidation, resp.Error.Code, body)
		require.NotEmpty(t, resp.Error.Details, body)
		require.Equal(t, field, resp.Error.Details[0].Field, body)
	}
}

func TestAdminCategoriesAndDashboard(t *testing.T) {
	store := seededStore()
	cache, mr := newCache(t)
	svc := newService(t, store, cache)
	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) {
		catalog.NewHandler(catalog.HandlerConfig{Service: svc}).Routes(r)
		r.Route("/admin", catalog.NewAdminHandler(svc).Routes)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, mr.Exists("catalog:categories"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/categories", strings.NewReader(`{"name":"Polos"}`)))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.False(t, mr.Exists("catalog:categories"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/categories", strings.NewReader(`{"name":""}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data catalog.Dashboard `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, int64(3), resp.Data.Stats.TotalProducts)
	require.Equal(t, int64(1), resp.Data.Stats.TotalCategories)
	require.Equal(t, int64(1), resp.Data.Stats.FeaturedProducts)
	require.Len(t, resp.Data.CategoryStats, 3)
}
