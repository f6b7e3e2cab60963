package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorAppError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, fmt.Errorf("wrap: %w", NotFound("product not found", nil)))

	require.Equal(t, http.StatusNotFound, rr.Code)
	var body struct {
		Error ErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, CodeNotFound, body.Error.Code)
	require.Equal(t, "product not found", body.Error.Message)
}

func TestWriteErrorHidesPlainErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, errors.New("pq: connection refused"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotContains(t, rr.Body.String(), "connection refused")
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Polo"}`))
	require.NoError(t, DecodeJSON(req, &dst))
	require.Equal(t, "Polo", dst.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"unknown":1}`))
	err := DecodeJSON(req, &dst)
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusBadRequest, appErr.HTTPStatus)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	rr := httptest.NewRecorder()
	WriteError(rr, DecodeJSON(req, &dst))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/products?page=3&limit=500", nil)
	page, perPage := ParsePagination(req, 20, 100)
	require.Equal(t, 3, page)
	require.Equal(t, 100, perPage)
	require.Equal(t, 200, Offset(page, perPage))

	req = httptest.NewRequest(http.MethodGet, "/products?page=-1&limit=abc", nil)
	page, perPage = ParsePagination(req, 20, 100)
	require.Equal(t, 1, page)
	require.Equal(t, 20, perPage)

	p := NewPagination(1, 20, 41)
	require.Equal(t, 3, p.TotalPages)
	require.True(t, p.HasNext)
	require.False(t, p.HasPrev)
	require.False(t, NewPagination(3, 20, 41).HasNext)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	require.Equal(t, "203.0.113.9", ClientIP(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:4000"
	require.Equal(t, "192.0.2.1", ClientIP(req))
}

func newIdem(t *testing.T) Idem {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return Idem{R: client, TTL: time.Minute}
}

func TestIdemReplaysCompletedResponse(t *testing.T) {
	var calls atomic.Int32
	handler := newIdem(t).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		Data(w, http.StatusCreated, map[string]int32{"call": n})
	}))

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/carts", nil)
		req.Header.Set(IdempotencyHeader, "abc")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	first := send()
	second := send()

	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, http.StatusCreated, second.Code)
	require.Equal(t, first.Body.String(), second.Body.String())
	require.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
}

func TestIdemReleasesKeyOnFailure(t *testing.T) {
	var calls atomic.Int32
	handler := newIdem(t).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		JSONError(w, http.StatusBadRequest, CodeValidation, "invalid", nil)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/whatsapp", nil)
		req.Header.Set(IdempotencyHeader, "retry-me")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		require.Equal(t, http.StatusBadRequest, rr.Code)
	}
	require.Equal(t, int32(2), calls.Load())
}

func TestIdemWithoutHeaderPassesThrough(t *testing.T) {
	var calls atomic.Int32
	handler := newIdem(t).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	for i := 0; i < 2; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	}
	require.Equal(t, int32(2), calls.Load())
}

func TestValidateStructReportsJSONFieldNames(t *testing.T) {
	type line struct {
		Size string `json:"size" validate:"required"`
	}
	type payload struct {
		Name  string `json:"name" validate:"required"`
		Price int64  `json:"price" validate:"gt=0"`
		Lines []line `json:"lines" validate:"dive"`
	}

	err := ValidateStruct(NewValidator(), payload{Price: 0, Lines: []line{{}}})
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, CodeValidation, appErr.Code)
	fields, ok := appErr.Details.([]FieldError)
	require.True(t, ok)
	require.ElementsMatch(t, []FieldError{
		{Field: "name", Rule: "required"},
		{Field: "price", Rule: "gt", Param: "0"},
		{Field: "lines[0].size", Rule: "required"},
	}, fields)

	require.NoError(t, ValidateStruct(NewValidator(), payload{Name: "Polo", Price: 1}))
}
