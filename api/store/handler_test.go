package store

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/selfreport/auth"
	"github.com/kilianp07/selfreport/core/eventstore"
	"github.com/kilianp07/selfreport/core/ingest"
	"github.com/kilianp07/selfreport/internal/wire"
)

func TestHandlerStoresEvent(t *testing.T) {
	st := eventstore.NewMemoryStore()
	ep, _, _ := newTestEndpoint(t, st)
	h := NewHandler(ep, 0)

	valid := validRequest(t)
	req := httptest.NewRequest(http.MethodPost, "/api/1/store/", bytes.NewReader(valid.Body))
	req.Header.Set(auth.HeaderName, valid.Auth)
	req.Header.Set("Content-Encoding", wire.ContentEncoding())
	req.Header.Set("Content-Type", wire.ContentType)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp["id"], 32)

	recs, err := st.Query(context.Background(), eventstore.Query{})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestHandlerQueryCredentials(t *testing.T) {
	ep, _, _ := newTestEndpoint(t, eventstore.NewMemoryStore())
	h := NewHandler(ep, 0)

	valid := validRequest(t)
	req := httptest.NewRequest(http.MethodPost, "/api/1/store/?sentry_key=pub1&sentry_secret=sec1&sentry_version=7", bytes.NewReader(valid.Body))
	req.Header.Set("Content-Encoding", wire.ContentEncoding())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestHandlerErrors(t *testing.T) {
	ep, _, _ := newTestEndpoint(t, eventstore.NewMemoryStore())
	h := NewHandler(ep, 0)
	valid := validRequest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/1/store/", bytes.NewReader(valid.Body))
	req.Header.Set("Content-Encoding", wire.ContentEncoding())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Sentry-Error"))
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Contains(t, resp["error"], auth.HeaderName)

	req = httptest.NewRequest(http.MethodGet, "/api/1/store/", nil)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHandlerBodyLimit(t *testing.T) {
	called := false
	h := NewHandler(ingest.HandlerFunc(func(context.Context, ingest.Request) (string, error) {
		called = true
		return "x", nil
	}), 8)

	req := httptest.NewRequest(http.MethodPost, "/api/1/store/", bytes.NewReader(make([]byte, 64)))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.False(t, called)
}

func TestHandlerHidesInternalErrors(t *testing.T) {
	h := NewHandler(ingest.HandlerFunc(func(context.Context, ingest.Request) (string, error) {
		return "", assert.AnError
	}), 0)

	req := httptest.NewRequest(http.MethodPost, "/api/1/store/", bytes.NewReader([]byte("{}")))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), assert.AnError.Error())
}
