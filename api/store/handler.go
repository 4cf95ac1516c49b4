package store

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/selfreport/auth"
	"github.com/kilianp07/selfreport/core/ingest"
)

// DefaultMaxBodyBytes caps encoded request bodies.
const DefaultMaxBodyBytes = 1 << 20

// NewHandler exposes h via POST /api/{project_id}/store/. Credentials are read
// from the X-Sentry-Auth header or, when it is absent, from the sentry_key,
// sentry_secret, sentry_client and sentry_version query parameters.
func NewHandler(h ingest.Handler, maxBody int64) http.Handler {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/{project_id}/store/", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, ingest.Errorf(http.StatusRequestEntityTooLarge, "body exceeds %d bytes", maxBody))
				return
			}
			writeError(w, ingest.Errorf(http.StatusBadRequest, "read body: %v", err))
			return
		}
		id, err := h.Store(r.Context(), ingest.Request{
			ProjectID:       r.PathValue("project_id"),
			Auth:            authFromRequest(r),
			ContentEncoding: r.Header.Get("Content-Encoding"),
			Body:            body,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
	})
	return mux
}

func authFromRequest(r *http.Request) string {
	if v := r.Header.Get(auth.HeaderName); v != "" {
		return v
	}
	q := r.URL.Query()
	key := q.Get("sentry_key")
	if key == "" {
		return ""
	}
	hdr := auth.Header{
		Version:   auth.ProtocolVersion,
		Timestamp: time.Now(),
		Client:    q.Get("sentry_client"),
		PublicKey: key,
		SecretKey: q.Get("sentry_secret"),
	}
	if v, err := strconv.Atoi(q.Get("sentry_version")); err == nil {
		hdr.Version = v
	}
	return hdr.String()
}

func writeError(w http.ResponseWriter, err error) {
	status := ingest.StatusOf(err)
	msg := "internal error"
	var apiErr *ingest.APIError
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Sentry-Error", msg)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
