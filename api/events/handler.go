// Package events exposes stored events for inspection.
package events

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/selfreport/core/eventstore"
)

// NewHandler returns an HTTP handler listing stored events via GET /api/events.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
//
// Supported query parameters: start and end (RFC3339), project_id, level,
// tag ("key" or "key:value") and limit. Malformed values are ignored.
func NewHandler(store eventstore.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" {
			if !tokenMatches(r.Header.Get("Authorization"), token) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		records, err := store.Query(r.Context(), queryFromRequest(r))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []eventstore.Record{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

func queryFromRequest(r *http.Request) eventstore.Query {
	v := r.URL.Query()
	q := eventstore.Query{}
	if s := v.Get("start"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			q.Start = t
		}
	}
	if s := v.Get("end"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			q.End = t
		}
	}
	if s := v.Get("project_id"); s != "" {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			q.ProjectID = id
		}
	}
	if s := v.Get("level"); s != "" {
		if l, ok := levelFromString(s); ok {
			q.Level = l
		}
	}
	if s := v.Get("tag"); s != "" {
		q.TagKey, q.TagValue, _ = strings.Cut(s, ":")
	}
	if s := v.Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			q.Limit = n
		}
	}
	return q
}

func levelFromString(s string) (sentry.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return sentry.LevelDebug, true
	case "info":
		return sentry.LevelInfo, true
	case "warning", "warn":
		return sentry.LevelWarning, true
	case "error":
		return sentry.LevelError, true
	case "fatal":
		return sentry.LevelFatal, true
	default:
		return "", false
	}
}

func tokenMatches(header, token string) bool {
	got, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}
