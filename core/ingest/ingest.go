// Package ingest defines the contract of the store endpoint when it is called
// in-process instead of over HTTP.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Request carries exactly what a network client would send to the store
// endpoint.
type Request struct {
	// ProjectID is the decimal target project id.
	ProjectID       string
	Auth            string
	ContentEncoding string
	Body            []byte
}

// Handler accepts one encoded event and returns its id.
type Handler interface {
	Store(ctx context.Context, req Request) (eventID string, err error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) (string, error)

func (f HandlerFunc) Store(ctx context.Context, req Request) (string, error) { return f(ctx, req) }

// APIError is a rejection by the endpoint. Status mirrors the HTTP status the
// network handler answers with.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// Errorf builds an APIError.
func Errorf(status int, format string, args ...any) *APIError {
	return &APIError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// StatusOf returns the status carried by err, 500 for other errors and 200
// for nil.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return http.StatusInternalServerError
}
