package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusOf(nil))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("x")))
	err := fmt.Errorf("wrapped: %w", Errorf(http.StatusUnauthorized, "bad key %s", "k"))
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
	assert.Equal(t, "401 Unauthorized: bad key k", Errorf(http.StatusUnauthorized, "bad key %s", "k").Error())
}

func TestHandlerFunc(t *testing.T) {
	var got Request
	h := HandlerFunc(func(_ context.Context, r Request) (string, error) {
		got = r
		return "id", nil
	})
	id, err := h.Store(context.Background(), Request{ProjectID: "1"})
	assert.NoError(t, err)
	assert.Equal(t, "id", id)
	assert.Equal(t, "1", got.ProjectID)
}
