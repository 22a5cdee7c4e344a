package apperr

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthenticated", Unauthenticated("invalid token"), http.StatusUnauthorized},
		{"forbidden", Forbidden("admin only"), http.StatusForbidden},
		{"invalid", Invalidf("bad %s", "email"), http.StatusBadRequest},
		{"not found", NotFound("pet not found"), http.StatusNotFound},
		{"already exists", AlreadyExists("email taken"), http.StatusConflict},
		{"conflict", Conflictf("grant is %s", "approved"), http.StatusConflict},
		{"traced keeps kind", errors.Trace(NotFound("x")), http.StatusNotFound},
		{"plain", stderrors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestMessagesAreClean(t *testing.T) {
	assert.Equal(t, "pet not found", NotFound("pet not found").Error())
	assert.Equal(t, "admin only", Forbidden("admin only").Error())
	assert.Equal(t, "internal error", PublicMessage(stderrors.New("pq: connection refused")))
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	WriteError(rec, req, Conflictf("already pending"))

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "already pending", body["error"])
}
