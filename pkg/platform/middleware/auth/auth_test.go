package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"mfgverify/pkg/domain"
	"mfgverify/pkg/requestcontext"
)

type stubValidator map[string]*JWTClaims

func (s stubValidator) ValidateToken(token string) (*JWTClaims, error) {
	if c, ok := s[token]; ok {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

func TestAuthenticate(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	validator := stubValidator{
		"good":  {Subject: "ST1ADMIN", JTI: "j1"},
		"blank": {Subject: "", JTI: "j2"},
	}

	var caller domain.Principal
	var reached bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		caller = requestcontext.Caller(r.Context())
	})
	h := Authenticate(validator, logger)(RequireCaller(logger)(next))
	open := Authenticate(validator, logger)(next)

	serve := func(handler http.Handler, header string) int {
		reached, caller = false, ""
		r := httptest.NewRequest(http.MethodPost, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)
		return w.Code
	}

	t.Run("valid token sets caller", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(h, "Bearer good"))
		assert.True(t, reached)
		assert.Equal(t, domain.Principal("ST1ADMIN"), caller)
	})

	t.Run("missing header is anonymous on open routes", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, serve(open, ""))
		assert.True(t, reached)
		assert.True(t, caller.IsZero())
	})

	t.Run("missing header is rejected on caller routes", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(h, ""))
		assert.False(t, reached)
	})

	t.Run("invalid token is rejected even on open routes", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(open, "Bearer nope"))
		assert.False(t, reached)
	})

	t.Run("non-bearer scheme is rejected", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(open, "Basic Zm9vOmJhcg=="))
		assert.False(t, reached)
	})

	t.Run("empty subject is rejected", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(h, "Bearer blank"))
		assert.False(t, reached)
	})
}
