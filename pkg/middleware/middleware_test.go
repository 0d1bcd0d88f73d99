package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"memereport/pkg/logger"
)

type stubTokens map[string]string

func (s stubTokens) Subject(header string) (string, error) {
	sub, ok := s[header]
	if !ok {
		return "", errors.New("bad token")
	}
	return sub, nil
}

func TestAuthMiddleware(t *testing.T) {
	auth := NewAuthMiddleware(stubTokens{"Bearer good": "ops"})

	var gotSubject string
	h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSubject, _ = r.Context().Value(SubjectKey).(string)
	}))

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/posts/2024-03-01", nil)
		req.Header.Set("Authorization", "Bearer good")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ops", gotSubject)
	})

	t.Run("missing token", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", "/api/posts/2024-03-01", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestLoggingChain(t *testing.T) {
	lm := NewLoggingMiddleware(zap.NewNop().Sugar())

	var requestID string
	var scoped *zap.SugaredLogger
	h := lm.SetupTracing(lm.SetupLogging(lm.AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID, _ = r.Context().Value(RequestIDKey).(string)
		scoped = logger.Log(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))))

	t.Run("generates request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

		assert.Equal(t, http.StatusTeapot, w.Code)
		assert.Len(t, requestID, 12)
		assert.Equal(t, requestID, w.Header().Get(RequestIDHeader))
		assert.NotNil(t, scoped)
	})

	t.Run("keeps client request id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set(RequestIDHeader, "from-proxy")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)

		assert.Equal(t, "from-proxy", requestID)
	})
}
