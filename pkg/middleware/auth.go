package middleware

import (
	"context"
	"net/http"

	. "memereport/pkg/common"
	"memereport/pkg/logger"
)

type (
	subjectKey string

	ITokenParser interface {
		Subject(authHeader string) (string, error)
	}
	Auth struct {
		Tokens ITokenParser
	}
)

const SubjectKey subjectKey = "apiSubject"

func NewAuthMiddleware(tp ITokenParser) *Auth {
	return &Auth{
		Tokens: tp,
	}
}

// Middleware lets through only requests with a valid bearer token.
func (auth Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := auth.Tokens.Subject(r.Header.Get("Authorization"))
		if err != nil {
			logger.Log(r.Context()).Errorf("auth: rejected request to %s: %v", r.URL.Path, err)
			WriteMsg(w, "not authorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), SubjectKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
