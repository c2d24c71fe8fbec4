package auth

import (
	"net/http"
	"strings"

	"github.com/admute/backend/pkg/httpx"
)

// Middleware validates the Authorization bearer token and injects the user
// id into the request context. Requests without a valid access token are
// rejected with 401 before reaching the handler.
func Middleware(svc *Service) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				httpx.Error(w, r, nil, httpx.ErrUnauthorized)
				return
			}

			userID, err := svc.VerifyAccessToken(token)
			if err != nil {
				httpx.Error(w, r, nil, httpx.ErrUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(SetUserID(r.Context(), userID)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
