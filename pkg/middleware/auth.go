package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
)

// APIKeyHeader is checked after "Authorization: Bearer <key>".
const APIKeyHeader = "X-API-Key"

// KeyValidator is satisfied by *apikey.Validator.
type KeyValidator interface {
	Validate(ctx context.Context, rawKey string) error
}

// RequireAPIKey answers 401 unless the request carries a key accepted by v.
func RequireAPIKey(v KeyValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := v.Validate(r.Context(), extractAPIKey(r)); err != nil {
				status := http.StatusInternalServerError
				message := "authentication error"
				if errors.Is(err, apperrors.ErrUnauthorized) {
					status = http.StatusUnauthorized
					message = err.Error()
				}
				writeJSONError(w, status, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.Header.Get(APIKeyHeader)
}

// CORS sets the Access-Control headers for the listed origins ("*" allows
// any) and answers preflight requests with 204.
func CORS(origins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || !originAllowed(origins, origin) {
				next.ServeHTTP(w, r)
				return
			}
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+APIKeyHeader+", "+RequestIDHeader)
			h.Set("Access-Control-Max-Age", strconv.Itoa(86400))
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origins []string, origin string) bool {
	for _, o := range origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":` + strconv.Quote(message) + "}\n"))
}
