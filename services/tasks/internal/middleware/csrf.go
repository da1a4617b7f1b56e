package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/identity"
)

const (
	CSRFCookie = "csrf_token"
	CSRFHeader = "X-CSRF-Token"
)

// CSRFMiddleware проверяет double-submit токен для state-changing методов.
// Запросы с Bearer-токеном не проверяются: браузер не подставляет заголовок сам.
func CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isStateChanging(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		if token, fromCookie := identity.Token(r); token == "" || !fromCookie {
			next.ServeHTTP(w, r)
			return
		}

		csrfCookie, err := r.Cookie(CSRFCookie)
		if err != nil {
			writeError(w, http.StatusForbidden, "CSRF token missing in cookies")
			return
		}
		csrfHeader := r.Header.Get(CSRFHeader)
		if csrfHeader == "" {
			writeError(w, http.StatusForbidden, "X-CSRF-Token header missing")
			return
		}
		if subtle.ConstantTimeCompare([]byte(csrfCookie.Value), []byte(csrfHeader)) != 1 {
			writeError(w, http.StatusForbidden, "CSRF token mismatch")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isStateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
