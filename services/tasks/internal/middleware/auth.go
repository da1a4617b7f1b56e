package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/identity"
	"github.com/KhasarMunkh/SoloLeveler-public/shared/logger"
	sharedmw "github.com/KhasarMunkh/SoloLeveler-public/shared/middleware"
)

// AuthMiddleware определяет пользователя запроса и кладёт его в контекст.
// Без идентичности - 401, при недоступности провайдера - 500.
func AuthMiddleware(resolver identity.Resolver, log *logrus.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logEntry := logger.WithRequestID(log, sharedmw.GetRequestID(r.Context())).
			WithField("component", "auth_middleware")

		id, err := resolver.Resolve(r)
		if err != nil {
			logEntry.WithError(err).Error("identity provider failed")
			if errors.Is(err, identity.ErrUnavailable) {
				writeError(w, http.StatusInternalServerError, "Authentication service unavailable")
				return
			}
			writeError(w, http.StatusInternalServerError, "Authentication failed")
			return
		}
		if id == nil || id.Subject == "" {
			logEntry.Warn("unauthenticated request")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error":   "Unauthorized",
				"message": "Authentication required. Please sign in.",
			})
			return
		}

		next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
