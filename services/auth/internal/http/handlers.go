package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/KhasarMunkh/SoloLeveler-public/services/auth/internal/service"
	"github.com/KhasarMunkh/SoloLeveler-public/shared/middleware"
	"github.com/KhasarMunkh/SoloLeveler-public/shared/sessiontoken"
)

const (
	// SessionCookie - cookie с сессионным токеном для браузерных клиентов
	SessionCookie = "__session"
	// CSRFCookie - cookie с CSRF-токеном (читается JS, отправляется в X-CSRF-Token)
	CSRFCookie = "csrf_token"
)

type TokenHandler struct {
	service *service.AuthService
	logger  *logrus.Logger
	maxAge  int
}

func NewTokenHandler(s *service.AuthService, logger *logrus.Logger, maxAge int) *TokenHandler {
	return &TokenHandler{service: s, logger: logger, maxAge: maxAge}
}

type tokenRequest struct {
	Subject   string `json:"subject"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// IssueToken обрабатывает POST /v1/auth/token: выдаёт токен и ставит cookies
func (h *TokenHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	logEntry := h.logger.WithFields(logrus.Fields{
		"component":  "http_handler",
		"handler":    "IssueToken",
		"request_id": middleware.GetRequestID(r.Context()),
	})

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logEntry.WithError(err).Warn("invalid request body")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if req.Subject == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Subject required"})
		return
	}

	token, err := h.service.IssueToken(sessiontoken.Profile{
		Subject:   req.Subject,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if errors.Is(err, service.ErrIssueDisabled) {
		logEntry.Warn("token issuing disabled")
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
		return
	}
	if err != nil {
		logEntry.WithError(err).Error("failed to issue token")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to issue token"})
		return
	}

	// Сессия в HttpOnly cookie, CSRF-токен доступен JS
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   h.maxAge,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookie,
		Value:    uuid.NewString(),
		Path:     "/",
		HttpOnly: false,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   h.maxAge,
	})

	logEntry.WithField("subject", req.Subject).Info("token issued, cookies set")
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
