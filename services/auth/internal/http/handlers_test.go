package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KhasarMunkh/SoloLeveler-public/services/auth/internal/service"
	"github.com/KhasarMunkh/SoloLeveler-public/shared/logger"
	"github.com/KhasarMunkh/SoloLeveler-public/shared/sessiontoken"
)

func newHandler(issueEnabled bool) (*TokenHandler, *sessiontoken.Verifier) {
	secret := []byte("secret")
	verifier := sessiontoken.NewHMACVerifier(secret, "dev", nil)
	svc := service.NewAuthService(sessiontoken.NewIssuer(secret, "dev", time.Hour, nil), verifier, issueEnabled)
	return NewTokenHandler(svc, logger.Discard(), 3600), verifier
}

func TestIssueTokenSetsCookies(t *testing.T) {
	h, verifier := newHandler(true)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/token", strings.NewReader(`{"subject":"user_9","email":"nine@example.com"}`))
	h.IssueToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var body tokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	claims, err := verifier.Verify(body.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.Subject != "user_9" {
		t.Errorf("subject = %q", claims.Subject)
	}

	cookies := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c
	}
	if c := cookies[SessionCookie]; c == nil || c.Value != body.Token || !c.HttpOnly {
		t.Errorf("session cookie = %+v", c)
	}
	if c := cookies[CSRFCookie]; c == nil || c.Value == "" || c.HttpOnly {
		t.Errorf("csrf cookie = %+v", c)
	}
}

func TestIssueTokenValidation(t *testing.T) {
	h, _ := newHandler(true)

	rec := httptest.NewRecorder()
	h.IssueToken(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/token", strings.NewReader(`{}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty subject status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.IssueToken(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/token", strings.NewReader(`{`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body status = %d, want 400", rec.Code)
	}
}

func TestIssueTokenDisabled(t *testing.T) {
	h, _ := newHandler(false)

	rec := httptest.NewRecorder()
	h.IssueToken(rec, httptest.NewRequest(http.MethodPost, "/v1/auth/token", strings.NewReader(`{"subject":"x"}`)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
