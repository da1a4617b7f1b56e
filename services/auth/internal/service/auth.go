package service

import (
	"errors"

	"github.com/KhasarMunkh/SoloLeveler-public/shared/sessiontoken"
)

// ErrIssueDisabled - выпуск токенов выключен конфигурацией
var ErrIssueDisabled = errors.New("token issuing is disabled")

// AuthService выпускает и проверяет сессионные токены dev-провайдера
type AuthService struct {
	issuer       *sessiontoken.Issuer
	verifier     *sessiontoken.Verifier
	issueEnabled bool
}

func NewAuthService(issuer *sessiontoken.Issuer, verifier *sessiontoken.Verifier, issueEnabled bool) *AuthService {
	return &AuthService{
		issuer:       issuer,
		verifier:     verifier,
		issueEnabled: issueEnabled,
	}
}

// IssueToken выпускает токен для профиля
func (s *AuthService) IssueToken(profile sessiontoken.Profile) (string, error) {
	if !s.issueEnabled {
		return "", ErrIssueDisabled
	}
	return s.issuer.Issue(profile)
}

// VerifyToken возвращает профиль владельца токена или false
func (s *AuthService) VerifyToken(token string) (sessiontoken.Profile, bool) {
	claims, err := s.verifier.Verify(token)
	if err != nil {
		return sessiontoken.Profile{}, false
	}
	return sessiontoken.Profile{
		Subject:   claims.Subject,
		Email:     claims.Email,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
	}, true
}
