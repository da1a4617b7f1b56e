// Package identity определяет, какой внешний пользователь стоит за запросом.
package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/KhasarMunkh/SoloLeveler-public/services/tasks/internal/client/authclient"
	"github.com/KhasarMunkh/SoloLeveler-public/shared/sessiontoken"
)

// SessionCookie - cookie с сессионным токеном браузерного клиента
const SessionCookie = "__session"

// ErrUnavailable - провайдер идентификации не ответил
var ErrUnavailable = errors.New("identity provider unavailable")

// Identity - внешний пользователь и данные профиля из токена
type Identity struct {
	Subject   string
	Email     string
	FirstName string
	LastName  string
}

// Resolver возвращает nil, nil для неаутентифицированного запроса
type Resolver interface {
	Resolve(r *http.Request) (*Identity, error)
}

// Token достаёт токен из Authorization: Bearer или из cookie сессии.
// fromCookie сообщает, что токен пришёл из cookie.
func Token(r *http.Request) (token string, fromCookie bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, value, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(value), false
		}
		return "", false
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value, true
	}
	return "", false
}

// JWTResolver проверяет сессионный токен локально
type JWTResolver struct {
	verifier *sessiontoken.Verifier
}

func NewJWTResolver(v *sessiontoken.Verifier) *JWTResolver {
	return &JWTResolver{verifier: v}
}

func (j *JWTResolver) Resolve(r *http.Request) (*Identity, error) {
	token, _ := Token(r)
	if token == "" {
		return nil, nil
	}
	claims, err := j.verifier.Verify(token)
	if err != nil {
		return nil, nil
	}
	return &Identity{
		Subject:   claims.Subject,
		Email:     claims.Email,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
	}, nil
}

// RemoteResolver проверяет токен через gRPC auth-сервис
type RemoteResolver struct {
	client *authclient.Client
}

func NewRemoteResolver(c *authclient.Client) *RemoteResolver {
	return &RemoteResolver{client: c}
}

func (rr *RemoteResolver) Resolve(r *http.Request) (*Identity, error) {
	token, _ := Token(r)
	if token == "" {
		return nil, nil
	}
	subject, err := rr.client.VerifyToken(r.Context(), token)
	if err != nil {
		return nil, errors.Join(ErrUnavailable, err)
	}
	if subject == nil {
		return nil, nil
	}
	return &Identity{
		Subject:   subject.ID,
		Email:     subject.Email,
		FirstName: subject.FirstName,
		LastName:  subject.LastName,
	}, nil
}

// StaticResolver считает каждый запрос запросом одного пользователя
// (режим AUTH_MODE=skip для локальной разработки и тестов)
type StaticResolver struct {
	Identity Identity
}

func (s StaticResolver) Resolve(*http.Request) (*Identity, error) {
	id := s.Identity
	return &id, nil
}

type identityKey struct{}

// WithIdentity кладёт идентичность в контекст запроса
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext достаёт идентичность, положенную middleware
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
