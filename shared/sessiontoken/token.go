// Package sessiontoken выпускает и проверяет сессионные JWT пользователей.
//
// Формат claims повторяет сессионные токены внешнего провайдера
// идентификации: sub - внешний идентификатор пользователя, email,
// first_name и last_name - необязательные данные профиля.
package sessiontoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken возвращается для любого токена, не прошедшего проверку
var ErrInvalidToken = errors.New("invalid session token")

// Claims - содержимое сессионного токена
type Claims struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	jwt.RegisteredClaims
}

// Verifier проверяет подпись, срок действия и issuer токена
type Verifier struct {
	keyFunc jwt.Keyfunc
	opts    []jwt.ParserOption
}

// NewHMACVerifier проверяет токены, подписанные HS256 общим секретом
func NewHMACVerifier(secret []byte, issuer string, now func() time.Time) *Verifier {
	return newVerifier(func(*jwt.Token) (any, error) { return secret, nil }, "HS256", issuer, now)
}

// NewRSAVerifier проверяет токены RS256 по публичному ключу в PEM
func NewRSAVerifier(publicKeyPEM []byte, issuer string, now func() time.Time) (*Verifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return newVerifier(func(*jwt.Token) (any, error) { return key, nil }, "RS256", issuer, now), nil
}

func newVerifier(keyFunc jwt.Keyfunc, method, issuer string, now func() time.Time) *Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{method}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(5 * time.Second),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if now != nil {
		opts = append(opts, jwt.WithTimeFunc(now))
	}
	return &Verifier{keyFunc: keyFunc, opts: opts}
}

// Verify разбирает токен и возвращает его claims
func (v *Verifier) Verify(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, v.keyFunc, v.opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Issuer подписывает токены HS256 (dev-провайдер идентификации)
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer создаёт Issuer; now == nil означает time.Now
func NewIssuer(secret []byte, issuer string, ttl time.Duration, now func() time.Time) *Issuer {
	if now == nil {
		now = time.Now
	}
	return &Issuer{secret: secret, issuer: issuer, ttl: ttl, now: now}
}

// Profile - данные, которые попадают в токен
type Profile struct {
	Subject   string
	Email     string
	FirstName string
	LastName  string
}

// Issue выпускает подписанный токен для профиля
func (i *Issuer) Issue(p Profile) (string, error) {
	if p.Subject == "" {
		return "", errors.New("subject is required")
	}
	now := i.now()
	claims := Claims{
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
