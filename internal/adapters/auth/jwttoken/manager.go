// Package jwttoken emite y verifica tokens HS256. Stateless: no hay store de sesiones.
package jwttoken

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pet-health-api/internal/platform/apperr"
	"pet-health-api/internal/ports/auth"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTTL = 24 * time.Hour

var ErrSecretEmpty = errors.New("jwt secret is empty")

// Config del manager. Secret normalmente viene de config.auth.jwt_secret.
type Config struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// Manager implementa auth.AuthVerifier y auth.TokenIssuer.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

type tokenClaims struct {
	Role auth.Role `json:"role"`
	jwt.RegisteredClaims
}

func New(cfg Config) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrSecretEmpty
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		secret: cfg.Secret,
		issuer: strings.TrimSpace(cfg.Issuer),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

func (m *Manager) Issue(_ context.Context, userID string, role auth.Role) (auth.Token, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return auth.Token{}, errors.New("jwttoken: empty subject")
	}
	if !role.Valid() {
		return auth.Token{}, fmt.Errorf("jwttoken: invalid role %q", role)
	}

	// Truncamos a segundos: es la resolución de iat/exp en el token.
	now := m.now().UTC().Truncate(time.Second)
	exp := now.Add(m.ttl)

	claims := tokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return auth.Token{}, fmt.Errorf("jwttoken: sign: %w", err)
	}
	return auth.Token{Value: signed, ExpiresAt: exp}, nil
}

// Verify devuelve siempre un error 401 (apperr) ante cualquier falla.
func (m *Manager) Verify(_ context.Context, token string) (auth.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, apperr.Unauthenticated("missing token")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return auth.Claims{}, apperr.Unauthenticated("token expired")
		}
		return auth.Claims{}, apperr.Unauthenticated("invalid token")
	}
	if !parsed.Valid {
		return auth.Claims{}, apperr.Unauthenticated("invalid token")
	}

	sub := strings.TrimSpace(claims.Subject)
	if sub == "" || !claims.Role.Valid() {
		return auth.Claims{}, apperr.Unauthenticated("invalid token")
	}

	out := auth.Claims{UserID: sub, Role: claims.Role}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
