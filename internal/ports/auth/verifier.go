package auth

import "context"

// AuthVerifier verifica un token y devuelve claims o error (401).
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// TokenIssuer firma tokens para un usuario ya autenticado.
type TokenIssuer interface {
	Issue(ctx context.Context, userID string, role Role) (Token, error)
}
