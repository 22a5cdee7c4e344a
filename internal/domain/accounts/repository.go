package accounts

import (
	"context"
	"errors"
	"time"

	"pet-health-api/internal/ports/auth"
)

// Errores que deben devolver todas las implementaciones del repo.
var (
	ErrNotFound   = errors.New("account not found")
	ErrEmailTaken = errors.New("email already registered")
)

type Repository interface {
	// Create devuelve ErrEmailTaken si el email (en minúsculas) ya existe.
	Create(ctx context.Context, a Account) error
	GetByID(ctx context.Context, id string) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)

	UpdateProfile(ctx context.Context, id string, p Profile, updatedAt time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	SetApproved(ctx context.Context, id string, approved bool, updatedAt time.Time) error

	// ListByRole ordena por created_at desc (más nuevos primero).
	ListByRole(ctx context.Context, role auth.Role) ([]Account, error)
}
