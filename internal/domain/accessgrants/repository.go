package accessgrants

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("grant not found")

	// ErrDuplicatePending: ya hay un pending para (pet, vet).
	ErrDuplicatePending = errors.New("pending grant already exists")

	// ErrStaleStatus: el grant ya no está en el estado esperado (CAS perdido).
	ErrStaleStatus = errors.New("grant status changed concurrently")
)

type Repository interface {
	// Create es atómico respecto de la unicidad de pending por (pet, vet).
	Create(ctx context.Context, g Grant) error

	// Transition persiste g solo si el estado actual sigue siendo from.
	Transition(ctx context.Context, g Grant, from Status) error

	GetByID(ctx context.Context, id string) (Grant, error)
	ListByPet(ctx context.Context, petID string) ([]Grant, error)
	ListByVet(ctx context.Context, vetUserID string) ([]Grant, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]Grant, error)

	HasApproved(ctx context.Context, petID, vetUserID string) (bool, error)
}
