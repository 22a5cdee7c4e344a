package records

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("record not found")

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type Repository interface {
	Create(ctx context.Context, rec Record) error
	Update(ctx context.Context, rec Record) error
	GetByID(ctx context.Context, id string) (Record, error)
	// ListByPet ordena por fecha desc (más reciente primero).
	ListByPet(ctx context.Context, petID string, filter ListFilter) ([]Record, error)
}

type ListFilter struct {
	Types         []RecordType
	From          *time.Time
	To            *time.Time
	Query         string
	Limit         int
	IncludeVoided bool
}
