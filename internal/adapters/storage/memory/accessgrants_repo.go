package memory

import (
	"context"
	"errors"
	"sync"

	"pet-health-api/internal/domain/accessgrants"
)

// grantRepo mantiene los invariantes con un único mutex: el chequeo de
// pending duplicado y el CAS de Transition son atómicos.
type grantRepo struct {
	mu   sync.RWMutex
	byID map[string]accessgrants.Grant
}

func NewAccessGrantsRepo() accessgrants.Repository {
	return &grantRepo{
		byID: make(map[string]accessgrants.Grant),
	}
}

func (r *grantRepo) Create(ctx context.Context, g accessgrants.Grant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g.ID == "" {
		return errors.New("grant id required")
	}
	if _, exists := r.byID[g.ID]; exists {
		return errors.New("grant already exists")
	}
	if g.Status == accessgrants.StatusPending {
		for _, other := range r.byID {
			if other.Status == accessgrants.StatusPending &&
				other.PetID == g.PetID &&
				other.VetUserID == g.VetUserID {
				return accessgrants.ErrDuplicatePending
			}
		}
	}
	r.byID[g.ID] = g
	return nil
}

func (r *grantRepo) Transition(ctx context.Context, g accessgrants.Grant, from accessgrants.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[g.ID]
	if !ok {
		return accessgrants.ErrNotFound
	}
	if current.Status != from {
		return accessgrants.ErrStaleStatus
	}
	r.byID[g.ID] = g
	return nil
}

func (r *grantRepo) GetByID(ctx context.Context, id string) (accessgrants.Grant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.byID[id]
	if !ok {
		return accessgrants.Grant{}, accessgrants.ErrNotFound
	}
	return g, nil
}

func (r *grantRepo) list(keep func(g accessgrants.Grant) bool) []accessgrants.Grant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]accessgrants.Grant, 0)
	for _, g := range r.byID {
		if keep(g) {
			out = append(out, g)
		}
	}
	return out
}

func (r *grantRepo) ListByPet(ctx context.Context, petID string) ([]accessgrants.Grant, error) {
	return r.list(func(g accessgrants.Grant) bool { return g.PetID == petID }), nil
}

func (r *grantRepo) ListByVet(ctx context.Context, vetUserID string) ([]accessgrants.Grant, error) {
	return r.list(func(g accessgrants.Grant) bool { return g.VetUserID == vetUserID }), nil
}

func (r *grantRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]accessgrants.Grant, error) {
	return r.list(func(g accessgrants.Grant) bool { return g.OwnerUserID == ownerUserID }), nil
}

func (r *grantRepo) HasApproved(ctx context.Context, petID, vetUserID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, g := range r.byID {
		if g.PetID == petID && g.VetUserID == vetUserID && g.Status == accessgrants.StatusApproved {
			return true, nil
		}
	}
	return false, nil
}
