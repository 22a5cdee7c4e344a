package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"pet-health-api/internal/domain/accounts"
	"pet-health-api/internal/ports/auth"
)

type accountRepo struct {
	mu      sync.RWMutex
	byID    map[string]accounts.Account
	byEmail map[string]string // email en minúsculas -> id
}

func NewAccountRepo() accounts.Repository {
	return &accountRepo{
		byID:    make(map[string]accounts.Account),
		byEmail: make(map[string]string),
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *accountRepo) Create(ctx context.Context, a accounts.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(a.ID) == "" {
		return errors.New("account id required")
	}
	key := emailKey(a.Email)
	if _, taken := r.byEmail[key]; taken {
		return accounts.ErrEmailTaken
	}
	if _, exists := r.byID[a.ID]; exists {
		return errors.New("account already exists")
	}

	a.Email = key
	r.byID[a.ID] = a
	r.byEmail[key] = a.ID
	return nil
}

func (r *accountRepo) GetByID(ctx context.Context, id string) (accounts.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return accounts.Account{}, accounts.ErrNotFound
	}
	return a, nil
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (accounts.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[emailKey(email)]
	if !ok {
		return accounts.Account{}, accounts.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *accountRepo) update(id string, fn func(a *accounts.Account)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.byID[id]
	if !ok {
		return accounts.ErrNotFound
	}
	fn(&a)
	r.byID[id] = a
	return nil
}

func (r *accountRepo) UpdateProfile(ctx context.Context, id string, p accounts.Profile, updatedAt time.Time) error {
	return r.update(id, func(a *accounts.Account) {
		a.Profile = p
		a.UpdatedAt = updatedAt
	})
}

func (r *accountRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	return r.update(id, func(a *accounts.Account) {
		a.PasswordHash = passwordHash
		a.UpdatedAt = updatedAt
	})
}

func (r *accountRepo) SetApproved(ctx context.Context, id string, approved bool, updatedAt time.Time) error {
	return r.update(id, func(a *accounts.Account) {
		a.Approved = approved
		a.UpdatedAt = updatedAt
	})
}

func (r *accountRepo) ListByRole(ctx context.Context, role auth.Role) ([]accounts.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]accounts.Account, 0)
	for _, a := range r.byID {
		if a.Role == role {
			out = append(out, a)
		}
	}

	// más nuevos primero
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
