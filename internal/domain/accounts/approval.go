package accounts

import (
	"context"
	"strings"

	"pet-health-api/internal/platform/apperr"
	"pet-health-api/internal/ports/auth"

	jujuerrors "github.com/juju/errors"
)

// Aprobación de veterinarios: dos estados (Approved true/false). Rechazar
// vuelve a pendiente y se puede aprobar de nuevo. No toca grants existentes.

func (s *Service) ApproveVeterinarian(ctx context.Context, actor auth.Actor, vetID string) (Account, error) {
	return s.setApproval(ctx, actor, vetID, true)
}

func (s *Service) RejectVeterinarian(ctx context.Context, actor auth.Actor, vetID string) (Account, error) {
	return s.setApproval(ctx, actor, vetID, false)
}

func (s *Service) setApproval(ctx context.Context, actor auth.Actor, vetID string, approved bool) (Account, error) {
	if err := auth.RequireRole(actor, auth.RoleAdmin); err != nil {
		return Account{}, err
	}

	a, err := s.Get(ctx, strings.TrimSpace(vetID))
	if err != nil {
		return Account{}, err
	}
	if !a.IsVeterinarian() {
		return Account{}, apperr.Invalid("user is not a veterinarian")
	}

	// Idempotente: sin escritura si ya está en el estado pedido.
	if a.Approved == approved {
		return a, nil
	}

	now := s.now().UTC()
	if err := s.repo.SetApproved(ctx, a.ID, approved, now); err != nil {
		return Account{}, s.mapRepoErr(err)
	}
	a.Approved = approved
	a.UpdatedAt = now
	return a, nil
}

// ListVeterinarians para el panel admin, más nuevos primero.
func (s *Service) ListVeterinarians(ctx context.Context, actor auth.Actor, filter VetFilter) ([]Account, error) {
	if err := auth.RequireRole(actor, auth.RoleAdmin); err != nil {
		return nil, err
	}

	vets, err := s.repo.ListByRole(ctx, auth.RoleVeterinarian)
	if err != nil {
		return nil, jujuerrors.Trace(err)
	}

	out := make([]Account, 0, len(vets))
	for _, v := range vets {
		if filter.matches(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Service) Stats(ctx context.Context, actor auth.Actor) (Stats, error) {
	if err := auth.RequireRole(actor, auth.RoleAdmin); err != nil {
		return Stats{}, err
	}

	vets, err := s.repo.ListByRole(ctx, auth.RoleVeterinarian)
	if err != nil {
		return Stats{}, jujuerrors.Trace(err)
	}
	owners, err := s.repo.ListByRole(ctx, auth.RolePetOwner)
	if err != nil {
		return Stats{}, jujuerrors.Trace(err)
	}

	st := Stats{TotalVets: len(vets), TotalOwners: len(owners)}
	for _, v := range vets {
		if v.Approved {
			st.ApprovedVets++
		}
	}
	st.PendingVets = st.TotalVets - st.ApprovedVets
	return st, nil
}
