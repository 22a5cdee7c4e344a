package accessgrants

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"pet-health-api/internal/platform/apperr"
	"pet-health-api/internal/ports/auth"

	"github.com/google/uuid"
	jujuerrors "github.com/juju/errors"
)

// PetOwnerLookup evita importar el paquete pets (rompe ciclos).
// Debe devolver un error NotFound (apperr) si la mascota no existe.
type PetOwnerLookup interface {
	OwnerOf(ctx context.Context, petID string) (string, error)
}

// VetDirectory evita importar accounts. Se consulta en cada pedido y
// al aprobar, nunca se cachea.
type VetDirectory interface {
	IsApprovedVeterinarian(ctx context.Context, userID string) (bool, error)
}

type Service struct {
	repo Repository
	pets PetOwnerLookup
	vets VetDirectory
	now  func() time.Time
}

func NewService(repo Repository, pets PetOwnerLookup, vets VetDirectory) *Service {
	return &Service{
		repo: repo,
		pets: pets,
		vets: vets,
		now:  time.Now,
	}
}

type RequestInput struct {
	PetID string
	// VetUserID puede ir vacío si quien pide es el propio veterinario.
	VetUserID string
}

// Request crea un grant pending. Lo puede pedir el dueño (para cualquier vet
// aprobado) o un vet aprobado para sí mismo.
func (s *Service) Request(ctx context.Context, actor auth.Actor, in RequestInput) (Grant, error) {
	if err := auth.RequireRole(actor, auth.RolePetOwner, auth.RoleVeterinarian); err != nil {
		return Grant{}, err
	}

	petID := strings.TrimSpace(in.PetID)
	vetID := strings.TrimSpace(in.VetUserID)
	if petID == "" {
		return Grant{}, apperr.Invalid("pet_id is required")
	}

	ownerID, err := s.pets.OwnerOf(ctx, petID)
	if err != nil {
		return Grant{}, err
	}

	switch actor.Role {
	case auth.RolePetOwner:
		if ownerID != actor.ID {
			return Grant{}, apperr.Forbidden("only the pet owner can share this pet")
		}
		if vetID == "" {
			return Grant{}, apperr.Invalid("vet_user_id is required")
		}
	case auth.RoleVeterinarian:
		if vetID == "" {
			vetID = actor.ID
		}
		if vetID != actor.ID {
			return Grant{}, apperr.Forbidden("veterinarians can only request access for themselves")
		}
	}

	approved, err := s.vets.IsApprovedVeterinarian(ctx, vetID)
	if err != nil {
		return Grant{}, jujuerrors.Annotate(err, "checking veterinarian")
	}
	if !approved {
		return Grant{}, apperr.Invalid("vet_user_id must reference an approved veterinarian")
	}

	now := s.now().UTC()
	g := Grant{
		ID:              uuid.NewString(),
		PetID:           petID,
		OwnerUserID:     ownerID,
		VetUserID:       vetID,
		RequestedBy:     actor.ID,
		RequestedByRole: actor.Role,
		Status:          StatusPending,
		RequestedAt:     now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, g); err != nil {
		if errors.Is(err, ErrDuplicatePending) {
			return Grant{}, apperr.Conflictf("a pending request already exists for this pet and veterinarian")
		}
		return Grant{}, jujuerrors.Annotate(err, "creating grant")
	}
	return g, nil
}

// Decide: solo el dueño, solo sobre pending. Al aprobar se vuelve a
// verificar que el vet siga aprobado.
func (s *Service) Decide(ctx context.Context, actor auth.Actor, grantID string, outcome Outcome) (Grant, error) {
	if outcome != OutcomeApprove && outcome != OutcomeReject {
		return Grant{}, apperr.Invalid("outcome must be approve or reject")
	}

	g, err := s.getOwned(ctx, actor, grantID)
	if err != nil {
		return Grant{}, err
	}
	if g.Status != StatusPending {
		return Grant{}, apperr.Conflictf("grant is %s, not pending", g.Status)
	}

	if outcome == OutcomeApprove {
		ok, err := s.vets.IsApprovedVeterinarian(ctx, g.VetUserID)
		if err != nil {
			return Grant{}, jujuerrors.Annotate(err, "checking veterinarian")
		}
		if !ok {
			return Grant{}, apperr.Invalid("veterinarian is no longer approved")
		}
	}

	return s.apply(ctx, g, outcome.target(), actor.ID)
}

// Revoke: solo el dueño, solo sobre approved. Terminal.
func (s *Service) Revoke(ctx context.Context, actor auth.Actor, grantID string) (Grant, error) {
	g, err := s.getOwned(ctx, actor, grantID)
	if err != nil {
		return Grant{}, err
	}
	if g.Status != StatusApproved {
		return Grant{}, apperr.Conflictf("grant is %s, not approved", g.Status)
	}
	return s.apply(ctx, g, StatusRevoked, actor.ID)
}

// apply hace la transición con CAS sobre el estado leído. Un CAS perdido
// es conflicto; no se reintenta.
func (s *Service) apply(ctx context.Context, g Grant, next Status, by string) (Grant, error) {
	from := g.Status
	updated, err := g.transition(next, by, s.now().UTC())
	if err != nil {
		return Grant{}, apperr.Conflictf("cannot move grant from %s to %s", from, next)
	}

	if err := s.repo.Transition(ctx, updated, from); err != nil {
		switch {
		case errors.Is(err, ErrStaleStatus):
			return Grant{}, apperr.Conflictf("grant is no longer %s", from)
		case errors.Is(err, ErrNotFound):
			return Grant{}, apperr.NotFound("grant not found")
		default:
			return Grant{}, jujuerrors.Annotate(err, "updating grant")
		}
	}
	return updated, nil
}

func (s *Service) getOwned(ctx context.Context, actor auth.Actor, grantID string) (Grant, error) {
	g, err := s.load(ctx, grantID)
	if err != nil {
		return Grant{}, err
	}
	if actor.Role != auth.RolePetOwner || g.OwnerUserID != actor.ID {
		return Grant{}, apperr.Forbidden("only the pet owner can decide or revoke access")
	}
	return g, nil
}

func (s *Service) load(ctx context.Context, grantID string) (Grant, error) {
	grantID = strings.TrimSpace(grantID)
	if grantID == "" {
		return Grant{}, apperr.NotFound("grant not found")
	}
	g, err := s.repo.GetByID(ctx, grantID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Grant{}, apperr.NotFound("grant not found")
		}
		return Grant{}, jujuerrors.Trace(err)
	}
	return g, nil
}

// Get: lo ven el dueño y el veterinario del grant.
func (s *Service) Get(ctx context.Context, actor auth.Actor, grantID string) (Grant, error) {
	g, err := s.load(ctx, grantID)
	if err != nil {
		return Grant{}, err
	}
	if actor.ID != g.OwnerUserID && actor.ID != g.VetUserID {
		return Grant{}, apperr.Forbidden("not a party of this grant")
	}
	return g, nil
}

// ListForPet: solo el dueño de la mascota.
func (s *Service) ListForPet(ctx context.Context, actor auth.Actor, petID string) ([]Grant, error) {
	petID = strings.TrimSpace(petID)
	ownerID, err := s.pets.OwnerOf(ctx, petID)
	if err != nil {
		return nil, err
	}
	if actor.Role != auth.RolePetOwner || ownerID != actor.ID {
		return nil, apperr.Forbidden("only the pet owner can list its grants")
	}

	items, err := s.repo.ListByPet(ctx, petID)
	if err != nil {
		return nil, jujuerrors.Trace(err)
	}
	return newestFirst(items), nil
}

// ListForVet: grants del vet que llama, filtrando por estados (vacío = todos).
func (s *Service) ListForVet(ctx context.Context, actor auth.Actor, statuses ...Status) ([]Grant, error) {
	if err := auth.RequireRole(actor, auth.RoleVeterinarian); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByVet(ctx, actor.ID)
	if err != nil {
		return nil, jujuerrors.Trace(err)
	}
	return newestFirst(filterByStatus(items, statuses)), nil
}

// ListForOwner: grants de todas las mascotas del dueño que llama.
func (s *Service) ListForOwner(ctx context.Context, actor auth.Actor, statuses ...Status) ([]Grant, error) {
	if err := auth.RequireRole(actor, auth.RolePetOwner); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByOwner(ctx, actor.ID)
	if err != nil {
		return nil, jujuerrors.Trace(err)
	}
	return newestFirst(filterByStatus(items, statuses)), nil
}

// HasApprovedGrant implementa guard.GrantLookup. Lee siempre del store.
func (s *Service) HasApprovedGrant(ctx context.Context, petID, vetUserID string) (bool, error) {
	petID = strings.TrimSpace(petID)
	vetUserID = strings.TrimSpace(vetUserID)
	if petID == "" || vetUserID == "" {
		return false, nil
	}
	return s.repo.HasApproved(ctx, petID, vetUserID)
}

func filterByStatus(items []Grant, statuses []Status) []Grant {
	if len(statuses) == 0 {
		return items
	}
	allowed := make(map[Status]struct{}, len(statuses))
	for _, st := range statuses {
		allowed[st] = struct{}{}
	}
	out := make([]Grant, 0, len(items))
	for _, g := range items {
		if _, ok := allowed[g.Status]; ok {
			out = append(out, g)
		}
	}
	return out
}

func newestFirst(items []Grant) []Grant {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].RequestedAt.After(items[j].RequestedAt)
	})
	return items
}
