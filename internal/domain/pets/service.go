package pets

import (
	"context"
	"errors"
	"strings"
	"time"

	"pet-health-api/internal/domain/accessgrants"
	"pet-health-api/internal/domain/guard"
	"pet-health-api/internal/platform/apperr"
	"pet-health-api/internal/ports/auth"

	"github.com/google/uuid"
	jujuerrors "github.com/juju/errors"
)

// SharedGrants es lo que pets necesita de accessgrants para /me/pets.
type SharedGrants interface {
	ListForVet(ctx context.Context, actor auth.Actor, statuses ...accessgrants.Status) ([]accessgrants.Grant, error)
}

type Service struct {
	repo  Repository
	guard *guard.Guard
	now   func() time.Time
}

func NewService(repo Repository, g *guard.Guard) *Service {
	return &Service{
		repo:  repo,
		guard: g,
		now:   time.Now,
	}
}

type CreateInput struct {
	Name      string
	Species   string
	Breed     string
	Sex       string
	BirthDate *time.Time
	Microchip string
	Notes     string
}

// Create: solo un pet_owner, que queda como dueño para siempre.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in CreateInput) (Pet, error) {
	if err := auth.RequireRole(actor, auth.RolePetOwner); err != nil {
		return Pet{}, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return Pet{}, apperr.Invalid("name is required")
	}
	species, ok := ParseSpecies(in.Species)
	if !ok {
		return Pet{}, apperr.Invalid("species must be dog, cat or other")
	}
	sex, ok := ParseSex(in.Sex)
	if !ok {
		return Pet{}, apperr.Invalid("sex must be male, female or unknown")
	}
	if err := validateBirthDate(in.BirthDate, s.now()); err != nil {
		return Pet{}, err
	}

	now := s.now().UTC()
	p := Pet{
		ID:          uuid.NewString(),
		OwnerUserID: actor.ID,
		Name:        strings.TrimSpace(in.Name),
		Species:     species,
		Breed:       strings.TrimSpace(in.Breed),
		Sex:         sex,
		BirthDate:   in.BirthDate,
		Microchip:   strings.TrimSpace(in.Microchip),
		Notes:       strings.TrimSpace(in.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return Pet{}, jujuerrors.Annotate(err, "creating pet")
	}
	return p, nil
}

// Get pasa por el guard (pet:read).
func (s *Service) Get(ctx context.Context, actor auth.Actor, petID string) (Pet, error) {
	p, err := s.load(ctx, petID)
	if err != nil {
		return Pet{}, err
	}
	if err := s.guard.Authorize(ctx, actor, GuardPet(p), guard.OpPetRead); err != nil {
		return Pet{}, err
	}
	return p, nil
}

// PatchBirthDate permite distinguir "no enviado" de "enviar null para limpiar".
type PatchBirthDate struct {
	Present bool
	Value   *time.Time
}

// UpdateInput: nil = no tocar.
type UpdateInput struct {
	Name      *string
	Species   *string
	Breed     *string
	Sex       *string
	BirthDate PatchBirthDate
	Microchip *string
	Notes     *string
}

// Update pasa por el guard (pet:write): en la práctica solo el dueño.
func (s *Service) Update(ctx context.Context, actor auth.Actor, petID string, in UpdateInput) (Pet, error) {
	p, err := s.load(ctx, petID)
	if err != nil {
		return Pet{}, err
	}
	if err := s.guard.Authorize(ctx, actor, GuardPet(p), guard.OpPetWrite); err != nil {
		return Pet{}, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return Pet{}, apperr.Invalid("name cannot be empty")
		}
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Species != nil {
		sp, ok := ParseSpecies(*in.Species)
		if !ok {
			return Pet{}, apperr.Invalid("species must be dog, cat or other")
		}
		p.Species = sp
	}
	if in.Sex != nil {
		sx, ok := ParseSex(*in.Sex)
		if !ok {
			return Pet{}, apperr.Invalid("sex must be male, female or unknown")
		}
		p.Sex = sx
	}
	if in.Breed != nil {
		p.Breed = strings.TrimSpace(*in.Breed)
	}
	if in.Microchip != nil {
		p.Microchip = strings.TrimSpace(*in.Microchip)
	}
	if in.Notes != nil {
		p.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.BirthDate.Present {
		if err := validateBirthDate(in.BirthDate.Value, s.now()); err != nil {
			return Pet{}, err
		}
		p.BirthDate = in.BirthDate.Value
	}

	p.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Pet{}, apperr.NotFound("pet not found")
		}
		return Pet{}, jujuerrors.Annotate(err, "updating pet")
	}
	return p, nil
}

func (s *Service) ListByOwner(ctx context.Context, actor auth.Actor) ([]Pet, error) {
	if err := auth.RequireRole(actor, auth.RolePetOwner); err != nil {
		return nil, err
	}
	items, err := s.repo.ListByOwner(ctx, actor.ID)
	if err != nil {
		return nil, jujuerrors.Trace(err)
	}
	return items, nil
}

// SharedPet es una mascota visible para un vet gracias a un grant aprobado.
type SharedPet struct {
	Pet   Pet
	Grant accessgrants.Grant
}

// ListSharedWith devuelve las mascotas con grant aprobado para el vet.
// Cada mascota pasa igual por el guard.
func (s *Service) ListSharedWith(ctx context.Context, actor auth.Actor, grants SharedGrants) ([]SharedPet, error) {
	if err := auth.RequireRole(actor, auth.RoleVeterinarian); err != nil {
		return nil, err
	}
	items, err := grants.ListForVet(ctx, actor, accessgrants.StatusApproved)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	out := make([]SharedPet, 0, len(items))
	for _, g := range items {
		if _, ok := seen[g.PetID]; ok {
			continue
		}
		seen[g.PetID] = struct{}{}

		p, err := s.Get(ctx, actor, g.PetID)
		if err != nil {
			// grant huérfano o revocado entre medio: no se lista
			if apperr.HTTPStatus(err) < 500 {
				continue
			}
			return nil, err
		}
		out = append(out, SharedPet{Pet: p, Grant: g})
	}
	return out, nil
}

// OwnerOf expone el ownerUserID de una mascota.
// Se usa para evitar ciclos de imports entre módulos (pets <-> accessgrants).
func (s *Service) OwnerOf(ctx context.Context, petID string) (string, error) {
	p, err := s.load(ctx, petID)
	if err != nil {
		return "", err
	}
	return p.OwnerUserID, nil
}

// GuardTarget es lo que records necesita para consultar el guard.
func (s *Service) GuardTarget(ctx context.Context, petID string) (guard.Pet, error) {
	p, err := s.load(ctx, petID)
	if err != nil {
		return guard.Pet{}, err
	}
	return GuardPet(p), nil
}

func GuardPet(p Pet) guard.Pet {
	return guard.Pet{ID: p.ID, OwnerID: p.OwnerUserID}
}

func (s *Service) load(ctx context.Context, petID string) (Pet, error) {
	petID = strings.TrimSpace(petID)
	if petID == "" {
		return Pet{}, apperr.NotFound("pet not found")
	}
	p, err := s.repo.GetByID(ctx, petID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Pet{}, apperr.NotFound("pet not found")
		}
		return Pet{}, jujuerrors.Trace(err)
	}
	return p, nil
}

func validateBirthDate(bd *time.Time, now time.Time) error {
	if bd != nil && bd.After(now) {
		return apperr.Invalid("birth_date cannot be in the future")
	}
	return nil
}
