package records

import (
	"context"
	"errors"
	"strings"
	"time"

	"pet-health-api/internal/domain/guard"
	"pet-health-api/internal/platform/apperr"
	"pet-health-api/internal/ports/auth"

	"github.com/google/uuid"
	jujuerrors "github.com/juju/errors"
)

// PetLookup evita importar pets. Debe devolver NotFound (apperr) si la mascota no existe.
type PetLookup interface {
	GuardTarget(ctx context.Context, petID string) (guard.Pet, error)
}

type Service struct {
	repo  Repository
	pets  PetLookup
	guard *guard.Guard
	now   func() time.Time
}

func NewService(repo Repository, pets PetLookup, g *guard.Guard) *Service {
	return &Service{
		repo:  repo,
		pets:  pets,
		guard: g,
		now:   time.Now,
	}
}

type CreateInput struct {
	Type    string
	Date    time.Time
	Title   string
	Notes   string
	Details Details
	Cost    *Cost
}

// Create requiere records:write (dueño o vet con grant aprobado).
func (s *Service) Create(ctx context.Context, actor auth.Actor, petID string, in CreateInput) (Record, error) {
	if err := s.authorize(ctx, actor, petID, guard.OpRecordsWrite); err != nil {
		return Record{}, err
	}

	typ, ok := ParseRecordType(in.Type)
	if !ok {
		return Record{}, apperr.Invalidf("type must be one of %s", typeList())
	}
	if in.Date.IsZero() {
		return Record{}, apperr.Invalid("date is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return Record{}, apperr.Invalid("title is required")
	}
	if err := validateDetails(typ, in.Details); err != nil {
		return Record{}, err
	}
	cost, err := normalizeCost(in.Cost)
	if err != nil {
		return Record{}, err
	}

	now := s.now().UTC()
	rec := Record{
		ID:        uuid.NewString(),
		PetID:     strings.TrimSpace(petID),
		Type:      typ,
		Date:      in.Date.UTC(),
		Title:     strings.TrimSpace(in.Title),
		Notes:     strings.TrimSpace(in.Notes),
		Details:   in.Details,
		Cost:      cost,
		Status:    StatusActive,
		CreatedBy: actor.ID,
		UpdatedBy: actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if actor.Role == auth.RoleVeterinarian {
		rec.VeterinarianID = actor.ID
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return Record{}, jujuerrors.Annotate(err, "creating record")
	}
	return rec, nil
}

// List requiere records:read.
func (s *Service) List(ctx context.Context, actor auth.Actor, petID string, filter ListFilter) ([]Record, error) {
	if err := s.authorize(ctx, actor, petID, guard.OpRecordsRead); err != nil {
		return nil, err
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, apperr.Invalid("to must be after from")
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Limit > MaxListLimit {
		filter.Limit = MaxListLimit
	}

	items, err := s.repo.ListByPet(ctx, strings.TrimSpace(petID), filter)
	if err != nil {
		return nil, jujuerrors.Trace(err)
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, actor auth.Actor, petID, recordID string) (Record, error) {
	// Permisos primero, para no filtrar si el registro existe
	if err := s.authorize(ctx, actor, petID, guard.OpRecordsRead); err != nil {
		return Record{}, err
	}
	return s.load(ctx, petID, recordID)
}

// UpdateInput: nil = no tocar. El tipo no cambia.
type UpdateInput struct {
	Date    *time.Time
	Title   *string
	Notes   *string
	Details *Details
	Cost    *Cost
}

func (s *Service) Update(ctx context.Context, actor auth.Actor, petID, recordID string, in UpdateInput) (Record, error) {
	if err := s.authorize(ctx, actor, petID, guard.OpRecordsWrite); err != nil {
		return Record{}, err
	}
	rec, err := s.load(ctx, petID, recordID)
	if err != nil {
		return Record{}, err
	}
	if rec.Status == StatusVoided {
		return Record{}, apperr.Conflictf("record is voided")
	}

	if in.Date != nil {
		if in.Date.IsZero() {
			return Record{}, apperr.Invalid("date cannot be empty")
		}
		rec.Date = in.Date.UTC()
	}
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return Record{}, apperr.Invalid("title cannot be empty")
		}
		rec.Title = strings.TrimSpace(*in.Title)
	}
	if in.Notes != nil {
		rec.Notes = strings.TrimSpace(*in.Notes)
	}
	if in.Details != nil {
		if err := validateDetails(rec.Type, *in.Details); err != nil {
			return Record{}, err
		}
		rec.Details = *in.Details
	}
	if in.Cost != nil {
		cost, err := normalizeCost(in.Cost)
		if err != nil {
			return Record{}, err
		}
		rec.Cost = cost
	}

	rec.UpdatedBy = actor.ID
	rec.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, rec); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, apperr.NotFound("record not found")
		}
		return Record{}, jujuerrors.Annotate(err, "updating record")
	}
	return rec, nil
}

// Void marca el registro como voided (no se borra). Idempotente.
func (s *Service) Void(ctx context.Context, actor auth.Actor, petID, recordID string) (Record, error) {
	if err := s.authorize(ctx, actor, petID, guard.OpRecordsWrite); err != nil {
		return Record{}, err
	}
	rec, err := s.load(ctx, petID, recordID)
	if err != nil {
		return Record{}, err
	}
	if rec.Status == StatusVoided {
		return rec, nil
	}

	rec.Status = StatusVoided
	rec.UpdatedBy = actor.ID
	rec.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, rec); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, apperr.NotFound("record not found")
		}
		return Record{}, jujuerrors.Annotate(err, "voiding record")
	}
	return rec, nil
}

func (s *Service) authorize(ctx context.Context, actor auth.Actor, petID string, op guard.Operation) error {
	if strings.TrimSpace(actor.ID) == "" {
		return apperr.Unauthenticated("missing credentials")
	}
	target, err := s.pets.GuardTarget(ctx, petID)
	if err != nil {
		return err
	}
	return s.guard.Authorize(ctx, actor, target, op)
}

// load: el registro tiene que pertenecer a la mascota del path.
func (s *Service) load(ctx context.Context, petID, recordID string) (Record, error) {
	recordID = strings.TrimSpace(recordID)
	if recordID == "" {
		return Record{}, apperr.NotFound("record not found")
	}
	rec, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, apperr.NotFound("record not found")
		}
		return Record{}, jujuerrors.Trace(err)
	}
	if rec.PetID != strings.TrimSpace(petID) {
		return Record{}, apperr.NotFound("record not found")
	}
	return rec, nil
}

func validateDetails(typ RecordType, d Details) error {
	if d.IsZero() {
		return nil
	}

	var (
		blocks int
		err    error
		match  bool
	)
	if d.Vaccination != nil {
		blocks++
		match = typ == TypeVaccination
		err = d.Vaccination.Validate()
	}
	if d.Medication != nil {
		blocks++
		match = typ == TypeMedication
		err = d.Medication.Validate()
	}
	if d.Checkup != nil {
		blocks++
		match = typ == TypeCheckup
		err = d.Checkup.Validate()
	}
	if d.Surgery != nil {
		blocks++
		match = typ == TypeSurgery
		err = d.Surgery.Validate()
	}

	switch {
	case blocks > 1:
		return apperr.Invalid("only one details block is allowed")
	case !match:
		return apperr.Invalidf("details do not match record type %s", typ)
	case err != nil:
		return apperr.Invalid(err.Error())
	}
	return nil
}

func normalizeCost(c *Cost) (*Cost, error) {
	if c == nil {
		return nil, nil
	}
	out := *c
	if out.Amount < 0 {
		return nil, apperr.Invalid("cost.amount cannot be negative")
	}
	out.Currency = strings.ToUpper(strings.TrimSpace(out.Currency))
	if out.Currency == "" {
		out.Currency = DefaultCurrency
	}
	if len(out.Currency) != 3 {
		return nil, apperr.Invalid("cost.currency must be a 3-letter code")
	}
	if !out.Paid {
		out.PaymentDate = nil
	}
	return &out, nil
}

func typeList() string {
	parts := make([]string, 0, len(allTypes))
	for _, t := range allTypes {
		parts = append(parts, string(t))
	}
	return strings.Join(parts, ", ")
}
