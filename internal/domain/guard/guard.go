// Package guard es el único lugar donde se decide si un actor puede operar
// sobre una mascota o sus registros médicos.
package guard

import (
	"context"
	"strings"

	"pet-health-api/internal/platform/apperr"
	"pet-health-api/internal/ports/auth"

	jujuerrors "github.com/juju/errors"
)

type Operation string

const (
	OpPetRead      Operation = "pet:read"
	OpPetWrite     Operation = "pet:write"
	OpRecordsRead  Operation = "records:read"
	OpRecordsWrite Operation = "records:write"
)

var AllOperations = []Operation{OpPetRead, OpPetWrite, OpRecordsRead, OpRecordsWrite}

func (op Operation) IsRead() bool {
	return op == OpPetRead || op == OpRecordsRead
}

// Pet es lo mínimo que el guard necesita de una mascota.
type Pet struct {
	ID      string
	OwnerID string
}

// Decide es la tabla de permisos, pura:
//   - admin: solo lectura sobre cualquier mascota
//   - dueño: todo
//   - veterinario con grant aprobado: pet:read, records:read, records:write
//   - resto: nada
func Decide(actor auth.Actor, pet Pet, op Operation, hasApprovedGrant bool) bool {
	if strings.TrimSpace(actor.ID) == "" {
		return false
	}

	switch {
	case actor.Role == auth.RolePetOwner && actor.ID == pet.OwnerID:
		return true
	case actor.Role == auth.RoleAdmin:
		return op.IsRead()
	case actor.Role == auth.RoleVeterinarian && hasApprovedGrant:
		return op != OpPetWrite
	default:
		return false
	}
}

// GrantLookup evita importar accessgrants (rompe ciclos).
type GrantLookup interface {
	HasApprovedGrant(ctx context.Context, petID, vetUserID string) (bool, error)
}

type Guard struct {
	grants GrantLookup
}

func New(grants GrantLookup) *Guard {
	return &Guard{grants: grants}
}

// CanAccess consulta el estado del grant en cada llamada (sin cache),
// así una revocación aplica en el próximo request.
func (g *Guard) CanAccess(ctx context.Context, actor auth.Actor, pet Pet, op Operation) (bool, error) {
	hasGrant := false
	if actor.Role == auth.RoleVeterinarian && strings.TrimSpace(actor.ID) != "" {
		ok, err := g.grants.HasApprovedGrant(ctx, pet.ID, actor.ID)
		if err != nil {
			return false, jujuerrors.Annotate(err, "checking access grant")
		}
		hasGrant = ok
	}
	return Decide(actor, pet, op, hasGrant), nil
}

// Authorize es CanAccess como error (403) para usar directo en servicios.
func (g *Guard) Authorize(ctx context.Context, actor auth.Actor, pet Pet, op Operation) error {
	ok, err := g.CanAccess(ctx, actor, pet, op)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Forbiddenf("not allowed to %s on this pet", op)
	}
	return nil
}
