package accessgrants

import (
	"errors"
	"strings"
	"time"

	"pet-health-api/internal/ports/auth"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusRevoked  Status = "revoked"
)

// transitions es la máquina de estados completa. rejected y revoked son terminales.
var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusRevoked},
}

var ErrInvalidTransition = errors.New("invalid status transition")

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusRevoked:
		return true
	default:
		return false
	}
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Outcome de la decisión del dueño sobre un pedido pendiente.
type Outcome string

const (
	OutcomeApprove Outcome = "approve"
	OutcomeReject  Outcome = "reject"
)

func ParseOutcome(s string) (Outcome, bool) {
	switch Outcome(strings.ToLower(strings.TrimSpace(s))) {
	case OutcomeApprove:
		return OutcomeApprove, true
	case OutcomeReject:
		return OutcomeReject, true
	default:
		return "", false
	}
}

func (o Outcome) target() Status {
	if o == OutcomeApprove {
		return StatusApproved
	}
	return StatusRejected
}

// Grant da acceso a un veterinario a los registros de una mascota.
type Grant struct {
	ID string

	PetID       string
	OwnerUserID string // dueño de la mascota al momento del pedido (no cambia)
	VetUserID   string

	RequestedBy     string
	RequestedByRole auth.Role

	Status Status

	RequestedAt time.Time
	UpdatedAt   time.Time

	DecidedAt *time.Time
	DecidedBy string
	RevokedAt *time.Time
}

// transition devuelve una copia en el nuevo estado; no persiste nada.
func (g Grant) transition(next Status, by string, at time.Time) (Grant, error) {
	if !g.Status.CanTransitionTo(next) {
		return Grant{}, ErrInvalidTransition
	}

	g.Status = next
	g.UpdatedAt = at

	switch next {
	case StatusApproved, StatusRejected:
		g.DecidedAt = &at
		g.DecidedBy = by
	case StatusRevoked:
		g.RevokedAt = &at
	}
	return g, nil
}
