package accounts

import (
	"strings"
	"time"

	"pet-health-api/internal/ports/auth"
)

// ApprovalState es la vista del flag Approved para veterinarios.
// Rechazado y pendiente son el mismo estado (flag en false).
type ApprovalState string

const (
	ApprovalPending  ApprovalState = "pending"
	ApprovalApproved ApprovalState = "approved"
)

// Profile: Clinic, License y Specialization solo aplican a veterinarios.
type Profile struct {
	Name    string
	Phone   string
	Address string

	Clinic         string
	License        string // inmutable luego del registro
	Specialization string
}

// Account es la identidad de un usuario. Nunca se borra.
type Account struct {
	ID           string
	Email        string // siempre en minúsculas
	PasswordHash string
	Role         auth.Role

	// Approved solo tiene sentido para RoleVeterinarian; solo lo cambia un admin.
	Approved bool

	Profile Profile

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a Account) IsVeterinarian() bool { return a.Role == auth.RoleVeterinarian }

// IsApprovedVeterinarian: rol veterinario y aprobado por un admin.
func (a Account) IsApprovedVeterinarian() bool {
	return a.IsVeterinarian() && a.Approved
}

func (a Account) Approval() ApprovalState {
	if a.Approved {
		return ApprovalApproved
	}
	return ApprovalPending
}

// ProfileCompleted: nombre + teléfono + dirección; vets además clínica + matrícula.
func (a Account) ProfileCompleted() bool {
	p := a.Profile
	base := notBlank(p.Name) && notBlank(p.Phone) && notBlank(p.Address)
	if !a.IsVeterinarian() {
		return base
	}
	return base && notBlank(p.Clinic) && notBlank(p.License)
}

// VetFilter para el listado del admin.
type VetFilter string

const (
	VetFilterAll      VetFilter = "all"
	VetFilterPending  VetFilter = "pending"
	VetFilterApproved VetFilter = "approved"
)

func ParseVetFilter(s string) (VetFilter, bool) {
	switch VetFilter(strings.ToLower(strings.TrimSpace(s))) {
	case "", VetFilterAll:
		return VetFilterAll, true
	case VetFilterPending:
		return VetFilterPending, true
	case VetFilterApproved:
		return VetFilterApproved, true
	default:
		return "", false
	}
}

func (f VetFilter) matches(a Account) bool {
	switch f {
	case VetFilterPending:
		return !a.Approved
	case VetFilterApproved:
		return a.Approved
	default:
		return true
	}
}

// Stats del panel admin.
type Stats struct {
	TotalVets    int
	ApprovedVets int
	PendingVets  int
	TotalOwners  int
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func notBlank(s string) bool { return strings.TrimSpace(s) != "" }
