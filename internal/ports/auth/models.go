package auth

import (
	"strings"
	"time"
)

// Role es inmutable una vez creada la cuenta.
type Role string

const (
	RolePetOwner     Role = "pet_owner"
	RoleVeterinarian Role = "veterinarian"
	RoleAdmin        Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RolePetOwner, RoleVeterinarian, RoleAdmin:
		return true
	default:
		return false
	}
}

func ParseRole(s string) (Role, bool) {
	r := Role(strings.TrimSpace(strings.ToLower(s)))
	return r, r.Valid()
}

// Claims representa la información extraída del token.
// Solo sujeto + rol: aprobación u otros cambios no viajan en el token.
type Claims struct {
	UserID    string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (c Claims) Actor() Actor {
	return Actor{ID: c.UserID, Role: c.Role}
}

// Actor es quien ejecuta una operación de dominio.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) Is(role Role) bool { return a.Role == role }

// Token emitido al hacer login.
type Token struct {
	Value     string
	ExpiresAt time.Time
}
