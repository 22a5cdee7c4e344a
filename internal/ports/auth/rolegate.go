package auth

import (
	"strings"

	"pet-health-api/internal/platform/apperr"
)

// RequireRole es el chequeo grueso por rol. No sabe nada de aprobación
// ni de recursos.
func RequireRole(a Actor, allowed ...Role) error {
	if strings.TrimSpace(a.ID) == "" {
		return apperr.Unauthenticated("authentication required")
	}
	for _, r := range allowed {
		if a.Role == r {
			return nil
		}
	}
	return apperr.Forbiddenf("role %q not allowed", a.Role)
}
