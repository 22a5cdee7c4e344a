package accounts

import (
	"errors"
	"sync"

	"pet-health-api/internal/platform/apperr"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLen = 6
	// bcrypt no acepta más de 72 bytes.
	MaxPasswordLen = 72
)

// checkPasswordLen cuenta bytes, no runes: es lo que limita bcrypt.
func checkPasswordLen(field, password string) error {
	switch {
	case len(password) < MinPasswordLen:
		return apperr.Invalidf("%s must be at least %d characters", field, MinPasswordLen)
	case len(password) > MaxPasswordLen:
		return apperr.Invalidf("%s must be at most %d bytes", field, MaxPasswordLen)
	}
	return nil
}

// hasher envuelve bcrypt. El dummy se genera con el mismo costo que los
// hashes reales para que email inexistente y password incorrecta tarden igual.
type hasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

func newHasher(cost int) *hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &hasher{cost: cost}
}

func (h *hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Matches devuelve false ante hash vacío o distinto; cualquier otro error de
// bcrypt (hash corrupto) se propaga.
func (h *hasher) Matches(hash, password string) (bool, error) {
	if hash == "" {
		h.burn(password)
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

// burn hace una comparación contra el dummy y descarta el resultado.
func (h *hasher) burn(password string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
}
