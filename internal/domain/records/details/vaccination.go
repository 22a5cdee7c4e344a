package details

import (
	"errors"
	"strings"
	"time"
)

// Vaccination modela el detalle de una vacuna aplicada.
type Vaccination struct {
	Name           string     `json:"name"`
	Manufacturer   string     `json:"manufacturer,omitempty"`
	BatchNumber    string     `json:"batch_number,omitempty"`
	Date           *time.Time `json:"date,omitempty"`
	NextDueDate    *time.Time `json:"next_due_date,omitempty"`
	AdministeredBy string     `json:"administered_by,omitempty"`
}

func (v Vaccination) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return errors.New("vaccination.name is required")
	}
	if v.Date != nil && v.NextDueDate != nil && v.NextDueDate.Before(*v.Date) {
		return errors.New("vaccination.next_due_date must be after date")
	}
	return nil
}
