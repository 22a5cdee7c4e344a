package details

import (
	"errors"
	"strings"
	"time"
)

type Medication struct {
	Name string `json:"name"`

	Dosage    string `json:"dosage"`              // "2 ml", "10 mg"
	Frequency string `json:"frequency,omitempty"` // texto por ahora: "cada 12h"

	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	PrescribedBy string `json:"prescribed_by,omitempty"`
}

func (m Medication) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("medication.name is required")
	}
	if strings.TrimSpace(m.Dosage) == "" {
		return errors.New("medication.dosage is required")
	}
	if m.StartDate != nil && m.EndDate != nil && m.EndDate.Before(*m.StartDate) {
		return errors.New("medication.end_date must be after start_date")
	}
	return nil
}
