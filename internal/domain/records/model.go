package records

import (
	"time"

	"pet-health-api/internal/domain/records/details"
)

// Details lleva a lo sumo un bloque, y debe coincidir con el tipo del registro.
type Details struct {
	Vaccination *details.Vaccination `json:"vaccination,omitempty"`
	Medication  *details.Medication  `json:"medication,omitempty"`
	Checkup     *details.Checkup     `json:"checkup,omitempty"`
	Surgery     *details.Surgery     `json:"surgery,omitempty"`
}

func (d Details) IsZero() bool {
	return d.Vaccination == nil && d.Medication == nil && d.Checkup == nil && d.Surgery == nil
}

type Cost struct {
	Amount      float64    `json:"amount"`
	Currency    string     `json:"currency"`
	Paid        bool       `json:"paid"`
	PaymentDate *time.Time `json:"payment_date,omitempty"`
}

// Record es un registro médico de una mascota. No se borra: se anula (voided).
type Record struct {
	ID    string
	PetID string

	Type  RecordType
	Date  time.Time
	Title string
	Notes string

	// VeterinarianID se completa cuando escribe un veterinario.
	VeterinarianID string

	Details Details
	Cost    *Cost

	Status Status

	CreatedBy string
	UpdatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}
