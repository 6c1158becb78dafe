package referral

import (
	"time"

	"github.com/google/uuid"
)

// Criteria is a rule stating when a diagnosis warrants referral to a
// specialty, and how urgently.
type Criteria struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	Diagnosis           string    `db:"diagnosis" json:"diagnosis"`
	Criterion           string    `db:"criterion" json:"criterion"`
	TargetSpecialtyID   *string   `db:"target_specialty_id" json:"target_specialty_id,omitempty"`
	TargetSpecialtyName *string   `db:"target_specialty_name" json:"target_specialty_name,omitempty"`
	UrgencyID           *string   `db:"urgency_id" json:"urgency_id,omitempty"`
	UrgencyName         *string   `db:"urgency_name" json:"urgency_name,omitempty"`
	IsActive            bool      `db:"is_active" json:"is_active"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// Filter narrows List. Diagnosis matches case-insensitively.
type Filter struct {
	Diagnosis  string
	ActiveOnly bool
}
