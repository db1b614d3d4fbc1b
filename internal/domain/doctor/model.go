// Package doctor manages the clinic's doctor roster. The queue treats a
// doctor as an opaque grouping key plus display fields; this package owns
// the actual records.
package doctor

import (
	"time"

	"github.com/google/uuid"
)

type Doctor struct {
	ID             uuid.UUID `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	Phone          string    `db:"phone" json:"phone"`
	Location       string    `db:"location" json:"location"`
	Specialization string    `db:"specialization" json:"specialization"`
	Gender         string    `db:"gender" json:"gender"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}
