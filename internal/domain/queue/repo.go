package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence surface for queue entries.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	Update(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ListDay returns the joined listing rows for entries whose arrival
	// falls inside [dayStart, dayEnd), oldest arrival first.
	ListDay(ctx context.Context, dayStart, dayEnd time.Time) ([]ListItem, error)
	// ListBefore returns the joined listing rows for entries that arrived
	// before dayStart, newest arrival first.
	ListBefore(ctx context.Context, dayStart time.Time) ([]ListItem, error)

	// DoctorBusy reports whether the doctor has an active consultation in
	// the day window, ignoring the entry identified by excludeID.
	DoctorBusy(ctx context.Context, doctorID uuid.UUID, dayStart, dayEnd time.Time, excludeID uuid.UUID) (bool, error)
	// LockDoctorDay serializes concurrent assignment attempts for one
	// doctor on one calendar day. The lock is transaction scoped, so it
	// is only meaningful inside InTx.
	LockDoctorDay(ctx context.Context, doctorID uuid.UUID, day time.Time) error

	// InTx runs fn inside a transaction; repository calls made with fn's
	// context join it.
	InTx(ctx context.Context, fn func(ctx context.Context) error) error

	Stats(ctx context.Context, dayStart, dayEnd time.Time) (Stats, error)
}
