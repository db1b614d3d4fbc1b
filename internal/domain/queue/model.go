package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a walk-in queue entry.
type Status string

const (
	StatusWaiting    Status = "WAITING"
	StatusWithDoctor Status = "WITH_DOCTOR"
	StatusDone       Status = "DONE"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusWithDoctor, StatusDone:
		return true
	}
	return false
}

// rank orders statuses for presentation: active consultations first, then
// the waiting line, then finished visits.
func (s Status) rank() int {
	switch s {
	case StatusWithDoctor:
		return 0
	case StatusWaiting:
		return 1
	default:
		return 2
	}
}

// QueueType is the clinical priority of a waiting entry.
type QueueType string

const (
	TypeNormal    QueueType = "NORMAL"
	TypeEmergency QueueType = "EMERGENCY"
)

// Valid reports whether t is a known queue type.
func (t QueueType) Valid() bool {
	return t == TypeNormal || t == TypeEmergency
}

// allowedTransitions is the closed transition table for entry statuses.
// WAITING self-loops to carry a queue-type change; DONE is terminal.
var allowedTransitions = map[Status]map[Status]bool{
	StatusWaiting: {
		StatusWaiting:    true,
		StatusWithDoctor: true,
		StatusDone:       true,
	},
	StatusWithDoctor: {
		StatusWaiting: true, // consultation deferred back to the queue
		StatusDone:    true,
	},
	StatusDone: {},
}

// CanTransition reports whether the state machine permits from -> to.
func CanTransition(from, to Status) bool {
	return allowedTransitions[from][to]
}

// Entry is one walk-in visit tracked through the queue. Maps to the
// queue_entry table.
type Entry struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patientId"`
	DoctorID      *uuid.UUID `db:"doctor_id" json:"doctorId,omitempty"`
	ArrivalTime   time.Time  `db:"arrival_time" json:"arrivalTime"`
	CurrentStatus Status     `db:"current_status" json:"currentStatus"`
	QueueType     QueueType  `db:"queue_type" json:"queueType"`
	CreatedAt     time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}

// PatientInfo carries the patient display fields joined into a listing.
type PatientInfo struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Age    int       `json:"age"`
	Gender string    `json:"gender"`
}

// DoctorInfo carries the doctor display fields joined into a listing.
type DoctorInfo struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization"`
}

// ListItem is one row of the queue listing: the entry plus joined display
// fields and, for waiting patients with an assigned doctor, the projected
// consultation start.
type ListItem struct {
	ID            uuid.UUID   `json:"id"`
	ArrivalTime   time.Time   `json:"arrivalTime"`
	CurrentStatus Status      `json:"currentStatus"`
	QueueType     QueueType   `json:"queueType"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
	Patient       PatientInfo `json:"patient"`
	Doctor        *DoctorInfo `json:"doctor,omitempty"`
	ExpectedTime  *time.Time  `json:"expectedTime,omitempty"`
}

// Stats holds today's advisory queue counts. The four numbers come from
// independent queries and are not a consistent snapshot.
type Stats struct {
	Total     int `json:"total"`
	Done      int `json:"done"`
	Waiting   int `json:"waiting"`
	Emergency int `json:"emergency"`
}

// DayBounds returns the local calendar-day window [midnight, next midnight)
// containing asOf.
func DayBounds(asOf time.Time) (time.Time, time.Time) {
	y, m, d := asOf.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, asOf.Location())
	return start, start.Add(24 * time.Hour)
}

// CombineDayTime anchors a bare HH:MM clock reading to asOf's calendar date.
// A wall-clock arrival time is meaningless without an implicit "today".
func CombineDayTime(asOf time.Time, clock string) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: arrival time must be HH:MM, got %q", ErrValidation, clock)
	}
	y, m, d := asOf.Date()
	return time.Date(y, m, d, parsed.Hour(), parsed.Minute(), 0, 0, asOf.Location()), nil
}
