package queue

import "errors"

// Sentinel errors surfaced by the queue service. Callers match them with
// errors.Is; the HTTP handler maps them to status codes.
var (
	ErrValidation        = errors.New("invalid input")
	ErrNotFound          = errors.New("queue entry not found")
	ErrDoctorBusy        = errors.New("doctor already has an active patient")
	ErrInvalidTransition = errors.New("status transition not permitted")
	ErrPersistence       = errors.New("persistence failure")
)
