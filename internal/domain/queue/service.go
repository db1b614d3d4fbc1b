package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinidesk/clinidesk/internal/platform/websocket"
)

// Filter selects which day bucket a listing covers.
type Filter string

const (
	FilterToday Filter = "TODAY"
	FilterPast  Filter = "PAST"
)

// PatientDirectory is the patient registry surface the admission flow needs.
// The concrete implementation lives in the patient package and is adapted in
// at wiring time.
type PatientDirectory interface {
	// Upsert resolves a patient by email (case-insensitive): absent
	// creates, present updates demographics, forceNew always creates.
	Upsert(ctx context.Context, details AdmitPatient, forceNew bool) (PatientInfo, error)
}

// AdmitPatient carries the demographics submitted at the front desk.
type AdmitPatient struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Age     int    `json:"age"`
	Gender  string `json:"gender"`
	Address string `json:"address"`
}

// AdmitQueue carries the queue fields for the new entry.
type AdmitQueue struct {
	ArrivalTime string     `json:"arrivalTime"` // HH:MM, anchored to today
	QueueType   QueueType  `json:"queueType"`
	DoctorID    *uuid.UUID `json:"doctorId"`
}

// AdmitRequest is the full admission payload.
type AdmitRequest struct {
	Patient         AdmitPatient `json:"patient"`
	ForceNewPatient bool         `json:"forceNewPatient"`
	Queue           AdmitQueue   `json:"queue"`
}

// UpdateRequest carries the mutable fields of a PATCH. Nil means unchanged.
type UpdateRequest struct {
	Status    *Status    `json:"currentStatus"`
	QueueType *QueueType `json:"queueType"`
	DoctorID  *uuid.UUID `json:"doctorId"`
}

type Service struct {
	repo      Repository
	patients  PatientDirectory
	engine    Engine
	publisher websocket.EventPublisher
}

func NewService(repo Repository, patients PatientDirectory, avgConsult time.Duration) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		engine:   NewEngine(avgConsult),
	}
}

// SetPublisher attaches an optional live-update publisher.
func (s *Service) SetPublisher(p websocket.EventPublisher) {
	s.publisher = p
}

// AddToQueue admits a walk-in patient: the patient record is upserted and a
// WAITING entry inserted, both inside one transaction so an entry failure
// never leaves a half-applied patient update behind.
func (s *Service) AddToQueue(ctx context.Context, req AdmitRequest, asOf time.Time) (*Entry, error) {
	if strings.TrimSpace(req.Patient.Name) == "" {
		return nil, fmt.Errorf("%w: patient name is required", ErrValidation)
	}
	if strings.TrimSpace(req.Patient.Email) == "" {
		return nil, fmt.Errorf("%w: patient email is required", ErrValidation)
	}
	if req.Queue.QueueType == "" {
		req.Queue.QueueType = TypeNormal
	}
	if !req.Queue.QueueType.Valid() {
		return nil, fmt.Errorf("%w: unknown queue type %q", ErrValidation, req.Queue.QueueType)
	}
	arrival, err := CombineDayTime(asOf, req.Queue.ArrivalTime)
	if err != nil {
		return nil, err
	}

	var entry *Entry
	err = s.repo.InTx(ctx, func(ctx context.Context) error {
		patient, err := s.patients.Upsert(ctx, req.Patient, req.ForceNewPatient)
		if err != nil {
			return fmt.Errorf("%w: patient upsert: %v", ErrPersistence, err)
		}
		entry = &Entry{
			PatientID:     patient.ID,
			DoctorID:      req.Queue.DoctorID,
			ArrivalTime:   arrival,
			CurrentStatus: StatusWaiting,
			QueueType:     req.Queue.QueueType,
		}
		if err := s.repo.Create(ctx, entry); err != nil {
			return fmt.Errorf("%w: queue entry insert: %v", ErrPersistence, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "queue.admitted", entry)
	return entry, nil
}

// List returns the ordered queue for the requested day bucket. TODAY entries
// are run through the triage engine so waiting patients with an assigned
// doctor carry a projected start time; PAST entries are returned newest
// first and never estimated.
func (s *Service) List(ctx context.Context, filter Filter, asOf time.Time) ([]ListItem, error) {
	dayStart, dayEnd := DayBounds(asOf)
	switch filter {
	case FilterToday, "":
		items, err := s.repo.ListDay(ctx, dayStart, dayEnd)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		return s.engine.Order(items, asOf), nil
	case FilterPast:
		items, err := s.repo.ListBefore(ctx, dayStart)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		return items, nil
	default:
		return nil, fmt.Errorf("%w: unknown filter %q", ErrValidation, filter)
	}
}

// UpdateEntry applies a status and/or queue-type change to one of today's
// entries. Moving a patient to WITH_DOCTOR runs the doctor-busy check and
// the write inside one transaction serialized per (doctor, day), so two
// concurrent assignments cannot both succeed.
func (s *Service) UpdateEntry(ctx context.Context, id uuid.UUID, req UpdateRequest, asOf time.Time) (*Entry, error) {
	if req.Status == nil && req.QueueType == nil && req.DoctorID == nil {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *req.Status)
	}
	if req.QueueType != nil && !req.QueueType.Valid() {
		return nil, fmt.Errorf("%w: unknown queue type %q", ErrValidation, *req.QueueType)
	}

	dayStart, dayEnd := DayBounds(asOf)

	var updated *Entry
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		entry, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		// Past days are read-only history.
		if entry.CreatedAt.Before(dayStart) || !entry.CreatedAt.Before(dayEnd) {
			return ErrNotFound
		}

		target := entry.CurrentStatus
		if req.Status != nil {
			target = *req.Status
		}
		if target != entry.CurrentStatus && !CanTransition(entry.CurrentStatus, target) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, entry.CurrentStatus, target)
		}
		if req.QueueType != nil && *req.QueueType != entry.QueueType && target != StatusWaiting {
			return fmt.Errorf("%w: queue type can only change while waiting", ErrInvalidTransition)
		}

		if req.DoctorID != nil {
			entry.DoctorID = req.DoctorID
		}
		if req.QueueType != nil {
			entry.QueueType = *req.QueueType
		}

		if target == StatusWithDoctor && entry.DoctorID != nil {
			if err := s.repo.LockDoctorDay(ctx, *entry.DoctorID, dayStart); err != nil {
				return fmt.Errorf("%w: %v", ErrPersistence, err)
			}
			busy, err := s.repo.DoctorBusy(ctx, *entry.DoctorID, dayStart, dayEnd, entry.ID)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrPersistence, err)
			}
			if busy {
				return ErrDoctorBusy
			}
		}

		entry.CurrentStatus = target
		if err := s.repo.Update(ctx, entry); err != nil {
			return err
		}
		updated, err = s.repo.GetByID(ctx, entry.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "queue.updated", updated)
	return updated, nil
}

// Remove deletes an entry from the queue. Removal is terminal; there is no
// undo and no further transition.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) error {
	entry, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, "queue.removed", entry)
	return nil
}

// Stats returns today's advisory counts. The four numbers are independent
// queries, not a consistent snapshot.
func (s *Service) Stats(ctx context.Context, asOf time.Time) (Stats, error) {
	dayStart, dayEnd := DayBounds(asOf)
	stats, err := s.repo.Stats(ctx, dayStart, dayEnd)
	if err != nil {
		return Stats{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return stats, nil
}

// publish pushes a best-effort live update to connected displays. Delivery
// failures never fail the write that triggered them.
func (s *Service) publish(ctx context.Context, eventType string, entry *Entry) {
	if s.publisher == nil || entry == nil {
		return
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	event := websocket.Event{
		Type:      eventType,
		Topic:     "queue",
		EntryID:   entry.ID.String(),
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
	_ = s.publisher.Publish(ctx, event)
	if entry.DoctorID != nil {
		event.Topic = "doctor/" + entry.DoctorID.String()
		_ = s.publisher.Publish(ctx, event)
	}
}
