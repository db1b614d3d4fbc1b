package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*Patient, error) {
	if strings.TrimSpace(email) == "" {
		return nil, fmt.Errorf("email is required")
	}
	return s.repo.GetByEmail(ctx, email)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Upsert resolves a patient by email. Absent creates a record; present
// refreshes the demographics with the submitted details; forceNew always
// creates, deliberately allowing duplicate emails for households sharing an
// address.
func (s *Service) Upsert(ctx context.Context, details Details, forceNew bool) (*Patient, error) {
	if details.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if details.Email == "" {
		return nil, fmt.Errorf("email is required")
	}

	if !forceNew {
		existing, err := s.repo.GetByEmail(ctx, details.Email)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if existing != nil {
			apply(existing, details)
			if err := s.repo.Update(ctx, existing); err != nil {
				return nil, err
			}
			return existing, nil
		}
	}

	p := &Patient{}
	apply(p, details)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func apply(p *Patient, details Details) {
	p.Name = details.Name
	p.Email = details.Email
	p.Phone = details.Phone
	p.Age = details.Age
	p.Gender = details.Gender
	p.Address = details.Address
}
