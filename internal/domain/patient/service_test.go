package patient

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*Patient, error) {
	for _, p := range m.patients {
		if strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	stored, ok := m.patients[p.ID]
	if !ok {
		return ErrNotFound
	}
	*stored = *p
	stored.UpdatedAt = time.Now()
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		result = append(result, p)
	}
	return result, len(result), nil
}

func TestUpsertCreatesWhenAbsent(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	p, err := svc.Upsert(context.Background(), Details{Name: "Jane Roe", Email: "jane@example.com", Age: 34, Gender: "FEMALE"}, false)
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected assigned id")
	}
	if len(repo.patients) != 1 {
		t.Fatalf("expected one record, got %d", len(repo.patients))
	}
}

func TestUpsertUpdatesExistingCaseInsensitive(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	first, err := svc.Upsert(context.Background(), Details{Name: "Jane Roe", Email: "Jane@Example.com", Age: 34, Gender: "FEMALE"}, false)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Upsert(context.Background(), Details{Name: "Jane R. Roe", Email: "jane@example.com", Age: 35, Gender: "FEMALE"}, false)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Fatal("same email must resolve to the same record regardless of case")
	}
	if len(repo.patients) != 1 {
		t.Fatalf("expected one record, got %d", len(repo.patients))
	}
	if stored := repo.patients[first.ID]; stored.Name != "Jane R. Roe" || stored.Age != 35 {
		t.Errorf("demographics not refreshed: %+v", stored)
	}
}

func TestUpsertForceNewCreatesDuplicate(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	first, err := svc.Upsert(context.Background(), Details{Name: "Jane Roe", Email: "jane@example.com"}, false)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Upsert(context.Background(), Details{Name: "Jane Roe Jr", Email: "jane@example.com"}, true)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID == first.ID {
		t.Fatal("forceNew must create a distinct record")
	}
	if len(repo.patients) != 2 {
		t.Fatalf("expected two records, got %d", len(repo.patients))
	}
}

func TestUpsertValidation(t *testing.T) {
	svc := NewService(newMockRepo())

	if _, err := svc.Upsert(context.Background(), Details{Email: "jane@example.com"}, false); err == nil {
		t.Error("missing name must be rejected")
	}
	if _, err := svc.Upsert(context.Background(), Details{Name: "Jane"}, false); err == nil {
		t.Error("missing email must be rejected")
	}
}

func TestFindByEmail(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	if _, err := svc.Upsert(context.Background(), Details{Name: "Jane Roe", Email: "jane@example.com"}, false); err != nil {
		t.Fatal(err)
	}

	p, err := svc.FindByEmail(context.Background(), "JANE@EXAMPLE.COM")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if p.Name != "Jane Roe" {
		t.Errorf("got %q", p.Name)
	}

	if _, err := svc.FindByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.FindByEmail(context.Background(), "  "); err == nil {
		t.Error("blank email must be rejected")
	}
}
