package staff

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clinidesk/clinidesk/internal/platform/auth"
)

type mockRepo struct {
	users map[uuid.UUID]*User
}

func newMockRepo() *mockRepo {
	return &mockRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockRepo) Create(_ context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now()
	u.UpdatedAt = time.Now()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*User, int, error) {
	var result []*User
	for _, u := range m.users {
		result = append(result, u)
	}
	return result, len(result), nil
}

var testSecret = []byte("test-secret-at-least-32-bytes-long")

func seedUser(t *testing.T, svc *Service, role string) *User {
	t.Helper()
	user, err := svc.CreateUser(context.Background(), CreateRequest{
		Name:     "Front Desk",
		Email:    "desk@clinic.example",
		Password: "correct horse battery",
		Role:     role,
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

func TestLogin(t *testing.T) {
	svc := NewService(newMockRepo(), testSecret, time.Hour)
	seedUser(t, svc, auth.RoleStaff)

	token, user, err := svc.Login(context.Background(), LoginRequest{
		Email:    "DESK@clinic.example",
		Password: "correct horse battery",
		Role:     auth.RoleStaff,
	})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token == "" {
		t.Error("expected a token")
	}
	if user.Role != auth.RoleStaff {
		t.Errorf("got role %q", user.Role)
	}

	claims, err := auth.ParseToken(testSecret, token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.Role != auth.RoleStaff || claims.Subject != user.ID.String() {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestLoginRejections(t *testing.T) {
	svc := NewService(newMockRepo(), testSecret, time.Hour)
	seedUser(t, svc, auth.RoleStaff)

	cases := []struct {
		name string
		req  LoginRequest
	}{
		{"wrong password", LoginRequest{Email: "desk@clinic.example", Password: "nope", Role: auth.RoleStaff}},
		{"unknown email", LoginRequest{Email: "ghost@clinic.example", Password: "correct horse battery", Role: auth.RoleStaff}},
		{"role mismatch", LoginRequest{Email: "desk@clinic.example", Password: "correct horse battery", Role: auth.RoleAdmin}},
		{"empty password", LoginRequest{Email: "desk@clinic.example"}},
	}
	for _, tc := range cases {
		if _, _, err := svc.Login(context.Background(), tc.req); !errors.Is(err, ErrBadCredentials) {
			t.Errorf("%s: expected ErrBadCredentials, got %v", tc.name, err)
		}
	}
}

func TestCreateUserValidation(t *testing.T) {
	svc := NewService(newMockRepo(), testSecret, time.Hour)

	cases := []struct {
		name string
		req  CreateRequest
	}{
		{"missing name", CreateRequest{Email: "a@b.c", Password: "long enough pw", Role: auth.RoleStaff}},
		{"missing email", CreateRequest{Name: "A", Password: "long enough pw", Role: auth.RoleStaff}},
		{"short password", CreateRequest{Name: "A", Email: "a@b.c", Password: "short", Role: auth.RoleStaff}},
		{"bad role", CreateRequest{Name: "A", Email: "a@b.c", Password: "long enough pw", Role: "DOCTOR"}},
	}
	for _, tc := range cases {
		if _, err := svc.CreateUser(context.Background(), tc.req); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestCreateUserHashesPassword(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, testSecret, time.Hour)
	user := seedUser(t, svc, auth.RoleAdmin)

	stored := repo.users[user.ID]
	if stored.PasswordHash == "correct horse battery" {
		t.Fatal("password stored in the clear")
	}
	if !strings.HasPrefix(stored.PasswordHash, "$2") {
		t.Errorf("expected a bcrypt hash, got %q", stored.PasswordHash)
	}
}
