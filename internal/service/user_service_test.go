package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/folio-share/internal/models"
	"github.com/folio-share/internal/types"
)

type mockUserRepo struct {
	users map[string]*models.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*models.User)}
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = fmt.Sprintf("test-user-id-%d", len(m.users)+1)
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, types.NewServiceError(types.ErrCodeUserNotFound, "user not found")
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, types.NewServiceError(types.ErrCodeUserNotFound, "user not found")
}

func TestCreateUser(t *testing.T) {
	svc := NewUserService(newMockUserRepo())

	user, err := svc.CreateUser(context.Background(), &CreateUserInput{
		Email: " Alice@Example.com ",
		Name:  "Alice",
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if user.Email != "alice@example.com" {
		t.Errorf("Expected normalized email, got %q", user.Email)
	}
	if user.ID == "" {
		t.Error("Expected user ID to be set")
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	svc := NewUserService(newMockUserRepo())
	ctx := context.Background()

	if _, err := svc.CreateUser(ctx, &CreateUserInput{Email: "a@b.com", Name: "A"}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	_, err := svc.CreateUser(ctx, &CreateUserInput{Email: "A@B.com", Name: "B"})
	if code := serviceErrCode(t, err); code != types.ErrCodeInvalidInput {
		t.Errorf("Expected INVALID_INPUT for duplicate email, got %s", code)
	}
}

func TestCreateUser_Validation(t *testing.T) {
	svc := NewUserService(newMockUserRepo())
	ctx := context.Background()

	for _, tc := range []CreateUserInput{
		{Email: "", Name: "A"},
		{Email: "not-an-email", Name: "A"},
		{Email: "a@b.com", Name: ""},
	} {
		if _, err := svc.CreateUser(ctx, &tc); err == nil {
			t.Errorf("Expected validation error for %+v", tc)
		}
	}
}

func TestGetUser_NotFound(t *testing.T) {
	svc := NewUserService(newMockUserRepo())

	_, err := svc.GetUser(context.Background(), "missing")
	if code := serviceErrCode(t, err); code != types.ErrCodeUserNotFound {
		t.Errorf("Expected USER_NOT_FOUND, got %s", code)
	}
}
