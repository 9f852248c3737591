package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/folio-share/internal/models"
	"github.com/folio-share/internal/types"
)

// UserRepository interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// UserService handles account registration and lookup
type UserService struct {
	userRepo UserRepository
}

// NewUserService creates a new user service
func NewUserService(userRepo UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// CreateUserInput represents input for registering a user
type CreateUserInput struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// CreateUser registers a new account. Email addresses are unique.
func (s *UserService) CreateUser(ctx context.Context, input *CreateUserInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, types.NewServiceError(types.ErrCodeInvalidInput, "a valid email is required")
	}
	if input.Name == "" {
		return nil, types.NewServiceError(types.ErrCodeInvalidInput, "name is required")
	}

	if existing, err := s.userRepo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, &types.ServiceError{
			Code:    types.ErrCodeInvalidInput,
			Message: fmt.Sprintf("email already registered: %s", email),
		}
	}

	user := &models.User{
		Email: email,
		Name:  input.Name,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}
