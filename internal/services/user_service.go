package services

import (
	"context"
	"errors"
	"fmt"

	"blog/internal/models"
	"blog/internal/repositories"
)

// UserService exposes user accounts scoped by the caller's privileges.
type UserService struct {
	users repositories.UserRepository
	auth  *AuthService
}

// NewUserService creates a new UserService.
func NewUserService(users repositories.UserRepository, auth *AuthService) *UserService {
	return &UserService{
		users: users,
		auth:  auth,
	}
}

// List returns every user for superusers and only the caller otherwise.
func (s *UserService) List(ctx context.Context, actor *models.User) ([]models.User, error) {
	scope, err := authorize(OpUserList, actor)
	if err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Retrieve returns the user with id if the caller may see it.
func (s *UserService) Retrieve(ctx context.Context, actor *models.User, id uint) (*models.User, error) {
	scope, err := authorize(OpUserRetrieve, actor)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, scope, id)
}

// Create registers a new account; it needs no caller.
func (s *UserService) Create(ctx context.Context, in AccountInput) (*models.User, error) {
	return s.auth.Register(ctx, in)
}

// Update replaces the editable fields of the user with id. Every field of
// in is applied, so omitted optional fields are cleared.
func (s *UserService) Update(ctx context.Context, actor *models.User, id uint, in AccountInput) (*models.User, error) {
	scope, err := authorize(OpUserUpdate, actor)
	if err != nil {
		return nil, err
	}
	user, err := s.find(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if err := s.auth.validateAccount(ctx, in, user.ID); err != nil {
		return nil, err
	}
	hash, err := s.auth.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user.Username = in.Username
	user.Email = optional(in.Email)
	user.Password = hash
	user.FirstName = in.FirstName
	user.LastName = in.LastName
	if err := s.users.Update(ctx, user); err != nil {
		return nil, storeError(err, "failed to update user")
	}
	return user, nil
}

func (s *UserService) find(ctx context.Context, scope repositories.Scope, id uint) (*models.User, error) {
	user, err := s.users.Find(ctx, scope, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return user, nil
}
