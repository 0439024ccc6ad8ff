package repositories

import (
	"context"

	"blog/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error)
	List(ctx context.Context, scope Scope) ([]models.User, error)
	Find(ctx context.Context, scope Scope, id uint) (*models.User, error)
	TouchLastLogin(ctx context.Context, id uint) error
}
