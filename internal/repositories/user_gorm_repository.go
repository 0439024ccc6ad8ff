package repositories

import (
	"context"
	"time"

	"blog/internal/models"

	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return translate(err, "failed to create user %s", user.Username)
	}
	return nil
}

// Update writes every client-editable column of user. Flags and
// timestamps are left untouched.
func (r *GORMUserRepository) Update(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).Model(user).
		Select("Username", "Email", "Password", "FirstName", "LastName").
		Updates(user).Error
	return translate(err, "failed to update user %d", user.ID)
}

// GetByUsername retrieves a user by exact username match.
func (r *GORMUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		return nil, translate(err, "user with username %s", username)
	}
	return &user, nil
}

// EmailTaken reports whether a user other than excludeID already uses email.
func (r *GORMUserRepository) EmailTaken(ctx context.Context, email string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, translate(err, "failed to check email %s", email)
	}
	return count > 0, nil
}

// List returns the users visible within scope, ordered by ID.
func (r *GORMUserRepository) List(ctx context.Context, scope Scope) ([]models.User, error) {
	var users []models.User
	if err := scope.apply(r.db.WithContext(ctx), "id").Order("id").Find(&users).Error; err != nil {
		return nil, translate(err, "failed to list users")
	}
	return users, nil
}

// Find retrieves a user by ID, provided it is visible within scope.
func (r *GORMUserRepository) Find(ctx context.Context, scope Scope, id uint) (*models.User, error) {
	var user models.User
	if err := scope.apply(r.db.WithContext(ctx), "id").First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, "user with ID %d", id)
	}
	return &user, nil
}

// TouchLastLogin stamps the user's last login time.
func (r *GORMUserRepository) TouchLastLogin(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Update("last_login", time.Now()).Error
	return translate(err, "failed to record login for user %d", id)
}
