package repositories

import (
	"context"

	"blog/internal/models"

	"gorm.io/gorm"
)

// TokenRepository defines the interface for bearer token storage.
type TokenRepository interface {
	// GetByKey returns the token with its owner preloaded.
	GetByKey(ctx context.Context, key string) (*models.Token, error)
	GetByUserID(ctx context.Context, userID uint) (*models.Token, error)
	Create(ctx context.Context, token *models.Token) error
	Delete(ctx context.Context, key string) error
}

// GORMTokenRepository is a GORM implementation of TokenRepository.
type GORMTokenRepository struct {
	db *gorm.DB
}

// NewGORMTokenRepository creates a new instance of GORMTokenRepository.
func NewGORMTokenRepository(db *gorm.DB) *GORMTokenRepository {
	return &GORMTokenRepository{db: db}
}

// GetByKey matches with a struct condition so the column name is quoted
// per dialect ("key" is reserved in MySQL).
func (r *GORMTokenRepository) GetByKey(ctx context.Context, key string) (*models.Token, error) {
	if key == "" {
		return nil, translate(gorm.ErrRecordNotFound, "token")
	}
	var token models.Token
	if err := r.db.WithContext(ctx).Preload("User").Where(&models.Token{Key: key}).First(&token).Error; err != nil {
		return nil, translate(err, "token")
	}
	return &token, nil
}

func (r *GORMTokenRepository) GetByUserID(ctx context.Context, userID uint) (*models.Token, error) {
	var token models.Token
	if err := r.db.WithContext(ctx).First(&token, "user_id = ?", userID).Error; err != nil {
		return nil, translate(err, "token for user %d", userID)
	}
	return &token, nil
}

func (r *GORMTokenRepository) Create(ctx context.Context, token *models.Token) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(token).Error; err != nil {
		return translate(err, "failed to create token for user %d", token.UserID)
	}
	return nil
}

func (r *GORMTokenRepository) Delete(ctx context.Context, key string) error {
	if key == "" {
		return translate(gorm.ErrRecordNotFound, "token not found for deletion")
	}
	res := r.db.WithContext(ctx).Where(&models.Token{Key: key}).Delete(&models.Token{})
	if res.Error != nil {
		return translate(res.Error, "failed to delete token")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "token not found for deletion")
	}
	return nil
}
