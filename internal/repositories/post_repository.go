package repositories

import (
	"context"

	"blog/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data access. Every read
// and delete is restricted by a Scope.
type PostRepository interface {
	List(ctx context.Context, scope Scope) ([]models.Post, error)
	Find(ctx context.Context, scope Scope, id uint) (*models.Post, error)
	Create(ctx context.Context, post *models.Post) error
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, scope Scope, id uint) error
}

// GORMPostRepository is a GORM implementation of PostRepository.
type GORMPostRepository struct {
	db *gorm.DB
}

// NewGORMPostRepository creates a new instance of GORMPostRepository.
func NewGORMPostRepository(db *gorm.DB) *GORMPostRepository {
	return &GORMPostRepository{db: db}
}

// List returns the posts visible within scope, ordered by ID.
func (r *GORMPostRepository) List(ctx context.Context, scope Scope) ([]models.Post, error) {
	var posts []models.Post
	if err := scope.apply(r.db.WithContext(ctx), "author_id").Order("id").Find(&posts).Error; err != nil {
		return nil, translate(err, "failed to list posts")
	}
	return posts, nil
}

// Find retrieves a post by ID, provided it is visible within scope.
func (r *GORMPostRepository) Find(ctx context.Context, scope Scope, id uint) (*models.Post, error) {
	var post models.Post
	if err := scope.apply(r.db.WithContext(ctx), "author_id").First(&post, "id = ?", id).Error; err != nil {
		return nil, translate(err, "post with ID %d", id)
	}
	return &post, nil
}

// Create inserts post; timestamps are assigned by GORM.
func (r *GORMPostRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit("Author").Create(post).Error; err != nil {
		return translate(err, "failed to create post")
	}
	return nil
}

// Update writes the editable columns of post and refreshes UpdatedAt.
// The author column is never written.
func (r *GORMPostRepository) Update(ctx context.Context, post *models.Post) error {
	res := r.db.WithContext(ctx).Model(post).
		Select("Title", "Content", "Published").
		Updates(post)
	if res.Error != nil {
		return translate(res.Error, "failed to update post %d", post.ID)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "post with ID %d not found for update", post.ID)
	}
	return nil
}

// Delete removes a post by ID, provided it is visible within scope.
func (r *GORMPostRepository) Delete(ctx context.Context, scope Scope, id uint) error {
	res := scope.apply(r.db.WithContext(ctx), "author_id").Delete(&models.Post{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, "failed to delete post %d", id)
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "post with ID %d not found for deletion", id)
	}
	return nil
}
