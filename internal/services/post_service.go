package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"blog/internal/models"
	"blog/internal/repositories"
)

// PostInput carries client-supplied post fields. Nil fields were absent
// from the request. Any author sent by the client is not represented and
// therefore ignored.
type PostInput struct {
	Title     *string `json:"title" form:"title"`
	Content   *string `json:"content" form:"content"`
	Published *bool   `json:"published" form:"published"`
}

// postFields is the validated shape of a post after input is applied.
type postFields struct {
	Title   string `json:"title" validate:"required,max=50"`
	Content string `json:"content" validate:"required"`
}

// PostService handles post CRUD restricted to the post's author.
type PostService struct {
	posts  repositories.PostRepository
	events EventPublisher
}

// NewPostService creates a new PostService. events may be nil.
func NewPostService(posts repositories.PostRepository, events EventPublisher) *PostService {
	return &PostService{
		posts:  posts,
		events: events,
	}
}

// List returns the caller's posts.
func (s *PostService) List(ctx context.Context, actor *models.User) ([]models.Post, error) {
	scope, err := authorize(OpPostList, actor)
	if err != nil {
		return nil, err
	}
	posts, err := s.posts.List(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// Retrieve returns the post with id if the caller wrote it.
func (s *PostService) Retrieve(ctx context.Context, actor *models.User, id uint) (*models.Post, error) {
	scope, err := authorize(OpPostRetrieve, actor)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, scope, id)
}

// Create stores a new post authored by the caller.
func (s *PostService) Create(ctx context.Context, actor *models.User, in PostInput) (*models.Post, error) {
	if _, err := authorize(OpPostCreate, actor); err != nil {
		return nil, err
	}
	post := &models.Post{AuthorID: actor.ID}
	if err := apply(post, in, false); err != nil {
		return nil, err
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, storeError(err, "failed to create post")
	}
	publish(s.events, EventPostCreated, PostEvent{PostID: post.ID, AuthorID: post.AuthorID, Title: post.Title})
	return post, nil
}

// Update replaces title and content of the post with id. Published keeps
// its value when omitted.
func (s *PostService) Update(ctx context.Context, actor *models.User, id uint, in PostInput) (*models.Post, error) {
	return s.update(ctx, OpPostUpdate, actor, id, in, false)
}

// PartialUpdate changes only the fields present in in.
func (s *PostService) PartialUpdate(ctx context.Context, actor *models.User, id uint, in PostInput) (*models.Post, error) {
	return s.update(ctx, OpPostPartialUpdate, actor, id, in, true)
}

// Delete removes the post with id if the caller wrote it.
func (s *PostService) Delete(ctx context.Context, actor *models.User, id uint) error {
	scope, err := authorize(OpPostDestroy, actor)
	if err != nil {
		return err
	}
	if err := s.posts.Delete(ctx, scope, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete post %d: %w", id, err)
	}
	publish(s.events, EventPostDeleted, PostEvent{PostID: id, AuthorID: actor.ID})
	return nil
}

func (s *PostService) update(ctx context.Context, op Operation, actor *models.User, id uint, in PostInput, partial bool) (*models.Post, error) {
	scope, err := authorize(op, actor)
	if err != nil {
		return nil, err
	}
	post, err := s.find(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if err := apply(post, in, partial); err != nil {
		return nil, err
	}
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, storeError(err, "failed to update post")
	}
	publish(s.events, EventPostUpdated, PostEvent{PostID: post.ID, AuthorID: post.AuthorID, Title: post.Title})
	return post, nil
}

func (s *PostService) find(ctx context.Context, scope repositories.Scope, id uint) (*models.Post, error) {
	post, err := s.posts.Find(ctx, scope, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get post %d: %w", id, err)
	}
	return post, nil
}

// apply trims and validates in and copies it onto post. When partial is
// false, title and content must be present.
func apply(post *models.Post, in PostInput, partial bool) error {
	fields := postFields{}
	if partial {
		fields = postFields{Title: post.Title, Content: post.Content}
	}
	if in.Title != nil {
		fields.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		fields.Content = strings.TrimSpace(*in.Content)
	}

	verr := &ValidationError{}
	if err := validateStruct(fields, verr); err != nil {
		return err
	}
	if err := verr.orNil(); err != nil {
		return err
	}

	post.Title = fields.Title
	post.Content = fields.Content
	if in.Published != nil {
		post.Published = *in.Published
	}
	return nil
}
