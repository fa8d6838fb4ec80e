package repository

import (
	"context"
	"errors"

	"challenges/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// PostRepository stores post documents. Implementations must make
// ToggleLike and AppendComment atomic per post.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	// List returns every post, newest first.
	List(ctx context.Context) ([]*models.Post, error)
	Update(ctx context.Context, id string, patch *models.PostPatch) (*models.Post, error)
	Delete(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, id, userID string) (*models.Post, error)
	AppendComment(ctx context.Context, id string, comment models.Comment) (*models.Post, error)
}

type SubscriberRepository interface {
	List(ctx context.Context) ([]*models.Subscriber, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
