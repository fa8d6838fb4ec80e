package repository

import (
	"context"
	"slices"
	"time"

	"challenges/models"

	"github.com/dgraph-io/badger/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BadgerPostRepository keeps posts in an embedded BadgerDB. Keys embed the
// ObjectID hex, so key order is creation order.
type BadgerPostRepository struct {
	db *badger.DB
}

func NewBadgerPostRepository(db *badger.DB) *BadgerPostRepository {
	return &BadgerPostRepository{db: db}
}

func postKey(id string) []byte {
	return []byte(PostKeyPrefix + id)
}

func (r *BadgerPostRepository) Create(ctx context.Context, post *models.Post) error {
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return setEntity(txn, postKey(post.ID.Hex()), post)
	})
}

func (r *BadgerPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, postKey(id), &post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *BadgerPostRepository) List(ctx context.Context) ([]*models.Post, error) {
	posts := []*models.Post{}
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(PostKeyPrefix)
		seek := append([]byte(PostKeyPrefix), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			var post models.Post
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &post)
			})
			if err != nil {
				return err
			}
			posts = append(posts, &post)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *BadgerPostRepository) Update(ctx context.Context, id string, patch *models.PostPatch) (*models.Post, error) {
	return r.mutate(id, func(post *models.Post) {
		patch.Apply(post)
	})
}

func (r *BadgerPostRepository) Delete(ctx context.Context, id string) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key := postKey(id)

		// Verify post exists
		_, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		return txn.Delete(key)
	})
}

func (r *BadgerPostRepository) ToggleLike(ctx context.Context, id, userID string) (*models.Post, error) {
	return r.mutate(id, func(post *models.Post) {
		if i := slices.Index(post.Likes, userID); i >= 0 {
			post.Likes = slices.Delete(post.Likes, i, i+1)
			return
		}
		post.Likes = append(post.Likes, userID)
	})
}

func (r *BadgerPostRepository) AppendComment(ctx context.Context, id string, comment models.Comment) (*models.Post, error) {
	return r.mutate(id, func(post *models.Post) {
		post.Comment = append(post.Comment, comment)
	})
}

// mutate is a read-modify-write inside one transaction; badger aborts it
// with ErrConflict if another writer got there first, and it is retried.
func (r *BadgerPostRepository) mutate(id string, fn func(post *models.Post)) (*models.Post, error) {
	var post models.Post
	err := updateWithRetry(r.db, func(txn *badger.Txn) error {
		post = models.Post{}
		key := postKey(id)
		if err := getEntity(txn, key, &post); err != nil {
			return err
		}
		fn(&post)
		post.UpdatedAt = time.Now().UTC()
		return setEntity(txn, key, &post)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}
