package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"challenges/models"

	"github.com/dgraph-io/badger/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BadgerUserRepository struct {
	db *badger.DB
}

func NewBadgerUserRepository(db *badger.DB) *BadgerUserRepository {
	return &BadgerUserRepository{db: db}
}

// userRecord keeps the password hash that models.User hides from JSON.
type userRecord struct {
	ID           primitive.ObjectID `json:"id"`
	Email        string             `json:"email"`
	PasswordHash string             `json:"passwordHash"`
	Role         string             `json:"role"`
	CreatedAt    time.Time          `json:"createdAt"`
}

func userKey(email string) []byte {
	return []byte(UserKeyPrefix + strings.ToLower(email))
}

func (r *BadgerUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	user.Email = strings.ToLower(user.Email)

	return updateWithRetry(r.db, func(txn *badger.Txn) error {
		key := userKey(user.Email)
		_, err := txn.Get(key)
		if err == nil {
			return ErrDuplicate
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return setEntity(txn, key, &userRecord{
			ID:           user.ID,
			Email:        user.Email,
			PasswordHash: user.PasswordHash,
			Role:         user.Role,
			CreatedAt:    user.CreatedAt,
		})
	})
}

func (r *BadgerUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var rec userRecord
	err := r.db.View(func(txn *badger.Txn) error {
		return getEntity(txn, userKey(email), &rec)
	})
	if err != nil {
		return nil, err
	}
	return &models.User{
		ID:           rec.ID,
		Email:        rec.Email,
		PasswordHash: rec.PasswordHash,
		Role:         rec.Role,
		CreatedAt:    rec.CreatedAt,
	}, nil
}
