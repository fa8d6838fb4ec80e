package repository

import (
	"context"
	"strings"

	"challenges/models"

	"github.com/dgraph-io/badger/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BadgerSubscriberRepository struct {
	db *badger.DB
}

func NewBadgerSubscriberRepository(db *badger.DB) *BadgerSubscriberRepository {
	return &BadgerSubscriberRepository{db: db}
}

func (r *BadgerSubscriberRepository) List(ctx context.Context) ([]*models.Subscriber, error) {
	subscribers := []*models.Subscriber{}
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(SubscriberKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var sub models.Subscriber
			err := it.Item().Value(func(val []byte) error {
				return unmarshalEntity(val, &sub)
			})
			if err != nil {
				return err
			}
			subscribers = append(subscribers, &sub)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return subscribers, nil
}

// Add registers an address; it is how the embedded store gets seeded.
// Adding an existing address is a no-op.
func (r *BadgerSubscriberRepository) Add(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	key := []byte(SubscriberKeyPrefix + email)
	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return nil
		}
		return setEntity(txn, key, &models.Subscriber{ID: primitive.NewObjectID(), Email: email})
	})
}
