package repository

import (
	"context"

	"challenges/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const SubscribersCollection = "subscribers"

type MongoSubscriberRepository struct {
	coll *mongo.Collection
}

func NewMongoSubscriberRepository(db *mongo.Database) *MongoSubscriberRepository {
	return &MongoSubscriberRepository{coll: db.Collection(SubscribersCollection)}
}

func (r *MongoSubscriberRepository) List(ctx context.Context) ([]*models.Subscriber, error) {
	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	subscribers := []*models.Subscriber{}
	if err := cursor.All(ctx, &subscribers); err != nil {
		return nil, err
	}
	return subscribers, nil
}
