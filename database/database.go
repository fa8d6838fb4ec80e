package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"challenges/config"
	"challenges/models"
	"challenges/repository"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

const connectAttempts = 3

// Stores bundles the repositories of whichever backend was configured.
type Stores struct {
	Posts       repository.PostRepository
	Subscribers repository.SubscriberRepository
	Users       repository.UserRepository

	close func() error
}

func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open connects to the configured backend.
func Open(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.StoreDriver {
	case config.DriverBadger:
		db, err := OpenBadger(cfg.BadgerPath)
		if err != nil {
			return nil, err
		}
		if err := SeedSubscribers(ctx, db, cfg.SeedSubscribers); err != nil {
			db.Close()
			return nil, err
		}
		return NewBadgerStores(db), nil
	default:
		client, err := connectWithRetry(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.MongoDatabase)
		if err := EnsureIndexes(ctx, db); err != nil {
			DisconnectMongo(client)
			return nil, err
		}
		return &Stores{
			Posts:       repository.NewMongoPostRepository(db),
			Subscribers: repository.NewMongoSubscriberRepository(db),
			Users:       repository.NewMongoUserRepository(db),
			close: func() error {
				return DisconnectMongo(client)
			},
		}, nil
	}
}

// NewBadgerStores wraps an open badger database. Closing the stores closes db.
func NewBadgerStores(db *badger.DB) *Stores {
	return &Stores{
		Posts:       repository.NewBadgerPostRepository(db),
		Subscribers: repository.NewBadgerSubscriberRepository(db),
		Users:       repository.NewBadgerUserRepository(db),
		close:       db.Close,
	}
}

func connectWithRetry(ctx context.Context, uri string) (*mongo.Client, error) {
	var lastErr error
	for i := 1; i <= connectAttempts; i++ {
		client, err := ConnectMongo(ctx, uri)
		if err == nil {
			return client, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", i).Msg("MongoDB connection attempt failed")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return nil, fmt.Errorf("failed to connect to MongoDB after %d attempts: %w", connectAttempts, lastErr)
}

func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// Ping MongoDB
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	log.Info().Msg("Connected to MongoDB successfully")
	return client, nil
}

// EnsureIndexes creates the unique email indexes the user and subscriber
// repositories depend on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	unique := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	for _, name := range []string{repository.UsersCollection, repository.SubscribersCollection} {
		if _, err := db.Collection(name).Indexes().CreateOne(ctx, unique); err != nil {
			return fmt.Errorf("failed to create email index on %s: %w", name, err)
		}
	}
	return nil
}

func DisconnectMongo(client *mongo.Client) error {
	if client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		return err
	}

	log.Info().Msg("Disconnected from MongoDB")
	return nil
}

// OpenBadger opens the embedded store; an empty path keeps it in memory.
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", path, err)
	}
	log.Info().Str("path", path).Msg("Opened badger store")
	return db, nil
}

// SeedSubscribers adds emails to the embedded subscriber list.
func SeedSubscribers(ctx context.Context, db *badger.DB, emails []string) error {
	repo := repository.NewBadgerSubscriberRepository(db)
	for _, email := range emails {
		if err := repo.Add(ctx, email); err != nil {
			return fmt.Errorf("failed to seed subscriber %q: %w", email, err)
		}
	}
	if len(emails) > 0 {
		log.Info().Int("count", len(emails)).Msg("Seeded subscribers")
	}
	return nil
}

// BootstrapAdmin creates an admin account from a precomputed bcrypt hash.
// An existing account with that email is left alone.
func BootstrapAdmin(ctx context.Context, users repository.UserRepository, email, passwordHash string) error {
	if email == "" {
		return nil
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return fmt.Errorf("invalid admin password hash: %w", err)
	}

	err := users.Create(ctx, &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		Role:         models.RoleAdmin,
		CreatedAt:    time.Now().UTC(),
	})
	if errors.Is(err, repository.ErrDuplicate) {
		log.Debug().Str("email", email).Msg("Admin account already exists")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create admin account: %w", err)
	}
	log.Info().Str("email", email).Msg("Created admin account")
	return nil
}

