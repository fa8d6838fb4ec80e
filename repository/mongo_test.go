package repository

import (
	"context"
	"testing"
	"time"

	"challenges/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func toDoc(t *testing.T, v any) bson.D {
	t.Helper()
	data, err := bson.Marshal(v)
	require.NoError(t, err)
	var doc bson.D
	require.NoError(t, bson.Unmarshal(data, &doc))
	return doc
}

func storedPost(t *testing.T, mutate func(*models.Post)) *models.Post {
	t.Helper()
	post := newBlogPost("Stored")
	post.ID = primitive.NewObjectID()
	post.CreatedAt = post.CreatedAt.Truncate(time.Millisecond)
	post.UpdatedAt = post.CreatedAt
	if mutate != nil {
		mutate(post)
	}
	return post
}

func TestMongoPostRepository(t *testing.T) {
	ctx := context.Background()
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create assigns id", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		post := newBlogPost("Fresh")
		require.NoError(mt, repo.Create(ctx, post))
		assert.False(mt, post.ID.IsZero())

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "insert", started.CommandName)
		assert.Equal(mt, PostsCollection, started.Command.Lookup("insert").StringValue())
	})

	mt.Run("get by id", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB)
		post := storedPost(t, nil)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.blogs", mtest.FirstBatch, toDoc(t, post)))

		got, err := repo.GetByID(ctx, post.ID.Hex())
		require.NoError(mt, err)
		assert.Equal(mt, post.ID, got.ID)
		assert.Equal(mt, "Stored", got.Title)

		started := mt.GetStartedEvent()
		assert.Equal(mt, post.ID, started.Command.Lookup("filter", "_id").ObjectID())
	})

	mt.Run("get missing", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.blogs", mtest.FirstBatch))

		_, err := repo.GetByID(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("malformed ids are not found", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB)

		_, err := repo.GetByID(ctx, "not-an-id")
		assert.ErrorIs(mt, err, ErrNotFound)
		assert.ErrorIs(mt, repo.Delete(ctx, "not-an-id"), ErrNotFound)
		_, err = repo.ToggleLike(ctx, "not-an-id", "u1")
		assert.ErrorIs(mt, err, ErrNotFound)
		_, err = repo.AppendComment(ctx, "not-an-id", models.Comment{Author: "a", Content: "b"})
		assert.ErrorIs(mt, err, ErrNotFound)
		assert.Nil(mt, mt.GetStartedEvent())
	})

	mt.Run("list newest first", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB)
		newer := storedPost(t, nil)
		older := storedPost(t, func(p *models.Post) { p.Title = "Older" })
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.blogs", mtest.FirstBatch,
			toDoc(t, newer), toDoc(t, older)))

		posts, err := repo.List(ctx)
		require.NoError(mt, err)
		require.Len(mt, posts, 2)
		assert.Equal(mt, "Older", posts[1].Title)

		started := mt.GetStartedEvent()
		assert.Equal(mt, "find", started.CommandName)
		assert.Equal(mt, int64(-1), started.Command.Lookup("sort", "_id").AsInt64())
	})

	mt.Run("list empty", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.blogs", mtest.FirstBatch))

		posts, err := repo.List(ctx)
		require.NoError(mt, err)
		assert.NotNil(mt, posts)
		assert.Empty(mt, posts)
	})

	mt.Run("update sets only supplied fields", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB)
		post := storedPost(t, func(p *models.Post) { p.Title = "Renamed" })
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: toDoc(t, post)}))

		title := "Renamed"
		got, err := repo.Update(ctx, post.ID.Hex(), &models.PostPatch{Title: &title})
		require.NoError(mt, err)
		assert.Equal(mt, "Renamed", got.Title)

		cmd := mt.GetStartedEvent().Command
		assert.Equal(mt, post.ID, cmd.Lookup("query", "_id").ObjectID())
		assert.Equal(mt, "Renamed", cmd.Lookup("update", "$set", "title").StringValue())
		assert.Equal(mt, bson.TypeDateTime, cmd.Lookup("update", "$set", "updatedAt").Type)
		_, err = cmd.LookupErr("update", "$set", "headline")
		assert.Error(mt, err)
		assert.True(mt, cmd.Lookup("new").Boolean())
	})

	mt.Run("update missing", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		title := "Renamed"
		_, err := repo.Update(ctx, primitive.NewObjectID().Hex(), &models.PostPatch{Title: &title})
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("delete", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)

		id := primitive.NewObjectID().Hex()
		assert.NoError(mt, repo.Delete(ctx, id))
		assert.ErrorIs(mt, repo.Delete(ctx, id), ErrNotFound)
	})

	mt.Run("toggle like is one pipeline update", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB)
		post := storedPost(t, func(p *models.Post) { p.Likes = []string{"u1"} })
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: toDoc(t, post)}))

		got, err := repo.ToggleLike(ctx, post.ID.Hex(), "u1")
		require.NoError(mt, err)
		assert.Equal(mt, []string{"u1"}, got.Likes)

		started := mt.GetStartedEvent()
		assert.Equal(mt, "findAndModify", started.CommandName)
		cmd := started.Command
		assert.Equal(mt, bson.TypeArray, cmd.Lookup("update").Type)

		cond, err := cmd.LookupErr("update", "0", "$set", "likes", "$cond")
		require.NoError(mt, err)
		assert.Equal(mt, bson.TypeArray, cond.Type)
		assert.Equal(mt, "u1", cmd.Lookup("update", "0", "$set", "likes", "$cond", "0", "$in", "0", "$literal").StringValue())
	})

	mt.Run("toggle like missing", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := repo.ToggleLike(ctx, primitive.NewObjectID().Hex(), "u1")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("append comment pushes", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB)
		comment := models.Comment{Author: "ada", Content: "hi", CreatedAt: time.Now().UTC().Truncate(time.Millisecond)}
		post := storedPost(t, func(p *models.Post) { p.Comment = []models.Comment{comment} })
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: toDoc(t, post)}))

		got, err := repo.AppendComment(ctx, post.ID.Hex(), comment)
		require.NoError(mt, err)
		require.Len(mt, got.Comment, 1)

		cmd := mt.GetStartedEvent().Command
		assert.Equal(mt, "hi", cmd.Lookup("update", "$push", "comment", "content").StringValue())
		assert.Equal(mt, "ada", cmd.Lookup("update", "$push", "comment", "author").StringValue())
	})

	mt.Run("append comment missing", func(mt *mtest.T) {
		repo := NewMongoPostRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := repo.AppendComment(ctx, primitive.NewObjectID().Hex(), models.Comment{Author: "a", Content: "b"})
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}

func TestMongoUserRepository(t *testing.T) {
	ctx := context.Background()
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create lowercases email", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		user := &models.User{Email: "Ada@Example.com", PasswordHash: "hash", Role: models.RoleUser}
		require.NoError(mt, repo.Create(ctx, user))
		assert.Equal(mt, "ada@example.com", user.Email)
		assert.False(mt, user.ID.IsZero())
	})

	mt.Run("duplicate email", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		err := repo.Create(ctx, &models.User{Email: "ada@example.com"})
		assert.ErrorIs(mt, err, ErrDuplicate)
	})

	mt.Run("get by email", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.DB)
		user := &models.User{ID: primitive.NewObjectID(), Email: "ada@example.com", PasswordHash: "hash", Role: models.RoleAdmin}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch, toDoc(t, user)))

		got, err := repo.GetByEmail(ctx, "ADA@example.com")
		require.NoError(mt, err)
		assert.Equal(mt, "hash", got.PasswordHash)
		assert.Equal(mt, models.RoleAdmin, got.Role)
		assert.Equal(mt, "ada@example.com", mt.GetStartedEvent().Command.Lookup("filter", "email").StringValue())
	})

	mt.Run("unknown email", func(mt *mtest.T) {
		repo := NewMongoUserRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.users", mtest.FirstBatch))

		_, err := repo.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}

func TestMongoSubscriberRepository(t *testing.T) {
	ctx := context.Background()
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("list", func(mt *mtest.T) {
		repo := NewMongoSubscriberRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.subscribers", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "email", Value: "a@example.com"}},
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}, {Key: "email", Value: "b@example.com"}},
		))

		subs, err := repo.List(ctx)
		require.NoError(mt, err)
		require.Len(mt, subs, 2)
		assert.Equal(mt, "b@example.com", subs[1].Email)
	})

	mt.Run("empty", func(mt *mtest.T) {
		repo := NewMongoSubscriberRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.subscribers", mtest.FirstBatch))

		subs, err := repo.List(ctx)
		require.NoError(mt, err)
		assert.Empty(mt, subs)
	})
}
