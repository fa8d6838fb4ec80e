package services

import (
	"context"
	"slices"
	"strings"
	"time"

	"challenges/models"
	"challenges/repository"

	"github.com/rs/zerolog/log"
)

const (
	EventLiked   = "liked"
	EventUnliked = "unliked"
)

// Publisher fans an event out to connected clients. Delivery is best effort.
type Publisher interface {
	Publish(event string, payload any)
}

type LikeResult struct {
	Likes     []string `json:"likes"`
	ToggledOn bool     `json:"toggledOn"`
}

// CommentResult is a stored comment and its index in the post's thread.
type CommentResult struct {
	models.Comment
	Position int `json:"position"`
}

type ReactionService struct {
	posts     repository.PostRepository
	publisher Publisher
}

func NewReactionService(posts repository.PostRepository, publisher Publisher) *ReactionService {
	return &ReactionService{posts: posts, publisher: publisher}
}

// ToggleLike adds userID to the post's likes, or removes it when present,
// and broadcasts what happened.
func (s *ReactionService) ToggleLike(ctx context.Context, postID, userID string) (*LikeResult, error) {
	if userID == "" {
		return nil, &ValidationError{Fields: []string{"userId"}}
	}

	post, err := s.posts.ToggleLike(ctx, postID, userID)
	if err != nil {
		return nil, storeError(err)
	}

	result := &LikeResult{
		Likes:     post.Likes,
		ToggledOn: slices.Contains(post.Likes, userID),
	}

	event := EventUnliked
	if result.ToggledOn {
		event = EventLiked
	}
	if s.publisher != nil {
		s.publisher.Publish(event, map[string]any{
			"postId": postID,
			"userId": userID,
			"likes":  result.Likes,
		})
	}
	log.Debug().Str("postId", postID).Str("userId", userID).Str("event", event).Msg("Like toggled")
	return result, nil
}

// AddComment appends a comment to an existing post.
func (s *ReactionService) AddComment(ctx context.Context, postID, author, content string) (*CommentResult, error) {
	author = strings.TrimSpace(author)
	content = strings.TrimSpace(content)

	var missing []string
	if author == "" {
		missing = append(missing, "author")
	}
	if content == "" {
		missing = append(missing, "content")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Fields: missing}
	}

	comment := models.Comment{
		Author:    author,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	post, err := s.posts.AppendComment(ctx, postID, comment)
	if err != nil {
		return nil, storeError(err)
	}

	position := len(post.Comment) - 1
	return &CommentResult{Comment: post.Comment[position], Position: position}, nil
}
