package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"challenges/models"
	"challenges/notify"
	"challenges/repository"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubscriberLookupTimeout bounds the subscriber query that starts a mail round.
const SubscriberLookupTimeout = 10 * time.Second

// Uploader stores image bytes and returns their public URL.
type Uploader interface {
	Upload(ctx context.Context, image []byte) (string, error)
}

// Notifier mails a new post to a list of recipients.
type Notifier interface {
	NotifyNewPost(ctx context.Context, post *models.Post, recipients []string) notify.Report
}

type PostService struct {
	posts         repository.PostRepository
	subscribers   repository.SubscriberRepository
	uploader      Uploader
	notifier      Notifier
	uploadTimeout time.Duration
}

// NewPostService wires the post workflow. uploader and notifier may be nil
// when uploads or mail are not configured.
func NewPostService(
	posts repository.PostRepository,
	subscribers repository.SubscriberRepository,
	uploader Uploader,
	notifier Notifier,
	uploadTimeout time.Duration,
) *PostService {
	return &PostService{
		posts:         posts,
		subscribers:   subscribers,
		uploader:      uploader,
		notifier:      notifier,
		uploadTimeout: uploadTimeout,
	}
}

// CreatePost validates, uploads the optional image, persists the post and
// then mails every subscriber. Notification problems only show up in the
// returned report.
func (s *PostService) CreatePost(ctx context.Context, post *models.Post, image []byte) (*models.Post, notify.Report, error) {
	if post.Kind == "" {
		post.Kind = models.KindBlog
	}

	post.ImageURL = ""
	if len(image) > 0 {
		post.ImageURL = imagePending
	}
	if err := validatePost(post, nil); err != nil {
		return nil, notify.Report{}, err
	}

	post.ImageURL = ""
	if len(image) > 0 {
		url, err := s.upload(ctx, image)
		if err != nil {
			return nil, notify.Report{}, err
		}
		post.ImageURL = url
	}

	now := time.Now().UTC()
	post.ID = primitive.NewObjectID()
	if post.Author == "" {
		post.Author = models.DefaultAuthor
	}
	post.Views = []string{}
	post.Likes = []string{}
	post.Shares = []string{}
	post.Comment = []models.Comment{}
	post.CreatedAt = now
	post.UpdatedAt = now

	if err := s.posts.Create(ctx, post); err != nil {
		log.Error().Err(err).Str("title", post.Title).Msg("Failed to persist post")
		return nil, notify.Report{}, storeError(err)
	}
	log.Info().Str("postId", post.ID.Hex()).Str("kind", string(post.Kind)).Msg("Post created")

	// The post is committed; a client hanging up must not cut the mail round short.
	report := s.notifySubscribers(context.WithoutCancel(ctx), post)
	return post, report, nil
}

func (s *PostService) ListPosts(ctx context.Context) ([]*models.Post, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list posts")
		return nil, storeError(err)
	}
	return posts, nil
}

func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	return post, nil
}

// UpdatePost merges the supplied fields into an existing post. The post must
// exist before any image is uploaded.
func (s *PostService) UpdatePost(ctx context.Context, id string, patch *models.PostPatch, image []byte) (*models.Post, error) {
	existing, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}

	if patch == nil {
		patch = &models.PostPatch{}
	}
	patch.ImageURL = nil

	merged := *existing
	if merged.Kind == "" {
		merged.Kind = models.KindBlog
	}
	patch.Apply(&merged)
	if err := validatePost(&merged, patch.Fields()); err != nil {
		return nil, err
	}

	if len(image) > 0 {
		url, err := s.upload(ctx, image)
		if err != nil {
			return nil, err
		}
		patch.ImageURL = &url
	}

	if patch.Empty() {
		return existing, nil
	}

	updated, err := s.posts.Update(ctx, id, patch)
	if err != nil {
		log.Error().Err(err).Str("postId", id).Msg("Failed to update post")
		return nil, storeError(err)
	}
	return updated, nil
}

func (s *PostService) DeletePost(ctx context.Context, id string) error {
	if err := s.posts.Delete(ctx, id); err != nil {
		return storeError(err)
	}
	log.Info().Str("postId", id).Msg("Post deleted")
	return nil
}

func (s *PostService) upload(ctx context.Context, image []byte) (string, error) {
	if s.uploader == nil {
		return "", fmt.Errorf("%w: uploads are not configured", ErrUpload)
	}
	if s.uploadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
	}

	url, err := s.uploader.Upload(ctx, image)
	if err != nil {
		log.Error().Err(err).Int("bytes", len(image)).Msg("Image upload failed")
		return "", fmt.Errorf("%w: %w", ErrUpload, err)
	}
	return url, nil
}

func (s *PostService) notifySubscribers(ctx context.Context, post *models.Post) notify.Report {
	logger := log.With().Str("postId", post.ID.Hex()).Logger()

	lookupCtx, cancel := context.WithTimeout(ctx, SubscriberLookupTimeout)
	subscribers, err := s.subscribers.List(lookupCtx)
	cancel()
	if err != nil {
		err = fmt.Errorf("%w: listing subscribers: %w", ErrNotification, err)
		logger.Error().Err(err).Msg("Skipping new post emails")
		return notify.Report{Outcome: notify.OutcomeFailed, Failures: []notify.Failure{{Err: err}}}
	}
	if len(subscribers) == 0 {
		logger.Info().Msg("No subscribers to notify")
		return notify.Report{Outcome: notify.OutcomeSkipped}
	}

	recipients := make([]string, 0, len(subscribers))
	for _, sub := range subscribers {
		recipients = append(recipients, sub.Email)
	}

	if s.notifier == nil {
		err := errors.New("no mail transport configured")
		failures := make([]notify.Failure, len(recipients))
		for i, r := range recipients {
			failures[i] = notify.Failure{Recipient: r, Err: fmt.Errorf("%w: %w", ErrNotification, err)}
		}
		logger.Warn().Err(err).Int("subscribers", len(recipients)).Msg("Skipping new post emails")
		return notify.Report{Outcome: notify.OutcomeFailed, Failures: failures}
	}

	report := s.notifier.NotifyNewPost(ctx, post, recipients)
	for i, f := range report.Failures {
		report.Failures[i].Err = fmt.Errorf("%w: %w", ErrNotification, f.Err)
		logger.Warn().Err(f.Err).Str("recipient", f.Recipient).Msg("Failed to send new post email")
	}
	logger.Info().
		Str("outcome", string(report.Outcome)).
		Int("sent", report.Sent).
		Int("failed", len(report.Failures)).
		Msg("New post emails dispatched")
	return report
}
