package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/knowledgenexus/forum/models"
	"github.com/knowledgenexus/forum/store"
	"github.com/knowledgenexus/forum/utils"
)

// PostInput carries the fields a client supplies when creating a post.
type PostInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Media       string   `json:"media"`
	Tags        []string `json:"tags"`
}

// PostService implements the post workflows for one kind (course or forum).
type PostService struct {
	store   store.Store
	kind    string
	counter *PostCounter
	cascade *CascadeCoordinator
	logger  *zap.Logger
}

func NewPostService(s store.Store, kind string, logger *zap.Logger) *PostService {
	if logger == nil {
		logger = zap.NewNop()
	}
	counter := NewPostCounter(logger)
	return &PostService{
		store:   s,
		kind:    kind,
		counter: counter,
		cascade: NewCascadeCoordinator(s, counter, logger),
		logger:  logger,
	}
}

// Kind is the post kind this service manages.
func (s *PostService) Kind() string { return s.kind }

func (s *PostService) notFound() error {
	return utils.NotFound(codePostNotFound, s.kind+" not found")
}

// Create stores a new post owned by actor and adds it to the actor's posts set in the
// same transaction.
func (s *PostService) Create(ctx context.Context, actor *Actor, in PostInput) (*models.Post, error) {
	if actor == nil || actor.ID == "" {
		return nil, utils.Unauthenticated(40100, "authentication required")
	}
	post := &models.Post{
		Kind:        s.kind,
		Title:       utils.SanitizePlain(in.Title),
		Description: utils.Sanitize(in.Description),
		Media:       utils.SanitizePlain(in.Media),
		Tags:        utils.SanitizeTags(in.Tags),
		CreatorID:   actor.ID,
	}
	if post.Title == "" || post.Description == "" {
		return nil, validation("title and description are required")
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.Posts().Create(ctx, post); err != nil {
			return err
		}
		if err := s.counter.Added(ctx, tx.Users(), actor.ID, post.ID); err != nil {
			if !tx.Atomic() {
				s.discard(ctx, tx, post.ID)
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, utils.Unauthenticated(codeUserGone, "authentication required")
		}
		return nil, utils.Wrap(err, codeInternal, "failed to create "+s.kind)
	}

	created, err := s.store.Posts().FindExpanded(ctx, s.kind, post.ID)
	if err != nil {
		return nil, storeErr(err, s.notFound())
	}
	s.logger.Info("post created", zap.String("kind", s.kind), zap.String("post_id", post.ID), zap.String("user_id", actor.ID))
	return created, nil
}

// discard removes a post whose creator could not be updated. Without a transaction the
// insert has already landed and would otherwise be missing from the creator's posts.
func (s *PostService) discard(ctx context.Context, tx store.Store, id string) {
	if _, err := tx.Posts().Delete(context.WithoutCancel(ctx), s.kind, id); err != nil {
		s.logger.Error("failed to discard post after counter failure",
			zap.String("kind", s.kind), zap.String("post_id", id), zap.Error(err))
	}
}

// List returns every post of the kind, newest first.
func (s *PostService) List(ctx context.Context) ([]models.Post, error) {
	posts, err := s.store.Posts().ListExpanded(ctx, s.kind)
	if err != nil {
		return nil, utils.Wrap(err, codeStoreReadFailed, "failed to list "+s.kind)
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

// Find returns one expanded post.
func (s *PostService) Find(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.store.Posts().FindExpanded(ctx, s.kind, id)
	if err != nil {
		return nil, storeErr(err, s.notFound())
	}
	return post, nil
}

// Update applies an allowlisted patch. Only the creator or an admin may update.
func (s *PostService) Update(ctx context.Context, actor *Actor, id string, patch models.PostPatch) (*models.Post, error) {
	post, err := s.store.Posts().Find(ctx, s.kind, id)
	if err != nil {
		return nil, storeErr(err, s.notFound())
	}
	if err := Authorize(actor, post.CreatorID, ActionUpdate); err != nil {
		return nil, err
	}
	if err := cleanPostPatch(&patch); err != nil {
		return nil, err
	}

	if err := s.store.Posts().Update(ctx, s.kind, id, patch); err != nil {
		return nil, storeErr(err, s.notFound())
	}
	return s.Find(ctx, id)
}

func cleanPostPatch(patch *models.PostPatch) error {
	if patch.Empty() {
		return validation("no updatable fields supplied")
	}
	if patch.Title != nil {
		v := utils.SanitizePlain(*patch.Title)
		if v == "" {
			return validation("title cannot be empty")
		}
		patch.Title = &v
	}
	if patch.Description != nil {
		v := utils.Sanitize(*patch.Description)
		if v == "" {
			return validation("description cannot be empty")
		}
		patch.Description = &v
	}
	if patch.Media != nil {
		v := utils.SanitizePlain(*patch.Media)
		patch.Media = &v
	}
	if patch.Tags != nil {
		v := utils.SanitizeTags(*patch.Tags)
		patch.Tags = &v
	}
	return nil
}

// Delete removes the post through the cascade coordinator.
func (s *PostService) Delete(ctx context.Context, actor *Actor, id string) error {
	return s.cascade.DeletePost(ctx, actor, s.kind, id)
}

// Vote toggles the actor's vote. dir > 0 votes up and dir < 0 votes down; repeating the
// same vote withdraws it, and switching moves the actor between the two sets.
func (s *PostService) Vote(ctx context.Context, actor *Actor, id string, dir int) (*models.Post, error) {
	if actor == nil || actor.ID == "" {
		return nil, utils.Unauthenticated(40100, "authentication required")
	}
	post, err := s.store.Posts().Find(ctx, s.kind, id)
	if err != nil {
		return nil, storeErr(err, s.notFound())
	}

	value := 1
	voters := post.UpVotes
	if dir < 0 {
		value = -1
		voters = post.DownVotes
	}
	if models.HasVoter(voters, actor.ID) {
		value = 0
	}
	if err := s.store.Posts().SetVote(ctx, id, actor.ID, value); err != nil {
		return nil, storeErr(err, s.notFound())
	}
	return s.Find(ctx, id)
}
