package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/knowledgenexus/forum/models"
	"github.com/knowledgenexus/forum/store"
	"github.com/knowledgenexus/forum/utils"
)

// ReplyService implements the reply workflows. Replies belong to any post kind.
type ReplyService struct {
	store  store.Store
	logger *zap.Logger
}

func NewReplyService(s store.Store, logger *zap.Logger) *ReplyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReplyService{store: s, logger: logger}
}

var errReplyNotFound = utils.NotFound(codeReplyNotFound, "reply not found")

// Create adds a reply by actor to postID.
func (s *ReplyService) Create(ctx context.Context, actor *Actor, postID, body string) (*models.Reply, error) {
	if actor == nil || actor.ID == "" {
		return nil, utils.Unauthenticated(40100, "authentication required")
	}
	body = utils.Sanitize(body)
	if postID == "" || body == "" {
		return nil, validation("post and body are required")
	}

	reply := &models.Reply{PostID: postID, CreatorID: actor.ID, Body: body}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		// the locked read serializes with a concurrent cascade delete
		if _, err := tx.Posts().Find(ctx, "", postID); err != nil {
			return err
		}
		return tx.Replies().Create(ctx, reply)
	})
	if err != nil {
		return nil, storeErr(err, utils.NotFound(codePostNotFound, "post not found"))
	}
	return s.Find(ctx, reply.ID)
}

func (s *ReplyService) Find(ctx context.Context, id string) (*models.Reply, error) {
	reply, err := s.store.Replies().Find(ctx, id)
	if err != nil {
		return nil, storeErr(err, errReplyNotFound)
	}
	return reply, nil
}

// Update replaces the body. Only the reply's creator or an admin may update it.
func (s *ReplyService) Update(ctx context.Context, actor *Actor, id, body string) (*models.Reply, error) {
	reply, err := s.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, reply.CreatorID, ActionUpdate); err != nil {
		return nil, err
	}
	body = utils.Sanitize(body)
	if body == "" {
		return nil, validation("body is required")
	}
	if err := s.store.Replies().UpdateBody(ctx, id, body); err != nil {
		return nil, storeErr(err, errReplyNotFound)
	}
	return s.Find(ctx, id)
}

// Delete removes a reply and detaches it from its post.
func (s *ReplyService) Delete(ctx context.Context, actor *Actor, id string) error {
	reply, err := s.Find(ctx, id)
	if err != nil {
		return err
	}
	if err := Authorize(actor, reply.CreatorID, ActionDelete); err != nil {
		return err
	}
	removed, err := s.store.Replies().Delete(ctx, id)
	if err != nil {
		return utils.Wrap(err, codeInternal, "failed to delete reply")
	}
	if !removed {
		return errReplyNotFound
	}
	s.logger.Info("reply deleted", zap.String("reply_id", id), zap.String("actor_id", actor.ID))
	return nil
}
