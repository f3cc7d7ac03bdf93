package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/knowledgenexus/forum/store"
	"github.com/knowledgenexus/forum/utils"
)

var errPostGone = errors.New("post removed concurrently")

// CascadeCoordinator deletes a post together with everything that depends on it:
// its replies, its votes and its entry in the creator's posts set.
type CascadeCoordinator struct {
	store   store.Store
	counter *PostCounter
	logger  *zap.Logger
}

func NewCascadeCoordinator(s store.Store, counter *PostCounter, logger *zap.Logger) *CascadeCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if counter == nil {
		counter = NewPostCounter(logger)
	}
	return &CascadeCoordinator{store: s, counter: counter, logger: logger}
}

// DeletePost removes post id of the given kind on behalf of actor.
//
// A missing post reports NotFound and a caller who is neither the creator nor an admin
// gets Forbidden; neither case writes anything. Otherwise the replies, the creator's
// counter entry and the post are removed in one transaction. The counter belongs to
// the post's creator even when an admin performs the delete.
func (c *CascadeCoordinator) DeletePost(ctx context.Context, actor *Actor, kind, id string) error {
	notFound := utils.NotFound(codePostNotFound, kindLabel(kind)+" not found")

	post, err := c.store.Posts().Find(ctx, kind, id)
	if err != nil {
		return storeErr(err, notFound)
	}
	if err := Authorize(actor, post.CreatorID, ActionDelete); err != nil {
		c.logger.Info("post delete denied",
			zap.String("post_id", id), zap.String("actor_id", actorID(actor)))
		return err
	}

	var repliesRemoved int64
	err = c.store.WithTx(ctx, func(ctx context.Context, tx store.Store) error {
		current, err := tx.Posts().Find(ctx, kind, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return errPostGone
			}
			return err
		}

		n, err := tx.Replies().DeleteMany(ctx, current.ReplyIDs)
		if err != nil {
			return err
		}
		repliesRemoved = n

		if err := c.counter.Removed(ctx, tx.Users(), current.CreatorID, current.ID); err != nil {
			return utils.Wrap(err, codeCounterFailed, "failed to delete "+kindLabel(kind))
		}

		if _, err := tx.Posts().Delete(ctx, kind, id); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errPostGone) {
			return notFound
		}
		return utils.Wrap(err, codeCascadeFailed, "failed to delete "+kindLabel(kind))
	}

	c.logger.Info("post deleted",
		zap.String("kind", post.Kind),
		zap.String("post_id", id),
		zap.String("creator_id", post.CreatorID),
		zap.String("actor_id", actorID(actor)),
		zap.Int64("replies_removed", repliesRemoved),
	)
	return nil
}

func kindLabel(kind string) string {
	if kind == "" {
		return "post"
	}
	return kind
}

func actorID(a *Actor) string {
	if a == nil {
		return ""
	}
	return a.ID
}
