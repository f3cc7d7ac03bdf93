package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/knowledgenexus/forum/store"
)

// PostCounter keeps a user's posts set and postsCount in step and reports
// invariant violations.
type PostCounter struct {
	logger *zap.Logger
}

func NewPostCounter(logger *zap.Logger) *PostCounter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostCounter{logger: logger}
}

// Added records postID as created by userID.
func (c *PostCounter) Added(ctx context.Context, users store.UserStore, userID, postID string) error {
	adj, err := users.AdjustPostCount(ctx, userID, postID, 1)
	if err != nil {
		return err
	}
	if !adj.Changed {
		c.logger.Warn("post already in creator's posts set",
			zap.String("user_id", userID), zap.String("post_id", postID))
	}
	return nil
}

// Removed drops postID from userID's set. It is a no-op when the id is already gone,
// which makes a retried cascade safe.
func (c *PostCounter) Removed(ctx context.Context, users store.UserStore, userID, postID string) error {
	adj, err := users.AdjustPostCount(ctx, userID, postID, -1)
	if err != nil {
		return err
	}
	switch {
	case !adj.Changed:
		c.logger.Info("post already detached from creator",
			zap.String("user_id", userID), zap.String("post_id", postID))
	case adj.Clamped:
		c.logger.Warn("postsCount would drop below zero, clamped",
			zap.String("user_id", userID), zap.String("post_id", postID))
	}
	return nil
}
