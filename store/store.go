// Package store is the persistence layer. It exposes one Store interface with a
// relational implementation on gorm and a document implementation on MongoDB.
package store

import (
	"context"
	"errors"

	"github.com/knowledgenexus/forum/models"
)

var (
	// ErrNotFound is returned when an id or key does not resolve.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("store: duplicate key")
)

// Store groups the repositories. WithTx runs fn against a transactional view of the
// store; fn must use the tx and ctx it is given, never the outer ones.
type Store interface {
	Posts() PostStore
	Replies() ReplyStore
	Users() UserStore
	Feedback() FeedbackStore
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	// Atomic reports whether writes through this view commit or roll back together.
	Atomic() bool
	Close() error
}

// PostStore persists course and forum posts. An empty kind matches any kind.
type PostStore interface {
	Create(ctx context.Context, post *models.Post) error
	// Find loads the post with vote sets and ReplyIDs, without expanding references.
	Find(ctx context.Context, kind, id string) (*models.Post, error)
	// FindExpanded also expands the creator and the replies (oldest first) with their creators.
	FindExpanded(ctx context.Context, kind, id string) (*models.Post, error)
	// ListExpanded returns every post of kind, newest first, expanded like FindExpanded.
	ListExpanded(ctx context.Context, kind string) ([]models.Post, error)
	ListByCreator(ctx context.Context, creatorID string) ([]models.Post, error)
	Update(ctx context.Context, kind, id string, patch models.PostPatch) error
	// Delete removes the post and its votes. It reports whether a post was removed.
	Delete(ctx context.Context, kind, id string) (bool, error)
	// SetVote records value (+1 or -1) for userID, or clears the vote when value is 0.
	SetVote(ctx context.Context, postID, userID string, value int) error
	Count(ctx context.Context, kind string) (int64, error)
}

// ReplyStore persists replies. Create attaches the reply to its post.
type ReplyStore interface {
	Create(ctx context.Context, reply *models.Reply) error
	Find(ctx context.Context, id string) (*models.Reply, error)
	UpdateBody(ctx context.Context, id, body string) error
	// Delete removes one reply and detaches it from its post.
	Delete(ctx context.Context, id string) (bool, error)
	// DeleteMany removes every listed reply; ids that are already gone are skipped.
	DeleteMany(ctx context.Context, ids []string) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// Adjustment reports the outcome of a posts-set counter update.
type Adjustment struct {
	// Changed is true when the set membership changed and the counter moved.
	Changed bool
	// Clamped is true when a decrement would have taken postsCount below zero.
	Clamped bool
}

// UserStore persists users and the per-user posts set.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	// Find returns the user with its Posts set filled.
	Find(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByProvider(ctx context.Context, provider, providerID string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	UpdateProfile(ctx context.Context, id string, patch models.UserPatch) error
	// AdjustPostCount adds (delta=+1) or removes (delta=-1) postID from the user's
	// posts set and moves postsCount only when membership actually changed.
	AdjustPostCount(ctx context.Context, userID, postID string, delta int) (Adjustment, error)
	Count(ctx context.Context) (int64, error)
}

// FeedbackStore persists feedback messages.
type FeedbackStore interface {
	Create(ctx context.Context, fb *models.Feedback) error
	List(ctx context.Context) ([]models.Feedback, error)
	Count(ctx context.Context) (int64, error)
}

func validDelta(delta int) error {
	if delta != 1 && delta != -1 {
		return errors.New("store: post count delta must be +1 or -1")
	}
	return nil
}
