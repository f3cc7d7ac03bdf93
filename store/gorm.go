package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore implements Store on a relational database through gorm.
type GormStore struct {
	db   *gorm.DB
	inTx bool
}

// NewGormStore wraps an opened and migrated gorm handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// DB exposes the underlying handle for health checks.
func (s *GormStore) DB() *gorm.DB { return s.db }

func (s *GormStore) Posts() PostStore { return gormPosts{db: s.db, lock: s.inTx} }
func (s *GormStore) Replies() ReplyStore { return gormReplies{db: s.db} }
func (s *GormStore) Users() UserStore { return gormUsers{db: s.db} }
func (s *GormStore) Feedback() FeedbackStore { return gormFeedback{db: s.db} }

// WithTx runs fn in a database transaction; any error rolls every write back.
func (s *GormStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &GormStore{db: tx, inTx: true})
	})
}

// Atomic is true on the view handed to a WithTx callback.
func (s *GormStore) Atomic() bool { return s.inTx }

// Close releases the connection pool. It is a no-op on a transactional view.
func (s *GormStore) Close() error {
	if s.inTx {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps gorm errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func publicUser(db *gorm.DB) *gorm.DB {
	return db.Select(publicUserColumns)
}

func oldestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}

// votesInOrder orders post_votes, whose key is (post_id, user_id) with no id column.
func votesInOrder(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("user_id ASC")
}

func forUpdate(db *gorm.DB, lock bool) *gorm.DB {
	if !lock {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
