package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/knowledgenexus/forum/models"
)

// Collection names.
const (
	usersCollection    = "users"
	postsCollection    = "posts"
	repliesCollection  = "replies"
	feedbackCollection = "feedback"
)

// MongoStore implements Store on MongoDB. Without transactions the multi-document
// writes run sequentially; every step is idempotent so a retry repairs partial state.
type MongoStore struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
	inTx         bool
}

// NewMongoStore ensures indexes and returns the store. transactions requires a replica set.
func NewMongoStore(ctx context.Context, client *mongo.Client, db *mongo.Database, transactions bool) (*MongoStore, error) {
	s := &MongoStore{client: client, db: db, transactions: transactions}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "provider", Value: 1}, {Key: "providerId", Value: 1}}},
		},
		postsCollection: {
			{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "creator", Value: 1}}},
		},
		repliesCollection: {
			{Keys: bson.D{{Key: "post", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
	}
	for name, idx := range specs {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}

func (s *MongoStore) Posts() PostStore {
	return mongoPosts{posts: s.db.Collection(postsCollection), replies: s.db.Collection(repliesCollection), users: s.db.Collection(usersCollection)}
}

func (s *MongoStore) Replies() ReplyStore {
	return mongoReplies{replies: s.db.Collection(repliesCollection), posts: s.db.Collection(postsCollection), users: s.db.Collection(usersCollection)}
}

func (s *MongoStore) Users() UserStore { return mongoUsers{users: s.db.Collection(usersCollection)} }

func (s *MongoStore) Feedback() FeedbackStore {
	return mongoFeedback{coll: s.db.Collection(feedbackCollection)}
}

// WithTx runs fn in a session transaction when enabled. The session travels in ctx,
// so fn must pass the ctx it receives to every store call.
func (s *MongoStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if !s.transactions || s.inTx {
		return fn(ctx, s)
	}
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	tx := &MongoStore{client: s.client, db: s.db, transactions: true, inTx: true}
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, tx)
	})
	return err
}

// Atomic is true only inside a session transaction.
func (s *MongoStore) Atomic() bool { return s.inTx }

// Close disconnects the client. It is a no-op on a transactional view.
func (s *MongoStore) Close() error {
	if s.inTx {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

func translateMongo(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return err
	}
}

// publicProjection leaves credentials out of expanded users.
var publicProjection = bson.M{"passwordHash": 0, "posts": 0}

func loadUsers(ctx context.Context, coll *mongo.Collection, ids []string) (map[string]*userDoc, error) {
	out := make(map[string]*userDoc, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(publicProjection))
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	for i := range docs {
		out[docs[i].ID] = &docs[i]
	}
	return out, nil
}

func publicUserFromDoc(d *userDoc) *models.User {
	if d == nil {
		return nil
	}
	u := userFromDoc(*d)
	u.PasswordHash = ""
	u.Posts = nil
	return &u
}
