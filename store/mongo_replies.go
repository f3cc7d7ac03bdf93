package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/knowledgenexus/forum/models"
)

type mongoReplies struct {
	replies *mongo.Collection
	posts   *mongo.Collection
	users   *mongo.Collection
}

// Create inserts the reply and pushes its id onto the parent post's replies array.
func (m mongoReplies) Create(ctx context.Context, reply *models.Reply) error {
	if reply.ID == "" {
		reply.ID = uuid.NewString()
	}
	now := time.Now()
	if reply.CreatedAt.IsZero() {
		reply.CreatedAt = now
	}
	reply.UpdatedAt = now
	doc := replyDoc{
		ID:        reply.ID,
		Post:      reply.PostID,
		Creator:   reply.CreatorID,
		Body:      reply.Body,
		CreatedAt: reply.CreatedAt,
		UpdatedAt: reply.UpdatedAt,
	}
	if _, err := m.replies.InsertOne(ctx, doc); err != nil {
		return translateMongo(err)
	}
	res, err := m.posts.UpdateOne(ctx, bson.M{"_id": reply.PostID}, bson.M{"$addToSet": bson.M{"replies": reply.ID}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		_, _ = m.replies.DeleteOne(ctx, bson.M{"_id": reply.ID})
		return ErrNotFound
	}
	return nil
}

func (m mongoReplies) Find(ctx context.Context, id string) (*models.Reply, error) {
	var doc replyDoc
	if err := m.replies.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translateMongo(err)
	}
	users, err := loadUsers(ctx, m.users, []string{doc.Creator})
	if err != nil {
		return nil, err
	}
	reply := replyFromDoc(doc)
	reply.Creator = publicUserFromDoc(users[doc.Creator])
	return &reply, nil
}

func (m mongoReplies) UpdateBody(ctx context.Context, id, body string) error {
	res, err := m.replies.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"body": body, "updatedAt": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m mongoReplies) Delete(ctx context.Context, id string) (bool, error) {
	var doc replyDoc
	err := m.replies.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(translateMongo(err), ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if _, err := m.posts.UpdateOne(ctx, bson.M{"_id": doc.Post}, bson.M{"$pull": bson.M{"replies": id}}); err != nil {
		return true, err
	}
	return true, nil
}

func (m mongoReplies) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := m.replies.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (m mongoReplies) Count(ctx context.Context) (int64, error) {
	return m.replies.CountDocuments(ctx, bson.M{})
}
