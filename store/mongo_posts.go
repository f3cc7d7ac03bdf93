package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/knowledgenexus/forum/models"
)

type mongoPosts struct {
	posts   *mongo.Collection
	replies *mongo.Collection
	users   *mongo.Collection
}

func postFilter(kind, id string) bson.M {
	f := bson.M{}
	if id != "" {
		f["_id"] = id
	}
	if kind != "" {
		f["kind"] = kind
	}
	return f
}

func (m mongoPosts) Create(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	now := time.Now()
	if post.CreatedAt.IsZero() {
		post.CreatedAt = now
	}
	post.UpdatedAt = now
	post.Normalize()
	doc := postDoc{
		ID:          post.ID,
		Kind:        post.Kind,
		Title:       post.Title,
		Description: post.Description,
		Media:       post.Media,
		Tags:        post.Tags,
		Creator:     post.CreatorID,
		UpVotes:     []string{},
		DownVotes:   []string{},
		Replies:     []string{},
		CreatedAt:   post.CreatedAt,
		UpdatedAt:   post.UpdatedAt,
	}
	_, err := m.posts.InsertOne(ctx, doc)
	return translateMongo(err)
}

func (m mongoPosts) Find(ctx context.Context, kind, id string) (*models.Post, error) {
	var doc postDoc
	if err := m.posts.FindOne(ctx, postFilter(kind, id)).Decode(&doc); err != nil {
		return nil, translateMongo(err)
	}
	post := postFromDoc(doc)
	return &post, nil
}

func (m mongoPosts) FindExpanded(ctx context.Context, kind, id string) (*models.Post, error) {
	var doc postDoc
	if err := m.posts.FindOne(ctx, postFilter(kind, id)).Decode(&doc); err != nil {
		return nil, translateMongo(err)
	}
	posts, err := m.expand(ctx, []postDoc{doc})
	if err != nil {
		return nil, err
	}
	return &posts[0], nil
}

func (m mongoPosts) list(ctx context.Context, filter bson.M) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := m.posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []postDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return m.expand(ctx, docs)
}

func (m mongoPosts) ListExpanded(ctx context.Context, kind string) ([]models.Post, error) {
	return m.list(ctx, postFilter(kind, ""))
}

func (m mongoPosts) ListByCreator(ctx context.Context, creatorID string) ([]models.Post, error) {
	return m.list(ctx, bson.M{"creator": creatorID})
}

// expand resolves creators and replies with two batched lookups instead of one per post.
func (m mongoPosts) expand(ctx context.Context, docs []postDoc) ([]models.Post, error) {
	posts := make([]models.Post, 0, len(docs))
	var replyIDs []string
	userIDs := map[string]struct{}{}
	for _, d := range docs {
		replyIDs = append(replyIDs, d.Replies...)
		userIDs[d.Creator] = struct{}{}
	}

	byPost := map[string][]replyDoc{}
	if len(replyIDs) > 0 {
		opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
		cur, err := m.replies.Find(ctx, bson.M{"_id": bson.M{"$in": replyIDs}}, opts)
		if err != nil {
			return nil, err
		}
		var replies []replyDoc
		if err := cur.All(ctx, &replies); err != nil {
			return nil, err
		}
		for _, r := range replies {
			byPost[r.Post] = append(byPost[r.Post], r)
			userIDs[r.Creator] = struct{}{}
		}
	}

	ids := make([]string, 0, len(userIDs))
	for id := range userIDs {
		ids = append(ids, id)
	}
	users, err := loadUsers(ctx, m.users, ids)
	if err != nil {
		return nil, err
	}

	for _, d := range docs {
		post := postFromDoc(d)
		post.Creator = publicUserFromDoc(users[d.Creator])
		post.Replies = make([]models.Reply, 0, len(byPost[d.ID]))
		for _, r := range byPost[d.ID] {
			reply := replyFromDoc(r)
			reply.Creator = publicUserFromDoc(users[r.Creator])
			post.Replies = append(post.Replies, reply)
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (m mongoPosts) Update(ctx context.Context, kind, id string, patch models.PostPatch) error {
	set := bson.M{"updatedAt": time.Now()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Media != nil {
		set["media"] = *patch.Media
	}
	if patch.Tags != nil {
		set["tags"] = nonNil(*patch.Tags)
	}
	res, err := m.posts.UpdateOne(ctx, postFilter(kind, id), bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the post document; the vote sets live inside it.
func (m mongoPosts) Delete(ctx context.Context, kind, id string) (bool, error) {
	res, err := m.posts.DeleteOne(ctx, postFilter(kind, id))
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (m mongoPosts) SetVote(ctx context.Context, postID, userID string, value int) error {
	var update bson.M
	switch {
	case value > 0:
		update = bson.M{"$addToSet": bson.M{"upVotes": userID}, "$pull": bson.M{"downVotes": userID}}
	case value < 0:
		update = bson.M{"$addToSet": bson.M{"downVotes": userID}, "$pull": bson.M{"upVotes": userID}}
	default:
		update = bson.M{"$pull": bson.M{"upVotes": userID, "downVotes": userID}}
	}
	res, err := m.posts.UpdateOne(ctx, bson.M{"_id": postID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m mongoPosts) Count(ctx context.Context, kind string) (int64, error) {
	return m.posts.CountDocuments(ctx, postFilter(kind, ""))
}
