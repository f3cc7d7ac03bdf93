package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/knowledgenexus/forum/models"
)

type mongoUsers struct {
	users *mongo.Collection
}

func (m mongoUsers) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = models.RoleRegular
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	doc := userDoc{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		Role:         user.Role,
		Provider:     user.Provider,
		ProviderID:   user.ProviderID,
		AvatarURL:    user.AvatarURL,
		Posts:        []string{},
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
	_, err := m.users.InsertOne(ctx, doc)
	return translateMongo(err)
}

func (m mongoUsers) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var doc userDoc
	if err := m.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translateMongo(err)
	}
	u := userFromDoc(doc)
	return &u, nil
}

func (m mongoUsers) Find(ctx context.Context, id string) (*models.User, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m mongoUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return m.findOne(ctx, bson.M{"username": username})
}

func (m mongoUsers) FindByProvider(ctx context.Context, provider, providerID string) (*models.User, error) {
	return m.findOne(ctx, bson.M{"provider": provider, "providerId": providerID})
}

func (m mongoUsers) List(ctx context.Context) ([]models.User, error) {
	opts := options.Find().SetProjection(publicProjection).SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := m.users.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.User, 0, len(docs))
	for i := range docs {
		out = append(out, *publicUserFromDoc(&docs[i]))
	}
	return out, nil
}

func (m mongoUsers) UpdateProfile(ctx context.Context, id string, patch models.UserPatch) error {
	set := bson.M{"updatedAt": time.Now()}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.AvatarURL != nil {
		set["avatarUrl"] = *patch.AvatarURL
	}
	res, err := m.users.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustPostCount filters on set membership so the $inc only applies when the
// $addToSet or $pull actually changes the array.
func (m mongoUsers) AdjustPostCount(ctx context.Context, userID, postID string, delta int) (Adjustment, error) {
	if err := validDelta(delta); err != nil {
		return Adjustment{}, err
	}

	if delta > 0 {
		res, err := m.users.UpdateOne(ctx,
			bson.M{"_id": userID, "posts": bson.M{"$ne": postID}},
			bson.M{"$addToSet": bson.M{"posts": postID}, "$inc": bson.M{"postsCount": 1}},
		)
		if err != nil {
			return Adjustment{}, err
		}
		if res.MatchedCount > 0 {
			return Adjustment{Changed: true}, nil
		}
		n, err := m.users.CountDocuments(ctx, bson.M{"_id": userID})
		if err != nil {
			return Adjustment{}, err
		}
		if n == 0 {
			return Adjustment{}, ErrNotFound
		}
		return Adjustment{}, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"posts": bson.M{"$filter": bson.M{
				"input": "$posts",
				"cond":  bson.M{"$ne": bson.A{"$$this", postID}},
			}},
			"postsCount": bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{"$postsCount", 1}}}},
		}}},
	}
	var before userDoc
	err := m.users.FindOneAndUpdate(ctx,
		bson.M{"_id": userID, "posts": postID},
		pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if err != nil {
		if errors.Is(translateMongo(err), ErrNotFound) {
			return Adjustment{}, nil
		}
		return Adjustment{}, err
	}
	return Adjustment{Changed: true, Clamped: before.PostsCount <= 0}, nil
}

func (m mongoUsers) Count(ctx context.Context) (int64, error) {
	return m.users.CountDocuments(ctx, bson.M{})
}

type mongoFeedback struct {
	coll *mongo.Collection
}

func (m mongoFeedback) Create(ctx context.Context, fb *models.Feedback) error {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now()
	}
	_, err := m.coll.InsertOne(ctx, feedbackDoc{
		ID:        fb.ID,
		User:      fb.UserID,
		Name:      fb.Name,
		Email:     fb.Email,
		Message:   fb.Message,
		CreatedAt: fb.CreatedAt,
	})
	return err
}

func (m mongoFeedback) List(ctx context.Context) ([]models.Feedback, error) {
	cur, err := m.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []feedbackDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Feedback, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.Feedback{
			ID:        d.ID,
			UserID:    d.User,
			Name:      d.Name,
			Email:     d.Email,
			Message:   d.Message,
			CreatedAt: d.CreatedAt,
		})
	}
	return out, nil
}

func (m mongoFeedback) Count(ctx context.Context) (int64, error) {
	return m.coll.CountDocuments(ctx, bson.M{})
}
