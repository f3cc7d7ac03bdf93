package store

import (
	"time"

	"github.com/knowledgenexus/forum/models"
)

// Document shapes of the MongoDB collections. References are stored as id strings.

type userDoc struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"passwordHash,omitempty"`
	Role         string    `bson:"role"`
	Provider     string    `bson:"provider,omitempty"`
	ProviderID   string    `bson:"providerId,omitempty"`
	AvatarURL    string    `bson:"avatarUrl"`
	Posts        []string  `bson:"posts"`
	PostsCount   int       `bson:"postsCount"`
	CreatedAt    time.Time `bson:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt"`
}

type postDoc struct {
	ID          string    `bson:"_id"`
	Kind        string    `bson:"kind"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Media       string    `bson:"media,omitempty"`
	Tags        []string  `bson:"tags"`
	Creator     string    `bson:"creator"`
	UpVotes     []string  `bson:"upVotes"`
	DownVotes   []string  `bson:"downVotes"`
	Replies     []string  `bson:"replies"`
	CreatedAt   time.Time `bson:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt"`
}

type replyDoc struct {
	ID        string    `bson:"_id"`
	Post      string    `bson:"post"`
	Creator   string    `bson:"creator"`
	Body      string    `bson:"body"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type feedbackDoc struct {
	ID        string    `bson:"_id"`
	User      string    `bson:"user,omitempty"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	Message   string    `bson:"message"`
	CreatedAt time.Time `bson:"createdAt"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func userFromDoc(d userDoc) models.User {
	return models.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         d.Role,
		Provider:     d.Provider,
		ProviderID:   d.ProviderID,
		AvatarURL:    d.AvatarURL,
		PostsCount:   d.PostsCount,
		Posts:        nonNil(d.Posts),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func postFromDoc(d postDoc) models.Post {
	p := models.Post{
		ID:          d.ID,
		Kind:        d.Kind,
		Title:       d.Title,
		Description: d.Description,
		Media:       d.Media,
		Tags:        d.Tags,
		CreatorID:   d.Creator,
		UpVotes:     d.UpVotes,
		DownVotes:   d.DownVotes,
		ReplyIDs:    nonNil(d.Replies),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	p.Normalize()
	return p
}

func replyFromDoc(d replyDoc) models.Reply {
	return models.Reply{
		ID:        d.ID,
		PostID:    d.Post,
		CreatorID: d.Creator,
		Body:      d.Body,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
