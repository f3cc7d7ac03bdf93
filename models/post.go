package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Post kinds. Course and forum posts share one shape and one table.
const (
	KindCourse = "course"
	KindForum  = "forum"
)

// Post represents a course or forum post created by a user.
type Post struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Kind        string     `gorm:"size:16;index;not null" json:"kind"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text;not null" json:"description"`
	Media       string     `gorm:"size:1024" json:"media,omitempty"`
	Tags        []string   `gorm:"serializer:json;type:text" json:"tags"`
	CreatorID   string     `gorm:"size:36;index;not null" json:"creatorId"`
	Creator     *User      `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	UpVotes     []string   `gorm:"-" json:"upVotes"`
	DownVotes   []string   `gorm:"-" json:"downVotes"`
	Replies     []Reply    `gorm:"foreignKey:PostID" json:"replies"`
	Votes       []PostVote `gorm:"foreignKey:PostID" json:"-"`
	ReplyIDs    []string   `gorm:"-" json:"-"`
	CreatedAt   time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// BeforeCreate hook assigns an id and the creation time.
func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	return nil
}

// Normalize replaces nil collections with empty ones so they serialize as [].
func (p *Post) Normalize() {
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.UpVotes == nil {
		p.UpVotes = []string{}
	}
	if p.DownVotes == nil {
		p.DownVotes = []string{}
	}
	if p.Replies == nil {
		p.Replies = []Reply{}
	}
}

// HasVoter reports whether userID appears in the given voter set.
func HasVoter(voters []string, userID string) bool {
	for _, v := range voters {
		if v == userID {
			return true
		}
	}
	return false
}

// PostVote records one user's vote on a post; Value is +1 or -1.
type PostVote struct {
	PostID    string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"primaryKey;size:36"`
	Value     int    `gorm:"not null"`
	CreatedAt time.Time
}

// PostPatch is the allowlist of post fields an update may change.
type PostPatch struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Media       *string   `json:"media"`
	Tags        *[]string `json:"tags"`
}

// Empty reports whether the patch changes nothing.
func (p PostPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Media == nil && p.Tags == nil
}
