package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Feedback is a message left for the site operators.
type Feedback struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;index" json:"user,omitempty"`
	Name      string    `gorm:"size:128" json:"name"`
	Email     string    `gorm:"size:255" json:"email"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (f *Feedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	return nil
}

// Stats aggregates entity counts for the public stats endpoint.
type Stats struct {
	UserCount     int64 `json:"userCount"`
	CourseCount   int64 `json:"courseCount"`
	ForumCount    int64 `json:"forumCount"`
	ReplyCount    int64 `json:"replyCount"`
	FeedbackCount int64 `json:"feedbackCount"`
}

// All returns every model the relational schema is migrated from.
func All() []interface{} {
	return []interface{}{&User{}, &UserPost{}, &Post{}, &PostVote{}, &Reply{}, &Feedback{}}
}
