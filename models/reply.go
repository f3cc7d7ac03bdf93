package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reply represents a reply owned by a post.
type Reply struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PostID    string    `gorm:"size:36;index;not null" json:"post"`
	CreatorID string    `gorm:"size:36;index;not null" json:"creatorId"`
	Creator   *User     `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Body      string    `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (r *Reply) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	return nil
}
