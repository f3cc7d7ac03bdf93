package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles.
const (
	RoleRegular = "regular"
	RoleAdmin   = "admin"
)

// User represents a forum user. Passwords are stored as bcrypt hashes only and never serialized.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:255" json:"email"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	Role         string    `gorm:"size:16;not null;default:'regular'" json:"role"`
	Provider     string    `gorm:"size:32;index:idx_users_provider" json:"provider,omitempty"`
	ProviderID   string    `gorm:"size:255;index:idx_users_provider" json:"providerId,omitempty"`
	AvatarURL    string    `gorm:"size:512" json:"avatarUrl"`
	PostsCount   int       `gorm:"not null;default:0" json:"postsCount"`
	Posts        []string  `gorm:"-" json:"posts,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PublicUserColumns lists the columns safe to expose when a user is expanded inside another entity.
var PublicUserColumns = []string{"id", "username", "email", "role", "avatar_url", "posts_count", "created_at", "updated_at"}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BeforeCreate hook assigns an id and ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleRegular
	}
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// UserPatch carries the profile fields a user may change.
type UserPatch struct {
	Email     *string `json:"email"`
	AvatarURL *string `json:"avatarUrl"`
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Email == nil && p.AvatarURL == nil
}

// UserPost is one membership row of a user's posts set.
// The composite primary key gives the set its no-duplicates guarantee.
type UserPost struct {
	UserID    string    `gorm:"primaryKey;size:36"`
	PostID    string    `gorm:"primaryKey;size:36;index"`
	CreatedAt time.Time
}
