package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/knowledgenexus/forum/models"
)

var publicUserColumns = models.PublicUserColumns

type gormPosts struct {
	db   *gorm.DB
	lock bool
}

func (p gormPosts) Create(ctx context.Context, post *models.Post) error {
	post.Normalize()
	return translate(p.db.WithContext(ctx).Omit(clause.Associations).Create(post).Error)
}

func (p gormPosts) scoped(ctx context.Context, kind string) *gorm.DB {
	q := p.db.WithContext(ctx).Model(&models.Post{})
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	return q
}

func (p gormPosts) Find(ctx context.Context, kind, id string) (*models.Post, error) {
	var post models.Post
	q := forUpdate(p.scoped(ctx, kind), p.lock).
		Preload("Votes", votesInOrder).
		Preload("Replies", func(db *gorm.DB) *gorm.DB { return oldestFirst(db.Select("id", "post_id", "created_at")) })
	if err := q.Where("id = ?", id).First(&post).Error; err != nil {
		return nil, translate(err)
	}
	post.ReplyIDs = make([]string, 0, len(post.Replies))
	for _, r := range post.Replies {
		post.ReplyIDs = append(post.ReplyIDs, r.ID)
	}
	post.Replies = nil
	splitVotes(&post)
	return &post, nil
}

func (p gormPosts) expanded(ctx context.Context, kind string) *gorm.DB {
	return p.scoped(ctx, kind).
		Preload("Creator", publicUser).
		Preload("Replies", oldestFirst).
		Preload("Replies.Creator", publicUser).
		Preload("Votes", votesInOrder)
}

func (p gormPosts) FindExpanded(ctx context.Context, kind, id string) (*models.Post, error) {
	var post models.Post
	if err := p.expanded(ctx, kind).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, translate(err)
	}
	splitVotes(&post)
	return &post, nil
}

func (p gormPosts) ListExpanded(ctx context.Context, kind string) ([]models.Post, error) {
	var posts []models.Post
	if err := p.expanded(ctx, kind).Order("created_at DESC").Order("id DESC").Find(&posts).Error; err != nil {
		return nil, err
	}
	for i := range posts {
		splitVotes(&posts[i])
	}
	return posts, nil
}

func (p gormPosts) ListByCreator(ctx context.Context, creatorID string) ([]models.Post, error) {
	var posts []models.Post
	err := p.expanded(ctx, "").Where("creator_id = ?", creatorID).
		Order("created_at DESC").Order("id DESC").Find(&posts).Error
	if err != nil {
		return nil, err
	}
	for i := range posts {
		splitVotes(&posts[i])
	}
	return posts, nil
}

func (p gormPosts) Update(ctx context.Context, kind, id string, patch models.PostPatch) error {
	cols := []string{"updated_at"}
	values := models.Post{UpdatedAt: time.Now()}
	if patch.Title != nil {
		cols = append(cols, "title")
		values.Title = *patch.Title
	}
	if patch.Description != nil {
		cols = append(cols, "description")
		values.Description = *patch.Description
	}
	if patch.Media != nil {
		cols = append(cols, "media")
		values.Media = *patch.Media
	}
	if patch.Tags != nil {
		cols = append(cols, "tags")
		values.Tags = *patch.Tags
		if values.Tags == nil {
			values.Tags = []string{}
		}
	}
	res := p.scoped(ctx, kind).Where("id = ?", id).Select(cols).Updates(&values)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p gormPosts) Delete(ctx context.Context, kind, id string) (bool, error) {
	db := p.db.WithContext(ctx)
	q := db.Where("id = ?", id)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	res := q.Delete(&models.Post{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	if err := db.Where("post_id = ?", id).Delete(&models.PostVote{}).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (p gormPosts) SetVote(ctx context.Context, postID, userID string, value int) error {
	db := p.db.WithContext(ctx)
	var n int64
	if err := db.Model(&models.Post{}).Where("id = ?", postID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if value == 0 {
		return db.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostVote{}).Error
	}
	vote := models.PostVote{PostID: postID, UserID: userID, Value: value, CreatedAt: time.Now()}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&vote).Error
}

func (p gormPosts) Count(ctx context.Context, kind string) (int64, error) {
	var n int64
	err := p.scoped(ctx, kind).Count(&n).Error
	return n, err
}

// splitVotes derives the upVotes/downVotes sets from the vote rows.
func splitVotes(post *models.Post) {
	post.UpVotes = make([]string, 0, len(post.Votes))
	post.DownVotes = make([]string, 0)
	for _, v := range post.Votes {
		if v.Value > 0 {
			post.UpVotes = append(post.UpVotes, v.UserID)
		} else if v.Value < 0 {
			post.DownVotes = append(post.DownVotes, v.UserID)
		}
	}
	post.Votes = nil
	post.Normalize()
}
