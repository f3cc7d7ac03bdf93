package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/knowledgenexus/forum/models"
)

type gormReplies struct {
	db *gorm.DB
}

// Create inserts the reply; the post_id column is its attachment to the post.
func (r gormReplies) Create(ctx context.Context, reply *models.Reply) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(reply).Error)
}

func (r gormReplies) Find(ctx context.Context, id string) (*models.Reply, error) {
	var reply models.Reply
	err := r.db.WithContext(ctx).Preload("Creator", publicUser).Where("id = ?", id).First(&reply).Error
	if err != nil {
		return nil, translate(err)
	}
	return &reply, nil
}

func (r gormReplies) UpdateBody(ctx context.Context, id, body string) error {
	res := r.db.WithContext(ctx).Model(&models.Reply{}).Where("id = ?", id).
		Updates(map[string]interface{}{"body": body, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r gormReplies) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Reply{})
	return res.RowsAffected > 0, res.Error
}

func (r gormReplies) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Reply{})
	return res.RowsAffected, res.Error
}

func (r gormReplies) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Reply{}).Count(&n).Error
	return n, err
}
