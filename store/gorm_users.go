package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/knowledgenexus/forum/models"
)

type gormUsers struct {
	db *gorm.DB
}

func (u gormUsers) Create(ctx context.Context, user *models.User) error {
	db := u.db.WithContext(ctx)
	var n int64
	if err := db.Model(&models.User{}).Where("username = ?", user.Username).Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return ErrDuplicate
	}
	return translate(db.Create(user).Error)
}

func (u gormUsers) Find(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	db := u.db.WithContext(ctx)
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	user.Posts = []string{}
	err := db.Model(&models.UserPost{}).Where("user_id = ?", id).
		Order("created_at ASC").Order("post_id ASC").Pluck("post_id", &user.Posts).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (u gormUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (u gormUsers) FindByProvider(ctx context.Context, provider, providerID string) (*models.User, error) {
	var user models.User
	err := u.db.WithContext(ctx).Where("provider = ? AND provider_id = ?", provider, providerID).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (u gormUsers) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := u.db.WithContext(ctx).Select(publicUserColumns).Order("created_at ASC").Find(&users).Error
	return users, err
}

func (u gormUsers) UpdateProfile(ctx context.Context, id string, patch models.UserPatch) error {
	updates := map[string]interface{}{"updated_at": time.Now()}
	if patch.Email != nil {
		updates["email"] = *patch.Email
	}
	if patch.AvatarURL != nil {
		updates["avatar_url"] = *patch.AvatarURL
	}
	res := u.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustPostCount uses the user_posts row as the membership marker: the counter only
// moves when the row is inserted or deleted by this call.
func (u gormUsers) AdjustPostCount(ctx context.Context, userID, postID string, delta int) (Adjustment, error) {
	if err := validDelta(delta); err != nil {
		return Adjustment{}, err
	}
	db := u.db.WithContext(ctx)

	if delta > 0 {
		res := db.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.UserPost{UserID: userID, PostID: postID, CreatedAt: time.Now()})
		if res.Error != nil {
			return Adjustment{}, res.Error
		}
		if res.RowsAffected == 0 {
			return Adjustment{}, nil
		}
		res = db.Model(&models.User{}).Where("id = ?", userID).
			UpdateColumn("posts_count", gorm.Expr("posts_count + ?", 1))
		if res.Error != nil {
			return Adjustment{}, res.Error
		}
		if res.RowsAffected == 0 {
			return Adjustment{}, ErrNotFound
		}
		return Adjustment{Changed: true}, nil
	}

	res := db.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.UserPost{})
	if res.Error != nil {
		return Adjustment{}, res.Error
	}
	if res.RowsAffected == 0 {
		return Adjustment{}, nil
	}
	res = db.Model(&models.User{}).Where("id = ? AND posts_count > 0", userID).
		UpdateColumn("posts_count", gorm.Expr("posts_count - ?", 1))
	if res.Error != nil {
		return Adjustment{}, res.Error
	}
	return Adjustment{Changed: true, Clamped: res.RowsAffected == 0}, nil
}

func (u gormUsers) Count(ctx context.Context) (int64, error) {
	var n int64
	err := u.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

type gormFeedback struct {
	db *gorm.DB
}

func (f gormFeedback) Create(ctx context.Context, fb *models.Feedback) error {
	return f.db.WithContext(ctx).Create(fb).Error
}

func (f gormFeedback) List(ctx context.Context) ([]models.Feedback, error) {
	var out []models.Feedback
	err := f.db.WithContext(ctx).Order("created_at DESC").Find(&out).Error
	return out, err
}

func (f gormFeedback) Count(ctx context.Context) (int64, error) {
	var n int64
	err := f.db.WithContext(ctx).Model(&models.Feedback{}).Count(&n).Error
	return n, err
}
