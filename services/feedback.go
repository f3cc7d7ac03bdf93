package services

import (
	"context"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/knowledgenexus/forum/models"
	"github.com/knowledgenexus/forum/store"
	"github.com/knowledgenexus/forum/utils"
)

// FeedbackInput is a message left through the public feedback form.
type FeedbackInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// FeedbackService stores feedback and serves site statistics.
type FeedbackService struct {
	store  store.Store
	logger *zap.Logger
}

func NewFeedbackService(s store.Store, logger *zap.Logger) *FeedbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackService{store: s, logger: logger}
}

// Submit records feedback; actor is optional and only attributes the message.
func (s *FeedbackService) Submit(ctx context.Context, actor *Actor, in FeedbackInput) (*models.Feedback, error) {
	fb := &models.Feedback{
		Name:    utils.SanitizePlain(in.Name),
		Email:   strings.TrimSpace(in.Email),
		Message: utils.Sanitize(in.Message),
	}
	if fb.Message == "" {
		return nil, validation("message is required")
	}
	if len(fb.Message) > 5000 {
		return nil, validation("message is too long")
	}
	if fb.Email != "" {
		if _, err := mail.ParseAddress(fb.Email); err != nil {
			return nil, validation("invalid email address")
		}
	}
	if actor != nil {
		fb.UserID = actor.ID
	}
	if err := s.store.Feedback().Create(ctx, fb); err != nil {
		return nil, utils.Wrap(err, codeInternal, "failed to save feedback")
	}
	return fb, nil
}

// List returns all feedback, newest first. Admin only.
func (s *FeedbackService) List(ctx context.Context, actor *Actor) ([]models.Feedback, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}
	out, err := s.store.Feedback().List(ctx)
	if err != nil {
		return nil, utils.Wrap(err, codeStoreReadFailed, "failed to list feedback")
	}
	if out == nil {
		out = []models.Feedback{}
	}
	return out, nil
}

// Stats counts the main entities.
func (s *FeedbackService) Stats(ctx context.Context) (*models.Stats, error) {
	var (
		st  models.Stats
		err error
	)
	if st.UserCount, err = s.store.Users().Count(ctx); err != nil {
		return nil, utils.Wrap(err, codeStoreReadFailed, "failed to load stats")
	}
	if st.CourseCount, err = s.store.Posts().Count(ctx, models.KindCourse); err != nil {
		return nil, utils.Wrap(err, codeStoreReadFailed, "failed to load stats")
	}
	if st.ForumCount, err = s.store.Posts().Count(ctx, models.KindForum); err != nil {
		return nil, utils.Wrap(err, codeStoreReadFailed, "failed to load stats")
	}
	if st.ReplyCount, err = s.store.Replies().Count(ctx); err != nil {
		return nil, utils.Wrap(err, codeStoreReadFailed, "failed to load stats")
	}
	if st.FeedbackCount, err = s.store.Feedback().Count(ctx); err != nil {
		return nil, utils.Wrap(err, codeStoreReadFailed, "failed to load stats")
	}
	return &st, nil
}
