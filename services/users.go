package services

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/knowledgenexus/forum/models"
	"github.com/knowledgenexus/forum/store"
	"github.com/knowledgenexus/forum/utils"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

var checkPassword = utils.CheckPassword

// RegisterInput is the payload of a password registration.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// OAuthProfile is the identity returned by an OAuth provider.
type OAuthProfile struct {
	Provider   string
	ProviderID string
	Username   string
	Email      string
	AvatarURL  string
}

// UserService handles accounts, credentials and profiles.
type UserService struct {
	store   store.Store
	isAdmin func(username string) bool
	logger  *zap.Logger
}

// NewUserService builds the service; isAdmin decides which usernames are created as admins.
func NewUserService(s store.Store, isAdmin func(username string) bool, logger *zap.Logger) *UserService {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{store: s, isAdmin: isAdmin, logger: logger}
}

var (
	errBadCredentials = utils.Unauthenticated(codeBadCredentials, "invalid username or password")
	errUserNotFound   = utils.NotFound(codeUserNotFound, "user not found")
	errUsernameTaken  = utils.Conflict(codeUsernameTaken, "username already taken")
)

// Register creates a password account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if !usernamePattern.MatchString(in.Username) {
		return nil, validation("username must be 3-32 letters, digits, dots, dashes or underscores")
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			return nil, validation("invalid email address")
		}
	}
	if !utils.PasswordAcceptable(in.Password) {
		return nil, validation("password must be 6 to 72 characters")
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, utils.Internal(codeInternal, "failed to register", err)
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         models.RoleRegular,
	}
	if s.isAdmin(in.Username) {
		user.Role = models.RoleAdmin
	}
	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errUsernameTaken
		}
		return nil, utils.Wrap(err, codeInternal, "failed to register")
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", user.Role))
	return s.Profile(ctx, user.ID)
}

// Login verifies a username and password. Both unknown users and wrong passwords
// produce the same error.
func (s *UserService) Login(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.store.Users().FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, utils.Wrap(err, codeStoreReadFailed, "login failed")
		}
		// unknown users pay the same bcrypt cost as a wrong password
		checkPassword("", password)
		return nil, errBadCredentials
	}
	if !checkPassword(user.PasswordHash, password) {
		return nil, errBadCredentials
	}
	return user, nil
}

// OAuthLogin returns the account linked to the provider identity, creating it on first use.
func (s *UserService) OAuthLogin(ctx context.Context, p OAuthProfile) (*models.User, error) {
	if p.Provider == "" || p.ProviderID == "" {
		return nil, validation("incomplete provider identity")
	}
	user, err := s.store.Users().FindByProvider(ctx, p.Provider, p.ProviderID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, utils.Wrap(err, codeInternal, "login failed")
	}

	base := sanitizeUsername(p.Username)
	if base == "" {
		base = p.Provider + "_user"
	}
	for attempt := 0; attempt < 3; attempt++ {
		name := base
		if attempt > 0 {
			name = base + "_" + uuid.NewString()[:6]
		}
		user = &models.User{
			Username:   name,
			Email:      p.Email,
			Provider:   p.Provider,
			ProviderID: p.ProviderID,
			AvatarURL:  p.AvatarURL,
			Role:       models.RoleRegular,
		}
		if s.isAdmin(name) {
			user.Role = models.RoleAdmin
		}
		err = s.store.Users().Create(ctx, user)
		if err == nil {
			s.logger.Info("oauth user created", zap.String("provider", p.Provider), zap.String("user_id", user.ID))
			return user, nil
		}
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, utils.Wrap(err, codeInternal, "login failed")
		}
	}
	return nil, errUsernameTaken
}

func sanitizeUsername(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < 128 && (r == '_' || r == '-' || r == '.' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > 24 {
		out = out[:24]
	}
	if len(out) < 3 {
		return ""
	}
	return out
}

// Profile returns a user with its posts set and postsCount.
func (s *UserService) Profile(ctx context.Context, id string) (*models.User, error) {
	user, err := s.store.Users().Find(ctx, id)
	if err != nil {
		return nil, storeErr(err, errUserNotFound)
	}
	user.PasswordHash = ""
	return user, nil
}

// List returns every user. Admin only.
func (s *UserService) List(ctx context.Context, actor *Actor) ([]models.User, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}
	users, err := s.store.Users().List(ctx)
	if err != nil {
		return nil, utils.Wrap(err, codeStoreReadFailed, "failed to list users")
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}

// UpdateProfile changes email or avatar. A user may edit itself; admins may edit anyone.
func (s *UserService) UpdateProfile(ctx context.Context, actor *Actor, id string, patch models.UserPatch) (*models.User, error) {
	if _, err := s.Profile(ctx, id); err != nil {
		return nil, err
	}
	if err := Authorize(actor, id, ActionUpdate); err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, validation("no updatable fields supplied")
	}
	if patch.Email != nil {
		v := strings.TrimSpace(*patch.Email)
		if v != "" {
			if _, err := mail.ParseAddress(v); err != nil {
				return nil, validation("invalid email address")
			}
		}
		patch.Email = &v
	}
	if patch.AvatarURL != nil {
		v := utils.SanitizePlain(*patch.AvatarURL)
		patch.AvatarURL = &v
	}
	if err := s.store.Users().UpdateProfile(ctx, id, patch); err != nil {
		return nil, storeErr(err, errUserNotFound)
	}
	return s.Profile(ctx, id)
}

// PostsBy lists the posts a user created, newest first.
func (s *UserService) PostsBy(ctx context.Context, id string) ([]models.Post, error) {
	if _, err := s.Profile(ctx, id); err != nil {
		return nil, err
	}
	posts, err := s.store.Posts().ListByCreator(ctx, id)
	if err != nil {
		return nil, utils.Wrap(err, codeStoreReadFailed, "failed to list posts")
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}
