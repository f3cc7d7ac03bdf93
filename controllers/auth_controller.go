package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/knowledgenexus/forum/config"
	"github.com/knowledgenexus/forum/middleware"
	"github.com/knowledgenexus/forum/models"
	"github.com/knowledgenexus/forum/services"
	"github.com/knowledgenexus/forum/utils"
)

// AuthController handles registration, login, logout and OAuth.
type AuthController struct {
	cfg       config.AppConfig
	users     *services.UserService
	tokens    *utils.TokenManager
	blacklist utils.TokenBlacklist
	captcha   *utils.Captcha
	states    *utils.StateStore
	oauth     *oauthProviders
}

// NewAuthController wires the auth endpoints.
func NewAuthController(cfg config.AppConfig, users *services.UserService, tokens *utils.TokenManager,
	blacklist utils.TokenBlacklist, captcha *utils.Captcha, states *utils.StateStore) *AuthController {
	return &AuthController{
		cfg:       cfg,
		users:     users,
		tokens:    tokens,
		blacklist: blacklist,
		captcha:   captcha,
		states:    states,
		oauth:     newOAuthProviders(cfg),
	}
}

func (a *AuthController) issue(ctx *gin.Context, status int, user *models.User) {
	token, exp, err := a.tokens.Generate(user.ID, user.Username, user.Role)
	if err != nil {
		utils.Fail(ctx, utils.Internal(50004, "failed to generate token", err))
		return
	}
	utils.Respond(ctx, status, 0, "success", gin.H{
		"token":     token,
		"expiresAt": exp,
		"user":      user,
	})
}

// Register creates a password account and returns a token for it.
func (a *AuthController) Register(ctx *gin.Context) {
	var req struct {
		Username      string `json:"username" binding:"required"`
		Email         string `json:"email"`
		Password      string `json:"password" binding:"required"`
		CaptchaID     string `json:"captchaId"`
		CaptchaAnswer string `json:"captchaAnswer"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	if a.cfg.RegisterCaptchaEnabled && !a.captcha.Verify(req.CaptchaID, req.CaptchaAnswer) {
		utils.Error(ctx, http.StatusBadRequest, 40030, "invalid captcha")
		return
	}

	user, err := a.users.Register(ctx.Request.Context(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	a.issue(ctx, http.StatusCreated, user)
}

// Login exchanges a username and password for a token.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	user, err := a.users.Login(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	user.PasswordHash = ""
	a.issue(ctx, http.StatusOK, user)
}

// Logout revokes the presented token until it would have expired anyway.
func (a *AuthController) Logout(ctx *gin.Context) {
	token, exp := middleware.TokenFrom(ctx)
	if exp.IsZero() {
		exp = time.Now().Add(a.tokens.TTL())
	}
	a.blacklist.Revoke(ctx.Request.Context(), token, exp)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated user's profile.
func (a *AuthController) Me(ctx *gin.Context) {
	actor := middleware.ActorFrom(ctx)
	user, err := a.users.Profile(ctx.Request.Context(), actor.ID)
	if err != nil {
		if utils.KindOf(err) == utils.KindNotFound {
			utils.Error(ctx, http.StatusUnauthorized, 40115, "authentication required")
			return
		}
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, user)
}

// Captcha issues a registration captcha.
func (a *AuthController) Captcha(ctx *gin.Context) {
	id, image, err := a.captcha.Generate()
	if err != nil {
		utils.Fail(ctx, utils.Internal(50030, "failed to generate captcha", err))
		return
	}
	utils.Success(ctx, gin.H{"captchaId": id, "image": image})
}
