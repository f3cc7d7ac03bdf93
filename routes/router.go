package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/knowledgenexus/forum/config"
	"github.com/knowledgenexus/forum/controllers"
	"github.com/knowledgenexus/forum/middleware"
	"github.com/knowledgenexus/forum/models"
	"github.com/knowledgenexus/forum/services"
	"github.com/knowledgenexus/forum/store"
	"github.com/knowledgenexus/forum/utils"
)

// Deps are the long-lived collaborators the router is built from. Optional fields
// fall back to defaults.
type Deps struct {
	Config       config.AppConfig
	Store        store.Store
	Tokens       *utils.TokenManager
	Blacklist    utils.TokenBlacklist
	Captcha      *utils.Captcha
	States       *utils.StateStore
	Logger       *zap.Logger
	AccessLogger *zap.Logger
}

func (d *Deps) defaults() {
	if d.Tokens == nil {
		d.Tokens = utils.NewTokenManager(d.Config.JWTSecret, time.Duration(d.Config.JWTTTLHours)*time.Hour)
	}
	if d.Blacklist == nil {
		d.Blacklist = utils.NewTokenBlacklist()
	}
	if d.Captcha == nil {
		d.Captcha = utils.NewCaptcha()
	}
	if d.States == nil {
		d.States = utils.NewStateStore(10 * time.Minute)
	}
	if d.Logger == nil {
		d.Logger = utils.L()
	}
	if d.AccessLogger == nil {
		d.AccessLogger = d.Logger
	}
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) *gin.Engine {
	d.defaults()
	cfg := d.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(utils.Ginzap(d.AccessLogger))
	r.Use(utils.RecoveryWithZap(d.Logger, true))
	r.Use(cors.New(corsConfig(cfg)))

	courses := services.NewPostService(d.Store, models.KindCourse, d.Logger)
	forums := services.NewPostService(d.Store, models.KindForum, d.Logger)
	users := services.NewUserService(d.Store, cfg.IsAdminUsername, d.Logger)
	feedback := services.NewFeedbackService(d.Store, d.Logger)

	authController := controllers.NewAuthController(cfg, users, d.Tokens, d.Blacklist, d.Captcha, d.States)
	userController := controllers.NewUserController(users)
	replyController := controllers.NewReplyController(services.NewReplyService(d.Store, d.Logger))
	feedbackController := controllers.NewFeedbackController(feedback)
	statsController := controllers.NewStatsController(feedback)

	authRequired := middleware.AuthRequired(d.Tokens, d.Blacklist)
	writeLimit := middleware.RateLimit(cfg.RateLimitPerMinute)

	r.GET("/health", statsController.Health)

	api := r.Group("/api")
	api.Use(middleware.Timeout(time.Duration(cfg.RequestTimeoutSec) * time.Second))

	mountPosts(api.Group("/course"), controllers.NewPostController(courses), authRequired, writeLimit)
	mountPosts(api.Group("/forums"), controllers.NewPostController(forums), authRequired, writeLimit)

	replies := api.Group("/replies")
	replies.GET("/find/:id", replyController.Find)
	replies.POST("", authRequired, writeLimit, replyController.Create)
	replies.PUT("/:id", authRequired, writeLimit, replyController.Update)
	replies.DELETE("/:id", authRequired, replyController.Delete)

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/captcha", authController.Captcha)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/logout", authRequired, authController.Logout)
	authGroup.GET("/me", authRequired, authController.Me)

	usersGroup := api.Group("/users")
	usersGroup.GET("", authRequired, userController.List)
	usersGroup.GET("/find/:id", userController.Find)
	usersGroup.GET("/:id/posts", userController.Posts)
	usersGroup.PUT("/:id", authRequired, writeLimit, userController.Update)

	feedbackGroup := api.Group("/feedback")
	feedbackGroup.POST("", middleware.RateLimit(cfg.RateLimitPerMinute),
		middleware.OptionalAuth(d.Tokens, d.Blacklist), feedbackController.Submit)
	feedbackGroup.GET("", authRequired, feedbackController.List)

	api.GET("/stats", statsController.GetStats)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}

func mountPosts(g *gin.RouterGroup, c *controllers.PostController, auth, limit gin.HandlerFunc) {
	g.GET("", c.List)
	g.GET("/find/:id", c.Find)
	g.POST("", auth, limit, c.Create)
	g.PUT("/:id", auth, limit, c.Update)
	g.DELETE("/:id", auth, c.Delete)
	g.PUT("/:id/upvote", auth, limit, c.Upvote)
	g.PUT("/:id/downvote", auth, limit, c.Downvote)
}

func corsConfig(cfg config.AppConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
	}
	return c
}
