package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/knowledgenexus/forum/middleware"
	"github.com/knowledgenexus/forum/models"
	"github.com/knowledgenexus/forum/services"
	"github.com/knowledgenexus/forum/utils"
)

// UserController exposes user profiles.
type UserController struct {
	users *services.UserService
}

func NewUserController(users *services.UserService) *UserController {
	return &UserController{users: users}
}

// List returns every user (admin only).
func (u *UserController) List(ctx *gin.Context) {
	users, err := u.users.List(ctx.Request.Context(), middleware.ActorFrom(ctx))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, users)
}

// Find returns a public profile including the posts set and postsCount.
func (u *UserController) Find(ctx *gin.Context) {
	user, err := u.users.Profile(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, user)
}

// Posts lists the posts a user created.
func (u *UserController) Posts(ctx *gin.Context) {
	posts, err := u.users.PostsBy(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, posts)
}

// Update edits email or avatar for the user itself or, for admins, anyone.
func (u *UserController) Update(ctx *gin.Context) {
	var patch models.UserPatch
	if !decodeStrict(ctx, &patch, "id", "username", "role", "posts", "postsCount", "password") {
		return
	}
	user, err := u.users.UpdateProfile(ctx.Request.Context(), middleware.ActorFrom(ctx), ctx.Param("id"), patch)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, user)
}
