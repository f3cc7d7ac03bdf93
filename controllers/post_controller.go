package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/knowledgenexus/forum/middleware"
	"github.com/knowledgenexus/forum/models"
	"github.com/knowledgenexus/forum/services"
	"github.com/knowledgenexus/forum/utils"
)

// immutablePostFields may never appear in an update payload.
var immutablePostFields = []string{"id", "creator", "creatorId", "createdAt", "kind"}

// PostController serves one post kind. Course and forum routes each get their own instance.
type PostController struct {
	posts *services.PostService
}

// NewPostController creates a controller over the given post service.
func NewPostController(posts *services.PostService) *PostController {
	return &PostController{posts: posts}
}

// Create stores a post owned by the authenticated user.
func (p *PostController) Create(ctx *gin.Context) {
	var in services.PostInput
	if !bindJSON(ctx, &in) {
		return
	}
	post, err := p.posts.Create(ctx.Request.Context(), middleware.ActorFrom(ctx), in)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Created(ctx, post)
}

// List returns every post of the kind, newest first.
func (p *PostController) List(ctx *gin.Context) {
	posts, err := p.posts.List(ctx.Request.Context())
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, posts)
}

// Find returns one post with replies and creators expanded.
func (p *PostController) Find(ctx *gin.Context) {
	post, err := p.posts.Find(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// Update applies an allowlisted patch; unknown and immutable fields are rejected.
func (p *PostController) Update(ctx *gin.Context) {
	var patch models.PostPatch
	if !decodeStrict(ctx, &patch, immutablePostFields...) {
		return
	}
	post, err := p.posts.Update(ctx.Request.Context(), middleware.ActorFrom(ctx), ctx.Param("id"), patch)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, post)
}

// Delete removes the post, its replies and the creator's reference to it.
func (p *PostController) Delete(ctx *gin.Context) {
	if err := p.posts.Delete(ctx.Request.Context(), middleware.ActorFrom(ctx), ctx.Param("id")); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": p.posts.Kind() + " deleted"})
}

func (p *PostController) Upvote(ctx *gin.Context) { p.vote(ctx, 1) }
func (p *PostController) Downvote(ctx *gin.Context) { p.vote(ctx, -1) }

func (p *PostController) vote(ctx *gin.Context, dir int) {
	post, err := p.posts.Vote(ctx.Request.Context(), middleware.ActorFrom(ctx), ctx.Param("id"), dir)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, post)
}
