package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/knowledgenexus/forum/middleware"
	"github.com/knowledgenexus/forum/services"
	"github.com/knowledgenexus/forum/utils"
)

// ReplyController manages replies to posts.
type ReplyController struct {
	replies *services.ReplyService
}

func NewReplyController(replies *services.ReplyService) *ReplyController {
	return &ReplyController{replies: replies}
}

func (r *ReplyController) Create(ctx *gin.Context) {
	var req struct {
		Post string `json:"post"`
		Body string `json:"body"`
	}
	if !bindJSON(ctx, &req) {
		return
	}
	reply, err := r.replies.Create(ctx.Request.Context(), middleware.ActorFrom(ctx), req.Post, req.Body)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Created(ctx, reply)
}

func (r *ReplyController) Find(ctx *gin.Context) {
	reply, err := r.replies.Find(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, reply)
}

func (r *ReplyController) Update(ctx *gin.Context) {
	var req struct {
		Body *string `json:"body"`
	}
	if !decodeStrict(ctx, &req, "id", "post", "creator", "creatorId", "createdAt") {
		return
	}
	if req.Body == nil {
		utils.Error(ctx, http.StatusBadRequest, 40023, "body is required")
		return
	}
	reply, err := r.replies.Update(ctx.Request.Context(), middleware.ActorFrom(ctx), ctx.Param("id"), *req.Body)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, reply)
}

func (r *ReplyController) Delete(ctx *gin.Context) {
	if err := r.replies.Delete(ctx.Request.Context(), middleware.ActorFrom(ctx), ctx.Param("id")); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "reply deleted"})
}
