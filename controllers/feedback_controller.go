package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/knowledgenexus/forum/middleware"
	"github.com/knowledgenexus/forum/services"
	"github.com/knowledgenexus/forum/utils"
)

// FeedbackController accepts public feedback and lists it for admins.
type FeedbackController struct {
	feedback *services.FeedbackService
}

func NewFeedbackController(feedback *services.FeedbackService) *FeedbackController {
	return &FeedbackController{feedback: feedback}
}

func (f *FeedbackController) Submit(ctx *gin.Context) {
	var in services.FeedbackInput
	if !bindJSON(ctx, &in) {
		return
	}
	fb, err := f.feedback.Submit(ctx.Request.Context(), middleware.ActorFrom(ctx), in)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Created(ctx, fb)
}

func (f *FeedbackController) List(ctx *gin.Context) {
	out, err := f.feedback.List(ctx.Request.Context(), middleware.ActorFrom(ctx))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, out)
}
