package controllers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/knowledgenexus/forum/services"
	"github.com/knowledgenexus/forum/utils"
)

// StatsController provides forum statistics and the health probe.
type StatsController struct {
	feedback *services.FeedbackService
	started  time.Time
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(feedback *services.FeedbackService) *StatsController {
	return &StatsController{feedback: feedback, started: time.Now()}
}

// GetStats returns entity counts for the forum.
func (s *StatsController) GetStats(ctx *gin.Context) {
	st, err := s.feedback.Stats(ctx.Request.Context())
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, st)
}

// Health reports liveness and uptime.
func (s *StatsController) Health(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}
