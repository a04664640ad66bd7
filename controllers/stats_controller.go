package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/aiblog/config"
	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/repository"
	"github.com/cppla/aiblog/utils"
)

// StatsController provides blog statistics such as post and comment totals and today's views.
type StatsController struct {
	db    *gorm.DB
	repos repository.Repositories
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB, repos repository.Repositories) *StatsController {
	return &StatsController{db: db, repos: repos}
}

// GetStats returns aggregate statistics for the blog.
func (s *StatsController) GetStats(ctx *gin.Context) {
	rctx := ctx.Request.Context()

	posts, err := s.repos.Posts.CountPublished(rctx)
	if err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		utils.Sugar.Warnf("stats: %v", err)
		posts = 0
	}

	comments, err := s.repos.Comments.CountActive(rctx)
	if err != nil {
		utils.Sugar.Warnf("stats: %v", err)
		comments = 0
	}

	var views int64
	today := models.ViewDay(time.Now(), config.Get().Location())
	if err := s.db.WithContext(rctx).Model(&models.PageView{}).
		Where("date = ?", today).
		Select("COALESCE(SUM(count),0)").
		Scan(&views).Error; err != nil {
		views = 0
	}

	utils.Success(ctx, gin.H{
		"total_posts":      posts,
		"active_comments":  comments,
		"today_page_views": views,
	})
}
