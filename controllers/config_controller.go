package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/aiblog/config"
	"github.com/cppla/aiblog/utils"
)

// ConfigController serves the public, configuration-driven site settings.
type ConfigController struct{}

func NewConfigController() *ConfigController { return &ConfigController{} }

// GetSite returns the site identity and listing settings clients need to build links.
func (c *ConfigController) GetSite(ctx *gin.Context) {
	cfg := config.Get()
	utils.Success(ctx, gin.H{
		"title":       cfg.SiteTitle,
		"description": cfg.SiteDescription,
		"url":         cfg.SiteURL,
		"time_zone":   cfg.Location().String(),
		"page_size":   cfg.PageSize,
		"feed":        cfg.SiteURL + FeedPath,
		"sitemap":     cfg.SiteURL + SitemapPath,
	})
}
