package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/aiblog/config"
	"github.com/cppla/aiblog/repository"
	"github.com/cppla/aiblog/seo"
	"github.com/cppla/aiblog/utils"
)

const (
	FeedPath    = "/blog/feed/"
	SitemapPath = "/sitemap.xml"
	HomePath    = "/api/v1/posts"

	feedItems            = 5
	feedDescriptionWords = 30
)

// FeedController renders the RSS feed and the sitemap.
type FeedController struct {
	repos repository.Repositories
	loc   *time.Location
}

func NewFeedController(repos repository.Repositories) *FeedController {
	return &FeedController{repos: repos, loc: config.Get().Location()}
}

// Feed returns the latest posts as RSS 2.0; descriptions are the first words of the rendered body.
func (f *FeedController) Feed(ctx *gin.Context) {
	posts, err := f.repos.Posts.Latest(ctx.Request.Context(), feedItems)
	if err != nil {
		respondError(ctx, err, 40401, 50060, "feed")
		return
	}

	cfg := config.Get()
	b := seo.NewFeedBuilder(cfg.SiteURL, cfg.SiteTitle, HomePath, cfg.SiteDescription)
	for i := range posts {
		post := &posts[i]
		rendered, err := utils.RenderMarkdown(post.Body)
		if err != nil {
			rendered = utils.Sanitize(post.Body)
		}
		b.Add(seo.FeedItem{
			Title:       post.Title,
			Path:        post.AbsolutePath(f.loc),
			Description: utils.TruncateWordsHTML(rendered, feedDescriptionWords),
			Published:   post.PublishAt,
		})
	}

	out, err := b.Build()
	if err != nil {
		utils.Sugar.Errorf("build feed: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to build feed")
		return
	}
	ctx.Data(http.StatusOK, "application/rss+xml; charset=utf-8", out)
}

// Sitemap lists the post listing, every published post and every tag in use.
func (f *FeedController) Sitemap(ctx *gin.Context) {
	rctx := ctx.Request.Context()
	posts, err := f.repos.Posts.AllPublished(rctx)
	if err != nil {
		respondError(ctx, err, 40401, 50062, "sitemap")
		return
	}
	tags, err := f.repos.Tags.ListUsed(rctx)
	if err != nil {
		respondError(ctx, err, 40401, 50062, "sitemap")
		return
	}

	b := seo.NewSitemapBuilder(config.Get().SiteURL)
	b.AddHome(HomePath)
	for i := range posts {
		b.AddPost(posts[i].AbsolutePath(f.loc), posts[i].UpdatedAt)
	}
	for _, t := range tags {
		b.AddTag("/api/v1/tag/" + t.Slug)
	}

	out, err := b.Build()
	if err != nil {
		utils.Sugar.Errorf("build sitemap: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50063, "failed to build sitemap")
		return
	}
	ctx.Data(http.StatusOK, "application/xml; charset=utf-8", out)
}
