package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/aiblog/config"
	"github.com/cppla/aiblog/metrics"
	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/repository"
	"github.com/cppla/aiblog/utils"
)

const (
	similarPostsLimit = 4
	sidebarDefault    = 5
)

// PostController serves the public blog: listings, detail, comments, sharing and search.
type PostController struct {
	repos  repository.Repositories
	mailer utils.Mailer
	loc    *time.Location
}

// NewPostController creates a new PostController instance.
func NewPostController(repos repository.Repositories, mailer utils.Mailer) *PostController {
	return &PostController{repos: repos, mailer: mailer, loc: config.Get().Location()}
}

// ListPosts returns one page of published posts, newest first.
func (p *PostController) ListPosts(ctx *gin.Context) {
	p.listPosts(ctx, "")
}

// ListByTag returns one page of published posts carrying the tag.
func (p *PostController) ListByTag(ctx *gin.Context) {
	p.listPosts(ctx, strings.TrimSpace(ctx.Param("tag")))
}

func (p *PostController) listPosts(ctx *gin.Context, tag string) {
	rawPage := strings.TrimSpace(ctx.Query("page"))
	cacheKey := fmt.Sprintf("%stag=%s:page=%s", utils.CachePostList, tag, rawPage)
	if serveCached(ctx, cacheKey) {
		return
	}

	page, err := p.repos.Posts.ListPublished(ctx.Request.Context(), repository.ListQuery{
		Page:     rawPage,
		PageSize: config.Get().PageSize,
		TagSlug:  tag,
	})
	if err != nil {
		what := "posts"
		if tag != "" {
			what = "tag"
		}
		respondError(ctx, err, 40402, 50020, what)
		return
	}

	payload := gin.H{
		"items":      p.summaries(page.Items),
		"pagination": page.Page,
	}
	if page.Tag != nil {
		payload["tag"] = page.Tag
	}
	utils.CacheResponse(ctx.Request.Context(), cacheKey, payload)
	utils.Success(ctx, payload)
}

// GetPost returns a published post by publish date and slug, with rendered body,
// active comments and similar posts.
func (p *PostController) GetPost(ctx *gin.Context) {
	year, errY := strconv.Atoi(ctx.Param("year"))
	month, errM := strconv.Atoi(ctx.Param("month"))
	day, errD := strconv.Atoi(ctx.Param("day"))
	if errY != nil || errM != nil || errD != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}

	cacheKey := utils.CachePostDetail + ctx.Request.URL.Path
	if serveCached(ctx, cacheKey) {
		return
	}

	rctx := ctx.Request.Context()
	post, err := p.repos.Posts.GetByNaturalKey(rctx, year, month, day, ctx.Param("slug"))
	if err != nil {
		respondError(ctx, err, 40401, 50021, "post")
		return
	}

	bodyHTML, err := utils.RenderMarkdown(post.Body)
	if err != nil {
		utils.Sugar.Warnf("render markdown post=%d err=%v", post.ID, err)
		bodyHTML = utils.Sanitize(post.Body)
	}

	comments, err := p.repos.Comments.ListActive(rctx, post.ID)
	if err != nil {
		respondError(ctx, err, 40401, 50022, "comments")
		return
	}

	similar, err := p.repos.Posts.FindSimilar(rctx, post, similarPostsLimit)
	if err != nil {
		respondError(ctx, err, 40401, 50023, "similar posts")
		return
	}
	similarOut := make([]gin.H, 0, len(similar))
	for _, s := range similar {
		item := p.summary(s.Post)
		item["shared_tags"] = s.SharedTags
		similarOut = append(similarOut, item)
	}

	payload := gin.H{
		"post":          post,
		"url":           p.url(post),
		"body_html":     bodyHTML,
		"comments":      comments,
		"similar_posts": similarOut,
	}
	utils.CacheResponse(ctx.Request.Context(), cacheKey, payload)
	utils.Success(ctx, payload)
}

type commentRequest struct {
	Name          string `json:"name" binding:"required,max=80"`
	Email         string `json:"email" binding:"required,email,max=254"`
	Body          string `json:"body" binding:"required"`
	CaptchaID     string `json:"captcha_id"`
	CaptchaAnswer string `json:"captcha_answer"`
}

// CreateComment adds an active comment to a published post.
func (p *PostController) CreateComment(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}

	var req commentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		metrics.CommentsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		utils.ValidationError(ctx, 40010, err)
		return
	}
	if !captchaPassed(ctx, req.CaptchaID, req.CaptchaAnswer) {
		metrics.CommentsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return
	}
	name := utils.StripTags(req.Name)
	body := utils.StripTags(req.Body)
	if name == "" || body == "" {
		metrics.CommentsTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		fields := gin.H{}
		if name == "" {
			fields["name"] = "this field is required"
		}
		if body == "" {
			fields["body"] = "this field is required"
		}
		utils.Respond(ctx, http.StatusBadRequest, 40011, "invalid request payload", gin.H{"fields": fields})
		return
	}

	comment, err := p.repos.Comments.Create(ctx.Request.Context(), postID, repository.CommentInput{
		Name:  name,
		Email: req.Email,
		Body:  body,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.CommentsTotal.WithLabelValues(metrics.OutcomeNotFound).Inc()
		}
		respondError(ctx, err, 40401, 50024, "post")
		return
	}

	metrics.CommentsTotal.WithLabelValues(metrics.OutcomeCreated).Inc()
	utils.InvalidateByPrefix(ctx.Request.Context(), utils.CachePostDetail, utils.CacheSidebar)
	ctx.JSON(http.StatusCreated, utils.JSONResponse{Code: 0, Message: "success", Data: gin.H{"comment": comment}})
}

type shareRequest struct {
	Name          string `json:"name" binding:"required,max=25"`
	Email         string `json:"email" binding:"required,email"`
	To            string `json:"to" binding:"required,email"`
	Comments      string `json:"comments"`
	CaptchaID     string `json:"captcha_id"`
	CaptchaAnswer string `json:"captcha_answer"`
}

// SharePost emails a recommendation for a published post.
func (p *PostController) SharePost(ctx *gin.Context) {
	postID, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}

	var req shareRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		metrics.SharesTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		utils.ValidationError(ctx, 40012, err)
		return
	}
	if !captchaPassed(ctx, req.CaptchaID, req.CaptchaAnswer) {
		metrics.SharesTotal.WithLabelValues(metrics.OutcomeRejected).Inc()
		return
	}

	post, err := p.repos.Posts.GetPublishedByID(ctx.Request.Context(), postID)
	if err != nil {
		respondError(ctx, err, 40401, 50025, "post")
		return
	}

	name := utils.StripTags(req.Name)
	subject, body := ShareMessage(name, post.Title, p.url(post), utils.StripTags(req.Comments))
	if err := p.mailer.Send(req.To, subject, body); err != nil {
		metrics.SharesTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		utils.Logger.Error("share mail failed", zap.Uint("post_id", post.ID), zap.Error(err))
		if errors.Is(err, utils.ErrMailNotConfigured) {
			utils.Error(ctx, http.StatusServiceUnavailable, 50301, "mail is not configured")
			return
		}
		utils.Error(ctx, http.StatusBadGateway, 50201, "failed to send email")
		return
	}

	metrics.SharesTotal.WithLabelValues(metrics.OutcomeSent).Inc()
	utils.Success(ctx, gin.H{"sent": true, "to": req.To})
}

// Captcha issues a captcha for the comment and share forms.
func (p *PostController) Captcha(ctx *gin.Context) {
	id, image, err := utils.GenerateCaptcha()
	if err != nil {
		utils.Logger.Error("generate captcha", zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50029, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{
		"captcha_id": id,
		"image":      image,
		"required":   config.Get().CaptchaEnabled,
	})
}

// ShareMessage builds the subject and body of a recommendation email.
func ShareMessage(name, title, url, comments string) (string, string) {
	subject := fmt.Sprintf("%s recommends you read %s", name, title)
	body := fmt.Sprintf("Read %s at %s\n\n%s's comments: %s", title, url, name, comments)
	return subject, body
}

type searchRequest struct {
	Query string `form:"query" binding:"required"`
}

// Search ranks published posts by trigram similarity to the query.
func (p *PostController) Search(ctx *gin.Context) {
	var req searchRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		utils.ValidationError(ctx, 40013, err)
		return
	}

	cfg := config.Get()
	mode := repository.SearchMode(cfg.SearchMode)
	if mode != repository.SearchWeighted {
		mode = repository.SearchTitle
	}
	hits, err := p.repos.Posts.Search(ctx.Request.Context(), req.Query, cfg.SearchThreshold, mode)
	if err != nil {
		respondError(ctx, err, 40401, 50026, "search results")
		return
	}
	metrics.SearchesTotal.WithLabelValues(string(mode)).Inc()
	metrics.SearchResults.Observe(float64(len(hits)))

	results := make([]gin.H, 0, len(hits))
	for _, h := range hits {
		item := p.summary(h.Post)
		item["similarity"] = h.Similarity
		results = append(results, item)
	}
	utils.Success(ctx, gin.H{"query": req.Query, "results": results})
}

// Latest returns the most recently published posts.
func (p *PostController) Latest(ctx *gin.Context) {
	count := countParam(ctx, sidebarDefault)
	cacheKey := fmt.Sprintf("%slatest:%d", utils.CacheSidebar, count)
	if serveCached(ctx, cacheKey) {
		return
	}
	posts, err := p.repos.Posts.Latest(ctx.Request.Context(), count)
	if err != nil {
		respondError(ctx, err, 40401, 50027, "latest posts")
		return
	}
	payload := gin.H{"items": p.summaries(posts)}
	utils.CacheResponse(ctx.Request.Context(), cacheKey, payload)
	utils.Success(ctx, payload)
}

// MostCommented returns the published posts with the most active comments.
func (p *PostController) MostCommented(ctx *gin.Context) {
	count := countParam(ctx, sidebarDefault)
	cacheKey := fmt.Sprintf("%smost-commented:%d", utils.CacheSidebar, count)
	if serveCached(ctx, cacheKey) {
		return
	}
	posts, err := p.repos.Posts.MostCommented(ctx.Request.Context(), count)
	if err != nil {
		respondError(ctx, err, 40401, 50028, "most commented posts")
		return
	}
	items := make([]gin.H, 0, len(posts))
	for _, cp := range posts {
		item := p.summary(cp.Post)
		item["total_comments"] = cp.TotalComments
		items = append(items, item)
	}
	payload := gin.H{"items": items}
	utils.CacheResponse(ctx.Request.Context(), cacheKey, payload)
	utils.Success(ctx, payload)
}

func (p *PostController) url(post *models.Post) string {
	return config.Get().SiteURL + post.AbsolutePath(p.loc)
}

func (p *PostController) summary(post models.Post) gin.H {
	return gin.H{
		"id":      post.ID,
		"title":   post.Title,
		"slug":    post.Slug,
		"author":  post.Author.Username,
		"publish": post.PublishAt,
		"tags":    post.Tags,
		"path":    post.AbsolutePath(p.loc),
	}
}

func (p *PostController) summaries(posts []models.Post) []gin.H {
	out := make([]gin.H, 0, len(posts))
	for _, post := range posts {
		out = append(out, p.summary(post))
	}
	return out
}
