package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/aiblog/middleware"
	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/repository"
	"github.com/cppla/aiblog/utils"
)

const adminPageSize = 20

// AdminController is the staff API over every post and comment.
type AdminController struct {
	repos repository.Repositories
}

func NewAdminController(repos repository.Repositories) *AdminController {
	return &AdminController{repos: repos}
}

// ListPosts lists posts in any status; filters: status, author, q (title/body).
func (a *AdminController) ListPosts(ctx *gin.Context) {
	q := repository.AdminQuery{
		Page:     ctx.Query("page"),
		PageSize: adminPageSize,
		Status:   models.PostStatus(strings.ToUpper(strings.TrimSpace(ctx.Query("status")))),
		Search:   ctx.Query("q"),
	}
	if q.Status != "" && !q.Status.Valid() {
		utils.Error(ctx, http.StatusBadRequest, 40031, "invalid status")
		return
	}
	if v := strings.TrimSpace(ctx.Query("author")); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40032, "invalid author")
			return
		}
		q.AuthorID = uint(id)
	}

	page, err := a.repos.Posts.ListAll(ctx.Request.Context(), q)
	if err != nil {
		respondError(ctx, err, 40401, 50040, "posts")
		return
	}
	utils.Success(ctx, gin.H{"items": page.Items, "pagination": page.Page})
}

type postRequest struct {
	Title   string     `json:"title" binding:"required,max=250"`
	Slug    string     `json:"slug" binding:"max=250"`
	Body    string     `json:"body" binding:"required"`
	Status  string     `json:"status"`
	Publish *time.Time `json:"publish"`
	Tags    []string   `json:"tags"`
}

func (r postRequest) input(authorID uint) repository.PostInput {
	in := repository.PostInput{
		Title:    r.Title,
		Slug:     r.Slug,
		Body:     r.Body,
		AuthorID: authorID,
		Status:   models.PostStatus(strings.ToUpper(strings.TrimSpace(r.Status))),
		Tags:     r.Tags,
	}
	if r.Publish != nil {
		in.PublishAt = *r.Publish
	}
	return in
}

// CreatePost stores a new post authored by the current user.
func (a *AdminController) CreatePost(ctx *gin.Context) {
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.ValidationError(ctx, 40033, err)
		return
	}
	post, err := a.repos.Posts.Create(ctx.Request.Context(), req.input(middleware.CurrentUserID(ctx)))
	if err != nil {
		respondError(ctx, err, 40401, 50041, "post")
		return
	}
	utils.InvalidatePostCaches(ctx.Request.Context())
	ctx.JSON(http.StatusCreated, utils.JSONResponse{Code: 0, Message: "success", Data: gin.H{"post": post}})
}

// UpdatePost replaces a post's fields and tags; the author is kept.
func (a *AdminController) UpdatePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}
	var req postRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.ValidationError(ctx, 40033, err)
		return
	}
	current, err := a.repos.Posts.GetByID(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err, 40401, 50042, "post")
		return
	}
	post, err := a.repos.Posts.Update(ctx.Request.Context(), id, req.input(current.AuthorID))
	if err != nil {
		respondError(ctx, err, 40401, 50042, "post")
		return
	}
	utils.InvalidatePostCaches(ctx.Request.Context())
	utils.Success(ctx, gin.H{"post": post})
}

// PublishPost moves a post to Published.
func (a *AdminController) PublishPost(ctx *gin.Context) {
	a.setStatus(ctx, true)
}

// UnpublishPost moves a post back to Draft.
func (a *AdminController) UnpublishPost(ctx *gin.Context) {
	a.setStatus(ctx, false)
}

func (a *AdminController) setStatus(ctx *gin.Context, publish bool) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}
	op := a.repos.Posts.Unpublish
	if publish {
		op = a.repos.Posts.Publish
	}
	if err := op(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err, 40401, 50043, "post")
		return
	}
	post, err := a.repos.Posts.GetByID(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err, 40401, 50043, "post")
		return
	}
	utils.InvalidatePostCaches(ctx.Request.Context())
	utils.Success(ctx, gin.H{"post": post, "status_label": post.Status.Label()})
}

// DeletePost removes a post with its comments and tag links.
func (a *AdminController) DeletePost(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
		return
	}
	if err := a.repos.Posts.Delete(ctx.Request.Context(), id); err != nil {
		respondError(ctx, err, 40401, 50044, "post")
		return
	}
	utils.InvalidatePostCaches(ctx.Request.Context())
	utils.Success(ctx, gin.H{"deleted": id})
}

// ListComments lists comments newest first; filters: active (true/false), q (name/email/body).
func (a *AdminController) ListComments(ctx *gin.Context) {
	q := repository.CommentQuery{
		Page:     ctx.Query("page"),
		PageSize: adminPageSize,
		Search:   ctx.Query("q"),
	}
	if v := strings.TrimSpace(ctx.Query("active")); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40034, "invalid active filter")
			return
		}
		q.Active = &active
	}
	page, err := a.repos.Comments.List(ctx.Request.Context(), q)
	if err != nil {
		respondError(ctx, err, 40403, 50045, "comments")
		return
	}
	utils.Success(ctx, gin.H{"items": page.Items, "pagination": page.Page})
}

// ActivateComment shows a hidden comment again.
func (a *AdminController) ActivateComment(ctx *gin.Context) {
	a.setCommentActive(ctx, true)
}

// DeactivateComment hides a comment without deleting it.
func (a *AdminController) DeactivateComment(ctx *gin.Context) {
	a.setCommentActive(ctx, false)
}

func (a *AdminController) setCommentActive(ctx *gin.Context, active bool) {
	id, ok := parseID(ctx, "id")
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40403, "comment not found")
		return
	}
	comment, err := a.repos.Comments.SetActive(ctx.Request.Context(), id, active)
	if err != nil {
		respondError(ctx, err, 40403, 50046, "comment")
		return
	}
	utils.InvalidateByPrefix(ctx.Request.Context(), utils.CachePostDetail, utils.CacheSidebar)
	utils.Success(ctx, gin.H{"comment": comment})
}
