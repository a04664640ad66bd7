package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/aiblog/models"
)

// CommentRepo stores reader comments.
type CommentRepo struct {
	db *gorm.DB
}

func NewCommentRepo(db *gorm.DB) *CommentRepo {
	return &CommentRepo{db: db}
}

// CommentInput is a new reader comment.
type CommentInput struct {
	Name  string
	Email string
	Body  string
}

// CommentQuery filters the staff comment listing.
type CommentQuery struct {
	Page     string
	PageSize int
	// Active, when set, keeps only comments in that state.
	Active *bool
	// Search matches name, email or body.
	Search string
}

// CommentPage is one page of comments.
type CommentPage struct {
	Page
	Items []models.Comment `json:"items"`
}

// Create attaches a new active comment to a published post.
// Drafts and unknown posts yield ErrNotFound.
func (r *CommentRepo) Create(ctx context.Context, postID uint, in CommentInput) (*models.Comment, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Select("id", "status").First(&post, postID).Error; err != nil {
		return nil, notFound(err)
	}
	if !post.IsPublished() {
		return nil, ErrNotFound
	}

	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	comment := models.Comment{
		PostID: post.ID,
		Name:   in.Name,
		Email:  in.Email,
		Body:   in.Body,
		Active: true,
	}
	if err := r.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return &comment, nil
}

// ListActive returns the visible comments of a post, oldest first.
func (r *CommentRepo) ListActive(ctx context.Context, postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.WithContext(ctx).
		Where("post_id = ? AND active = ?", postID, true).
		Order("created_at ASC").Order("id ASC").
		Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

// SetActive shows or hides a comment.
func (r *CommentRepo) SetActive(ctx context.Context, id uint, active bool) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, notFound(err)
	}
	if err := r.db.WithContext(ctx).Model(&comment).Update("active", active).Error; err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	comment.Active = active
	return &comment, nil
}

// List returns one page of comments for staff, newest first.
func (r *CommentRepo) List(ctx context.Context, q CommentQuery) (*CommentPage, error) {
	base := func() *gorm.DB {
		tx := r.db.WithContext(ctx).Model(&models.Comment{})
		if q.Active != nil {
			tx = tx.Where("active = ?", *q.Active)
		}
		if s := strings.TrimSpace(q.Search); s != "" {
			like := "%" + s + "%"
			tx = tx.Where("name LIKE ? OR email LIKE ? OR body LIKE ?", like, like, like)
		}
		return tx
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}
	page := NewPage(q.Page, total, q.PageSize)

	var comments []models.Comment
	if err := base().Order("created_at DESC").Order("id DESC").
		Offset(page.Offset()).Limit(page.PageSize).Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return &CommentPage{Page: page, Items: comments}, nil
}

// CountActive returns the number of visible comments across all posts.
func (r *CommentRepo) CountActive(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("active = ?", true).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return n, nil
}
