package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/aiblog/models"
)

// PostRepo queries and edits posts.
type PostRepo struct {
	db  *gorm.DB
	loc *time.Location
}

// NewPostRepo creates a PostRepo; loc is the time zone calendar dates are read in.
func NewPostRepo(db *gorm.DB, loc *time.Location) *PostRepo {
	if loc == nil {
		loc = time.UTC
	}
	return &PostRepo{db: db, loc: loc}
}

// ListQuery selects one page of published posts, optionally restricted to a tag.
type ListQuery struct {
	// Page is the raw page parameter; it is normalized, never rejected.
	Page     string
	PageSize int
	TagSlug  string
}

// PostPage is a page of posts plus the resolved tag filter, if any.
type PostPage struct {
	Page
	Items []models.Post `json:"items"`
	Tag   *models.Tag   `json:"tag,omitempty"`
}

// AdminQuery filters the staff listing over every post.
type AdminQuery struct {
	Page     string
	PageSize int
	Status   models.PostStatus
	AuthorID uint
	// Search matches title or body
	Search string
}

// SimilarPost is a post sharing tags with another one.
type SimilarPost struct {
	Post       models.Post `json:"post"`
	SharedTags int         `json:"shared_tags"`
}

// CommentedPost is a post with its active comment count.
type CommentedPost struct {
	Post          models.Post `json:"post"`
	TotalComments int64       `json:"total_comments"`
}

// SearchHit is a post matching a search query.
type SearchHit struct {
	Post       models.Post `json:"post"`
	Similarity float64     `json:"similarity"`
}

// SearchMode picks the fields a search is scored against.
type SearchMode string

const (
	// SearchTitle scores by trigram similarity between query and title.
	SearchTitle SearchMode = "title"
	// SearchWeighted combines title similarity (weight 1.0) and body coverage (weight 0.4).
	SearchWeighted SearchMode = "weighted"
)

func (r *PostRepo) published(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Post{}).Where("posts.status = ?", models.StatusPublished)
}

// ListAll returns every post regardless of status, for staff.
// Ordered by status, then publish date, like the admin change list.
func (r *PostRepo) ListAll(ctx context.Context, q AdminQuery) (*PostPage, error) {
	base := func() *gorm.DB {
		tx := r.db.WithContext(ctx).Model(&models.Post{})
		if q.Status != "" {
			tx = tx.Where("posts.status = ?", q.Status)
		}
		if q.AuthorID != 0 {
			tx = tx.Where("posts.author_id = ?", q.AuthorID)
		}
		if s := strings.TrimSpace(q.Search); s != "" {
			like := "%" + s + "%"
			tx = tx.Where("posts.title LIKE ? OR posts.body LIKE ?", like, like)
		}
		return tx
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count posts: %w", err)
	}
	page := NewPage(q.Page, total, q.PageSize)

	var posts []models.Post
	if err := base().Preload("Author").Preload("Tags").
		Order("posts.status ASC").Order("posts.publish ASC").Order("posts.id ASC").
		Offset(page.Offset()).Limit(page.PageSize).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return &PostPage{Page: page, Items: posts}, nil
}

// ListPublished returns one page of published posts, newest first.
// An unknown tag slug yields ErrNotFound.
func (r *PostRepo) ListPublished(ctx context.Context, q ListQuery) (*PostPage, error) {
	var tag *models.Tag
	if q.TagSlug != "" {
		t, err := NewTagRepo(r.db).GetBySlug(ctx, q.TagSlug)
		if err != nil {
			return nil, err
		}
		tag = t
	}

	base := func() *gorm.DB {
		tx := r.published(ctx)
		if tag != nil {
			tx = tx.Where("posts.id IN (?)", r.db.WithContext(ctx).Table("post_tags").Select("post_id").Where("tag_id = ?", tag.ID))
		}
		return tx
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count published posts: %w", err)
	}
	page := NewPage(q.Page, total, q.PageSize)

	var posts []models.Post
	if err := base().Preload("Author").Preload("Tags").
		Order("posts.publish DESC").Order("posts.id DESC").
		Offset(page.Offset()).Limit(page.PageSize).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("list published posts: %w", err)
	}
	return &PostPage{Page: page, Items: posts, Tag: tag}, nil
}

// GetByNaturalKey returns the published post with the given slug published on the given calendar day.
func (r *PostRepo) GetByNaturalKey(ctx context.Context, year, month, day int, slug string) (*models.Post, error) {
	start, end, ok := r.dayBounds(year, month, day)
	if !ok || slug == "" {
		return nil, ErrNotFound
	}

	var posts []models.Post
	if err := r.published(ctx).Preload("Author").Preload("Tags").
		Where("posts.slug = ?", slug).
		Where("posts.publish >= ? AND posts.publish < ?", start, end).
		Limit(2).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("get post by date and slug: %w", err)
	}
	if len(posts) != 1 {
		return nil, ErrNotFound
	}
	return &posts[0], nil
}

// GetByID returns a post in any status.
func (r *PostRepo) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("Author").Preload("Tags").First(&post, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

// GetPublishedByID returns a post only if it is published.
func (r *PostRepo) GetPublishedByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.published(ctx).Preload("Author").Preload("Tags").Where("posts.id = ?", id).First(&post).Error; err != nil {
		return nil, notFound(err)
	}
	return &post, nil
}

// FindSimilar returns up to limit other published posts sharing at least one tag with post,
// by number of shared tags, then most recent first.
func (r *PostRepo) FindSimilar(ctx context.Context, post *models.Post, limit int) ([]SimilarPost, error) {
	if limit <= 0 {
		limit = 4
	}
	tagIDs := post.TagIDs()
	if post.Tags == nil {
		if err := r.db.WithContext(ctx).Table("post_tags").Where("post_id = ?", post.ID).Pluck("tag_id", &tagIDs).Error; err != nil {
			return nil, fmt.Errorf("load post tags: %w", err)
		}
	}
	if len(tagIDs) == 0 {
		return []SimilarPost{}, nil
	}

	var rows []struct {
		PostID     uint
		SharedTags int
	}
	if err := r.published(ctx).
		Select("posts.id AS post_id, COUNT(post_tags.tag_id) AS shared_tags").
		Joins("JOIN post_tags ON post_tags.post_id = posts.id").
		Where("post_tags.tag_id IN ?", tagIDs).
		Where("posts.id <> ?", post.ID).
		Group("posts.id, posts.publish").
		Order("shared_tags DESC, posts.publish DESC, posts.id DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("find similar posts: %w", err)
	}

	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.PostID)
	}
	byID, err := r.loadByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]SimilarPost, 0, len(rows))
	for _, row := range rows {
		if p, ok := byID[row.PostID]; ok {
			out = append(out, SimilarPost{Post: p, SharedTags: row.SharedTags})
		}
	}
	return out, nil
}

// MostCommented returns up to limit published posts with the most active comments.
// Ties go to the most recently published post.
func (r *PostRepo) MostCommented(ctx context.Context, limit int) ([]CommentedPost, error) {
	if limit <= 0 {
		limit = 5
	}
	var rows []struct {
		PostID uint
		Total  int64
	}
	if err := r.published(ctx).
		Select("posts.id AS post_id, COUNT(comments.id) AS total").
		Joins("LEFT JOIN comments ON comments.post_id = posts.id AND comments.active = ?", true).
		Group("posts.id, posts.publish").
		Order("total DESC, posts.publish DESC, posts.id DESC").
		Limit(limit).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count comments per post: %w", err)
	}

	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.PostID)
	}
	byID, err := r.loadByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]CommentedPost, 0, len(rows))
	for _, row := range rows {
		if p, ok := byID[row.PostID]; ok {
			out = append(out, CommentedPost{Post: p, TotalComments: row.Total})
		}
	}
	return out, nil
}

// Search scores every published post against query and keeps those above threshold,
// best match first. The store has no trigram index, so scoring happens here.
func (r *PostRepo) Search(ctx context.Context, query string, threshold float64, mode SearchMode) ([]SearchHit, error) {
	q := trigrams(query)
	if len(q) == 0 {
		return []SearchHit{}, nil
	}

	var rows []struct {
		ID        uint
		Title     string
		Body      string
		PublishAt time.Time `gorm:"column:publish"`
	}
	cols := "posts.id, posts.title, posts.publish"
	if mode == SearchWeighted {
		cols = "posts.id, posts.title, posts.body, posts.publish"
	}
	if err := r.published(ctx).Select(cols).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load posts for search: %w", err)
	}

	type scored struct {
		id      uint
		score   float64
		publish time.Time
	}
	matches := make([]scored, 0)
	for _, row := range rows {
		var score float64
		if mode == SearchWeighted {
			score = weightedScore(q, row.Title, row.Body)
		} else {
			score = q.similarity(trigrams(row.Title))
		}
		if score > threshold {
			matches = append(matches, scored{id: row.ID, score: score, publish: row.PublishAt})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		if !matches[i].publish.Equal(matches[j].publish) {
			return matches[i].publish.After(matches[j].publish)
		}
		return matches[i].id > matches[j].id
	})

	ids := make([]uint, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.id)
	}
	byID, err := r.loadByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	hits := make([]SearchHit, 0, len(matches))
	for _, m := range matches {
		if p, ok := byID[m.id]; ok {
			hits = append(hits, SearchHit{Post: p, Similarity: m.score})
		}
	}
	return hits, nil
}

// Latest returns the count most recently published posts.
func (r *PostRepo) Latest(ctx context.Context, count int) ([]models.Post, error) {
	if count <= 0 {
		count = 5
	}
	var posts []models.Post
	if err := r.published(ctx).Preload("Author").Preload("Tags").
		Order("posts.publish DESC").Order("posts.id DESC").
		Limit(count).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("latest posts: %w", err)
	}
	return posts, nil
}

// AllPublished returns every published post, newest first, without associations.
func (r *PostRepo) AllPublished(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := r.published(ctx).Order("posts.publish DESC").Order("posts.id DESC").Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("all published posts: %w", err)
	}
	return posts, nil
}

// CountPublished returns the number of published posts.
func (r *PostRepo) CountPublished(ctx context.Context) (int64, error) {
	var n int64
	if err := r.published(ctx).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count published posts: %w", err)
	}
	return n, nil
}

// Create validates and stores a new post with its tags.
func (r *PostRepo) Create(ctx context.Context, in PostInput) (*models.Post, error) {
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	post := models.Post{
		Title:     in.Title,
		Slug:      in.Slug,
		Body:      in.Body,
		AuthorID:  in.AuthorID,
		Status:    in.Status,
		PublishAt: in.PublishAt,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.checkSlug(tx, post.Slug, post.PublishAt, 0); err != nil {
			return err
		}
		tags, err := ensureTags(tx, in.Tags)
		if err != nil {
			return err
		}
		post.Tags = tags
		return tx.Omit("Author").Create(&post).Error
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, post.ID)
}

// Update replaces the editable fields and tags of an existing post.
// A blank status or publish time keeps the stored value.
func (r *PostRepo) Update(ctx context.Context, id uint, in PostInput) (*models.Post, error) {
	if in.PublishAt.IsZero() || in.Status == "" {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if in.PublishAt.IsZero() {
			in.PublishAt = current.PublishAt
		}
		if in.Status == "" {
			in.Status = current.Status
		}
	}
	in.normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, id).Error; err != nil {
			return notFound(err)
		}
		if err := r.checkSlug(tx, in.Slug, in.PublishAt, post.ID); err != nil {
			return err
		}
		post.Title = in.Title
		post.Slug = in.Slug
		post.Body = in.Body
		post.AuthorID = in.AuthorID
		post.Status = in.Status
		post.PublishAt = in.PublishAt
		if err := tx.Omit("Author", "Tags", "Comments").Save(&post).Error; err != nil {
			return err
		}
		tags, err := ensureTags(tx, in.Tags)
		if err != nil {
			return err
		}
		return tx.Model(&post).Association("Tags").Replace(tags)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Publish moves a post to Published.
func (r *PostRepo) Publish(ctx context.Context, id uint) error {
	return r.setStatus(ctx, id, models.StatusPublished)
}

// Unpublish moves a post back to Draft; the row is kept.
func (r *PostRepo) Unpublish(ctx context.Context, id uint) error {
	return r.setStatus(ctx, id, models.StatusDraft)
}

func (r *PostRepo) setStatus(ctx context.Context, id uint, status models.PostStatus) error {
	res := r.db.WithContext(ctx).Session(&gorm.Session{SkipHooks: true}).
		Model(&models.Post{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("set post status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a post together with its comments and tag links.
func (r *PostRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		if err := tx.Model(&post).Association("Tags").Clear(); err != nil {
			return fmt.Errorf("clear tags: %w", err)
		}
		if err := tx.Delete(&post).Error; err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		return nil
	})
}

// checkSlug fails with ErrSlugTaken when another post uses slug on the same calendar day.
func (r *PostRepo) checkSlug(tx *gorm.DB, slug string, publish time.Time, excludeID uint) error {
	t := publish.In(r.loc)
	start, end, _ := r.dayBounds(t.Year(), int(t.Month()), t.Day())
	q := tx.Model(&models.Post{}).
		Where("slug = ?", slug).
		Where("publish >= ? AND publish < ?", start, end)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return fmt.Errorf("check slug: %w", err)
	}
	if n > 0 {
		return ErrSlugTaken
	}
	return nil
}

// dayBounds returns the UTC instants delimiting the calendar day in the blog time zone.
func (r *PostRepo) dayBounds(year, month, day int) (time.Time, time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, time.Time{}, false
	}
	start := time.Date(year, time.Month(month), day, 0, 0, 0, 0, r.loc)
	if start.Year() != year || start.Month() != time.Month(month) || start.Day() != day {
		return time.Time{}, time.Time{}, false
	}
	return start.UTC(), start.AddDate(0, 0, 1).UTC(), true
}

func (r *PostRepo) loadByIDs(ctx context.Context, ids []uint) (map[uint]models.Post, error) {
	out := make(map[uint]models.Post, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var posts []models.Post
	if err := r.db.WithContext(ctx).Preload("Author").Preload("Tags").Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("load posts: %w", err)
	}
	for _, p := range posts {
		out[p.ID] = p
	}
	return out, nil
}
