package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/utils"
)

// TagRepo resolves and creates tags.
type TagRepo struct {
	db *gorm.DB
}

func NewTagRepo(db *gorm.DB) *TagRepo {
	return &TagRepo{db: db}
}

// GetBySlug returns the tag with the given slug.
func (r *TagRepo) GetBySlug(ctx context.Context, slug string) (*models.Tag, error) {
	var tag models.Tag
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&tag).Error; err != nil {
		return nil, notFound(err)
	}
	return &tag, nil
}

// Ensure returns the tags named by names, creating the missing ones.
func (r *TagRepo) Ensure(ctx context.Context, names []string) ([]models.Tag, error) {
	var tags []models.Tag
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		tags, err = ensureTags(tx, names)
		return err
	})
	return tags, err
}

// ListUsed returns the tags attached to at least one published post, by name.
func (r *TagRepo) ListUsed(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	db := r.db.WithContext(ctx)
	used := db.Table("post_tags").Select("post_tags.tag_id").
		Joins("JOIN posts ON posts.id = post_tags.post_id").
		Where("posts.status = ?", models.StatusPublished)
	if err := db.Where("id IN (?)", used).Order("name ASC").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("list used tags: %w", err)
	}
	return tags, nil
}

// ensureTags finds or creates one tag per distinct slugified name, in input order.
func ensureTags(tx *gorm.DB, names []string) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		slug := utils.Slugify(name)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true

		var tag models.Tag
		if err := tx.Where(models.Tag{Slug: slug}).Attrs(models.Tag{Name: name}).FirstOrCreate(&tag).Error; err != nil {
			return nil, fmt.Errorf("ensure tag %q: %w", name, err)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
