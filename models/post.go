package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// PostStatus is the publication state of a post.
type PostStatus string

const (
	StatusDraft     PostStatus = "DF"
	StatusPublished PostStatus = "PB"
)

// Label returns the human readable status name.
func (s PostStatus) Label() string {
	switch s {
	case StatusDraft:
		return "Draft"
	case StatusPublished:
		return "Published"
	default:
		return string(s)
	}
}

// Valid reports whether s is one of the known states.
func (s PostStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// Post represents a blog entry written by a user.
type Post struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Title     string     `gorm:"size:250;not null" json:"title"`
	Slug      string     `gorm:"size:250;not null;index" json:"slug"`
	AuthorID  uint       `gorm:"index;not null" json:"author_id"`
	Body      string     `gorm:"type:text;not null" json:"body"`
	PublishAt time.Time  `gorm:"column:publish;not null;index:idx_posts_publish,sort:desc" json:"publish"`
	CreatedAt time.Time  `json:"created"`
	UpdatedAt time.Time  `json:"updated"`
	Status    PostStatus `gorm:"size:2;not null;default:'DF';index" json:"status"`
	Author    User       `gorm:"foreignKey:AuthorID" json:"author"`
	Tags      []Tag      `gorm:"many2many:post_tags;" json:"tags"`
	Comments  []Comment  `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// BeforeSave fills defaults and stores publish time in UTC.
func (p *Post) BeforeSave(tx *gorm.DB) error {
	if p.PublishAt.IsZero() {
		p.PublishAt = time.Now()
	}
	p.PublishAt = p.PublishAt.UTC()
	if p.Status == "" {
		p.Status = StatusDraft
	}
	if !p.Status.Valid() {
		return fmt.Errorf("invalid post status %q", p.Status)
	}
	return nil
}

// IsPublished reports whether the post is publicly visible.
func (p *Post) IsPublished() bool {
	return p.Status == StatusPublished
}

// AbsolutePath is the canonical detail path: /api/v1/posts/{year}/{month}/{day}/{slug}.
// The date parts are taken in loc, matching how detail lookups resolve calendar days.
func (p *Post) AbsolutePath(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	t := p.PublishAt.In(loc)
	return fmt.Sprintf("/api/v1/posts/%d/%d/%d/%s", t.Year(), int(t.Month()), t.Day(), p.Slug)
}

// TagIDs returns the ids of the attached tags.
func (p *Post) TagIDs() []uint {
	ids := make([]uint, 0, len(p.Tags))
	for _, t := range p.Tags {
		ids = append(ids, t.ID)
	}
	return ids
}
