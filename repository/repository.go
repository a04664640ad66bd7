// Package repository is the data-access layer for posts, comments, tags and users.
// Every call is a single request-scoped round trip against the shared *gorm.DB.
package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when a lookup matches no row, including tag slugs and drafts hidden from readers.
	ErrNotFound = errors.New("not found")
	// ErrSlugTaken is returned when another post already uses the slug on the same publish date.
	ErrSlugTaken = errors.New("slug already used for this publish date")
)

// Repositories groups the repositories sharing one database handle.
type Repositories struct {
	Posts    *PostRepo
	Comments *CommentRepo
	Tags     *TagRepo
	Users    *UserRepo
}

// New wires every repository to db. Calendar-day lookups are evaluated in loc.
func New(db *gorm.DB, loc *time.Location) Repositories {
	return Repositories{
		Posts:    NewPostRepo(db, loc),
		Comments: NewCommentRepo(db),
		Tags:     NewTagRepo(db),
		Users:    NewUserRepo(db),
	}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
