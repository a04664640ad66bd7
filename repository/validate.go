package repository

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/utils"
)

var errInvalidSlug = validation.NewError("validation_invalid_slug", "invalid_slug_format")

// PostInput carries the editable fields of a post.
type PostInput struct {
	Title     string
	Slug      string
	Body      string
	AuthorID  uint
	Status    models.PostStatus
	PublishAt time.Time
	Tags      []string
}

// normalize trims fields and fills the defaults a new post gets.
func (in *PostInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	if in.Slug == "" {
		in.Slug = utils.Slugify(in.Title)
	}
	if in.Status == "" {
		in.Status = models.StatusDraft
	}
	if in.PublishAt.IsZero() {
		in.PublishAt = time.Now()
	}
	in.PublishAt = in.PublishAt.UTC()
}

// Validate checks field rules; the error is a validation.Errors keyed by field.
func (in PostInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title,
			validation.Required.Error("title_required"),
			validation.RuneLength(1, 250).Error("title_too_long"),
		),
		validation.Field(&in.Slug,
			validation.Required.Error("slug_required"),
			validation.RuneLength(1, 250).Error("slug_too_long"),
			validation.NewStringRuleWithError(utils.IsValidSlug, errInvalidSlug),
		),
		validation.Field(&in.Body,
			validation.Required.Error("body_required"),
		),
		validation.Field(&in.AuthorID,
			validation.Required.Error("author_required"),
		),
		validation.Field(&in.Status,
			validation.In(models.StatusDraft, models.StatusPublished).Error("invalid_status"),
		),
	)
}

func (in *CommentInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Body = strings.TrimSpace(in.Body)
}

// Validate checks the comment form limits.
func (in CommentInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name,
			validation.Required.Error("name_required"),
			validation.RuneLength(1, 80).Error("name_too_long"),
		),
		validation.Field(&in.Email,
			validation.Required.Error("email_required"),
			validation.RuneLength(1, 254).Error("email_too_long"),
			is.EmailFormat.Error("invalid_email"),
		),
		validation.Field(&in.Body,
			validation.Required.Error("body_required"),
		),
	)
}

// IsValidationError reports whether err came from input validation.
func IsValidationError(err error) bool {
	_, ok := err.(validation.Errors)
	return ok
}
