package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAbsolutePathUsesLocalDay(t *testing.T) {
	p := Post{Slug: "late-night", PublishAt: time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)}
	assert.Equal(t, "/api/v1/posts/2024/3/9/late-night", p.AbsolutePath(nil))

	sydney := time.FixedZone("UTC+10", 10*60*60)
	assert.Equal(t, "/api/v1/posts/2024/3/10/late-night", p.AbsolutePath(sydney))
}

func TestPostStatus(t *testing.T) {
	assert.Equal(t, "Draft", StatusDraft.Label())
	assert.Equal(t, "Published", StatusPublished.Label())
	assert.Equal(t, "XX", PostStatus("XX").Label())
	assert.False(t, PostStatus("XX").Valid())

	assert.True(t, (&Post{Status: StatusPublished}).IsPublished())
	assert.False(t, (&Post{Status: StatusDraft}).IsPublished())
}

func TestBeforeSaveDefaults(t *testing.T) {
	local := time.FixedZone("UTC-5", -5*60*60)
	p := Post{PublishAt: time.Date(2024, 1, 1, 20, 0, 0, 0, local)}
	assert.NoError(t, p.BeforeSave(nil))
	assert.Equal(t, StatusDraft, p.Status)
	assert.Equal(t, time.UTC, p.PublishAt.Location())
	assert.Equal(t, 2, p.PublishAt.Day())

	bad := Post{Status: "ZZ"}
	assert.Error(t, bad.BeforeSave(nil))
}

func TestViewDay(t *testing.T) {
	at := time.Date(2024, 5, 31, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), ViewDay(at, nil))
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), ViewDay(at, time.FixedZone("UTC+3", 3*60*60)))
}

func TestTagIDs(t *testing.T) {
	p := Post{Tags: []Tag{{ID: 2}, {ID: 5}}}
	assert.Equal(t, []uint{2, 5}, p.TagIDs())
}
