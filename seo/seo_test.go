package seo

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSitemapBuilder(t *testing.T) {
	b := NewSitemapBuilder("https://blog.example.com")
	b.AddHome("/api/v1/posts")
	b.AddPost("/api/v1/posts/2024/1/2/hello", time.Date(2024, 1, 3, 8, 0, 0, 0, time.UTC))
	b.AddTag("/api/v1/tag/go")
	assert.Equal(t, 3, b.Len())

	out, err := b.Build()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), xml.Header))

	var doc Sitemap
	require.NoError(t, xml.Unmarshal(out, &doc))
	require.Len(t, doc.URLs, 3)
	post := doc.URLs[1]
	assert.Equal(t, "https://blog.example.com/api/v1/posts/2024/1/2/hello", post.Loc)
	assert.Equal(t, ChangeFreqWeekly, post.ChangeFreq)
	assert.Equal(t, "0.9", post.Priority)
	assert.Equal(t, "2024-01-03T08:00:00Z", post.LastMod)
	assert.Empty(t, doc.URLs[2].LastMod)
}

func TestFeedBuilder(t *testing.T) {
	b := NewFeedBuilder("https://blog.example.com", "My blog", "/api/v1/posts", "New posts of my blog.")
	b.Add(FeedItem{
		Title:       "Second & last",
		Path:        "/api/v1/posts/2024/1/2/second",
		Description: "<p>Hello <em>world</em></p>",
		Published:   time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC),
	})
	b.Add(FeedItem{Title: "First", Path: "/api/v1/posts/2024/1/1/first", Published: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)})

	out, err := b.Build()
	require.NoError(t, err)
	assert.Contains(t, string(out), `<rss version="2.0">`)
	assert.Contains(t, string(out), "Second &amp; last")

	var doc RSS
	require.NoError(t, xml.Unmarshal(out, &doc))
	assert.Equal(t, "https://blog.example.com/api/v1/posts", doc.Channel.Link)
	require.Len(t, doc.Channel.Items, 2)
	first := doc.Channel.Items[0]
	assert.Equal(t, "<p>Hello <em>world</em></p>", first.Description)
	assert.Equal(t, "Tue, 02 Jan 2024 09:00:00 +0000", first.PubDate)
	assert.Equal(t, first.Link, first.GUID.Value)
	assert.Equal(t, first.PubDate, doc.Channel.LastBuildDate)
}
