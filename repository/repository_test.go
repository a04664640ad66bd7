package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/aiblog/config"
	"github.com/cppla/aiblog/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase("sqlite", ":memory:", "silent")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, config.Migrate(db, models.All()...))
	return db
}

type fixture struct {
	db     *gorm.DB
	repos  Repositories
	author *models.User
}

func newFixture(t *testing.T, loc *time.Location) *fixture {
	t.Helper()
	db := newTestDB(t)
	repos := New(db, loc)
	author, err := repos.Users.Create(context.Background(), "admin", "admin@example.com", "x")
	require.NoError(t, err)
	return &fixture{db: db, repos: repos, author: author}
}

func (f *fixture) post(t *testing.T, title string, status models.PostStatus, publish time.Time, tags ...string) *models.Post {
	t.Helper()
	p, err := f.repos.Posts.Create(context.Background(), PostInput{
		Title:     title,
		Body:      "Body of " + title,
		AuthorID:  f.author.ID,
		Status:    status,
		PublishAt: publish,
		Tags:      tags,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) comment(t *testing.T, postID uint, name string, active bool) *models.Comment {
	t.Helper()
	c, err := f.repos.Comments.Create(context.Background(), postID, CommentInput{Name: name, Email: name + "@example.com", Body: "hi"})
	require.NoError(t, err)
	if !active {
		c, err = f.repos.Comments.SetActive(context.Background(), c.ID, false)
		require.NoError(t, err)
	}
	return c
}

func day(n int) time.Time {
	return time.Date(2024, time.January, n, 10, 0, 0, 0, time.UTC)
}

func titles(posts []models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Title)
	}
	return out
}

func TestUserRepoCreateRejectsDuplicateUsername(t *testing.T) {
	f := newFixture(t, time.UTC)
	ctx := context.Background()

	_, err := f.repos.Users.Create(ctx, "admin", "other@example.com", "y")
	require.ErrorIs(t, err, ErrUsernameTaken)

	u, err := f.repos.Users.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	require.Equal(t, f.author.ID, u.ID)

	_, err = f.repos.Users.GetByID(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepoFindOrCreateExternal(t *testing.T) {
	f := newFixture(t, time.UTC)
	ctx := context.Background()

	u, err := f.repos.Users.FindOrCreateExternal(ctx, "github", "42", "admin", "")
	require.NoError(t, err)
	require.Equal(t, "admin-2", u.Username)
	require.Equal(t, "github", u.Provider)
	require.Empty(t, u.PasswordHash)

	again, err := f.repos.Users.FindOrCreateExternal(ctx, "github", "42", "renamed", "octo@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, again.ID)
	require.Equal(t, "admin-2", again.Username)
	require.Equal(t, "octo@example.com", again.Email)

	other, err := f.repos.Users.FindOrCreateExternal(ctx, "google", "42", "admin", "")
	require.NoError(t, err)
	require.NotEqual(t, u.ID, other.ID)
	require.Equal(t, "admin-3", other.Username)
}
