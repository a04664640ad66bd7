package utils

import (
	"errors"
	"strings"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/aiblog/config"
)

func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Hello World", "hello-world"},
		{"  Héllo, Wörld!  Go ", "hello-world-go"},
		{"Django -- web", "django-web"},
		{"!!!", ""},
		{"Already-a-slug", "already-a-slug"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Slugify(c.in), c.in)
	}
	assert.True(t, IsValidSlug("hello-world"))
	assert.True(t, IsValidSlug("snake_case"))
	assert.False(t, IsValidSlug("Hello"))
	assert.False(t, IsValidSlug("-leading"))
}

func TestTruncateWordsHTML(t *testing.T) {
	assert.Equal(t, "<p>one two <em>three …</em></p>",
		TruncateWordsHTML("<p>one two <em>three four</em> five</p>", 3))
	assert.Equal(t, "<p>a b</p>", TruncateWordsHTML("<p>a b</p>", 2))
	assert.Equal(t, "<p>a<br/>b …</p>", TruncateWordsHTML("<p>a<br/>b c</p>", 2))
	assert.Equal(t, "", TruncateWordsHTML("<p>a</p>", 0))
}

func TestRenderMarkdownSanitizes(t *testing.T) {
	out, err := RenderMarkdown("# Title\n\nSome **bold** text <script>alert(1)</script>\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "<table>")
	assert.NotContains(t, out, "<script>")
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "Great post", StripTags("  <b>Great</b> post "))
	assert.Equal(t, "", StripTags("<img src=x onerror=alert(1)>"))
}

func TestBuildMessage(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "test-secret", SiteTitle: "Test blog"})

	msg := string(BuildMessage("", "blog@example.com", "friend@example.com", "Ann recommends you read Go", "Read it"))
	assert.True(t, strings.HasPrefix(msg, "From: Test blog <blog@example.com>\r\nTo: friend@example.com\r\nSubject: Ann recommends you read Go\r\n"))
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nRead it"))

	msg = string(BuildMessage("Ann", "blog@example.com", "friend@example.com", "Héllo", "x"))
	assert.Contains(t, msg, "Subject: =?UTF-8?b?")
}

func TestFieldErrors(t *testing.T) {
	type form struct {
		Name  string `validate:"required"`
		Email string `validate:"required,email"`
	}
	err := validator.New().Struct(form{Email: "bad"})
	require.Error(t, err)
	assert.Equal(t, map[string]string{
		"name":  "this field is required",
		"email": "enter a valid email address",
	}, FieldErrors(err))

	entity := validation.Errors{"Title": errors.New("title_required")}
	assert.Equal(t, map[string]string{"title": "title_required"}, FieldErrors(entity))

	assert.Equal(t, map[string]string{"_": "boom"}, FieldErrors(errors.New("boom")))
	assert.Empty(t, FieldErrors(nil))
}

func TestTokenRoundTrip(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "test-secret"})

	token, err := GenerateToken(7, "admin", time.Hour)
	require.NoError(t, err)
	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "7", claims.Subject)
	assert.NotEmpty(t, claims.ID)

	other, err := GenerateToken(7, "admin", time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)

	expired, err := GenerateToken(7, "admin", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.Error(t, err)

	config.Set(config.AppConfig{JWTSecret: "other-secret"})
	_, err = ParseToken(token)
	assert.Error(t, err)
}

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.True(t, CheckPassword(hash, "secret1"))
	assert.False(t, CheckPassword(hash, "secret2"))
}

func TestRevokeToken(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "test-secret"})

	RevokeToken("revoked-id", time.Now().Add(time.Minute))
	assert.True(t, IsTokenRevoked("revoked-id"))

	RevokeToken("stale-id", time.Now().Add(-time.Minute))
	assert.False(t, IsTokenRevoked("stale-id"))
	assert.False(t, IsTokenRevoked("never-seen"))
}
