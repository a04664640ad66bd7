package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleJSON = `{
  "app": {"AppPort": "9090", "JWTSecret": "from-file", "RateLimitPerMinute": 30, "AdminUsernames": ["admin", "editor"]},
  "gin": {"Mode": "debug", "LogPath": "logs/gin.log"},
  "database": {"Driver": "sqlite", "DatabaseURI": "file:blog.db"},
  "redis": {"Enabled": true, "RedisPort": 6380, "CacheTTLSeconds": 120},
  "smtp": {"SMTPHost": "smtp.example.com", "SMTPPort": 465, "SMTPFrom": "blog@example.com", "SMTPTLS": true},
  "log": {"Level": "debug", "MaxSizeMB": 10},
  "blog": {"SiteURL": "https://blog.example.com/", "TimeZone": "Europe/Madrid", "PageSize": 5, "SearchThreshold": 0.3, "SearchMode": "weighted", "CaptchaEnabled": true},
  "oauth": {"GitHubClientID": "gh-id", "GitHubClientSecret": "gh-secret", "RedirectBase": "https://auth.example.com/"}
}`

func TestLoadJSONConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleJSON), 0o600))

	var c AppConfig
	require.NoError(t, loadJSONConfig(path, &c))
	assert.Equal(t, "9090", c.AppPort)
	assert.Equal(t, "from-file", c.JWTSecret)
	assert.Equal(t, 30, c.RateLimitPerMinute)
	assert.Equal(t, []string{"admin", "editor"}, c.AdminUsernames)
	assert.Equal(t, "debug", c.GinMode)
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.True(t, c.RedisEnabled)
	assert.Equal(t, 6380, c.RedisPort)
	assert.Equal(t, 2*time.Minute, c.CacheTTL)
	assert.Equal(t, 465, c.SMTPPort)
	assert.True(t, c.SMTPTLS)
	assert.Equal(t, 10, c.LogMaxSizeMB)
	assert.Equal(t, 5, c.PageSize)
	assert.InDelta(t, 0.3, c.SearchThreshold, 1e-9)
	assert.Equal(t, "weighted", c.SearchMode)
	assert.True(t, c.CaptchaEnabled)
	assert.Equal(t, "gh-id", c.GitHubClientID)
	assert.Equal(t, "gh-secret", c.GitHubClientSecret)
	assert.Empty(t, c.GoogleClientID)
	assert.Equal(t, "https://auth.example.com", c.OAuthCallbackBase())
}

func TestOAuthCallbackBaseFallsBackToSiteURL(t *testing.T) {
	c := AppConfig{SiteURL: "https://blog.example.com"}
	assert.Equal(t, "https://blog.example.com", c.OAuthCallbackBase())
}

func TestLoadJSONConfigMissingAndInvalid(t *testing.T) {
	var c AppConfig
	assert.NoError(t, loadJSONConfig(filepath.Join(t.TempDir(), "absent.json"), &c))

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	assert.Error(t, loadJSONConfig(path, &c))
}

func TestApplyJSONIgnoresWrongTypes(t *testing.T) {
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"blog": {"PageSize": "ten", "SiteTitle": 3}}`), &raw))
	var c AppConfig
	applyJSON(raw, &c)
	assert.Zero(t, c.PageSize)
	assert.Empty(t, c.SiteTitle)
}

func TestApplyDefaults(t *testing.T) {
	c := AppConfig{SiteURL: "https://blog.example.com///", PageSize: -1}
	applyDefaults(&c)
	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, "release", c.GinMode)
	assert.Equal(t, "mysql", c.DBDriver)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
	assert.Equal(t, 60, c.RateLimitPerMinute)
	assert.Equal(t, time.Hour, c.CacheTTL)
	assert.Equal(t, "https://blog.example.com", c.SiteURL)
	assert.Equal(t, 3, c.PageSize)
	assert.InDelta(t, 0.1, c.SearchThreshold, 1e-9)
	assert.Equal(t, "title", c.SearchMode)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("ADMIN_USERNAMES", "alice, bob ,")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("BLOG_PAGE_SIZE", "7")
	t.Setenv("BLOG_SEARCH_THRESHOLD", "0.25")
	t.Setenv("BLOG_SITE_URL", "https://env.example.com/")

	c := AppConfig{JWTSecret: "from-file", PageSize: 3}
	applyEnvOverrides(&c)
	assert.Equal(t, "from-env", c.JWTSecret)
	assert.Equal(t, []string{"alice", "bob"}, c.AdminUsernames)
	assert.True(t, c.RedisEnabled)
	assert.Equal(t, 7, c.PageSize)
	assert.InDelta(t, 0.25, c.SearchThreshold, 1e-9)
	assert.Equal(t, "https://env.example.com", c.SiteURL)
}

func TestLocation(t *testing.T) {
	assert.Equal(t, time.UTC, AppConfig{}.Location())
	assert.Equal(t, time.UTC, AppConfig{TimeZone: "Not/AZone"}.Location())
	if _, err := time.LoadLocation("Europe/Madrid"); err != nil {
		t.Skip("tz database not available")
	}
	assert.Equal(t, "Europe/Madrid", AppConfig{TimeZone: "Europe/Madrid"}.Location().String())
}

func TestDSNFor(t *testing.T) {
	assert.Equal(t, "file:x.db", dsnFor(AppConfig{DatabaseURI: "file:x.db"}))
	assert.Equal(t, "aiblog.db", dsnFor(AppConfig{DBDriver: "sqlite", DBName: "aiblog"}))
	assert.Equal(t, "root:pw@tcp(db:3306)/aiblog?charset=utf8mb4&parseTime=True&loc=UTC",
		dsnFor(AppConfig{DBDriver: "mysql", DBUser: "root", DBPassword: "pw", DBHost: "db", DBPort: "3306", DBName: "aiblog"}))
}

func TestSetFillsDefaults(t *testing.T) {
	Set(AppConfig{JWTSecret: "s"})
	got := Get()
	assert.Equal(t, "s", got.JWTSecret)
	assert.Equal(t, 3, got.PageSize)
	assert.Equal(t, "logs/go_gin.log", got.GinPath)
}

func TestOpenDatabaseSQLite(t *testing.T) {
	db, err := OpenDatabase("sqlite", ":memory:", "silent")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()
	assert.NoError(t, sqlDB.Ping())

	_, err = OpenDatabase("oracle", "", "silent")
	assert.Error(t, err)
}
