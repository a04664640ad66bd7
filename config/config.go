package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort        string
	JWTSecret      string
	AllowedOrigins []string
	AdminUsernames []string
	// Requests per minute per IP on write endpoints (comments, share, auth)
	RateLimitPerMinute int
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database: DBDriver is "mysql" or "sqlite"
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis response cache; disabled unless RedisEnabled
	RedisEnabled  bool
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	CacheTTL      time.Duration
	// SMTP for "share this post" emails
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTLS      bool
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Blog settings
	SiteURL         string
	SiteTitle       string
	SiteDescription string
	TimeZone        string
	PageSize        int
	SearchThreshold float64
	// SearchMode is "title" (trigram similarity on title only) or "weighted" (title + body)
	SearchMode string
	// CaptchaEnabled requires a solved captcha on comment and share forms
	CaptchaEnabled bool
	// OAuth sign-in for authors; a provider is enabled when its client id and secret are set
	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string
	// OAuthRedirectBase is the public base URL of the callback routes; defaults to SiteURL
	OAuthRedirectBase string
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: config/config.json -> defaults -> environment variable overrides
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Fatalf("invalid config/config.json: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set replaces the cached configuration. Zero fields are filled with defaults.
func Set(c AppConfig) {
	applyDefaults(&c)
	cfg = c
	loaded = true
}

// Location returns the blog time zone used for calendar-date lookups.
func (c AppConfig) Location() *time.Location {
	if c.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// OAuthCallbackBase is the base URL OAuth providers redirect back to.
func (c AppConfig) OAuthCallbackBase() string {
	if c.OAuthRedirectBase != "" {
		return strings.TrimRight(c.OAuthRedirectBase, "/")
	}
	return c.SiteURL
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads the grouped JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}
	applyJSON(raw, out)
	return nil
}

func applyJSON(raw map[string]any, out *AppConfig) {
	getString := func(m map[string]any, key string) string {
		if s, ok := m[key].(string); ok {
			return s
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if f, ok := m[key].(float64); ok {
			return int(f)
		}
		return 0
	}
	getFloat := func(m map[string]any, key string) float64 {
		f, _ := m[key].(float64)
		return f
	}
	getBool := func(m map[string]any, key string) bool {
		b, _ := m[key].(bool)
		return b
	}
	getStringSlice := func(m map[string]any, key string) []string {
		arr, ok := m[key].([]any)
		if !ok {
			return nil
		}
		res := make([]string, 0, len(arr))
		for _, it := range arr {
			if s, ok := it.(string); ok {
				res = append(res, s)
			}
		}
		return res
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		out.AllowedOrigins = getStringSlice(app, "AllowedOrigins")
		out.AdminUsernames = getStringSlice(app, "AdminUsernames")
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		out.GinMode = getString(g, "Mode")
		out.GinPath = getString(g, "LogPath")
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DBDriver = getString(dbs, "Driver")
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisEnabled = getBool(rds, "Enabled")
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
		if v := getInt(rds, "CacheTTLSeconds"); v > 0 {
			out.CacheTTL = time.Duration(v) * time.Second
		}
	}

	if sm, ok := raw["smtp"].(map[string]any); ok {
		out.SMTPHost = getString(sm, "SMTPHost")
		out.SMTPPort = getInt(sm, "SMTPPort")
		out.SMTPUsername = getString(sm, "SMTPUsername")
		out.SMTPPassword = getString(sm, "SMTPPassword")
		out.SMTPFrom = getString(sm, "SMTPFrom")
		out.SMTPFromName = getString(sm, "SMTPFromName")
		out.SMTPTLS = getBool(sm, "SMTPTLS")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	if b, ok := raw["blog"].(map[string]any); ok {
		out.SiteURL = getString(b, "SiteURL")
		out.SiteTitle = getString(b, "SiteTitle")
		out.SiteDescription = getString(b, "SiteDescription")
		out.TimeZone = getString(b, "TimeZone")
		out.PageSize = getInt(b, "PageSize")
		out.SearchThreshold = getFloat(b, "SearchThreshold")
		out.SearchMode = getString(b, "SearchMode")
		out.CaptchaEnabled = getBool(b, "CaptchaEnabled")
	}

	if oa, ok := raw["oauth"].(map[string]any); ok {
		out.GitHubClientID = getString(oa, "GitHubClientID")
		out.GitHubClientSecret = getString(oa, "GitHubClientSecret")
		out.GoogleClientID = getString(oa, "GoogleClientID")
		out.GoogleClientSecret = getString(oa, "GoogleClientSecret")
		out.OAuthRedirectBase = getString(oa, "RedirectBase")
	}
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "aiblog"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = time.Hour
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.SiteURL == "" {
		c.SiteURL = "http://localhost:8080"
	}
	c.SiteURL = strings.TrimRight(c.SiteURL, "/")
	if c.SiteTitle == "" {
		c.SiteTitle = "My blog"
	}
	if c.SiteDescription == "" {
		c.SiteDescription = "New posts of my blog."
	}
	if c.PageSize <= 0 {
		c.PageSize = 3
	}
	if c.SearchThreshold <= 0 {
		c.SearchThreshold = 0.1
	}
	if c.SearchMode == "" {
		c.SearchMode = "title"
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	strs := map[string]*string{
		"APP_PORT":              &c.AppPort,
		"JWT_SECRET":            &c.JWTSecret,
		"GIN_MODE":              &c.GinMode,
		"GIN_PATH":              &c.GinPath,
		"DB_DRIVER":             &c.DBDriver,
		"DATABASE_URI":          &c.DatabaseURI,
		"DB_HOST":               &c.DBHost,
		"DB_PORT":               &c.DBPort,
		"DB_USER":               &c.DBUser,
		"DB_PASSWORD":           &c.DBPassword,
		"DB_NAME":               &c.DBName,
		"REDIS_HOST":            &c.RedisHost,
		"REDIS_PASSWORD":        &c.RedisPassword,
		"SMTP_HOST":             &c.SMTPHost,
		"SMTP_USERNAME":         &c.SMTPUsername,
		"SMTP_PASSWORD":         &c.SMTPPassword,
		"SMTP_FROM":             &c.SMTPFrom,
		"SMTP_FROM_NAME":        &c.SMTPFromName,
		"LOG_LEVEL":             &c.LogLevel,
		"LOG_PATH":              &c.LogPath,
		"BLOG_SITE_TITLE":       &c.SiteTitle,
		"BLOG_SITE_DESCRIPTION": &c.SiteDescription,
		"BLOG_TIME_ZONE":        &c.TimeZone,
		"BLOG_SEARCH_MODE":      &c.SearchMode,
		"GITHUB_CLIENT_ID":      &c.GitHubClientID,
		"GITHUB_CLIENT_SECRET":  &c.GitHubClientSecret,
		"GOOGLE_CLIENT_ID":      &c.GoogleClientID,
		"GOOGLE_CLIENT_SECRET":  &c.GoogleClientSecret,
		"OAUTH_REDIRECT_BASE":   &c.OAuthRedirectBase,
	}
	for key, dst := range strs {
		if v := getEnv(key, ""); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"RATE_LIMIT_PER_MINUTE": &c.RateLimitPerMinute,
		"REDIS_PORT":            &c.RedisPort,
		"REDIS_DB":              &c.RedisDB,
		"SMTP_PORT":             &c.SMTPPort,
		"LOG_MAX_SIZE_MB":       &c.LogMaxSizeMB,
		"LOG_MAX_BACKUPS":       &c.LogMaxBackups,
		"LOG_MAX_AGE_DAYS":      &c.LogMaxAgeDays,
		"BLOG_PAGE_SIZE":        &c.PageSize,
	}
	for key, dst := range ints {
		if v := getEnv(key, ""); v != "" {
			*dst = mustParseInt(v)
		}
	}

	bools := map[string]*bool{
		"REDIS_ENABLED": &c.RedisEnabled,
		"SMTP_TLS":      &c.SMTPTLS,
		"LOG_COMPRESS":  &c.LogCompress,
		"BLOG_CAPTCHA":  &c.CaptchaEnabled,
	}
	for key, dst := range bools {
		if v := getEnv(key, ""); v != "" {
			*dst = v == "true"
		}
	}

	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := getEnv("ADMIN_USERNAMES", ""); v != "" {
		c.AdminUsernames = splitAndTrim(v)
	}
	if v := getEnv("CACHE_TTL_SECONDS", ""); v != "" {
		c.CacheTTL = time.Duration(mustParseInt(v)) * time.Second
	}
	if v := getEnv("BLOG_SITE_URL", ""); v != "" {
		c.SiteURL = strings.TrimRight(v, "/")
	}
	if v := getEnv("BLOG_SEARCH_THRESHOLD", ""); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			log.Fatalf("invalid float value %s: %v", v, err)
		}
		c.SearchThreshold = f
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
