package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/cppla/aiblog/config"
	"github.com/cppla/aiblog/metrics"
	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setConfig() {
	config.Set(config.AppConfig{JWTSecret: "test-secret", AdminUsernames: []string{"Admin"}})
}

func serve(r *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[http.CanonicalHeaderKey(k)] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen = GetRequestID(c)
		c.Status(http.StatusOK)
	})

	w := serve(r, http.MethodGet, "/", nil)
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	assert.Equal(t, w.Header().Get(RequestIDHeader), seen)

	w = serve(r, http.MethodGet, "/", http.Header{RequestIDHeader: {"client-id"}})
	assert.Equal(t, "client-id", w.Header().Get(RequestIDHeader))

	w = serve(r, http.MethodGet, "/", http.Header{RequestIDHeader: {strings.Repeat("x", 129)}})
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimit(2), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/", nil).Code)
}

func TestRateLimitSeparateRoutes(t *testing.T) {
	r := gin.New()
	r.GET("/a", RateLimit(2), func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/b", RateLimit(2), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/a", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/b", nil).Code)
}

func TestLimiterSetDropsIdleBuckets(t *testing.T) {
	s := &limiterSet{limiters: map[string]*rateLimiter{}, limit: 1, burst: 1}
	now := time.Now()
	assert.True(t, s.allow("10.0.0.1", now))
	assert.False(t, s.allow("10.0.0.1", now))

	later := now.Add(limiterIdleTTL + time.Second)
	assert.True(t, s.allow("10.0.0.2", later))
	assert.NotContains(t, s.limiters, "10.0.0.1")
}

func TestLimiterSetSweepsOncePerInterval(t *testing.T) {
	s := &limiterSet{limiters: map[string]*rateLimiter{}, limit: 1, burst: 1}
	now := time.Now()
	assert.True(t, s.allow("10.0.0.1", now))

	s.limiters["stale"] = &rateLimiter{limiter: rate.NewLimiter(1, 1), expires: now.Add(-time.Second)}
	assert.True(t, s.allow("10.0.0.2", now.Add(time.Second)))
	assert.Contains(t, s.limiters, "stale")

	assert.True(t, s.allow("10.0.0.3", now.Add(limiterSweepInterval+time.Second)))
	assert.NotContains(t, s.limiters, "stale")
	assert.Contains(t, s.limiters, "10.0.0.1")
}

func authRouter() *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthRequired(), func(c *gin.Context) {
		utils.Success(c, gin.H{"id": CurrentUserID(c)})
	})
	r.GET("/staff", AuthRequired(), StaffRequired(), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestAuthRequired(t *testing.T) {
	setConfig()
	r := authRouter()
	token, err := utils.GenerateToken(3, "reader", time.Hour)
	require.NoError(t, err)

	cases := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Token " + token, http.StatusUnauthorized},
		{"Bearer ", http.StatusUnauthorized},
		{"Bearer not-a-jwt", http.StatusUnauthorized},
		{"Bearer " + token, http.StatusOK},
		{"bearer " + token, http.StatusOK},
	}
	for _, c := range cases {
		h := http.Header{}
		if c.header != "" {
			h.Set("Authorization", c.header)
		}
		assert.Equal(t, c.want, serve(r, http.MethodGet, "/me", h).Code, c.header)
	}

	revoked, err := utils.GenerateToken(4, "gone", time.Hour)
	require.NoError(t, err)
	claims, err := utils.ParseToken(revoked)
	require.NoError(t, err)
	utils.RevokeToken(claims.ID, time.Now().Add(time.Hour))
	w := serve(r, http.MethodGet, "/me", http.Header{"Authorization": {"Bearer " + revoked}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "40104")
}

func TestStaffRequired(t *testing.T) {
	setConfig()
	r := authRouter()

	reader, err := utils.GenerateToken(3, "reader", time.Hour)
	require.NoError(t, err)
	w := serve(r, http.MethodGet, "/staff", http.Header{"Authorization": {"Bearer " + reader}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin, err := utils.GenerateToken(1, "admin", time.Hour)
	require.NoError(t, err)
	w = serve(r, http.MethodGet, "/staff", http.Header{"Authorization": {"Bearer " + admin}})
	assert.Equal(t, http.StatusOK, w.Code)

	assert.True(t, IsStaff("ADMIN"))
	assert.False(t, IsStaff(""))
}

func TestMetricsCountsByRoute(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/items/:id", "200")
	before := testutil.ToFloat64(counter)
	serve(r, http.MethodGet, "/items/1", nil)
	serve(r, http.MethodGet, "/items/2", nil)
	assert.Equal(t, before+2, testutil.ToFloat64(counter))

	unmatched := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")
	before = testutil.ToFloat64(unmatched)
	serve(r, http.MethodGet, "/nowhere", nil)
	assert.Equal(t, before+1, testutil.ToFloat64(unmatched))
}

func newPVDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenDatabase("sqlite", ":memory:", "silent")
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, config.Migrate(db, &models.PageView{}))
	return db
}

func TestPageViewRecorder(t *testing.T) {
	db := newPVDB(t)
	r := gin.New()
	r.Use(PageViewRecorder(db, time.UTC, "/posts/:slug"))
	r.GET("/posts/:slug", func(c *gin.Context) {
		if c.Param("slug") == "missing" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	})
	r.POST("/posts/:slug", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/other", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/posts/hello", nil)
	serve(r, http.MethodGet, "/posts/hello", nil)
	serve(r, http.MethodGet, "/posts/world", nil)
	serve(r, http.MethodGet, "/posts/missing", nil)
	serve(r, http.MethodPost, "/posts/hello", nil)
	serve(r, http.MethodGet, "/other", nil)

	var views []models.PageView
	require.NoError(t, db.Order("path").Find(&views).Error)
	require.Len(t, views, 2)
	assert.Equal(t, "/posts/hello", views[0].Path)
	assert.EqualValues(t, 2, views[0].Count)
	assert.Equal(t, "/posts/world", views[1].Path)
	assert.EqualValues(t, 1, views[1].Count)
	assert.True(t, models.ViewDay(time.Now(), time.UTC).Equal(views[0].Date.UTC()))
}
