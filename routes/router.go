package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/cppla/aiblog/config"
	"github.com/cppla/aiblog/controllers"
	"github.com/cppla/aiblog/middleware"
	"github.com/cppla/aiblog/repository"
	"github.com/cppla/aiblog/utils"
)

const postDetailRoute = "/api/v1/posts/:year/:month/:day/:slug"

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, mailer utils.Mailer) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	// Access log goes to its own rolling file
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, true))
	} else {
		utils.Sugar.Warnf("gin access log disabled: %v", err)
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))
	r.Use(middleware.Metrics())
	// Count views of post detail pages and the feed
	r.Use(middleware.PageViewRecorder(db, cfg.Location(), postDetailRoute, controllers.FeedPath))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	repos := repository.New(db, cfg.Location())
	postController := controllers.NewPostController(repos, mailer)
	adminController := controllers.NewAdminController(repos)
	authController := controllers.NewAuthController(repos)
	statsController := controllers.NewStatsController(db, repos)
	feedController := controllers.NewFeedController(repos)
	configController := controllers.NewConfigController()

	r.GET(controllers.FeedPath, feedController.Feed)
	r.GET(controllers.SitemapPath, feedController.Sitemap)

	api := r.Group("/api/v1")
	api.GET("/posts", postController.ListPosts)
	api.GET("/posts/:year/:month/:day/:slug", postController.GetPost)
	api.GET("/tag/:tag", postController.ListByTag)
	api.GET("/search", postController.Search)
	api.GET("/sidebar/latest", postController.Latest)
	api.GET("/sidebar/most-commented", postController.MostCommented)
	api.GET("/stats", statsController.GetStats)
	api.GET("/config/site", configController.GetSite)
	api.GET("/captcha", middleware.RateLimit(cfg.RateLimitPerMinute), postController.Captcha)

	// Reader writes are rate limited per IP
	limited := api.Group("/post/:id", middleware.RateLimit(cfg.RateLimitPerMinute))
	limited.POST("/comment", postController.CreateComment)
	limited.POST("/share", postController.SharePost)

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.GET("/oauth/:provider", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)

	admin := api.Group("/admin", middleware.AuthRequired(), middleware.StaffRequired())
	admin.GET("/posts", adminController.ListPosts)
	admin.POST("/posts", adminController.CreatePost)
	admin.PUT("/posts/:id", adminController.UpdatePost)
	admin.DELETE("/posts/:id", adminController.DeletePost)
	admin.POST("/posts/:id/publish", adminController.PublishPost)
	admin.POST("/posts/:id/unpublish", adminController.UnpublishPost)
	admin.GET("/comments", adminController.ListComments)
	admin.POST("/comments/:id/activate", adminController.ActivateComment)
	admin.POST("/comments/:id/deactivate", adminController.DeactivateComment)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	})

	return r
}
