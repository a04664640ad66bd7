package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/aiblog/models"
	"github.com/cppla/aiblog/utils"
)

// PageViewRecorder counts successful GET requests per day and path for the given route patterns,
// e.g. the post detail route. Days are taken in loc.
func PageViewRecorder(db *gorm.DB, loc *time.Location, routes ...string) gin.HandlerFunc {
	tracked := make(map[string]bool, len(routes))
	for _, r := range routes {
		tracked[r] = true
	}

	return func(c *gin.Context) {
		c.Next()

		if c.Request.Method != http.MethodGet || !tracked[c.FullPath()] {
			return
		}
		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}

		now := time.Now()
		// Upsert keeps concurrent views of one path from racing on the unique key
		err := db.WithContext(c.Request.Context()).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}, {Name: "path"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": now}),
		}).Create(&models.PageView{Date: models.ViewDay(now, loc), Path: c.Request.URL.Path, Count: 1}).Error
		if err != nil {
			utils.Sugar.Warnf("record page view path=%s err=%v", c.Request.URL.Path, err)
		}
	}
}
