package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/aiblog/config"
	"github.com/cppla/aiblog/metrics"
	"github.com/cppla/aiblog/middleware"
	"github.com/cppla/aiblog/repository"
	"github.com/cppla/aiblog/utils"
)

const maxSidebarCount = 20

// parseID reads a positive numeric path parameter.
func parseID(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// countParam reads a small positive count query parameter, falling back to def.
func countParam(ctx *gin.Context, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(ctx.Query("count")))
	if err != nil || n <= 0 {
		return def
	}
	if n > maxSidebarCount {
		return maxSidebarCount
	}
	return n
}

// respondError maps repository errors onto the response envelope and logs store failures.
func respondError(ctx *gin.Context, err error, notFoundCode, serverCode int, what string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, notFoundCode, what+" not found")
	case errors.Is(err, repository.ErrSlugTaken):
		utils.Error(ctx, http.StatusConflict, 40902, err.Error())
	case repository.IsValidationError(err):
		utils.ValidationError(ctx, 40030, err)
	default:
		utils.Logger.Error("store error",
			zap.String("what", what),
			zap.String("request_id", middleware.GetRequestID(ctx)),
			zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, serverCode, "failed to load "+what)
	}
}

// serveCached replays a cached JSON envelope when the response cache is enabled.
func serveCached(ctx *gin.Context, key string) bool {
	if utils.GetRedis() == nil {
		return false
	}
	b, ok := utils.CachedResponse(ctx.Request.Context(), key)
	metrics.RecordCacheLookup(ok)
	if !ok {
		return false
	}
	ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
	return true
}

// captchaPassed checks the form captcha when captchas are enabled and answers 400 otherwise.
func captchaPassed(ctx *gin.Context, id, answer string) bool {
	if !config.Get().CaptchaEnabled || utils.VerifyCaptcha(id, answer) {
		return true
	}
	utils.Respond(ctx, http.StatusBadRequest, 40014, "invalid request payload",
		gin.H{"fields": gin.H{"captcha_answer": "wrong or expired captcha"}})
	return false
}
