package middleware

import (
	"github.com/GoPolymarket/buildmymeta/internal/capture"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/apperrors"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ErrorHandler renders the last error a handler attached as an AppError JSON body.
// It must run inside MetadataMiddleware so the rendered body is what gets captured.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		appErr := apperrors.Wrap(c.Errors.Last().Err)

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		logFields := []any{
			"method", c.Request.Method,
			"route", route,
			"code", appErr.Type,
			"client_ip", c.ClientIP(),
		}
		if ex := capture.FromContext(c); ex != nil {
			logFields = append(logFields, "request_id", ex.ID)
		}

		if appErr.HTTPStatus >= 500 {
			logger.LogError(c.Request.Context(), appErr, "request failed", logFields...)
		} else {
			logger.Warn(appErr.Message, logFields...)
		}

		if !c.Writer.Written() {
			c.JSON(appErr.HTTPStatus, appErr)
		}
	}
}
