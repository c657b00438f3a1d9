package handler

import (
	"net/http"

	"github.com/GoPolymarket/buildmymeta/internal/model"
	"github.com/gin-gonic/gin"
)

// SinkInfo describes the configured metadata pipeline.
type SinkInfo interface {
	Kind() model.BackendKind
	Identity() string
}

func Health(info SinkInfo) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sink": info.Kind(), "identity": info.Identity()})
	}
}
