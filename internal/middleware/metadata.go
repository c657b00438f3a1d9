package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/GoPolymarket/buildmymeta/internal/model"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/apperrors"
	"github.com/GoPolymarket/buildmymeta/internal/service"
	"github.com/gin-gonic/gin"
)

const ContextPipelineKey = "buildmymeta.pipeline"

// MetadataMiddleware captures every exchange passing through it and hands it to p once
// the handler chain returns. A panic is recorded as a 500 and re-raised for the outer
// recovery middleware. An exchange whose client went away before the chain returned is abandoned.
func MetadataMiddleware(p *service.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextPipelineKey, p)

		ex, installed := p.Begin(c)
		if !installed {
			// 已被外层中间件接管
			c.Next()
			return
		}

		finished := false
		defer func() {
			if finished {
				return
			}
			r := recover()
			if r == nil || errors.Is(asError(r), http.ErrAbortHandler) {
				// 连接被中止，客户端收不到完整响应
				p.Abandon(ex)
			} else {
				_ = c.Error(fmt.Errorf("panic recovered: %v", r))
				if !c.Writer.Written() {
					c.Writer.WriteHeader(http.StatusInternalServerError)
				}
				p.Finish(c, ex)
			}
			if r != nil {
				panic(r)
			}
		}()

		// === 执行业务逻辑 ===
		c.Next()

		finished = true
		if c.Request.Context().Err() != nil {
			p.Abandon(ex)
			return
		}
		p.Finish(c, ex)
	}
}

// LogCustomMetadata 允许 Handler 向本次请求的记录附加自定义字段
func LogCustomMetadata(c *gin.Context, data model.PartialRecord) error {
	p := pipelineFrom(c)
	if p == nil {
		return apperrors.NewNotInitialized("metadata middleware is not installed, cannot log custom metadata")
	}
	return p.LogCustomMetadata(c, data)
}

// AddMetadata attaches a single free-form key to the current record.
func AddMetadata(c *gin.Context, key string, value any) error {
	return LogCustomMetadata(c, model.PartialRecord{Metadata: map[string]any{key: value}})
}

func asError(v any) error {
	err, _ := v.(error)
	return err
}

func pipelineFrom(c *gin.Context) *service.Pipeline {
	if c == nil {
		return nil
	}
	val, exists := c.Get(ContextPipelineKey)
	if !exists {
		return nil
	}
	p, _ := val.(*service.Pipeline)
	return p
}
