package capture

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ContextExchangeKey = "buildmymeta.exchange"
	// ContextUserIDKey may be set by an auth middleware to attribute the exchange to a user.
	ContextUserIDKey = "buildmymeta.user_id"
	HeaderRequestID  = "X-Request-ID"
)

// bodyWriter 包装 ResponseWriter 以捕获响应体，写给客户端的字节保持不变
type bodyWriter struct {
	gin.ResponseWriter
	ex *Exchange
}

func (w *bodyWriter) Write(b []byte) (int, error) {
	w.ex.recordBody(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyWriter) WriteString(s string) (int, error) {
	w.ex.recordBody([]byte(s))
	return w.ResponseWriter.WriteString(s)
}

// Options controls how the interceptor snapshots an exchange.
type Options struct {
	MaxBodyBytes int
	Redactor     *Redactor
	Now          func() time.Time
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Install wraps the response writer of c exactly once. The second and later calls on
// the same context return the existing exchange and installed=false.
func Install(c *gin.Context, opts Options) (ex *Exchange, installed bool) {
	if existing := FromContext(c); existing != nil {
		return existing, false
	}

	start := opts.now()
	req := Snapshot(c, opts.MaxBodyBytes, opts.Redactor)
	ex = NewExchange(uuid.New().String(), start, req, opts.MaxBodyBytes)

	c.Header(HeaderRequestID, ex.ID)
	c.Writer = &bodyWriter{ResponseWriter: c.Writer, ex: ex}
	c.Set(ContextExchangeKey, ex)
	return ex, true
}

// FromContext returns the exchange installed on c, or nil.
func FromContext(c *gin.Context) *Exchange {
	if c == nil {
		return nil
	}
	val, exists := c.Get(ContextExchangeKey)
	if !exists {
		return nil
	}
	ex, _ := val.(*Exchange)
	return ex
}

// Finish completes the exchange from the state of c after the handler chain returned.
func Finish(c *gin.Context, ex *Exchange, at time.Time) bool {
	done := Completion{
		Status: c.Writer.Status(),
		UserID: c.GetString(ContextUserIDKey),
		At:     at,
	}
	if len(c.Errors) > 0 {
		done.HandlerError = c.Errors.Last().Error()
		done.HandlerErrors = c.Errors.String()
	}
	return ex.Complete(done)
}
