package capture

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/GoPolymarket/buildmymeta/internal/model"
	"github.com/gin-gonic/gin"
)

// Snapshot copies everything the record needs from the request. The body is read up to
// maxBody bytes (all of it when maxBody <= 0) and put back so later handlers can bind it.
func Snapshot(c *gin.Context, maxBody int, redactor *Redactor) model.RequestContext {
	r := c.Request
	req := model.RequestContext{
		Method:    r.Method,
		URL:       r.URL.RequestURI(),
		IP:        c.ClientIP(),
		UserAgent: r.UserAgent(),
		Params:    make(map[string]string, len(c.Params)),
		Query:     make(map[string]any),
		Headers:   make(map[string]string, len(r.Header)),
	}

	for _, p := range c.Params {
		req.Params[p.Key] = p.Value
	}
	for key, values := range r.URL.Query() {
		if len(values) == 1 {
			req.Query[key] = values[0]
			continue
		}
		req.Query[key] = append([]string(nil), values...)
	}
	for name, values := range r.Header {
		lower := strings.ToLower(name)
		req.Headers[lower] = redactor.Header(lower, strings.Join(values, ", "))
	}

	req.Body = readBody(c, maxBody, redactor)
	return req
}

func readBody(c *gin.Context, maxBody int, redactor *Redactor) any {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil
	}

	var raw []byte
	if maxBody > 0 {
		raw, _ = io.ReadAll(io.LimitReader(c.Request.Body, int64(maxBody)))
		// 拼回已读取的前缀，后续 Bind 仍能读到完整请求体
		c.Request.Body = readCloser{
			Reader: io.MultiReader(bytes.NewReader(raw), c.Request.Body),
			Closer: c.Request.Body,
		}
	} else {
		raw, _ = io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	}

	if len(raw) == 0 {
		return nil
	}
	if json.Valid(raw) {
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err == nil {
			redactor.Value(&decoded)
			return decoded
		}
	}
	return string(raw)
}

type readCloser struct {
	io.Reader
	io.Closer
}
