package model

import (
	"encoding/json"
	"strconv"
	"time"
)

const (
	DefaultUserID          = "Anonymous"
	DefaultAPIMethod       = "unknown"
	DefaultIP              = "unknown"
	DefaultUserAgent       = "unknown"
	DefaultResponseMessage = "No response message"
	DefaultErrorStack      = "No stack available"
)

// 保留键：始终来自请求上下文，调用方的同名键不会覆盖它们
const (
	MetaKeyURL    = "url"
	MetaKeyBody   = "body"
	MetaKeyParams = "params"
	MetaKeyQuery  = "query"
)

// MetaKeyResponseTruncated is set when responseMessage holds only the first capture.max_body_bytes.
const MetaKeyResponseTruncated = "responseTruncated"

// StatusCode is an HTTP status that reads "unknown" until the response completes.
type StatusCode int

func (s StatusCode) Known() bool { return s > 0 }

func (s StatusCode) String() string {
	if !s.Known() {
		return "unknown"
	}
	return strconv.Itoa(int(s))
}

func (s StatusCode) MarshalJSON() ([]byte, error) {
	if !s.Known() {
		return []byte(`"unknown"`), nil
	}
	return []byte(strconv.Itoa(int(s))), nil
}

func (s *StatusCode) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*s = StatusCode(n)
		return nil
	}
	*s = 0
	return nil
}

// ErrorInfo is attached to a record iff its status is >= 400.
type ErrorInfo struct {
	Message string `json:"message" bson:"message"`
	Stack   string `json:"stack" bson:"stack"`
}

// MetadataRecord 代表一次完整请求/响应交换的元数据
type MetadataRecord struct {
	ID              string            `json:"id" bson:"_id"`
	UserID          string            `json:"userId" bson:"userId"`
	APIMethod       string            `json:"apiMethod" bson:"apiMethod"`
	Metadata        map[string]any    `json:"metadata" bson:"metadata"`
	Headers         map[string]string `json:"headers" bson:"headers"`
	IP              string            `json:"ip" bson:"ip"`
	UserAgent       string            `json:"userAgent" bson:"userAgent"`
	ResponseTime    int64             `json:"responseTime" bson:"responseTime"` // 毫秒
	Status          StatusCode        `json:"status" bson:"status"`
	ResponseMessage string            `json:"responseMessage" bson:"responseMessage"`
	Error           *ErrorInfo        `json:"error" bson:"error"`
	Timestamp       time.Time         `json:"timestamp" bson:"timestamp"`
}

// URL returns the reserved url key of the metadata map, or "" when absent.
func (r *MetadataRecord) URL() string {
	if r == nil || r.Metadata == nil {
		return ""
	}
	if s, ok := r.Metadata[MetaKeyURL].(string); ok {
		return s
	}
	return ""
}

// PartialRecord carries whatever is known about an exchange. Zero values mean "absent".
type PartialRecord struct {
	ID              string
	UserID          string
	APIMethod       string
	Metadata        map[string]any
	Headers         map[string]string
	IP              string
	UserAgent       string
	ResponseTime    int64
	Status          StatusCode
	ResponseMessage string
	Error           *ErrorInfo
	Timestamp       time.Time
}

// RequestContext is a detached snapshot of the inbound request.
type RequestContext struct {
	Method    string
	URL       string
	Body      any
	Params    map[string]string
	Query     map[string]any
	Headers   map[string]string
	IP        string
	UserAgent string
}

// Standardize fills every field of a record from partial input, falling back to
// the request snapshot and then to the documented defaults. It never fails.
func Standardize(p PartialRecord, req *RequestContext) MetadataRecord {
	rec := MetadataRecord{
		ID:              p.ID,
		UserID:          firstNonEmpty(p.UserID, DefaultUserID),
		APIMethod:       p.APIMethod,
		ResponseTime:    p.ResponseTime,
		Status:          p.Status,
		ResponseMessage: firstNonEmpty(p.ResponseMessage, DefaultResponseMessage),
		Error:           p.Error,
		Timestamp:       p.Timestamp,
	}
	if rec.APIMethod == "" {
		rec.APIMethod = DefaultAPIMethod
		if req != nil && req.Method != "" {
			rec.APIMethod = NormalizeMethod(req.Method)
		}
	}
	if rec.ResponseTime < 0 {
		rec.ResponseTime = 0
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	rec.Metadata = mergeMetadata(p.Metadata, req)

	switch {
	case p.Headers != nil:
		rec.Headers = p.Headers
	case req != nil && req.Headers != nil:
		rec.Headers = req.Headers
	default:
		rec.Headers = map[string]string{}
	}

	rec.IP = p.IP
	if rec.IP == "" && req != nil {
		rec.IP = req.IP
	}
	rec.IP = firstNonEmpty(rec.IP, DefaultIP)

	rec.UserAgent = p.UserAgent
	if rec.UserAgent == "" && req != nil {
		rec.UserAgent = req.UserAgent
	}
	rec.UserAgent = firstNonEmpty(rec.UserAgent, DefaultUserAgent)

	return rec
}

func mergeMetadata(extra map[string]any, req *RequestContext) map[string]any {
	out := make(map[string]any, len(extra)+4)
	for k, v := range extra {
		out[k] = v
	}
	if req != nil {
		out[MetaKeyURL] = req.URL
		out[MetaKeyBody] = orEmptyObject(req.Body)
		out[MetaKeyParams] = stringMap(req.Params)
		out[MetaKeyQuery] = anyMap(req.Query)
		return out
	}
	// 无请求上下文时，调用方提供的保留键可以保留
	if _, ok := out[MetaKeyURL]; !ok {
		out[MetaKeyURL] = ""
	}
	for _, key := range []string{MetaKeyBody, MetaKeyParams, MetaKeyQuery} {
		if _, ok := out[key]; !ok {
			out[key] = map[string]any{}
		}
	}
	return out
}

func orEmptyObject(v any) any {
	if v == nil {
		return map[string]any{}
	}
	return v
}

func stringMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func anyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
