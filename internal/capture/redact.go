package capture

import (
	"strings"
)

const redactedValue = "***"

var (
	DefaultRedactHeaders = []string{"authorization", "cookie", "set-cookie", "proxy-authorization", "x-api-key"}
	DefaultRedactKeys    = []string{"password", "passwd", "secret", "token", "access_token", "refresh_token", "api_key", "api_secret", "private_key"}
)

// Redactor masks sensitive request headers and JSON body keys before a record is persisted.
type Redactor struct {
	headers map[string]struct{}
	keys    map[string]struct{}
}

func NewRedactor(headers, keys []string) *Redactor {
	r := &Redactor{
		headers: make(map[string]struct{}, len(headers)),
		keys:    make(map[string]struct{}, len(keys)),
	}
	for _, h := range headers {
		r.headers[normalizeKey(h)] = struct{}{}
	}
	for _, k := range keys {
		r.keys[normalizeKey(k)] = struct{}{}
	}
	return r
}

func DefaultRedactor() *Redactor {
	return NewRedactor(DefaultRedactHeaders, DefaultRedactKeys)
}

func (r *Redactor) Header(name, value string) string {
	if r == nil {
		return value
	}
	if _, ok := r.headers[normalizeKey(name)]; ok {
		return redactedValue
	}
	return value
}

// Value walks decoded JSON in place.
func (r *Redactor) Value(v *any) {
	if r == nil || len(r.keys) == 0 {
		return
	}
	switch raw := (*v).(type) {
	case map[string]any:
		for key, val := range raw {
			if _, ok := r.keys[normalizeKey(key)]; ok {
				raw[key] = redactedValue
				continue
			}
			vv := val
			r.Value(&vv)
			raw[key] = vv
		}
	case []any:
		for i, val := range raw {
			vv := val
			r.Value(&vv)
			raw[i] = vv
		}
	}
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
