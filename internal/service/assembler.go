package service

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/GoPolymarket/buildmymeta/internal/capture"
	"github.com/GoPolymarket/buildmymeta/internal/model"
)

const maxErrorMessageLen = 512

// Assembler turns a completed exchange into a standardized MetadataRecord.
type Assembler struct {
	identity string
}

func NewAssembler(identity string) *Assembler {
	return &Assembler{identity: identity}
}

// Assemble waits for the exchange to complete and builds its record. ok is false when the
// exchange was abandoned or ctx ended first; assembly itself never fails.
func (a *Assembler) Assemble(ctx context.Context, ex *capture.Exchange) (model.MetadataRecord, bool) {
	res, err := ex.Wait(ctx)
	if err != nil {
		return model.MetadataRecord{}, false
	}

	partial, _ := ex.Custom()
	partial.ID = ex.ID
	partial.UserID = firstNonEmpty(partial.UserID, res.UserID, a.identity, model.DefaultUserID)
	if partial.APIMethod == "" {
		partial.APIMethod = model.NormalizeMethod(ex.Request.Method)
	} else {
		partial.APIMethod = model.NormalizeMethod(partial.APIMethod)
	}
	partial.Status = model.StatusCode(res.Status)
	partial.ResponseTime = res.Elapsed.Milliseconds()
	partial.Timestamp = res.FinishedAt.UTC()
	if len(res.Body) > 0 {
		partial.ResponseMessage = string(res.Body)
	}

	if res.Status >= http.StatusBadRequest {
		if partial.Error == nil {
			partial.Error = deriveError(res)
		}
	} else {
		partial.Error = nil
	}

	rec := model.Standardize(partial, &ex.Request)
	if res.Truncated {
		rec.Metadata[model.MetaKeyResponseTruncated] = true
	}
	return rec, true
}

func deriveError(res capture.Result) *model.ErrorInfo {
	msg := res.HandlerError
	if msg == "" {
		msg = messageFromBody(res.Body)
	}
	if msg == "" {
		msg = http.StatusText(res.Status)
	}
	if msg == "" {
		msg = "HTTP " + strconv.Itoa(res.Status)
	}
	stack := res.HandlerErrors
	if stack == "" {
		stack = model.DefaultErrorStack
	}
	return &model.ErrorInfo{Message: msg, Stack: stack}
}

// messageFromBody pulls a human readable message out of an error response:
// {"message": ...}, {"error": ...}, {"error": {"message": ...}} or plain text.
func messageFromBody(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	if json.Valid([]byte(trimmed)) {
		var obj map[string]any
		if err := json.Unmarshal([]byte(trimmed), &obj); err != nil {
			// 合法 JSON 但不是对象（字符串、数组等）
			var s string
			if json.Unmarshal([]byte(trimmed), &s) == nil {
				return truncate(s)
			}
			return ""
		}
		for _, key := range []string{"message", "error"} {
			switch v := obj[key].(type) {
			case string:
				return truncate(v)
			case map[string]any:
				if inner, ok := v["message"].(string); ok {
					return truncate(inner)
				}
			}
		}
		return ""
	}
	return truncate(trimmed)
}

func truncate(s string) string {
	if len(s) <= maxErrorMessageLen {
		return s
	}
	cut := maxErrorMessageLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
