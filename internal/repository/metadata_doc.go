package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/GoPolymarket/buildmymeta/internal/model"
)

const metadataCollection = "metadata"

// recordDocument is the field layout shared by the document stores (Firestore, Realtime Database).
func recordDocument(rec *model.MetadataRecord) map[string]any {
	doc := map[string]any{
		"id":              rec.ID,
		"userId":          rec.UserID,
		"apiMethod":       rec.APIMethod,
		"metadata":        rec.Metadata,
		"status":          rec.Status.String(),
		"error":           nil,
		"responseMessage": rec.ResponseMessage,
		"responseTime":    rec.ResponseTime,
		"ip":              rec.IP,
		"userAgent":       rec.UserAgent,
		"headers":         rec.Headers,
		"timestamp":       rec.Timestamp,
	}
	if rec.Error != nil {
		doc["error"] = map[string]any{
			"message": rec.Error.Message,
			"stack":   rec.Error.Stack,
		}
	}
	return doc
}

// jsonText serialises nested values for backends that only store scalars.
func jsonText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// flattenToText coerces a free-form map into map<text,text>: strings are kept, everything else is JSON.
func flattenToText[V any](m map[string]V) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := any(v).(string); ok {
			out[k] = s
			continue
		}
		out[k] = jsonText(v)
	}
	return out
}

func errorText(info *model.ErrorInfo) map[string]string {
	if info == nil {
		return map[string]string{}
	}
	return map[string]string{"message": info.Message, "stack": info.Stack}
}

func timestampOf(rec *model.MetadataRecord) time.Time {
	if rec.Timestamp.IsZero() {
		return time.Now().UTC()
	}
	return rec.Timestamp.UTC()
}
