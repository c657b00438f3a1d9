package model

import (
	"time"
)

// AuditKind selects one of the four append-only audit logs.
type AuditKind string

const (
	AuditAPISuccess  AuditKind = "apiSuccess"
	AuditAPIError    AuditKind = "apiError"
	AuditMetaSuccess AuditKind = "metaSuccess"
	AuditMetaError   AuditKind = "metaError"
)

var AuditKinds = []AuditKind{AuditAPISuccess, AuditAPIError, AuditMetaSuccess, AuditMetaError}

// FileName is the CSV file backing the log.
func (k AuditKind) FileName() string {
	return string(k) + ".csv"
}

func (k AuditKind) IsError() bool {
	return k == AuditAPIError || k == AuditMetaError
}

// AuditHeader is the fixed first line of every audit file.
var AuditHeader = []string{"timestamp", "userId", "apiMethod", "url", "status", "message"}

// AuditEntry 代表审计日志中的一行
type AuditEntry struct {
	Kind      AuditKind `json:"kind"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	APIMethod string    `json:"api_method"`
	URL       string    `json:"url"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
}

// NewAuditEntry derives a row from a record. Success logs always carry "success";
// error logs carry errMsg, falling back to the record's own error message.
func NewAuditEntry(kind AuditKind, rec *MetadataRecord, errMsg string) AuditEntry {
	entry := AuditEntry{
		Kind:      kind,
		Timestamp: time.Now().UTC(),
		UserID:    "N/A",
		APIMethod: "N/A",
		URL:       "N/A",
		Status:    "N/A",
		Message:   "success",
	}
	if rec != nil {
		entry.RequestID = rec.ID
		if !rec.Timestamp.IsZero() {
			entry.Timestamp = rec.Timestamp.UTC()
		}
		entry.UserID = orNA(rec.UserID)
		entry.APIMethod = orNA(rec.APIMethod)
		entry.URL = orNA(rec.URL())
		if rec.Status.Known() {
			entry.Status = rec.Status.String()
		}
	}
	if !kind.IsError() {
		return entry
	}
	switch {
	case errMsg != "":
		entry.Message = errMsg
	case rec != nil && rec.Error != nil && rec.Error.Message != "":
		entry.Message = rec.Error.Message
	default:
		entry.Message = "unknown error"
	}
	return entry
}

// Row renders the entry in AuditHeader column order.
func (e AuditEntry) Row() []string {
	return []string{
		e.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z"),
		e.UserID,
		e.APIMethod,
		e.URL,
		e.Status,
		e.Message,
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
