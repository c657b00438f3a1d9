package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewAuditEntry_SuccessAlwaysSaysSuccess(t *testing.T) {
	rec := &MetadataRecord{
		ID:        "r1",
		UserID:    "alice",
		APIMethod: "get",
		Metadata:  map[string]any{MetaKeyURL: "/items/42"},
		Status:    200,
		Error:     &ErrorInfo{Message: "ignored"},
		Timestamp: time.Date(2026, 3, 4, 5, 6, 7, 8_000_000, time.UTC),
	}

	entry := NewAuditEntry(AuditMetaSuccess, rec, "also ignored")
	assert.Equal(t, "success", entry.Message)
	assert.Equal(t, []string{"2026-03-04T05:06:07.008Z", "alice", "get", "/items/42", "200", "success"}, entry.Row())
}

func TestNewAuditEntry_ErrorMessages(t *testing.T) {
	rec := &MetadataRecord{Status: 500, Error: &ErrorInfo{Message: "Internal Error"}}

	assert.Equal(t, "Internal Error", NewAuditEntry(AuditAPIError, rec, "").Message)
	assert.Equal(t, "connection refused", NewAuditEntry(AuditMetaError, rec, "connection refused").Message)
	assert.Equal(t, "unknown error", NewAuditEntry(AuditMetaError, &MetadataRecord{}, "").Message)
}

func TestNewAuditEntry_MissingFields(t *testing.T) {
	entry := NewAuditEntry(AuditAPISuccess, &MetadataRecord{}, "")
	row := entry.Row()
	assert.Equal(t, []string{"N/A", "N/A", "N/A", "N/A", "success"}, row[1:])

	entry = NewAuditEntry(AuditAPIError, nil, "boom")
	assert.Equal(t, "boom", entry.Message)
	assert.Equal(t, "N/A", entry.UserID)
}

func TestAuditKind(t *testing.T) {
	assert.Equal(t, "apiError.csv", AuditAPIError.FileName())
	assert.True(t, AuditMetaError.IsError())
	assert.False(t, AuditAPISuccess.IsError())
}
