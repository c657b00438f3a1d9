package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/GoPolymarket/buildmymeta/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMirror struct {
	mu      sync.Mutex
	entries []model.AuditEntry
}

func (m *recordingMirror) Append(_ context.Context, entry *model.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *entry)
	return nil
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
}

func TestAuditService_LazyFilesWithHeader(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	mirror := &recordingMirror{}
	svc := NewAuditService(dir, mirror)

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "directory must not exist before the first row")

	rec := &model.MetadataRecord{
		UserID:    "alice",
		APIMethod: "post",
		Metadata:  map[string]any{model.MetaKeyURL: "/items"},
		Status:    500,
		Error:     &model.ErrorInfo{Message: "Internal Error, retry later"},
	}
	svc.Append(model.AuditAPIError, rec, "")
	svc.Append(model.AuditAPIError, rec, "")
	svc.Close()

	lines := readLines(t, filepath.Join(dir, "apiError.csv"))
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,userId,apiMethod,url,status,message", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], `,alice,post,/items,500,"Internal Error, retry later"`), lines[1])

	for _, kind := range []model.AuditKind{model.AuditAPISuccess, model.AuditMetaSuccess, model.AuditMetaError} {
		_, err := os.Stat(filepath.Join(dir, kind.FileName()))
		assert.True(t, os.IsNotExist(err), kind)
	}
	assert.Len(t, mirror.entries, 2)
}

func TestAuditService_AppendsToExistingFile(t *testing.T) {
	dir := t.TempDir()

	first := NewAuditService(dir, nil)
	first.Append(model.AuditMetaSuccess, &model.MetadataRecord{Status: 200}, "")
	first.Close()

	second := NewAuditService(dir, nil)
	second.Append(model.AuditMetaSuccess, &model.MetadataRecord{Status: 201}, "")
	second.Close()

	lines := readLines(t, filepath.Join(dir, "metaSuccess.csv"))
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,userId,apiMethod,url,status,message", lines[0])
	assert.Contains(t, lines[2], ",201,success")
}

func TestAuditService_ConcurrentRowsStayWhole(t *testing.T) {
	dir := t.TempDir()
	svc := NewAuditService(dir, nil)

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Append(model.AuditAPISuccess, &model.MetadataRecord{UserID: "u", APIMethod: "get", Status: 200}, "")
		}()
	}
	wg.Wait()
	svc.Close()

	entries, err := ReadAuditLog(dir, model.AuditAPISuccess)
	require.NoError(t, err)
	assert.Len(t, entries, n)
	for _, e := range entries {
		assert.Equal(t, "success", e.Message)
	}
}

func TestAuditService_LogAfterCloseIsDropped(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	svc := NewAuditService(dir, nil)
	svc.Close()
	svc.Close()

	assert.NotPanics(t, func() {
		svc.Append(model.AuditAPIError, nil, "late")
	})
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestSummarizeAuditLogs(t *testing.T) {
	dir := t.TempDir()
	svc := NewAuditService(dir, nil)
	svc.Append(model.AuditAPISuccess, &model.MetadataRecord{Status: 200}, "")
	svc.Append(model.AuditAPIError, &model.MetadataRecord{Status: 500}, "Internal Error")
	svc.Append(model.AuditMetaError, &model.MetadataRecord{Status: 500}, "connection refused")
	svc.Close()

	summary, err := SummarizeAuditLogs(dir, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Counts[model.AuditAPISuccess])
	assert.Equal(t, 1, summary.Counts[model.AuditAPIError])
	assert.Equal(t, 0, summary.Counts[model.AuditMetaSuccess])
	assert.Equal(t, 1, summary.Counts[model.AuditMetaError])
	assert.Len(t, summary.Failures, 1)
}
