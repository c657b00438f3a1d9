package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/GoPolymarket/buildmymeta/internal/model"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/apperrors"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openTestSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "meta.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func sampleRecord() *model.MetadataRecord {
	return &model.MetadataRecord{
		ID:        "5f7c2d1e-0000-4000-8000-000000000001",
		UserID:    "alice",
		APIMethod: "post",
		Metadata: map[string]any{
			model.MetaKeyURL:    "/items",
			model.MetaKeyBody:   map[string]any{"name": "widget"},
			model.MetaKeyParams: map[string]string{},
			model.MetaKeyQuery:  map[string]any{},
		},
		Headers:         map[string]string{"content-type": "application/json"},
		IP:              "10.0.0.1",
		UserAgent:       "go-test",
		ResponseTime:    15,
		Status:          500,
		ResponseMessage: "Internal Error",
		Error:           &model.ErrorInfo{Message: "Internal Error", Stack: model.DefaultErrorStack},
		Timestamp:       time.Date(2026, 4, 5, 6, 7, 8, 0, time.UTC),
	}
}

func TestGormMetadataRepo_SQLite(t *testing.T) {
	db := openTestSQLite(t)
	repo := NewGormMetadataRepo(model.BackendSQLite)

	err := repo.SaveMetadata(context.Background(), sampleRecord())
	assert.True(t, apperrors.Is(err, apperrors.ErrNotInitialized))

	require.NoError(t, repo.Configure(context.Background(), db))
	require.NoError(t, repo.Configure(context.Background(), db))
	assert.True(t, db.Migrator().HasTable(metadataCollection))

	rec := sampleRecord()
	require.NoError(t, repo.SaveMetadata(context.Background(), rec))

	var row metadataRow
	require.NoError(t, db.First(&row, "id = ?", rec.ID).Error)
	assert.Equal(t, "alice", row.UserID)
	assert.Equal(t, "500", row.Status)
	assert.Equal(t, "/items", row.Metadata[model.MetaKeyURL])
	assert.Equal(t, "widget", row.Metadata[model.MetaKeyBody].(map[string]any)["name"])
	assert.Equal(t, "application/json", row.Headers["content-type"])
	require.NotNil(t, row.Error)
	assert.Equal(t, "Internal Error", row.Error.Message)
	assert.Equal(t, int64(15), row.ResponseTime)
	assert.True(t, rec.Timestamp.Equal(row.Timestamp))

	// 主键冲突原样返回
	assert.Error(t, repo.SaveMetadata(context.Background(), rec))
}

func TestGormMetadataRepo_RejectsWrongHandle(t *testing.T) {
	repo := NewGormMetadataRepo(model.BackendMySQL)

	err := repo.Configure(context.Background(), "dsn string")
	assert.True(t, apperrors.Is(err, apperrors.ErrConfiguration))

	var db *gorm.DB
	err = repo.Configure(context.Background(), db)
	assert.True(t, apperrors.Is(err, apperrors.ErrConfiguration))
}
