package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GoPolymarket/buildmymeta/internal/model"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/apperrors"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/logger"
	"gorm.io/gorm"
)

// metadataRow 是 SQL 后端（gorm）的表结构，嵌套字段以 JSON 文本存储
type metadataRow struct {
	ID              string            `gorm:"column:id;primaryKey;size:36"`
	UserID          string            `gorm:"column:user_id;size:255;not null;index:idx_metadata_user_ts,priority:1"`
	APIMethod       string            `gorm:"column:api_method;size:16;not null"`
	Metadata        map[string]any    `gorm:"column:metadata;type:json;serializer:json"`
	Status          string            `gorm:"column:status;size:16;not null"`
	Error           *model.ErrorInfo  `gorm:"column:error;type:json;serializer:json"`
	ResponseMessage string            `gorm:"column:response_message;type:text"`
	ResponseTime    int64             `gorm:"column:response_time"`
	IP              string            `gorm:"column:ip;size:64"`
	UserAgent       string            `gorm:"column:user_agent;size:512"`
	Headers         map[string]string `gorm:"column:headers;type:json;serializer:json"`
	Timestamp       time.Time         `gorm:"column:timestamp;index:idx_metadata_user_ts,priority:2"`
}

func (metadataRow) TableName() string {
	return metadataCollection
}

func newMetadataRow(rec *model.MetadataRecord) *metadataRow {
	return &metadataRow{
		ID:              rec.ID,
		UserID:          rec.UserID,
		APIMethod:       rec.APIMethod,
		Metadata:        rec.Metadata,
		Status:          rec.Status.String(),
		Error:           rec.Error,
		ResponseMessage: rec.ResponseMessage,
		ResponseTime:    rec.ResponseTime,
		IP:              rec.IP,
		UserAgent:       rec.UserAgent,
		Headers:         rec.Headers,
		Timestamp:       timestampOf(rec),
	}
}

// GormMetadataRepo serves mysql, mariadb, sqlite and (optionally) postgres through one *gorm.DB.
type GormMetadataRepo struct {
	kind model.BackendKind

	mu    sync.Mutex
	db    *gorm.DB
	ready bool
}

func NewGormMetadataRepo(kind model.BackendKind) *GormMetadataRepo {
	return &GormMetadataRepo{kind: kind}
}

func (r *GormMetadataRepo) Configure(ctx context.Context, handle any) error {
	db, ok := handle.(*gorm.DB)
	if !ok || db == nil {
		return apperrors.NewConfiguration(fmt.Sprintf("an initialized *gorm.DB is required for %s setup, got %T", r.kind, handle))
	}
	return r.configure(ctx, db)
}

func (r *GormMetadataRepo) configure(ctx context.Context, db *gorm.DB) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ready {
		logger.Info("metadata model already initialized", "kind", r.kind)
		return nil
	}
	if err := db.WithContext(ctx).AutoMigrate(&metadataRow{}); err != nil {
		return err
	}
	r.db = db
	r.ready = true
	logger.Info("metadata table is ready", "kind", r.kind)
	return nil
}

func (r *GormMetadataRepo) SaveMetadata(ctx context.Context, rec *model.MetadataRecord) error {
	r.mu.Lock()
	db := r.db
	r.mu.Unlock()
	if db == nil {
		return apperrors.NewNotInitialized(fmt.Sprintf("%s model not initialized", r.kind))
	}
	return db.WithContext(ctx).Create(newMetadataRow(rec)).Error
}
