package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/GoPolymarket/buildmymeta/internal/model"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/apperrors"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/logger"
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

// PostgresMetadataRepo writes with raw SQL over sqlx, or hands off to gorm when the
// integrator's handle is a *gorm.DB.
type PostgresMetadataRepo struct {
	mu    sync.Mutex
	db    *sqlx.DB
	gorm  *GormMetadataRepo
	ready bool
}

func NewPostgresMetadataRepo() *PostgresMetadataRepo {
	return &PostgresMetadataRepo{}
}

func (r *PostgresMetadataRepo) Configure(ctx context.Context, handle any) error {
	switch h := handle.(type) {
	case *sqlx.DB:
		if h == nil {
			break
		}
		return r.configure(ctx, h)
	case *sql.DB:
		if h == nil {
			break
		}
		return r.configure(ctx, sqlx.NewDb(h, "pgx"))
	case *gorm.DB:
		if h == nil {
			break
		}
		r.mu.Lock()
		if r.gorm == nil {
			r.gorm = NewGormMetadataRepo(model.BackendPostgres)
		}
		g := r.gorm
		r.mu.Unlock()
		return g.configure(ctx, h)
	}
	return apperrors.NewConfiguration(fmt.Sprintf("an initialized *sqlx.DB, *sql.DB or *gorm.DB is required for PostgreSQL setup, got %T", handle))
}

func (r *PostgresMetadataRepo) configure(ctx context.Context, db *sqlx.DB) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready {
		logger.Info("PostgreSQL table \"metadata\" already initialized")
		return nil
	}
	if err := ensureMetadataSchema(ctx, db); err != nil {
		return err
	}
	r.db = db
	r.ready = true
	logger.Info("PostgreSQL table \"metadata\" is ready")
	return nil
}

func (r *PostgresMetadataRepo) SaveMetadata(ctx context.Context, rec *model.MetadataRecord) error {
	r.mu.Lock()
	db, g := r.db, r.gorm
	r.mu.Unlock()

	if g != nil {
		return g.SaveMetadata(ctx, rec)
	}
	if db == nil {
		return apperrors.NewNotInitialized("PostgreSQL table not initialized")
	}

	metadataJSON, _ := json.Marshal(rec.Metadata)
	headersJSON, _ := json.Marshal(rec.Headers)
	var errorJSON []byte
	if rec.Error != nil {
		errorJSON, _ = json.Marshal(rec.Error)
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO metadata (
			id, user_id, api_method, metadata, status, error,
			response_message, response_time, ip, user_agent, headers, timestamp
		) VALUES (
			$1,$2,$3,$4,$5,$6,
			$7,$8,$9,$10,$11,$12
		)
		ON CONFLICT (id) DO NOTHING
	`, rec.ID, rec.UserID, rec.APIMethod, metadataJSON, rec.Status.String(), nullableJSON(errorJSON),
		rec.ResponseMessage, rec.ResponseTime, rec.IP, rec.UserAgent, headersJSON, timestampOf(rec))
	return err
}

func ensureMetadataSchema(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS metadata (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			api_method TEXT NOT NULL,
			metadata JSONB,
			status TEXT NOT NULL,
			error JSONB,
			response_message TEXT,
			response_time BIGINT,
			ip TEXT,
			user_agent TEXT,
			headers JSONB,
			timestamp TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}
	_, _ = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_metadata_user_ts ON metadata(user_id, timestamp DESC)`)
	return nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
