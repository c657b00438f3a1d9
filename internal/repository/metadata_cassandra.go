package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/GoPolymarket/buildmymeta/internal/model"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/apperrors"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/logger"
	"github.com/gocql/gocql"
)

const cassandraCreateTable = `
	CREATE TABLE IF NOT EXISTS metadata (
		user_id text,
		timestamp timestamp,
		id text,
		api_method text,
		metadata map<text, text>,
		status text,
		error map<text, text>,
		response_message text,
		response_time bigint,
		ip text,
		user_agent text,
		headers map<text, text>,
		PRIMARY KEY (user_id, timestamp, id)
	) WITH CLUSTERING ORDER BY (timestamp DESC, id ASC)`

const cassandraInsert = `
	INSERT INTO metadata (
		user_id, timestamp, id, api_method, metadata, status, error,
		response_message, response_time, ip, user_agent, headers
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// CassandraMetadataRepo flattens nested fields into map<text, text> columns.
type CassandraMetadataRepo struct {
	mu      sync.Mutex
	session *gocql.Session
}

func NewCassandraMetadataRepo() *CassandraMetadataRepo {
	return &CassandraMetadataRepo{}
}

func (r *CassandraMetadataRepo) Configure(ctx context.Context, handle any) error {
	session, ok := handle.(*gocql.Session)
	if !ok || session == nil {
		return apperrors.NewConfiguration(fmt.Sprintf("an initialized *gocql.Session is required for Cassandra setup, got %T", handle))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		logger.Info("Cassandra client already initialized")
		return nil
	}
	if err := session.Query(cassandraCreateTable).WithContext(ctx).Exec(); err != nil {
		return err
	}
	r.session = session
	logger.Info("Cassandra table \"metadata\" is ready")
	return nil
}

func (r *CassandraMetadataRepo) SaveMetadata(ctx context.Context, rec *model.MetadataRecord) error {
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()
	if session == nil {
		return apperrors.NewNotInitialized("Cassandra client not initialized")
	}
	return session.Query(cassandraInsert, cassandraValues(rec)...).WithContext(ctx).Exec()
}

// cassandraValues binds a record in cassandraInsert column order.
func cassandraValues(rec *model.MetadataRecord) []any {
	return []any{
		rec.UserID,
		timestampOf(rec),
		rec.ID,
		rec.APIMethod,
		flattenToText(rec.Metadata),
		rec.Status.String(),
		errorText(rec.Error),
		rec.ResponseMessage,
		rec.ResponseTime,
		rec.IP,
		rec.UserAgent,
		flattenToText(rec.Headers),
	}
}
