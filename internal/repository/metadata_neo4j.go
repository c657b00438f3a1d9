package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/GoPolymarket/buildmymeta/internal/model"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/apperrors"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/logger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const neo4jConstraint = `CREATE CONSTRAINT metadata_id IF NOT EXISTS FOR (m:Metadata) REQUIRE m.id IS UNIQUE`

const neo4jCreate = `
	CREATE (m:Metadata {
		id: $id,
		userId: $userId,
		apiMethod: $apiMethod,
		metadata: $metadata,
		status: $status,
		error: $error,
		responseMessage: $responseMessage,
		responseTime: $responseTime,
		ip: $ip,
		userAgent: $userAgent,
		headers: $headers,
		timestamp: $timestamp
	})`

// Neo4jMetadataRepo stores one :Metadata node per exchange. Node properties cannot
// hold maps, so nested fields are JSON strings.
type Neo4jMetadataRepo struct {
	database string

	mu     sync.Mutex
	driver neo4j.DriverWithContext
}

// NewNeo4jMetadataRepo targets database, or the server default when empty.
func NewNeo4jMetadataRepo(database string) *Neo4jMetadataRepo {
	return &Neo4jMetadataRepo{database: database}
}

func (r *Neo4jMetadataRepo) Configure(ctx context.Context, handle any) error {
	driver, ok := handle.(neo4j.DriverWithContext)
	if !ok || driver == nil {
		return apperrors.NewConfiguration(fmt.Sprintf("an initialized neo4j.DriverWithContext is required for Neo4j setup, got %T", handle))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.driver != nil {
		logger.Info("Neo4j session already initialized")
		return nil
	}
	if _, err := neo4j.ExecuteQuery(ctx, driver, neo4jConstraint, nil, neo4j.EagerResultTransformer, r.queryOptions()...); err != nil {
		return err
	}
	r.driver = driver
	logger.Info("Neo4j Metadata constraint ensured")
	return nil
}

func (r *Neo4jMetadataRepo) SaveMetadata(ctx context.Context, rec *model.MetadataRecord) error {
	r.mu.Lock()
	driver := r.driver
	r.mu.Unlock()
	if driver == nil {
		return apperrors.NewNotInitialized("Neo4j session not initialized")
	}
	_, err := neo4j.ExecuteQuery(ctx, driver, neo4jCreate, neo4jParams(rec), neo4j.EagerResultTransformer,
		append(r.queryOptions(), neo4j.ExecuteQueryWithWritersRouting())...)
	return err
}

func (r *Neo4jMetadataRepo) queryOptions() []neo4j.ExecuteQueryConfigurationOption {
	if r.database == "" {
		return nil
	}
	return []neo4j.ExecuteQueryConfigurationOption{neo4j.ExecuteQueryWithDatabase(r.database)}
}

func neo4jParams(rec *model.MetadataRecord) map[string]any {
	var errText any
	if rec.Error != nil {
		errText = jsonText(rec.Error)
	}
	return map[string]any{
		"id":              rec.ID,
		"userId":          rec.UserID,
		"apiMethod":       rec.APIMethod,
		"metadata":        jsonText(rec.Metadata),
		"status":          rec.Status.String(),
		"error":           errText,
		"responseMessage": rec.ResponseMessage,
		"responseTime":    rec.ResponseTime,
		"ip":              rec.IP,
		"userAgent":       rec.UserAgent,
		"headers":         jsonText(rec.Headers),
		"timestamp":       timestampOf(rec),
	}
}
