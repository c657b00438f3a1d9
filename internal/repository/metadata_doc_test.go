package repository

import (
	"context"
	"testing"
	"time"

	"github.com/GoPolymarket/buildmymeta/internal/model"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
)

func TestFlattenToText(t *testing.T) {
	out := flattenToText(map[string]any{
		"url":   "/items",
		"body":  map[string]any{"name": "widget"},
		"count": 3,
		"none":  nil,
	})
	assert.Equal(t, map[string]string{
		"url":   "/items",
		"body":  `{"name":"widget"}`,
		"count": "3",
		"none":  "null",
	}, out)
}

func TestCassandraValues(t *testing.T) {
	rec := sampleRecord()
	values := cassandraValues(rec)

	assert.Len(t, values, 12)
	assert.Equal(t, "alice", values[0])
	assert.Equal(t, rec.Timestamp, values[1])
	assert.Equal(t, rec.ID, values[2])
	assert.Equal(t, `{"name":"widget"}`, values[4].(map[string]string)[model.MetaKeyBody])
	assert.Equal(t, "500", values[5])
	assert.Equal(t, map[string]string{"message": "Internal Error", "stack": model.DefaultErrorStack}, values[6])
	assert.Equal(t, map[string]string{"content-type": "application/json"}, values[11])

	rec.Error = nil
	assert.Equal(t, map[string]string{}, cassandraValues(rec)[6])
}

func TestNeo4jParams(t *testing.T) {
	rec := sampleRecord()
	params := neo4jParams(rec)

	assert.Equal(t, rec.ID, params["id"])
	assert.Equal(t, "500", params["status"])
	assert.JSONEq(t, `{"message":"Internal Error","stack":"No stack available"}`, params["error"].(string))
	assert.JSONEq(t, `{"content-type":"application/json"}`, params["headers"].(string))
	assert.IsType(t, "", params["metadata"])

	rec.Error = nil
	assert.Nil(t, neo4jParams(rec)["error"])
}

func TestRecordDocument(t *testing.T) {
	rec := sampleRecord()
	doc := recordDocument(rec)

	assert.Equal(t, "500", doc["status"])
	assert.Equal(t, map[string]any{"message": "Internal Error", "stack": model.DefaultErrorStack}, doc["error"])
	assert.Equal(t, rec.Metadata, doc["metadata"])

	rec.Error = nil
	assert.Nil(t, recordDocument(rec)["error"])
}

func TestTimestampOfDefaultsToNow(t *testing.T) {
	before := time.Now().UTC()
	ts := timestampOf(&model.MetadataRecord{})
	assert.False(t, ts.Before(before))
	assert.Equal(t, time.UTC, ts.Location())
}

func TestDocumentStoreAdaptersRejectWrongHandles(t *testing.T) {
	ctx := context.Background()
	adapters := map[string]interface {
		Configure(context.Context, any) error
	}{
		"cassandra": NewCassandraMetadataRepo(),
		"neo4j":     NewNeo4jMetadataRepo(""),
		"firestore": NewFirestoreMetadataRepo(),
		"realtime":  NewRealtimeMetadataRepo(),
	}
	for name, a := range adapters {
		err := a.Configure(ctx, struct{}{})
		assert.True(t, apperrors.Is(err, apperrors.ErrConfiguration), name)
	}

	assert.True(t, apperrors.Is(NewCassandraMetadataRepo().SaveMetadata(ctx, sampleRecord()), apperrors.ErrNotInitialized))
	assert.True(t, apperrors.Is(NewNeo4jMetadataRepo("").SaveMetadata(ctx, sampleRecord()), apperrors.ErrNotInitialized))
	assert.True(t, apperrors.Is(NewFirestoreMetadataRepo().SaveMetadata(ctx, sampleRecord()), apperrors.ErrNotInitialized))
	assert.True(t, apperrors.Is(NewRealtimeMetadataRepo().SaveMetadata(ctx, sampleRecord()), apperrors.ErrNotInitialized))
}
