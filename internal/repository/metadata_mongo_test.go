package repository

import (
	"context"
	"testing"

	"github.com/GoPolymarket/buildmymeta/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoMetadataRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("configure and save", func(mt *mtest.T) {
		repo := NewMongoMetadataRepo("")
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		assert.NoError(mt, repo.Configure(context.Background(), mt.DB))

		// 已初始化时不再建索引
		assert.NoError(mt, repo.Configure(context.Background(), mt.DB))

		mt.AddMockResponses(mtest.CreateSuccessResponse())
		assert.NoError(mt, repo.SaveMetadata(context.Background(), sampleRecord()))
	})

	mt.Run("duplicate id is returned unmodified", func(mt *mtest.T) {
		repo := NewMongoMetadataRepo("")
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		assert.NoError(mt, repo.Configure(context.Background(), mt.DB))

		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))
		err := repo.SaveMetadata(context.Background(), sampleRecord())
		assert.True(mt, mongo.IsDuplicateKeyError(err))
	})

	mt.Run("client handle uses configured database", func(mt *mtest.T) {
		repo := NewMongoMetadataRepo("audit_db")
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		assert.NoError(mt, repo.Configure(context.Background(), mt.Client))
		assert.Equal(mt, "audit_db", repo.collection.Database().Name())
	})

	mt.Run("rejects other handles", func(mt *mtest.T) {
		repo := NewMongoMetadataRepo("")
		err := repo.Configure(context.Background(), "mongodb://localhost")
		assert.True(mt, apperrors.Is(err, apperrors.ErrConfiguration))

		err = repo.SaveMetadata(context.Background(), sampleRecord())
		assert.True(mt, apperrors.Is(err, apperrors.ErrNotInitialized))
	})
}
