package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GoPolymarket/buildmymeta/internal/model"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/apperrors"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const DefaultMongoDatabase = "buildmymeta"

type metadataDocument struct {
	ID              string            `bson:"_id"`
	UserID          string            `bson:"userId"`
	APIMethod       string            `bson:"apiMethod"`
	Metadata        map[string]any    `bson:"metadata"`
	Status          string            `bson:"status"`
	Error           *model.ErrorInfo  `bson:"error"`
	ResponseMessage string            `bson:"responseMessage"`
	ResponseTime    int64             `bson:"responseTime"`
	IP              string            `bson:"ip"`
	UserAgent       string            `bson:"userAgent"`
	Headers         map[string]string `bson:"headers"`
	Timestamp       time.Time         `bson:"timestamp"`
}

// MongoMetadataRepo stores one document per exchange in the "metadata" collection.
type MongoMetadataRepo struct {
	databaseName string

	mu         sync.Mutex
	collection *mongo.Collection
}

// NewMongoMetadataRepo takes the database used when Configure receives a *mongo.Client.
func NewMongoMetadataRepo(databaseName string) *MongoMetadataRepo {
	if databaseName == "" {
		databaseName = DefaultMongoDatabase
	}
	return &MongoMetadataRepo{databaseName: databaseName}
}

func (r *MongoMetadataRepo) Configure(ctx context.Context, handle any) error {
	var database *mongo.Database
	switch h := handle.(type) {
	case *mongo.Database:
		database = h
	case *mongo.Client:
		if h != nil {
			database = h.Database(r.databaseName)
		}
	}
	if database == nil {
		return apperrors.NewConfiguration(fmt.Sprintf("an initialized *mongo.Database or *mongo.Client is required for MongoDB setup, got %T", handle))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.collection != nil {
		logger.Info("MongoDB collection \"metadata\" already initialized")
		return nil
	}

	collection := database.Collection(metadataCollection)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "timestamp", Value: -1}},
		Options: options.Index().SetName("idx_metadata_user_ts"),
	})
	if err != nil {
		return err
	}
	r.collection = collection
	logger.Info("MongoDB collection \"metadata\" is ready")
	return nil
}

func (r *MongoMetadataRepo) SaveMetadata(ctx context.Context, rec *model.MetadataRecord) error {
	r.mu.Lock()
	collection := r.collection
	r.mu.Unlock()
	if collection == nil {
		return apperrors.NewNotInitialized("MongoDB model not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := collection.InsertOne(ctx, metadataDocument{
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
	})
	return err
}
