package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"github.com/GoPolymarket/buildmymeta/internal/model"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/apperrors"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/logger"
)

// FirestoreMetadataRepo adds one auto-ID document per exchange to the "metadata" collection.
type FirestoreMetadataRepo struct {
	mu     sync.Mutex
	client *firestore.Client
}

func NewFirestoreMetadataRepo() *FirestoreMetadataRepo {
	return &FirestoreMetadataRepo{}
}

func (r *FirestoreMetadataRepo) Configure(ctx context.Context, handle any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		logger.Info("Firestore is already initialized")
		return nil
	}

	var client *firestore.Client
	switch h := handle.(type) {
	case *firestore.Client:
		client = h
	case *firebase.App:
		if h != nil {
			c, err := h.Firestore(ctx)
			if err != nil {
				return err
			}
			client = c
		}
	}
	if client == nil {
		return apperrors.NewConfiguration(fmt.Sprintf("a *firestore.Client or *firebase.App is required for Firestore setup, got %T", handle))
	}
	r.client = client
	logger.Info("Firestore initialized for metadata storage")
	return nil
}

func (r *FirestoreMetadataRepo) SaveMetadata(ctx context.Context, rec *model.MetadataRecord) error {
	r.mu.Lock()
	client := r.client
	r.mu.Unlock()
	if client == nil {
		return apperrors.NewNotInitialized("Firestore not initialized")
	}
	doc := recordDocument(rec)
	doc["timestamp"] = timestampOf(rec)
	_, err := client.Collection(metadataCollection).NewDoc().Set(ctx, doc)
	return err
}

// RealtimeMetadataRepo pushes one child per exchange under the "metadata" ref.
type RealtimeMetadataRepo struct {
	mu     sync.Mutex
	client *db.Client
}

func NewRealtimeMetadataRepo() *RealtimeMetadataRepo {
	return &RealtimeMetadataRepo{}
}

func (r *RealtimeMetadataRepo) Configure(ctx context.Context, handle any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		logger.Info("Firebase Realtime Database is already initialized")
		return nil
	}

	var client *db.Client
	switch h := handle.(type) {
	case *db.Client:
		client = h
	case *firebase.App:
		if h != nil {
			c, err := h.Database(ctx)
			if err != nil {
				return err
			}
			client = c
		}
	}
	if client == nil {
		return apperrors.NewConfiguration(fmt.Sprintf("a *db.Client or *firebase.App is required for Realtime Database setup, got %T", handle))
	}
	r.client = client
	logger.Info("Firebase Realtime Database initialized for metadata storage")
	return nil
}

func (r *RealtimeMetadataRepo) SaveMetadata(ctx context.Context, rec *model.MetadataRecord) error {
	r.mu.Lock()
	client := r.client
	r.mu.Unlock()
	if client == nil {
		return apperrors.NewNotInitialized("Firebase Realtime Database not initialized")
	}
	doc := recordDocument(rec)
	// Realtime Database 只存 JSON，时间统一为 RFC3339
	doc["timestamp"] = timestampOf(rec).Format(time.RFC3339Nano)
	_, err := client.NewRef(metadataCollection).Push(ctx, doc)
	return err
}
