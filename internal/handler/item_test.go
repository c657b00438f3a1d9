package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GoPolymarket/buildmymeta/internal/middleware"
	"github.com/GoPolymarket/buildmymeta/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemHandler_CRUD(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewItemHandler()
	router := gin.New()
	router.Use(middleware.ErrorHandler())
	router.GET("/items", h.List)
	router.GET("/items/:id", h.Get)
	router.POST("/items", h.Create)
	router.DELETE("/items/:id", h.Delete)

	body, _ := json.Marshal(map[string]any{"name": "widget", "price": 9.5})
	req := httptest.NewRequest(http.MethodPost, "/items", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "1", created.ID)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/99", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "item 99 not found")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/items", bytes.NewReader([]byte(`{}`))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/items/1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items", nil))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

type stubReader struct {
	entries []*model.AuditEntry
	err     error
	kind    model.AuditKind
	limit   int
}

func (s *stubReader) Recent(_ context.Context, kind model.AuditKind, limit int) ([]*model.AuditEntry, error) {
	s.kind, s.limit = kind, limit
	return s.entries, s.err
}

func TestAuditHandler_List(t *testing.T) {
	gin.SetMode(gin.TestMode)

	reader := &stubReader{entries: []*model.AuditEntry{{Kind: model.AuditMetaError, Message: "connection refused"}}}
	router := gin.New()
	router.Use(middleware.ErrorHandler())
	router.GET("/audit", NewAuditHandler(reader).List)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit?log=metaError&limit=5", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
	assert.Equal(t, model.AuditMetaError, reader.kind)
	assert.Equal(t, 5, reader.limit)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit?log=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	reader.err = errors.New("redis down")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	unconfigured := gin.New()
	unconfigured.Use(middleware.ErrorHandler())
	unconfigured.GET("/audit", NewAuditHandler(nil).List)
	rec = httptest.NewRecorder()
	unconfigured.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type staticSink struct{}

func (staticSink) Kind() model.BackendKind { return model.BackendNeo4j }
func (staticSink) Identity() string        { return "orders-api" }

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", Health(staticSink{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","sink":"neo4j","identity":"orders-api"}`, rec.Body.String())
}
