package handler

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/GoPolymarket/buildmymeta/internal/middleware"
	"github.com/GoPolymarket/buildmymeta/internal/model"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/apperrors"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/logger"
	"github.com/gin-gonic/gin"
)

type Item struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type CreateItemRequest struct {
	Name  string  `json:"name" binding:"required"`
	Price float64 `json:"price" binding:"gte=0"`
}

// ItemHandler 是演示用的内存 CRUD 接口，展示 LogCustomMetadata 的用法
type ItemHandler struct {
	mu     sync.RWMutex
	items  map[string]Item
	nextID int
}

func NewItemHandler() *ItemHandler {
	return &ItemHandler{items: make(map[string]Item), nextID: 1}
}

func (h *ItemHandler) List(c *gin.Context) {
	h.mu.RLock()
	items := make([]Item, 0, len(h.items))
	for _, it := range h.items {
		items = append(items, it)
	}
	h.mu.RUnlock()
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	c.JSON(http.StatusOK, items)
}

func (h *ItemHandler) Get(c *gin.Context) {
	id := c.Param("id")

	h.mu.RLock()
	item, ok := h.items[id]
	h.mu.RUnlock()
	if !ok {
		c.Error(apperrors.New(apperrors.ErrNotFound, fmt.Sprintf("item %s not found", id), nil))
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *ItemHandler) Create(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return
	}

	h.mu.Lock()
	item := Item{ID: strconv.Itoa(h.nextID), Name: req.Name, Price: req.Price}
	h.items[item.ID] = item
	h.nextID++
	h.mu.Unlock()

	if err := middleware.LogCustomMetadata(c, model.PartialRecord{
		Metadata: map[string]any{"itemId": item.ID, "action": "create"},
	}); err != nil {
		logger.Warn("custom metadata not attached", "error", err.Error())
	}

	c.JSON(http.StatusCreated, item)
}

func (h *ItemHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	h.mu.Lock()
	_, ok := h.items[id]
	delete(h.items, id)
	h.mu.Unlock()
	if !ok {
		c.Error(apperrors.New(apperrors.ErrNotFound, fmt.Sprintf("item %s not found", id), nil))
		return
	}

	_ = middleware.AddMetadata(c, "action", "delete")
	c.Status(http.StatusNoContent)
}
