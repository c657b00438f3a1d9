package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/GoPolymarket/buildmymeta/internal/model"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/apperrors"
	"github.com/gin-gonic/gin"
)

// AuditReader lists recently mirrored audit rows.
type AuditReader interface {
	Recent(ctx context.Context, kind model.AuditKind, limit int) ([]*model.AuditEntry, error)
}

type AuditHandler struct {
	reader AuditReader
}

func NewAuditHandler(reader AuditReader) *AuditHandler {
	return &AuditHandler{reader: reader}
}

func (h *AuditHandler) List(c *gin.Context) {
	if h.reader == nil {
		c.Error(apperrors.New(apperrors.ErrNotFound, "audit mirror not configured", nil))
		return
	}

	var kind model.AuditKind
	if raw := c.Query("log"); raw != "" {
		kind = model.AuditKind(raw)
		if !validAuditKind(kind) {
			c.Error(apperrors.NewInvalidRequest(fmt.Sprintf("unknown audit log %q", raw)))
			return
		}
	}
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	records, err := h.reader.Recent(c.Request.Context(), kind, limit)
	if err != nil {
		c.Error(apperrors.New(apperrors.ErrInternal, err.Error(), err))
		return
	}
	if records == nil {
		records = []*model.AuditEntry{}
	}
	c.JSON(http.StatusOK, records)
}

func validAuditKind(kind model.AuditKind) bool {
	for _, k := range model.AuditKinds {
		if k == kind {
			return true
		}
	}
	return false
}
