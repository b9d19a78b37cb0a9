package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pulsehub/pulsehub/internal/services"
	"github.com/pulsehub/pulsehub/pkg/response"
)

// AuditHandler exposes read access to the audit trail.
type AuditHandler struct {
	audit *services.AuditService
}

func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// GET /api/audit
func (h *AuditHandler) List(c *gin.Context) {
	page := parseIntQuery(c, "page", 1)
	pageSize := parseIntQuery(c, "page_size", 50)

	logs, total, err := h.audit.List(requestContext(c), services.AuditListOptions{
		Page:     page,
		PageSize: pageSize,
		Filters: services.AuditFilters{
			UserID:   strings.TrimSpace(c.Query("user_id")),
			Action:   strings.TrimSpace(c.Query("action")),
			Result:   strings.TrimSpace(c.Query("result")),
			Resource: strings.TrimSpace(c.Query("resource")),
		},
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, logs, &response.Meta{
		Page:    page,
		PerPage: pageSize,
		Total:   int(total),
	})
}
