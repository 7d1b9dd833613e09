package audit

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-api/internal/service/audit"
	"github.com/orderdesk/orderdesk-api/pkg/httputil"
)

type Handler struct {
	svc *audit.Service
}

func NewHandler(svc *audit.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	audit := r.Group("/audit")
	{
		audit.GET("/logs", h.ListLogs)
		audit.GET("/logs/entity/:type/:id", h.GetEntityLogs)
		audit.GET("/logs/user/:id", h.GetUserLogs)
	}
}

func (h *Handler) ListLogs(c *gin.Context) {
	filters := make(map[string]interface{})

	if action := c.Query("action"); action != "" {
		filters["action"] = action
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.RespondWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid since format")
			return
		}
		filters["since"] = since
	}

	logs, err := h.svc.List(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, logs)
}

func (h *Handler) GetEntityLogs(c *gin.Context) {
	entityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "INVALID_ID", "invalid entity ID")
		return
	}

	logs, err := h.svc.List(c.Request.Context(), map[string]interface{}{
		"entity_type": c.Param("type"),
		"entity_id":   entityID,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, logs)
}

func (h *Handler) GetUserLogs(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "INVALID_ID", "invalid user ID")
		return
	}

	logs, err := h.svc.List(c.Request.Context(), map[string]interface{}{
		"user_id": userID,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, logs)
}
