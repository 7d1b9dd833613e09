package notification

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-api/internal/middleware"
	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/service/notification"
	"github.com/orderdesk/orderdesk-api/pkg/httputil"
)

type Handler struct {
	svc *notification.Service
}

func NewHandler(svc *notification.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.GET("", h.List)
		notifications.GET("/unread-count", h.UnreadCount)
		notifications.POST("/:id/read", h.MarkRead)
		notifications.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) List(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)

	filter := &model.NotificationFilter{Limit: 50}
	if raw := c.Query("unread"); raw != "" {
		unread, err := strconv.ParseBool(raw)
		if err != nil {
			httputil.RespondWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", "unread must be a boolean")
			return
		}
		filter.UnreadOnly = unread
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 200 {
			httputil.RespondWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", "limit must be between 1 and 200")
			return
		}
		filter.Limit = limit
	}

	notifications, err := h.svc.List(c.Request.Context(), userID, filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, notifications)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)

	count, err := h.svc.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, gin.H{"count": count})
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "INVALID_ID", "invalid notification ID")
		return
	}

	userID, _ := middleware.UserIDFromContext(c)
	if err := h.svc.MarkRead(c.Request.Context(), id, userID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, nil)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "INVALID_ID", "invalid notification ID")
		return
	}

	userID, _ := middleware.UserIDFromContext(c)
	if err := h.svc.Delete(c.Request.Context(), id, userID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, nil)
}
