package order

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk-api/internal/middleware"
	"github.com/orderdesk/orderdesk-api/internal/model"
	"github.com/orderdesk/orderdesk-api/internal/service/order"
	"github.com/orderdesk/orderdesk-api/internal/service/statemachine"
	"github.com/orderdesk/orderdesk-api/pkg/httputil"
)

type Handler struct {
	svc *order.Service
}

func NewHandler(svc *order.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	orders := r.Group("/orders")
	{
		orders.POST("", auth.RequireRole(model.RoleClient, model.RoleAdmin), h.CreateQuery)
		orders.GET("", h.ListOrders)
		orders.GET("/:id", h.GetOrder)
		orders.GET("/:id/history", h.GetHistory)

		orders.POST("/:id/quotation/send", auth.RequireRole(model.RoleBDE, model.RoleAdmin), h.action(h.svc.SendQuotation))
		orders.POST("/:id/quotation/accept", auth.RequireRole(model.RoleClient, model.RoleAdmin), h.action(h.svc.AcceptQuotation))
		orders.POST("/:id/quotation/reject", auth.RequireRole(model.RoleClient, model.RoleAdmin), h.action(h.svc.RejectQuotation))

		orders.POST("/:id/payment/request", auth.RequireRole(model.RoleBDE, model.RoleAdmin), h.action(h.svc.RequestPayment))
		orders.POST("/:id/payment/upload", auth.RequireRole(model.RoleClient, model.RoleAdmin), h.action(h.svc.UploadPayment))
		orders.POST("/:id/payment/verify", auth.RequireRole(model.RoleBDE, model.RoleAdmin), h.action(h.svc.VerifyPayment))
		orders.POST("/:id/payment/reject", auth.RequireRole(model.RoleBDE, model.RoleAdmin), h.action(h.svc.RejectPayment))

		orders.POST("/:id/assign", auth.RequireRole(model.RoleBDE, model.RoleAdmin), h.AssignWriter)

		orders.POST("/:id/work/start", auth.RequireRole(model.RoleWriter, model.RoleAdmin), h.action(h.svc.StartWork))
		orders.POST("/:id/review/submit", auth.RequireRole(model.RoleWriter, model.RoleAdmin), h.action(h.svc.SubmitReview))
		orders.POST("/:id/review/approve", auth.RequireRole(model.RoleAdmin), h.action(h.svc.ApproveReview))
		orders.POST("/:id/review/reject", auth.RequireRole(model.RoleAdmin), h.action(h.svc.RejectReview))

		orders.POST("/:id/deliver", auth.RequireRole(model.RoleBDE, model.RoleAdmin), h.action(h.svc.Deliver))
		orders.POST("/:id/complete", auth.RequireRole(model.RoleClient, model.RoleBDE, model.RoleAdmin), h.action(h.svc.Complete))
		orders.POST("/:id/cancel", h.action(h.svc.Cancel))

		orders.POST("/:id/reopen", auth.RequireRole(model.RoleAdmin), h.Reopen)
		orders.POST("/:id/status/ensure", h.EnsureStatus)
	}
}

type createQueryRequest struct {
	Title string `json:"title" binding:"required,min=3,max=255"`
}

func (h *Handler) CreateQuery(c *gin.Context) {
	var req createQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	userID, _ := middleware.UserIDFromContext(c)
	created, err := h.svc.CreateQuery(c.Request.Context(), userID, req.Title)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithCreated(c, created)
}

func (h *Handler) GetOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "INVALID_ID", "invalid order ID")
		return
	}

	found, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithStatus(c, http.StatusNotFound, "NOT_FOUND", "order not found")
		return
	}

	httputil.RespondWithSuccess(c, found)
}

// ListOrders scopes non-admin callers to their own orders regardless of the
// filters they send.
func (h *Handler) ListOrders(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)
	role, _ := middleware.RoleFromContext(c)

	filter := &model.OrderFilter{Limit: 50}
	if raw := c.Query("status"); raw != "" {
		status, err := model.ParseStatus(raw)
		if err != nil {
			httputil.RespondWithStatus(c, http.StatusBadRequest, "INVALID_STATUS", err.Error())
			return
		}
		filter.Status = &status
	}

	switch role {
	case model.RoleClient:
		filter.ClientID = &userID
	case model.RoleBDE:
		filter.BDEID = &userID
	case model.RoleWriter:
		filter.WriterID = &userID
	}

	orders, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, orders)
}

func (h *Handler) GetHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "INVALID_ID", "invalid order ID")
		return
	}

	history, err := h.svc.History(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, history)
}

type actionRequest struct {
	Reason string `json:"reason" binding:"max=1000"`
	Amount string `json:"amount" binding:"max=64"`
}

// action adapts a named lifecycle action into a handler. The request body is
// optional; reason and amount pass through to the notification templates.
func (h *Handler) action(fn func(ctx context.Context, req order.ActionRequest) (*model.Order, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			httputil.RespondWithStatus(c, http.StatusBadRequest, "INVALID_ID", "invalid order ID")
			return
		}

		var body actionRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				httputil.RespondWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
				return
			}
		}

		userID, _ := middleware.UserIDFromContext(c)
		role, _ := middleware.RoleFromContext(c)

		updated, err := fn(c.Request.Context(), order.ActionRequest{
			OrderID: id,
			ActorID: userID,
			Role:    role,
			Reason:  body.Reason,
			Amount:  body.Amount,
		})
		if err != nil {
			respondTransitionError(c, err)
			return
		}

		httputil.RespondWithSuccess(c, updated)
	}
}

type assignRequest struct {
	WriterID uuid.UUID `json:"writer_id" binding:"required"`
	Deadline time.Time `json:"deadline" binding:"required"`
}

func (h *Handler) AssignWriter(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "INVALID_ID", "invalid order ID")
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if !req.Deadline.After(time.Now()) {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "INVALID_DEADLINE", "deadline must be in the future")
		return
	}

	userID, _ := middleware.UserIDFromContext(c)
	role, _ := middleware.RoleFromContext(c)

	updated, err := h.svc.AssignWriter(c.Request.Context(), order.ActionRequest{
		OrderID:  id,
		ActorID:  userID,
		Role:     role,
		WriterID: &req.WriterID,
		Deadline: &req.Deadline,
	})
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, updated)
}

type reopenRequest struct {
	To     string `json:"to" binding:"required"`
	Reason string `json:"reason" binding:"required,max=1000"`
}

func (h *Handler) Reopen(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "INVALID_ID", "invalid order ID")
		return
	}

	var req reopenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	to, err := model.ParseStatus(req.To)
	if err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "INVALID_STATUS", err.Error())
		return
	}

	userID, _ := middleware.UserIDFromContext(c)
	role, _ := middleware.RoleFromContext(c)

	updated, err := h.svc.Reopen(c.Request.Context(), order.ActionRequest{
		OrderID: id,
		ActorID: userID,
		Role:    role,
		Reason:  req.Reason,
	}, to)
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, updated)
}

type ensureStatusRequest struct {
	To string `json:"to" binding:"required"`
}

func (h *Handler) EnsureStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "INVALID_ID", "invalid order ID")
		return
	}

	var req ensureStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	to, err := model.ParseStatus(req.To)
	if err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "INVALID_STATUS", err.Error())
		return
	}

	userID, _ := middleware.UserIDFromContext(c)
	role, _ := middleware.RoleFromContext(c)

	updated, err := h.svc.EnsureStatus(c.Request.Context(), order.ActionRequest{
		OrderID: id,
		ActorID: userID,
		Role:    role,
	}, to)
	if err != nil {
		respondTransitionError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, updated)
}

// respondTransitionError surfaces refused transitions as 409 with the legal
// targets so clients can correct themselves.
func respondTransitionError(c *gin.Context, err error) {
	var terr *statemachine.TransitionError
	if errors.As(err, &terr) {
		status := http.StatusConflict
		if terr.Kind == statemachine.ErrUnknownRole {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{
			"success": false,
			"error": gin.H{
				"code":    string(terr.Kind),
				"message": terr.Error(),
				"allowed": statusNames(terr.Allowed),
			},
		})
		return
	}
	httputil.RespondWithError(c, err)
}

func statusNames(statuses []model.OrderStatus) []string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = s.String()
	}
	return names
}
