package realtime

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orderdesk/orderdesk-api/internal/middleware"
	"github.com/orderdesk/orderdesk-api/internal/service/realtime"
	"github.com/orderdesk/orderdesk-api/pkg/httputil"
)

// Handler answers channel join authorization for the realtime gateway. The
// gateway calls this endpoint before completing a subscription.
type Handler struct {
	guard *realtime.Guard
}

func NewHandler(guard *realtime.Guard) *Handler {
	return &Handler{guard: guard}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	rt := r.Group("/realtime")
	{
		rt.POST("/auth", h.AuthorizeJoin)
	}
}

type authRequest struct {
	Channels []string `json:"channels" binding:"required,min=1,max=20,dive,max=128"`
}

type channelDecision struct {
	Channel string `json:"channel"`
	Allowed bool   `json:"allowed"`
}

// AuthorizeJoin evaluates each requested channel independently. A denied
// channel never fails the whole request.
func (h *Handler) AuthorizeJoin(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithStatus(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	userID, _ := middleware.UserIDFromContext(c)
	role, _ := middleware.RoleFromContext(c)
	requester := realtime.Requester{ID: userID, Role: role}

	decisions := make([]channelDecision, len(req.Channels))
	for i, channel := range req.Channels {
		decisions[i] = channelDecision{
			Channel: channel,
			Allowed: h.guard.CanJoin(c.Request.Context(), requester, channel),
		}
	}

	httputil.RespondWithSuccess(c, decisions)
}
