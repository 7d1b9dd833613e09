package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	db *sqlx.DB
}

func NewHandler(db *sqlx.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.Live)
		health.GET("/ready", h.Ready)
	}
}

// Live answers as long as the process is serving requests.
func (h *Handler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "up"})
}

// Ready checks the dependencies a request actually needs. Every order
// operation touches the database, so a failed ping means traffic should be
// drained.
func (h *Handler) Ready(c *gin.Context) {
	components := gin.H{"database": "up"}

	if err := h.db.PingContext(c.Request.Context()); err != nil {
		components["database"] = "down"
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "down",
			"components": components,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "up",
		"components": components,
	})
}
