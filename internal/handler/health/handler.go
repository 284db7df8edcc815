package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is a dependency whose reachability gates readiness.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	deps    map[string]Pinger
	started time.Time
}

// NewHandler takes the named dependencies to check; nil entries are skipped.
func NewHandler(deps map[string]Pinger) *Handler {
	checked := make(map[string]Pinger, len(deps))
	for name, p := range deps {
		if p != nil {
			checked[name] = p
		}
	}
	return &Handler{deps: checked, started: time.Now()}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.ReadinessCheck)
	r.GET("/health/live", h.LivenessCheck)
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "UP"})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	for name, dep := range h.deps {
		if err := dep.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "DOWN",
				"reason": name + " unreachable",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}
