package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"kedai/internal/core/watch"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	pool    *pgxpool.Pool
	hub     *watch.Hub
	started time.Time
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(pool *pgxpool.Pool, hub *watch.Hub) *HealthHandler {
	return &HealthHandler{pool: pool, hub: hub, started: time.Now()}
}

// Register mounts the health routes on the group.
func (h *HealthHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/live", h.Live)
	rg.GET("/ready", h.Ready)
	rg.GET("/info", h.Info)
}

// Live reports process liveness.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports readiness: the database must answer a ping.
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.pool.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  "database unreachable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Info reports uptime and subscription stats.
func (h *HealthHandler) Info(c *gin.Context) {
	stat := h.pool.Stat()
	c.JSON(http.StatusOK, gin.H{
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"db": gin.H{
			"total_conns":    stat.TotalConns(),
			"acquired_conns": stat.AcquiredConns(),
			"idle_conns":     stat.IdleConns(),
		},
		"subscribers": gin.H{
			watch.TopicProducts: h.hub.SubscriberCount(watch.TopicProducts),
			watch.TopicSales:    h.hub.SubscriberCount(watch.TopicSales),
			watch.TopicHutang:   h.hub.SubscriberCount(watch.TopicHutang),
			watch.TopicPayments: h.hub.SubscriberCount(watch.TopicPayments),
		},
	})
}
