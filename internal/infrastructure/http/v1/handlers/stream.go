package handlers

import (
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"kedai/internal/core/apperror"
	"kedai/internal/core/watch"
	"kedai/internal/domain"
	"kedai/internal/domain/catalogs/product"
	"kedai/internal/domain/documents/sale"
	"kedai/pkg/logger"
)

// StreamHandler exposes watch snapshots over Server-Sent Events. A client
// connects once and receives the full refreshed collection every time a
// write commits, the same contract the in-process subscribers get.
type StreamHandler struct {
	*BaseHandler
	hub      *watch.Hub
	products *product.Service
	sales    *sale.Service
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(base *BaseHandler, hub *watch.Hub, products *product.Service, sales *sale.Service) *StreamHandler {
	return &StreamHandler{BaseHandler: base, hub: hub, products: products, sales: sales}
}

// Register mounts the stream route on the group.
func (h *StreamHandler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.Stream)
}

var allTopics = []string{watch.TopicProducts, watch.TopicSales, watch.TopicHutang, watch.TopicPayments}

// Stream handles GET /stream?topics=products,sales. Without a topics
// parameter every topic is streamed.
func (h *StreamHandler) Stream(c *gin.Context) {
	topics := allTopics
	if raw := c.Query("topics"); raw != "" {
		topics = nil
		for _, topic := range strings.Split(raw, ",") {
			topic = strings.TrimSpace(topic)
			if !validTopic(topic) {
				h.Error(c, apperror.NewInvalidInput("unknown topic").WithDetail("topic", topic))
				return
			}
			topics = append(topics, topic)
		}
	}

	// Slow consumers drop events rather than block publishers; the next
	// snapshot supersedes anything missed.
	events := make(chan watch.Event, 16)
	for _, topic := range topics {
		cancel := h.hub.Subscribe(topic, func(ev watch.Event) {
			select {
			case events <- ev:
			default:
			}
		})
		defer cancel()
	}

	h.prime(c, topics, events)

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case ev := <-events:
			c.SSEvent(ev.Topic, string(ev.Snapshot))
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().UTC().Format(time.RFC3339))
			return true
		}
	})
}

// prime queues current snapshots so a fresh client starts from the full
// state instead of waiting for the next write.
func (h *StreamHandler) prime(c *gin.Context, topics []string, events chan<- watch.Event) {
	ctx := c.Request.Context()

	for _, topic := range topics {
		var snapshot any
		switch topic {
		case watch.TopicProducts:
			result, err := h.products.List(ctx, domain.ListFilter{OrderBy: "name ASC"})
			if err != nil {
				logger.Warn(ctx, "stream prime failed", "topic", topic, "error", err)
				continue
			}
			snapshot = result.Items
		case watch.TopicSales:
			result, err := h.sales.List(ctx, sale.ListFilter{ListFilter: domain.ListFilter{OrderBy: "created_at DESC"}})
			if err != nil {
				logger.Warn(ctx, "stream prime failed", "topic", topic, "error", err)
				continue
			}
			snapshot = result.Items
		case watch.TopicHutang:
			status := sale.StatusHutang
			filter := sale.ListFilter{ListFilter: domain.ListFilter{OrderBy: "created_at ASC"}}
			filter.Status = &status
			result, err := h.sales.List(ctx, filter)
			if err != nil {
				logger.Warn(ctx, "stream prime failed", "topic", topic, "error", err)
				continue
			}
			snapshot = result.Items
		default:
			continue
		}

		data, err := json.Marshal(snapshot)
		if err != nil {
			continue
		}
		select {
		case events <- watch.Event{Topic: topic, Snapshot: data, At: time.Now().UTC()}:
		default:
		}
	}
}

func validTopic(topic string) bool {
	for _, t := range allTopics {
		if t == topic {
			return true
		}
	}
	return false
}
