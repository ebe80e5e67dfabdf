package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// MetricsSummary provides high-level metrics
type MetricsSummary struct {
	Timestamp        time.Time `json:"timestamp"`
	TotalRequests    int64     `json:"total_requests"`
	AverageLatencyMs float64   `json:"average_latency_ms"`
	ErrorRate        float64   `json:"error_rate"`
	OpenHandles      int64     `json:"open_handles"`
	EventSubscribers int       `json:"event_subscribers"`
	UptimeSeconds    float64   `json:"uptime_seconds"`
}

// MetricsJSON returns a JSON summary of the Prometheus counters for
// dashboards that do not scrape.
func (h *Handlers) MetricsJSON(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusNotFound, errorResponse{Error: "metrics disabled", Code: "not_found"})
		return
	}

	snap := h.metrics.Snapshot()
	summary := MetricsSummary{
		Timestamp:        time.Now(),
		TotalRequests:    snap.TotalRequests,
		AverageLatencyMs: snap.AverageLatency() * 1000,
		ErrorRate:        snap.ErrorRate(),
		OpenHandles:      snap.OpenHandles,
		UptimeSeconds:    time.Since(h.started).Seconds(),
	}
	if h.events != nil {
		summary.EventSubscribers = h.events.Subscribers()
	}
	c.JSON(http.StatusOK, summary)
}
