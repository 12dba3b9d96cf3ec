package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the chat collectors. It satisfies chat.Observer.
type Metrics struct {
	framesTotal     *prometheus.CounterVec
	messagesTotal   *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	onlineUsersFunc prometheus.GaugeFunc
}

// New registers every collector on reg. online reports the current number of connected users.
func New(reg prometheus.Registerer, online func() int) *Metrics {
	m := &Metrics{
		framesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_ws_frames_total",
			Help: "Inbound websocket frames by type",
		}, []string{"type"}),
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Stored chat messages by kind and whether a live recipient got them",
		}, []string{"kind", "delivered"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_ws_errors_total",
			Help: "Error frames sent to clients by code",
		}, []string{"code"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		onlineUsersFunc: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "chat_ws_online_users",
			Help: "Users with a live websocket connection",
		}, func() float64 { return float64(online()) }),
	}

	reg.MustRegister(m.framesTotal, m.messagesTotal, m.errorsTotal, m.httpRequests, m.httpDuration, m.onlineUsersFunc)
	return m
}

func (m *Metrics) FrameHandled(frameType string) {
	m.framesTotal.WithLabelValues(frameType).Inc()
}

func (m *Metrics) MessageStored(kind string, delivered bool) {
	m.messagesTotal.WithLabelValues(kind, strconv.FormatBool(delivered)).Inc()
}

func (m *Metrics) ErrorSent(code string) {
	m.errorsTotal.WithLabelValues(code).Inc()
}

// GinMiddleware records request counts and latency per route template.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		labels := prometheus.Labels{"method": c.Request.Method, "path": path, "status": strconv.Itoa(c.Writer.Status())}
		m.httpRequests.With(labels).Inc()
		m.httpDuration.With(labels).Observe(time.Since(start).Seconds())
	}
}
