package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Observer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, func() int { return 3 })

	m.FrameHandled("private")
	m.FrameHandled("private")
	m.MessageStored("private", false)
	m.ErrorSent("rate_limited")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.framesTotal.WithLabelValues("private")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.messagesTotal.WithLabelValues("private", "false")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.messagesTotal.WithLabelValues("private", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errorsTotal.WithLabelValues("rate_limited")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.onlineUsersFunc))
}

func TestMetrics_GinMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New(prometheus.NewRegistry(), func() int { return 0 })

	engine := gin.New()
	engine.Use(m.GinMiddleware())
	engine.GET("/chats/:chatId", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, path := range []string{"/chats/a", "/chats/b", "/nowhere"} {
		engine.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/chats/:chatId", "204")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "unmatched", "404")))
}
