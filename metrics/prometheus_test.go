package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsMiddlewareCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	InitMetrics()
	InitMetrics()

	router := gin.New()
	router.GET("/ping", MetricsMiddleware(), func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	before := testutil.ToFloat64(RESTRequestMetricsTotal.WithLabelValues("GET", "/ping"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(RESTRequestMetricsTotal.WithLabelValues("GET", "/ping")))
}
