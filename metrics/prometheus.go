package metrics

import (
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// all metrics and middlewares for the REST API and the dispatch pipeline
var (
	// to prevent metrics from being initialized multiple times
	isMetricsInitVar uint32 = 0

	// active REST API connections
	activeRESTConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_rest_connections",
			Help: "Number of active REST API connections",
		},
	)

	// response times for REST APIs
	responseTimeRESTAPI = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restapi_response_time_milliseconds",
			Help:    "REST API response time distributions",
			Buckets: []float64{1, 10, 50, 100, 200, 300, 400, 500},
		},
		[]string{"method", "endpoint"},
	)

	// size of the body for REST APIs
	requestSizeRESTAPI = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "restapi_request_size_kilobytes",
			Help:    "REST API request size distributions",
			Buckets: []float64{200, 500, 900, 1500, 2000, 3000, 4000, 5000},
		},
		[]string{"method", "endpoint"},
	)

	// Number of requests processed by REST API
	RESTRequestMetricsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rest_requests_processed_total",
		Help: "The total number of processed REST requests",
	}, []string{"method", "endpoint"})

	// Dispatches by outcome (sent or the error kind) and recipient kind
	DispatchesMetricsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kasmail_dispatches_total",
		Help: "The total number of processed message dispatches",
	}, []string{"outcome", "recipient"})

	// Fee transfers by kind (dev_fee, miner_fee) and result (confirmed, cancelled, timeout, failed, skipped)
	FeeTransfersMetricsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kasmail_fee_transfers_total",
		Help: "The total number of fee transfers requested from sender wallets",
	}, []string{"kind", "result"})

	// Number of external messages handed to the relay
	RelayMessagesSentMetricsCount = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kasmail_relay_messages_sent_total",
		Help: "The total number of messages delivered through the external relay",
	})

	// Active miner reward pool size
	MinerPoolSizeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "kasmail_miner_pool_active",
		Help: "Number of active miners in the reward pool",
	})

	// Latency of a whole dispatch (includes waiting for wallet confirmations)
	DispatchProcessingLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "kasmail_dispatch_processing_latency_milliseconds",
		Help:    "Latency of message dispatch processing",
		Buckets: prometheus.ExponentialBuckets(50, 2, 12),
	})
)

func setIsMetricsInit() {
	atomic.StoreUint32(&isMetricsInitVar, 1)
}

func isMetricsInit() bool {
	return atomic.LoadUint32(&isMetricsInitVar) == 1
}

func InitMetrics() {
	if !isMetricsInit() {
		setIsMetricsInit()

		// Metrics have to be registered to be exposed
		prometheus.MustRegister(activeRESTConnections)
		prometheus.MustRegister(responseTimeRESTAPI)
		prometheus.MustRegister(requestSizeRESTAPI)
		prometheus.MustRegister(RESTRequestMetricsTotal)
		prometheus.MustRegister(DispatchesMetricsTotal)
		prometheus.MustRegister(FeeTransfersMetricsTotal)
		prometheus.MustRegister(RelayMessagesSentMetricsCount)
		prometheus.MustRegister(MinerPoolSizeGauge)
		prometheus.MustRegister(DispatchProcessingLatency)
	}
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		RESTRequestMetricsTotal.WithLabelValues(c.Request.Method, c.FullPath()).Inc()

		r := c.Request
		start := time.Now()

		activeRESTConnections.Inc()
		defer activeRESTConnections.Dec()

		c.Next()

		// observe request size in kilobytes
		if r.ContentLength > 0 {
			requestSizeRESTAPI.WithLabelValues(c.Request.Method, c.FullPath()).Observe(float64(r.ContentLength) / 1024)
		}

		latency := time.Since(start)
		responseTimeRESTAPI.WithLabelValues(c.Request.Method, c.FullPath()).Observe(float64(latency.Milliseconds()))
	}
}
