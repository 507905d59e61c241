package apiroutes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kasmail/kasmail-server/api"
	restinterceptors "github.com/kasmail/kasmail-server/api/interceptors"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Apis groups the REST handlers served by the router
type Apis struct {
	Messaging *api.MessagingApi
	Wallet    *api.WalletApi
}

// REST API routes
func ConfigRoutes(router *gin.Engine, apis Apis) *gin.Engine {
	// init metrics
	if global.Conf.Prometheus.Enabled {

		metrics.InitMetrics()

		authorized := router.Group("/metrics", gin.BasicAuth(gin.Accounts{
			global.Conf.Prometheus.Username: global.Conf.Prometheus.Password,
		}))

		authorized.GET("", gin.WrapH(promhttp.Handler()))
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AddAllowHeaders("Authorization", "Idempotency-Key")
	router.Use(cors.New(corsConfig))

	healthCheckApi := api.NewHealthCheckAPI()

	// PUBLIC API
	publicApi := router.Group("/api", metrics.MetricsMiddleware())
	{
		publicApi.GET("/v1/health", healthCheckApi.HealthCheck)
	}

	rootApi := router.Group("/api", restinterceptors.RateLimitMiddleware(), metrics.MetricsMiddleware(), restinterceptors.JWTMiddleware([]byte(global.Conf.Auth.TokenSecret)))
	{
		rootApi.POST("/v1/messages", apis.Messaging.SendMessage)
		rootApi.GET("/v1/messages/dispatch/:id", apis.Messaging.GetDispatchStatus)

		rootApi.GET("/v1/wallet/transfers", apis.Wallet.GetPendingTransfers)
		rootApi.POST("/v1/wallet/transfers/:id", apis.Wallet.ResolveTransfer)
	}

	return router
}
