package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kasmail/kasmail-server/global"
)

type HealthCheckAPI struct {
}

func NewHealthCheckAPI() *HealthCheckAPI {
	return &HealthCheckAPI{}
}

// HealthCheck
// @Summary Server status, version and internal email domain
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/v1/health [get]
func (ha *HealthCheckAPI) HealthCheck(c *gin.Context) {
	version := global.Conf.Version
	mode := global.Conf.Mode
	emailDomain := global.Conf.Kasmail.EmailDomain
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version, "mode": mode, "domain": emailDomain})
}
