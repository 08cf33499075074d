package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nodegate/internal/api/dto/common"
	"nodegate/internal/config"
	"nodegate/internal/gateway"
	"nodegate/internal/version"
)

// StatusHandler exposes gateway runtime information.
type StatusHandler struct {
	cfg     *config.Config
	gateway *gateway.Server
}

func NewStatusHandler(cfg *config.Config, gw *gateway.Server) *StatusHandler {
	return &StatusHandler{cfg: cfg, gateway: gw}
}

// Status returns mode, route table, counters, and build info.
func (h *StatusHandler) Status(c *gin.Context) {
	routes := []string{gateway.RouteStatic, gateway.RouteAPI, gateway.RouteWebSocket}
	if h.cfg.IsProduction() {
		routes = append(routes, gateway.RouteSupervisor)
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(gin.H{
		"mode":    h.cfg.Mode,
		"routes":  routes,
		"metrics": h.gateway.Metrics(),
		"version": version.GetBuildInfo(),
	}))
}

// ReloadAuth re-reads the htpasswd file without a restart.
func (h *StatusHandler) ReloadAuth(c *gin.Context) {
	if err := h.gateway.ReloadAuth(); err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(
			common.ErrCodeInternalServer, "Failed to reload credentials", err.Error()))
		return
	}
	c.JSON(http.StatusOK, common.NewMessageResponse("Credentials reloaded"))
}
