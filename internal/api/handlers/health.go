package handlers

import (
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nodegate/internal/api/dto/common"
	"nodegate/internal/config"
)

// HealthHandler probes the proxied upstreams.
type HealthHandler struct {
	cfg *config.Config
}

func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{cfg: cfg}
}

// Check reports whether the API upstream (and, in production, the
// supervisor upstream) accept TCP connections. The gateway does not
// start or restart them; it only reports.
func (h *HealthHandler) Check(c *gin.Context) {
	upstreams := map[string]string{
		"api": h.cfg.APIUpstream,
	}
	if h.cfg.IsProduction() {
		upstreams["supervisor"] = h.cfg.SupervisorUpstream
	}

	status := make(map[string]string, len(upstreams))
	healthy := true
	for name, addr := range upstreams {
		if err := probe(addr); err != nil {
			status[name] = "unreachable"
			healthy = false
		} else {
			status[name] = "ok"
		}
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, common.NewErrorResponse(
			common.ErrCodeUnavailable, "One or more upstreams are unreachable", status))
		return
	}

	c.JSON(http.StatusOK, common.NewSuccessResponse(status))
}

func probe(addr string) error {
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		return err
	}
	return conn.Close()
}
