package handler

import (
	"errors"
	"net/http"

	"github.com/coopay/backend/internal/domain/identity"
	"github.com/coopay/backend/internal/infrastructure/logger"
	"github.com/coopay/backend/internal/infrastructure/realtime"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DashboardHub upgrades a request to a dashboard websocket
type DashboardHub interface {
	Serve(w http.ResponseWriter, r *http.Request, p identity.Principal) error
}

// DashboardHandler serves the live dashboard socket
type DashboardHandler struct {
	BaseHandler
	hub DashboardHub
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(hub DashboardHub) *DashboardHandler {
	return &DashboardHandler{hub: hub}
}

// Connect godoc
//
//	@Summary	Dashboard refresh websocket
//	@Tags		dashboard
//	@Param		access_token	query	string	false	"Bearer token for clients that cannot set headers"
//	@Success	101
//	@Failure	401,403	{object}	dto.Response
//	@Router		/ws/dashboard [get]
func (h *DashboardHandler) Connect(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	err := h.hub.Serve(c.Writer, c.Request, *p)
	switch {
	case err == nil:
	case errors.Is(err, realtime.ErrNoChannels):
		h.Forbidden(c, "Your role has no dashboard feed")
	default:
		// the upgrader has already answered the client
		logger.GetGinLogger(c).Debug("Dashboard upgrade failed", zap.Error(err))
	}
}
