package handlers

import (
	"net/http"

	"github.com/FundingReach/intakeflow-go/internal/infrastructure/messaging"
	"github.com/FundingReach/intakeflow-go/internal/infrastructure/observability/logging"
	"github.com/FundingReach/intakeflow-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var activityUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Auth happens via the staff token middleware before the upgrade.
		return true
	},
}

// ActivityHandlers serves the live activity websocket for staff dashboards.
type ActivityHandlers struct {
	broadcaster *messaging.ActivityBroadcaster
	logger      *logging.ChanneledLogger
}

// NewActivityHandlers creates activity handlers with injected dependencies
func NewActivityHandlers(broadcaster *messaging.ActivityBroadcaster, logger *logging.ChanneledLogger) *ActivityHandlers {
	return &ActivityHandlers{
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// GetActivityStream handles GET /api/v1/activity/ws - upgrades to a
// websocket carrying this tenant's pipeline activity.
func (h *ActivityHandlers) GetActivityStream(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	conn, err := activityUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.System().Error("Websocket upgrade failed",
			"error", err.Error(),
			"tenantId", tenantCtx.TenantID)
		return
	}

	client := &messaging.ActivityClient{
		Conn:     conn,
		TenantID: tenantCtx.TenantID,
		Send:     make(chan []byte, 32),
	}

	h.broadcaster.Register(client)
	go client.WritePump()

	// Reads are only consumed to detect disconnects.
	go func() {
		defer h.broadcaster.Unregister(client)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
