package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tradertrackr/internal/analytics"
	"tradertrackr/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

// Request is a message from the client selecting a timeframe.
type Request struct {
	Timeframe string `json:"timeframe"`
}

// Handler upgrades HTTP requests into live dashboard sessions.
type Handler struct {
	computer Computer
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a Handler. A nil checkOrigin accepts every origin.
func NewHandler(computer Computer, logger *zap.Logger, checkOrigin func(r *http.Request) bool) *Handler {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Handler{
		computer: computer,
		logger:   logger.Named("dashboard_ws"),
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
	}
}

// Serve runs a session for userID until the client disconnects.
// The initial timeframe comes from the "timeframe" query parameter.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	observability.SessionOpened()
	defer observability.SessionClosed()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	publish := func(state State) {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(state); err != nil {
			h.logger.Debug("WebSocket write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	session := NewSession(h.computer, userID, publish, h.logger)
	defer session.Close()

	h.logger.Info("Dashboard session opened", zap.String("user_id", userID))
	session.Select(ctx, analytics.ParseTimeframe(r.URL.Query().Get("timeframe")))

	conn.SetReadLimit(maxMessageSize)
	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warn("WebSocket read failed", zap.String("user_id", userID), zap.Error(err))
			}
			break
		}
		session.Select(ctx, analytics.ParseTimeframe(req.Timeframe))
	}

	h.logger.Info("Dashboard session closed", zap.String("user_id", userID))
}
