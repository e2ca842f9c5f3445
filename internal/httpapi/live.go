package httpapi

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"sparkcandles/pkg/broadcaster"
)

var liveUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// liveHandler upgrades a connection and registers it with live, so the
// client receives every candle update live publishes until it disconnects.
func liveHandler(live *broadcaster.Broadcaster, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := liveUpgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("failed to upgrade /live connection", zap.Error(err))
			return
		}

		live.Register(conn)
		defer live.Unregister(conn)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}
