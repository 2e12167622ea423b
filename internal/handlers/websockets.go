package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"trafficwatch/internal/logger"
	"trafficwatch/internal/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveHandler upgrades dashboard clients to a websocket and keeps them
// registered with the hub until they disconnect.
func LiveHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(512)
		connection.SetReadDeadline(time.Now().Add(60 * time.Second))
		connection.SetPongHandler(func(appData string) error {
			connection.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		defer connection.Close()

		manager.GetHubService().Register(connection)
		defer manager.GetHubService().Unregister(connection)

		logger.Info("Dashboard client connected")

		for {
			_, _, err := connection.ReadMessage()
			if err != nil {
				logger.Info("Dashboard client disconnected: %v", err)
				break
			}
		}
	}
}
