package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/cobrify/stock-service/internal/offline"
)

const (
	eventWriteWait  = 10 * time.Second
	eventPongWait   = 60 * time.Second
	eventPingPeriod = eventPongWait * 9 / 10
	eventBuffer     = 64
)

// any origin is accepted; the agent listens on a local address
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// events streams sync progress to a websocket client until it disconnects
func (a *agent) events(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		send := make(chan offline.Event, eventBuffer)
		// subscribe before the upgrade so nothing emitted after the handshake is lost
		unsubscribe := a.coordinator.AddListener(func(e offline.Event) {
			select {
			case send <- e:
			default:
				logger.Warn("Event subscriber is too slow, dropping event", "type", e.Type)
			}
		})
		defer unsubscribe()

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("Failed to upgrade event stream", "error", err)
			return
		}
		defer conn.Close()

		done := make(chan struct{})
		go readPump(conn, done)
		writePump(conn, send, done)
	}
}

// readPump discards client messages and closes done when the peer goes away
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(eventPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writePump(conn *websocket.Conn, send <-chan offline.Event, done <-chan struct{}) {
	ticker := time.NewTicker(eventPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case e := <-send:
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
