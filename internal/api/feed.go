package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/marchino/etfwatch/internal/api/handlers"
	"github.com/marchino/etfwatch/internal/pipeline"
	"github.com/marchino/etfwatch/pkg/logger"
)

const writeTimeout = 10 * time.Second

// Feed pushes each completed update pass to connected websocket
// clients so the dashboard refreshes without polling.
type Feed struct {
	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewFeed creates a websocket feed and registers it on the runner.
func NewFeed(runner *pipeline.Runner, log *logger.Logger) *Feed {
	f := &Feed{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The dashboard is served from this same origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  log,
		clients: make(map[*websocket.Conn]struct{}),
	}
	runner.OnComplete(func(output pipeline.PassOutput) {
		f.Broadcast(handlers.MarketStatusPayload(output))
	})
	return f
}

// Serve upgrades the connection and keeps it registered until the
// client goes away.
func (f *Feed) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	f.mu.Lock()
	f.clients[conn] = struct{}{}
	f.mu.Unlock()

	f.logger.Debug("Market feed client connected")

	// Drain inbound frames; the feed is write-only.
	go func() {
		defer f.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends a JSON payload to every connected client. Slow or
// dead clients are dropped.
func (f *Feed) Broadcast(payload interface{}) {
	f.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(f.clients))
	for conn := range f.clients {
		conns = append(conns, conn)
	}
	f.mu.Unlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(payload); err != nil {
			f.logger.WithError(err).Debug("Market feed client dropped")
			f.drop(conn)
		}
	}
}

func (f *Feed) drop(conn *websocket.Conn) {
	f.mu.Lock()
	if _, ok := f.clients[conn]; ok {
		delete(f.clients, conn)
		conn.Close()
	}
	f.mu.Unlock()
}
