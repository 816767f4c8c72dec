// Package wsboundary is the thin HTTP/WebSocket boundary spec.md names as
// an external collaborator, specified only by interface: it fans out
// telemetry.Event to connected browser clients and serves the screenshot
// directory as static assets, grounded on original_source's FastAPI app.
package wsboundary

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"veloperfd/internal/obslog"
	"veloperfd/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans out Events to every connected websocket client. It implements
// telemetry.Sink directly, so an Orchestrator can emit straight into it.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]chan telemetry.Event
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]chan telemetry.Event)}
}

// Emit implements telemetry.Sink, broadcasting e to every connected client.
func (h *Hub) Emit(e telemetry.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.clients {
		select {
		case ch <- e:
		default:
			// backpressure: a slow client drops the event rather than
			// stalling every other client's delivery.
		}
	}
}

// ServeHTTP upgrades the connection and streams events to it until the
// client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		obslog.LogWarn("wsboundary").Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := make(chan telemetry.Event, 64)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	for e := range ch {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(e); err != nil {
			return
		}
	}
}

// NewServer builds the demo HTTP mux: a /ws websocket endpoint, a
// /screenshots/ static mount, and a permissive CORS wrapper so a browser
// dev client on a different origin can connect, matching original_source's
// FastAPI app.
func NewServer(hub *Hub, screenshotDir string) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.Handle("/screenshots/", http.StripPrefix("/screenshots/", http.FileServer(http.Dir(screenshotDir))))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}).Handler(mux)
}
