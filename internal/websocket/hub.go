package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"ytdlpanel/internal/batch"
	"ytdlpanel/internal/models"
)

const (
	broadcastBuffer = 256
	writeTimeout    = 10 * time.Second
	waitTimeout     = 60 * time.Second
	pingPeriod      = waitTimeout * 9 / 10
)

// Hub fans batch events out to every connected browser. It implements batch.ProgressSink.
type Hub struct {
	mu        sync.Mutex
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	upgrader  websocket.Upgrader
}

type ProgressEvent struct {
	Type      string `json:"type"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

type ResultEvent struct {
	Type   string                `json:"type"`
	Result models.DownloadResult `json:"result"`
}

type TransferEvent struct {
	Type string `json:"type"`
	models.TransferProgress
}

type DoneEvent struct {
	Type  string         `json:"type"`
	Batch batch.Snapshot `json:"batch"`
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, broadcastBuffer),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
					client.Close()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) StartTicker(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.BroadcastUpdate()
		}
	}
}

// BroadcastUpdate tells clients to refetch state, e.g. after history was cleared.
func (h *Hub) BroadcastUpdate() {
	h.send([]byte(`{"type": "update"}`), false)
}

func (h *Hub) Progress(completed, total int) {
	h.publish(ProgressEvent{Type: "progress", Completed: completed, Total: total}, false)
}

func (h *Hub) ItemCompleted(r models.DownloadResult) {
	h.publish(ResultEvent{Type: "result", Result: r}, false)
}

// ItemProgress is dropped rather than queued when clients fall behind.
func (h *Hub) ItemProgress(p models.TransferProgress) {
	h.publish(TransferEvent{Type: "transfer", TransferProgress: p}, true)
}

func (h *Hub) BatchFinished(snap batch.Snapshot) {
	h.publish(DoneEvent{Type: "done", Batch: snap}, false)
}

func (h *Hub) publish(event any, droppable bool) {
	msg, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal event", "error", err)
		return
	}
	h.send(msg, droppable)
}

func (h *Hub) send(msg []byte, droppable bool) {
	if !droppable {
		h.broadcast <- msg
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		slog.Debug("Broadcast buffer full, transfer event dropped")
	}
}

func (h *Hub) WsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed", "error", err)
		return
	}

	slog.Info("Client connected", "remote_addr", r.RemoteAddr)
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	stop := make(chan struct{})
	defer func() {
		close(stop)
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
		slog.Info("Client disconnected", "remote_addr", r.RemoteAddr)
	}()
	go ping(conn, stop)

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(waitTimeout))
	})
	conn.SetReadDeadline(time.Now().Add(waitTimeout))
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("WS read error", "error", err)
			}
			break
		}
	}
}

// ping keeps idle browsers inside the read deadline.
func ping(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

var _ batch.ProgressSink = (*Hub)(nil)
