package websocket

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans redis pub/sub progress events out to websocket clients.
// Connections are keyed by the video they watch; one redis
// subscription per watched video, shared by all of its clients.
type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*websocket.Conn
	redisClient *redis.Client
	cancelFuncs map[uuid.UUID]context.CancelFunc
}

func NewHub(redisClient *redis.Client) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID][]*websocket.Conn),
		redisClient: redisClient,
		cancelFuncs: make(map[uuid.UUID]context.CancelFunc),
	}
}

// HandleWebSocket serves GET /ws/videos/{id}.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	videoID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid video id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.registerConnection(videoID, conn)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(videoID, conn)
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				break
			}
		}
	}()
}

func (h *Hub) registerConnection(videoID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[videoID] = append(h.connections[videoID], conn)

	// First watcher starts the pub/sub subscription for this video
	if len(h.connections[videoID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[videoID] = cancel
		go h.subscribeToPubSub(ctx, videoID)
	}

	log.Printf("WebSocket connected: video %s (watchers: %d)", videoID, len(h.connections[videoID]))
}

func (h *Hub) unregisterConnection(videoID uuid.UUID, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()

	conns := h.connections[videoID]
	for i, c := range conns {
		if c == conn {
			h.connections[videoID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	// Last watcher gone, drop the subscription
	if len(h.connections[videoID]) == 0 {
		delete(h.connections, videoID)
		if cancel, ok := h.cancelFuncs[videoID]; ok {
			cancel()
			delete(h.cancelFuncs, videoID)
		}
	}

	log.Printf("WebSocket disconnected: video %s", videoID)
}

func (h *Hub) subscribeToPubSub(ctx context.Context, videoID uuid.UUID) {
	channel := "video_updates:" + videoID.String()
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(videoID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(videoID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.connections[videoID] {
		conn.WriteMessage(websocket.TextMessage, data)
	}
}
