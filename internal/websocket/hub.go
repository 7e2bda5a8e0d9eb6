package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"

	"github.com/stickerlab/api/internal/model"
)

// Client is one WebSocket subscriber watching a single task.
type Client struct {
	TaskID string
	Conn   *websocket.Conn
	Send   chan []byte
}

// Hub fans task progress out to subscribers, grouped by task id. It
// implements service.ProgressPublisher.
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMessage

	mu sync.RWMutex
}

type broadcastMessage struct {
	taskID  string
	message []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMessage, 256),
	}
}

// Run is the hub's main loop; start it once as a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.TaskID] == nil {
				h.clients[client.TaskID] = make(map[*Client]bool)
			}
			h.clients[client.TaskID][client] = true
			h.mu.Unlock()
			log.Printf("[WS] Client subscribed to task %s", client.TaskID)

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.TaskID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.clients, client.TaskID)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			if clients, ok := h.clients[msg.taskID]; ok {
				for client := range clients {
					select {
					case client.Send <- msg.message:
					default:
						close(client.Send)
						delete(clients, client)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// HandleConnection pumps messages for one subscriber until it disconnects.
func (h *Hub) HandleConnection(conn *websocket.Conn, taskID string) {
	client := &Client{
		TaskID: taskID,
		Conn:   conn,
		Send:   make(chan []byte, 16),
	}
	h.register <- client

	defer func() {
		h.unregister <- client
		conn.Close()
	}()

	go func() {
		// Drain reads so close/ping frames are processed.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.unregister <- client
				return
			}
		}
	}()

	for msg := range client.Send {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// PublishProgress implements service.ProgressPublisher.
func (h *Hub) PublishProgress(task model.GenerationTask) {
	h.send(task.ID, model.WSProgressMessage{
		Type:        model.WSMessageTypeProgress,
		TaskID:      task.ID,
		Progress:    task.Progress,
		Total:       task.Total,
		Status:      task.Status,
		CurrentItem: task.CurrentItem,
	})
}

// PublishComplete implements service.ProgressPublisher.
func (h *Hub) PublishComplete(task model.GenerationTask) {
	success := task.SuccessCount()
	h.send(task.ID, model.WSCompleteMessage{
		Type:   model.WSMessageTypeComplete,
		TaskID: task.ID,
		Summary: model.GenerateSummary{
			Total:     task.Total,
			Success:   success,
			Failed:    task.Total - success,
			StartedAt: task.StartedAt,
			EndedAt:   task.EndedAt,
		},
	})
}

// PublishError implements service.ProgressPublisher.
func (h *Hub) PublishError(taskID string, msg string) {
	h.send(taskID, model.WSErrorMessage{
		Type:   model.WSMessageTypeError,
		TaskID: taskID,
		Error:  msg,
	})
}

func (h *Hub) send(taskID string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- &broadcastMessage{taskID: taskID, message: data}:
	default:
		// Slow consumers never block the scheduler.
	}
}
