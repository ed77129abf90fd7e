// Package hub — внутрипроцессная рассылка событий редактирования
// подписчикам файла. Доставка best-effort: без повторов, без
// персистентности, без гарантий порядка между разными файлами.
package hub

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

const sendBufferSize = 16

// Event — конверт события, уходящий подписчику
type Event struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

type client struct {
	send chan []byte
}

// Hub держит группы подписчиков по файлам. Реализует service.Publisher;
// для горизонтального масштабирования его место может занять внешняя
// шина с тем же контрактом.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]bool
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*client]bool),
	}
}

func (h *Hub) join(fileUUID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[fileUUID]
	if !ok {
		room = make(map[*client]bool)
		h.rooms[fileUUID] = room
	}
	room[c] = true
}

func (h *Hub) leave(fileUUID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[fileUUID]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, fileUUID)
	}
}

// Publish доставляет событие всем текущим подписчикам файла. Подписчик
// с заполненным буфером пропускает событие, рассылка не блокируется.
func (h *Hub) Publish(fileUUID string, event string, payload interface{}) {
	msg, err := json.Marshal(Event{Event: event, Payload: payload})
	if err != nil {
		log.Printf("Failed to marshal event %s: %v", event, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.rooms[fileUUID] {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// SubscriberCount возвращает число живых подписчиков файла
func (h *Hub) SubscriberCount(fileUUID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[fileUUID])
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeFile апгрейдит соединение до websocket и подписывает клиента на
// события файла до закрытия соединения
func (h *Hub) ServeFile(w http.ResponseWriter, r *http.Request, fileUUID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade events connection: %v", err)
		return
	}

	c := &client{send: make(chan []byte, sendBufferSize)}
	h.join(fileUUID, c)

	done := make(chan struct{})

	// Читаем только ради обнаружения закрытия соединения
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case msg := <-c.send:
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.leave(fileUUID, c)
				conn.Close()
				<-done
				return
			}
		case <-done:
			h.leave(fileUUID, c)
			conn.Close()
			return
		}
	}
}
