package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pawansuthar01/Qresto-sub000/utils"
)

// Event kinds
const (
	EventMembershipChanged  = "membership_changed"
	EventOrderCreated       = "order_created"
	EventOrderStatusChanged = "order_status_changed"
	EventMenuItemChanged    = "menu_item_changed"
)

// Event is a transient best-effort notification. Delivery is at-most-once and
// unordered; the database rows remain the durable truth.
type Event struct {
	Scope     string      `json:"scope"`
	Kind      string      `json:"kind"`
	Payload   interface{} `json:"payload"`
	EmittedAt time.Time   `json:"emitted_at"`
}

// Publisher is what the services see; the Hub implements it.
type Publisher interface {
	Publish(room string, evt Event)
}

// TableRoom reaches the guest devices seated at one table.
func TableRoom(tableID uint) string {
	return fmt.Sprintf("table:%d", tableID)
}

// RestaurantRoom reaches the staff dashboards of one restaurant.
func RestaurantRoom(restaurantID uint) string {
	return fmt.Sprintf("restaurant:%d", restaurantID)
}

// Hub menampung semua realtime client (guest devices, staff boards) per room.
// Room membership is transport state only and is independent of table occupancy.
type Hub struct {
	mu           sync.Mutex
	rooms        map[string]map[*websocket.Conn]struct{}
	writeTimeout time.Duration
}

func NewHub() *Hub {
	return &Hub{
		rooms:        make(map[string]map[*websocket.Conn]struct{}),
		writeTimeout: 10 * time.Second,
	}
}

// Subscribe -> menambahkan connection ke room
func (h *Hub) Subscribe(room string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*websocket.Conn]struct{})
	}
	h.rooms[room][conn] = struct{}{}
}

// Unsubscribe -> melepaskan connection dari room dan menutupnya
func (h *Hub) Unsubscribe(room string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.rooms[room]; ok {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	conn.Close()
}

// RoomSize reports the number of connections currently in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[room])
}

// Publish delivers the event to every connection in the room. Each write
// carries a deadline, so a peer that stopped draining its socket times out
// instead of stalling the room; any connection that fails or times out is
// dropped on the spot.
func (h *Hub) Publish(room string, evt Event) {
	if evt.EmittedAt.IsZero() {
		evt.EmittedAt = time.Now()
	}
	evt.Scope = room

	data, err := json.Marshal(evt)
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling event %s: %v", evt.Kind, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.rooms[room] {
		conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.Printf("Dropping client in %s: %v", room, err)
			delete(h.rooms[room], conn)
			conn.Close()
		}
	}
}
