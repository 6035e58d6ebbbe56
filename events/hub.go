package events

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/yeremiapane/restaurant-pay/utils"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// PaymentEvent is the payload of a table:{id}:pagos broadcast.
type PaymentEvent struct {
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	BillID        uint    `json:"billId"`
	BillFullyPaid bool    `json:"billFullyPaid"`
	NewQRCode     string  `json:"newQRCode,omitempty"`
	Message       string  `json:"message,omitempty"`
}

// Hub holds every connected bill viewer. A client subscribed to table 0
// receives events for all tables (staff dashboard).
type Hub struct {
	clients map[*websocket.Conn]uint // conn -> table id
	mutex   sync.Mutex
}

var hub = Hub{
	clients: make(map[*websocket.Conn]uint),
}

// RegisterClient adds a connection subscribed to one table.
func RegisterClient(conn *websocket.Conn, tableID uint) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	hub.clients[conn] = tableID
}

// UnregisterClient releases a connection.
func UnregisterClient(conn *websocket.Conn) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()
	delete(hub.clients, conn)
	conn.Close()
}

// PaymentEventName builds the scoped event name for a table.
func PaymentEventName(tableID uint) string {
	return fmt.Sprintf("table:%d:pagos", tableID)
}

// BroadcastPaymentEvent notifies every viewer of a table about a payment
// outcome. Fire-and-forget: a dead client is skipped, never retried.
func BroadcastPaymentEvent(tableID uint, event PaymentEvent) {
	broadcast(tableID, Message{
		Event: PaymentEventName(tableID),
		Data:  event,
	})
}

func broadcast(tableID uint, msg Message) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling event message: %v", err)
		return
	}

	for conn, subscribed := range hub.clients {
		if subscribed != 0 && subscribed != tableID {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.Printf("Error sending event to client: %v", err)
			continue
		}
	}
}
