package kds

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// Event types
const (
	EventOrderUpdate = "order_update"
	EventStockAlert  = "stock_alert"
	EventTableUpdate = "table_update"
	EventStaffNotif  = "staff_notification"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// OrderUpdate is the payload of an order_update event.
type OrderUpdate struct {
	Action string        `json:"action"`
	Order  *models.Order `json:"order"`
}

type StockAlertPayload struct {
	IngredientID *uint  `json:"ingredient_id,omitempty"`
	ProductID    *uint  `json:"product_id,omitempty"`
	Name         string `json:"name"`
	Quantity     string `json:"quantity"`
	Minimum      string `json:"minimum"`
}

// KDSHub holds every connected kitchen/staff screen with its role.
type KDSHub struct {
	clients map[*websocket.Conn]string
	mutex   sync.Mutex
}

var kdsHub = KDSHub{
	clients: make(map[*websocket.Conn]string),
}

func RegisterClient(conn *websocket.Conn, role string) {
	kdsHub.mutex.Lock()
	defer kdsHub.mutex.Unlock()
	kdsHub.clients[conn] = role
}

func UnregisterClient(conn *websocket.Conn) {
	kdsHub.mutex.Lock()
	defer kdsHub.mutex.Unlock()
	delete(kdsHub.clients, conn)
	conn.Close()
}

func ClientCount() int {
	kdsHub.mutex.Lock()
	defer kdsHub.mutex.Unlock()
	return len(kdsHub.clients)
}

// Shutdown closes every client connection.
func Shutdown() {
	kdsHub.mutex.Lock()
	defer kdsHub.mutex.Unlock()
	for conn := range kdsHub.clients {
		conn.Close()
		delete(kdsHub.clients, conn)
	}
}

func BroadcastOrderUpdate(action string, order *models.Order) {
	broadcast(Message{
		Event: EventOrderUpdate,
		Data:  OrderUpdate{Action: action, Order: order},
	})
}

func BroadcastStockAlert(alert services.StockAlert) {
	broadcast(Message{
		Event: EventStockAlert,
		Data: StockAlertPayload{
			IngredientID: alert.IngredientID,
			ProductID:    alert.ProductID,
			Name:         alert.Name,
			Quantity:     alert.Quantity.String(),
			Minimum:      alert.Minimum.String(),
		},
	})
}

func BroadcastTableUpdate(table models.Table) {
	broadcast(Message{
		Event: EventTableUpdate,
		Data:  table,
	})
}

func BroadcastStaffNotification(message string) {
	broadcast(Message{
		Event: EventStaffNotif,
		Data:  message,
	})
}

// Notifier forwards committed order changes to the connected screens.
type Notifier struct{}

func (Notifier) OrderChanged(event string, order *models.Order) {
	BroadcastOrderUpdate(event, order)
}

func (Notifier) StockAlerts(alerts []services.StockAlert) {
	for _, a := range alerts {
		BroadcastStockAlert(a)
	}
}

func broadcast(msg Message) {
	kdsHub.mutex.Lock()
	defer kdsHub.mutex.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Errorf("marshal %s message: %v", msg.Event, err)
		return
	}

	for conn, role := range kdsHub.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.WithFields(logrus.Fields{"event": msg.Event, "role": role}).
				Errorf("send to client: %v", err)
			continue
		}
	}
	utils.InfoLogger.WithFields(logrus.Fields{"event": msg.Event, "clients": len(kdsHub.clients)}).Debug("broadcast")
}
