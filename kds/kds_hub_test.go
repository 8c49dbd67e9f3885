package kds

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
)

func dialHub(t *testing.T) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		RegisterClient(conn, "chef")
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(Shutdown)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.Eventually(t, func() bool { return ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	return client
}

func TestNotifierBroadcastsOrderUpdate(t *testing.T) {
	client := dialHub(t)

	Notifier{}.OrderChanged(services.EventOrderCreated, &models.Order{ID: 5, OrderNumber: "ORD202603140001"})

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, client.ReadJSON(&msg))
	assert.Equal(t, EventOrderUpdate, msg.Event)

	data, ok := msg.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, services.EventOrderCreated, data["action"])
	order := data["order"].(map[string]interface{})
	assert.Equal(t, "ORD202603140001", order["order_number"])
}

func TestNotifierBroadcastsStockAlerts(t *testing.T) {
	client := dialHub(t)

	id := uint(3)
	Notifier{}.StockAlerts([]services.StockAlert{{
		IngredientID: &id,
		Name:         "Susu",
		Quantity:     decimal.RequireFromString("4.5"),
		Minimum:      decimal.NewFromInt(5),
	}})

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, client.ReadJSON(&msg))
	assert.Equal(t, EventStockAlert, msg.Event)
	data := msg.Data.(map[string]interface{})
	assert.Equal(t, "Susu", data["name"])
	assert.Equal(t, "4.5", data["quantity"])
	assert.Equal(t, float64(3), data["ingredient_id"])
}
