package events

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"github.com/yeremiapane/restaurant-pay/utils"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func dialClient(t *testing.T, tableID uint) *websocket.Conn {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		RegisterClient(ws, tableID)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPaymentEventName(t *testing.T) {
	assert.Equal(t, "table:12:pagos", PaymentEventName(12))
}

func TestBroadcastScopedToTable(t *testing.T) {
	utils.InitLogger()

	subscribed := dialClient(t, 4)
	other := dialClient(t, 9)

	BroadcastPaymentEvent(4, PaymentEvent{
		Status:        "success",
		Amount:        40.00,
		BillID:        1,
		BillFullyPaid: false,
	})

	subscribed.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := subscribed.ReadMessage()
	assert.NoError(t, err)
	assert.Contains(t, string(data), "table:4:pagos")
	assert.Contains(t, string(data), `"billFullyPaid":false`)

	// The viewer of another table must not receive it.
	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = other.ReadMessage()
	assert.Error(t, err)
}
