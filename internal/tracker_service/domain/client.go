package domain

import "time"

// Client status values. Status is derived from the order/delivery counters and
// is never set directly by callers.
const (
	StatusGreen = "green"
	StatusRed   = "red"
)

// StatusFor derives the client status: green once every ordered box has been
// delivered, red while deliveries lag behind orders.
func StatusFor(orderQty, deliveredQty int) string {
	if deliveredQty >= orderQty {
		return StatusGreen
	}
	return StatusRed
}

// Client is the cumulative per-sender delivery state, keyed by the canonical
// (digits-only) phone number. OrderQty grows by one on every inbound message;
// DeliveredQty grows only through explicit delivery confirmations.
type Client struct {
	ClientID        int64     `json:"client_id"`
	Name            string    `json:"name"`
	Phone           string    `json:"phone"`
	OrderQty        int       `json:"order_qty"`
	DeliveredQty    int       `json:"delivered_qty"`
	Status          string    `json:"status"`
	StatusTerm      string    `json:"status_term"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	LastRequestTime time.Time `json:"last_request_time"`
}

// Message is one immutable history record. Phone references a client by value;
// the client may have been deleted since, which is fine for audit history.
type Message struct {
	MessageID  int64     `json:"message_id"`
	Phone      string    `json:"phone"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
}

// MessageWithClientName is the dashboard projection of a message joined with
// the owning client's display name. ClientName is empty when no client matches
// the phone anymore.
type MessageWithClientName struct {
	Message
	ClientName string `json:"name"`
}

// InboundMessage is the canonical tuple every webhook payload shape normalizes
// into. Body is the resolved free text (coordinate extraction runs on it);
// StatusText is what gets recorded in the message history.
type InboundMessage struct {
	Phone      string
	Name       string
	Body       string
	StatusText string
}
