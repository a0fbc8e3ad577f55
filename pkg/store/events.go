package store

// EventType defines the type of event being broadcast.
type EventType string

const (
	EventConnectionChanged EventType = "connection_changed"
	EventOrdersReplaced    EventType = "orders_replaced"
	EventRefreshFailed     EventType = "refresh_failed"
	EventContractUpdated   EventType = "contract_updated"
	EventTokenUpdated      EventType = "token_updated"
	EventTokenInfoUpdated  EventType = "token_info_updated"
)

// Event represents a committed state change.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Subscriber is a channel that receives events.
type Subscriber chan Event
