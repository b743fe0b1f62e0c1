package model

import "encoding/json"

// MessageType discriminates broadcast-channel messages.
type MessageType string

const (
	TypeBroadcast MessageType = "broadcast"
	TypeInit      MessageType = "init"
	TypePing      MessageType = "ping"
	TypePong      MessageType = "pong"
)

// Action identifies a mutation carried by a broadcast message.
type Action string

const (
	ActionProductCreated  Action = "product:created"
	ActionProductUpdated  Action = "product:updated"
	ActionProductDeleted  Action = "product:deleted"
	ActionCategoryCreated Action = "category:created"
	ActionCategoryUpdated Action = "category:updated"
	ActionCategoryDeleted Action = "category:deleted"
)

// Message is the channel wire format. Broadcast messages carry Action,
// Payload and the writer's Seq; init messages carry the full snapshot;
// ping/pong carry only Type.
type Message struct {
	Type       MessageType     `json:"type"`
	Action     Action          `json:"action,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Products   []Product       `json:"products,omitempty"`
	Categories []Category      `json:"categories,omitempty"`
	Seq        uint64          `json:"seq,omitempty"`
}
