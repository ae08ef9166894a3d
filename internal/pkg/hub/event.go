package hub

import (
	"Regalo/internal/api/dto"

	"github.com/goccy/go-json"
)

// 客户端 → 服务端事件
const (
	EventSendMessage       = "send_message"
	EventMarkAsRead        = "mark_as_read"
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventTypingStart       = "typing_start"
	EventTypingStop        = "typing_stop"
)

// 服务端 → 客户端事件
const (
	EventNewMessage         = "new_message"
	EventConversationUpdate = "conversation_update"
	EventMessageRead        = "message_read"
	EventUserTyping         = "user_typing"
	EventMessageError       = "MESSAGE_ERROR"
	EventReadError          = "READ_ERROR"
)

// Event 连接上双向传输的事件信封
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEvent 构造服务端下行事件
func NewEvent(eventType string, payload any) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		data = nil
	}
	return Event{Type: eventType, Data: data}
}

// SendMessagePayload send_message 事件体
type SendMessagePayload struct {
	ConversationID string         `json:"conversation_id"`
	Content        string         `json:"content"`
	MessageType    string         `json:"message_type,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// MarkAsReadPayload mark_as_read 事件体
type MarkAsReadPayload struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

// RoomPayload join_conversation / leave_conversation / typing 事件体
type RoomPayload struct {
	ConversationID string `json:"conversation_id"`
}

// NewMessagePayload new_message 广播体
type NewMessagePayload struct {
	ConversationID string          `json:"conversation_id"`
	Message        *dto.MessageDTO `json:"message"`
}

// ConversationUpdatePayload conversation_update 广播体
type ConversationUpdatePayload struct {
	ConversationID string          `json:"conversation_id"`
	LastMessage    *dto.MessageDTO `json:"last_message"`
}

// MessageReadPayload message_read 广播体
type MessageReadPayload struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	ReadBy         string `json:"read_by"`
}

// UserTypingPayload user_typing 广播体 (仅广播，不落库)
type UserTypingPayload struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Typing         bool   `json:"typing"`
}

// ErrorPayload MESSAGE_ERROR / READ_ERROR 事件体，只发给事件来源连接
type ErrorPayload struct {
	Error string `json:"error"`
}
