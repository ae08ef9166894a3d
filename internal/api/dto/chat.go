package dto

import "time"

// CreateConversationReq 创建会话请求体
type CreateConversationReq struct {
	Participants []string `json:"participants" binding:"required,min=1"`
	Type         string   `json:"type" binding:"required,oneof=direct group"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
}

// CreateConversationResp 创建会话响应
type CreateConversationResp struct {
	ConversationID string `json:"conversation_id"`
}

// SendMessageReq 发送消息请求体
type SendMessageReq struct {
	ConversationID string         `json:"conversation_id" binding:"required"`
	Content        string         `json:"content"` // text/system 必填，image/file 可空 (由服务层按类型校验)
	MessageType    string         `json:"message_type"` // text / image / file / system，默认 text
	Metadata       map[string]any `json:"metadata"`
}

// MarkAsReadReq 标记单条已读请求
type MarkAsReadReq struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	MessageID      string `json:"message_id" binding:"required"`
}

// MessageDTO 消息明细响应
type MessageDTO struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	SenderID       string         `json:"sender_id"`
	MessageType    string         `json:"message_type"`
	Content        string         `json:"content"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	ReadBy         []string       `json:"read_by"`
	CreatedAt      time.Time      `json:"created_at"`
}

// ParticipantDetailDTO 会话成员明细
type ParticipantDetailDTO struct {
	UserID            string    `json:"user_id"`
	Role              string    `json:"role"`
	JoinedAt          time.Time `json:"joined_at"`
	LastReadMessageID string    `json:"last_read_message_id,omitempty"`
}

// ConversationDTO 会话详情响应
type ConversationDTO struct {
	ID                 string                 `json:"id"`
	Type               string                 `json:"type"`
	Participants       []string               `json:"participants"`
	ParticipantDetails []ParticipantDetailDTO `json:"participant_details"`
	Name               string                 `json:"name,omitempty"`
	Description        string                 `json:"description,omitempty"`
	AdminID            string                 `json:"admin_id,omitempty"`
	LastMessageAt      time.Time              `json:"last_message_at"`
	IsActive           bool                   `json:"is_active"`
	CreatedAt          time.Time              `json:"created_at"`
}

// ConversationSummaryDTO 会话列表项：按查看者视角派生，不落库
type ConversationSummaryDTO struct {
	ID                 string                 `json:"id"`
	Type               string                 `json:"type"`
	Name               string                 `json:"name,omitempty"`
	ParticipantDetails []ParticipantDetailDTO `json:"participant_details"`
	LastMessage        *MessageDTO            `json:"last_message,omitempty"`
	UnreadCount        int64                  `json:"unread_count"`
	LastMessageAt      time.Time              `json:"last_message_at"`
}
