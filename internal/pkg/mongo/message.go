package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MessageText   = "text"
	MessageImage  = "image"
	MessageFile   = "file"
	MessageSystem = "system"
)

// Message 消息文档模型
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID primitive.ObjectID `bson:"conversation_id" json:"conversationId"` // 所属会话，写入后不可变
	SenderID       string             `bson:"sender_id" json:"senderId"`             // 发送者 UID，发送时必须是会话成员
	MessageType    string             `bson:"message_type" json:"messageType"`       // text / image / file / system
	Content        string             `bson:"content" json:"content"`
	Metadata       map[string]any     `bson:"metadata,omitempty" json:"metadata,omitempty"` // 按类型校验的附加属性 (如图片宽高)
	ReadBy         []string           `bson:"read_by" json:"readBy"`                 // 已读 UID 集合，只增不减
	CreatedAt      time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updatedAt"`
}

func (m *Message) SetID(id primitive.ObjectID) { m.ID = id }

func (m *Message) Stamp(now time.Time) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

// ReadByUser 检查消息是否已被指定用户读过
func (m *Message) ReadByUser(userID string) bool {
	for _, u := range m.ReadBy {
		if u == userID {
			return true
		}
	}
	return false
}
