package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ConversationDirect = "direct"
	ConversationGroup  = "group"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Conversation 会话文档模型
type Conversation struct {
	ID                 primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Type               string              `bson:"type" json:"type"`                               // direct-单聊, group-群聊
	Participants       []string            `bson:"participants" json:"participants"`               // 成员 UID 集合
	ParticipantDetails []ParticipantDetail `bson:"participant_details" json:"participantDetails"`  // 成员明细 (角色/加入时间/已读指针)
	Name               string              `bson:"name,omitempty" json:"name,omitempty"`           // 仅群聊
	Description        string              `bson:"description,omitempty" json:"description,omitempty"`
	AdminID            string              `bson:"admin_id,omitempty" json:"adminId,omitempty"`    // 仅群聊
	LastMessageAt      time.Time           `bson:"last_message_at" json:"lastMessageAt"`           // 会话列表排序键
	IsActive           bool                `bson:"is_active" json:"isActive"`
	CreatedAt          time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt          time.Time           `bson:"updated_at" json:"updatedAt"`
}

// ParticipantDetail 会话成员明细
type ParticipantDetail struct {
	UserID            string    `bson:"user_id" json:"userId"`
	Role              string    `bson:"role" json:"role"`
	JoinedAt          time.Time `bson:"joined_at" json:"joinedAt"`
	LastReadMessageID string    `bson:"last_read_message_id,omitempty" json:"lastReadMessageId,omitempty"`
}

func (c *Conversation) SetID(id primitive.ObjectID) { c.ID = id }

func (c *Conversation) Stamp(now time.Time) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
}

// HasParticipant 检查用户是否为会话成员
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
