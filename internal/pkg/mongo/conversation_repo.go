package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ConversationCollection = "conversations"

type ConversationRepo interface {
	Create(ctx context.Context, conv *Conversation) (string, error)
	GetByID(ctx context.Context, id string) (*Conversation, error)
	FindDirect(ctx context.Context, userA, userB string) (*Conversation, error)
	ListByParticipant(ctx context.Context, userID string) ([]*Conversation, error)
	TouchLastMessage(ctx context.Context, id string, at time.Time) error
	DeactivateIdle(ctx context.Context, before time.Time) (int64, error)
}

type conversationRepoImpl struct {
	store *Store
}

func NewConversationRepo(store *Store) ConversationRepo {
	return &conversationRepoImpl{store: store}
}

// Create 写入会话文档
func (s *conversationRepoImpl) Create(ctx context.Context, conv *Conversation) (string, error) {
	return s.store.Insert(ctx, ConversationCollection, conv)
}

// GetByID 按会话 ID 获取会话
func (s *conversationRepoImpl) GetByID(ctx context.Context, id string) (*Conversation, error) {
	var conv Conversation
	if err := s.store.FindByID(ctx, ConversationCollection, id, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindDirect 查找两个用户之间已存在的单聊 (去重查询)。
// 未命中返回 (nil, nil)，这是正常情况而非错误。
func (s *conversationRepoImpl) FindDirect(ctx context.Context, userA, userB string) (*Conversation, error) {
	filter := bson.M{
		"type": ConversationDirect,
		"participants": bson.M{
			"$all":  []string{userA, userB},
			"$size": 2,
		},
	}

	var conv Conversation
	err := s.store.FindOne(ctx, ConversationCollection, filter, nil, &conv)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListByParticipant 获取用户参与的全部会话，按最近消息时间倒序
func (s *conversationRepoImpl) ListByParticipant(ctx context.Context, userID string) ([]*Conversation, error) {
	filter := bson.M{"participants": userID}
	opts := options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}})

	var convs []*Conversation
	if err := s.store.Find(ctx, ConversationCollection, filter, opts, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// TouchLastMessage 新消息落库后推进会话的排序时间戳。
// 闲置休眠的会话在这里被重新激活。
func (s *conversationRepoImpl) TouchLastMessage(ctx context.Context, id string, at time.Time) error {
	return s.store.UpdateByID(ctx, ConversationCollection, id, bson.M{
		"last_message_at": at,
		"is_active":       true,
	})
}

// DeactivateIdle 将最近消息早于给定时间的活跃会话置为不活跃 (软标记)
func (s *conversationRepoImpl) DeactivateIdle(ctx context.Context, before time.Time) (int64, error) {
	filter := bson.M{
		"is_active":       true,
		"last_message_at": bson.M{"$lt": before},
	}
	update := bson.M{"$set": bson.M{
		"is_active":  false,
		"updated_at": time.Now().UTC(),
	}}
	return s.store.UpdateMany(ctx, ConversationCollection, filter, update)
}

// mustObjectID 十六进制 ID 转 ObjectID，非法时返回零值 (查询必然未命中)
func mustObjectID(id string) primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}
