package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const MessageCollection = "messages"

type MessageRepo interface {
	Insert(ctx context.Context, msg *Message) (string, error)
	GetByID(ctx context.Context, id string) (*Message, error)
	ListByConversation(ctx context.Context, convID string, limit int64, startAfter string) ([]*Message, error)
	ListAscending(ctx context.Context, convID string) ([]*Message, error)
	Latest(ctx context.Context, convID string) (*Message, error)
	CountUnread(ctx context.Context, convID, userID string) (int64, error)
	MarkRead(ctx context.Context, convID, msgID, userID string) error
	MarkAllRead(ctx context.Context, convID, userID string) (int64, error)
}

type messageRepoImpl struct {
	store *Store
}

func NewMessageRepo(store *Store) MessageRepo {
	return &messageRepoImpl{store: store}
}

// Insert 将消息写入消息集合
func (s *messageRepoImpl) Insert(ctx context.Context, msg *Message) (string, error) {
	return s.store.Insert(ctx, MessageCollection, msg)
}

// GetByID 按消息 ID 获取消息
func (s *messageRepoImpl) GetByID(ctx context.Context, id string) (*Message, error) {
	var msg Message
	if err := s.store.FindByID(ctx, MessageCollection, id, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListByConversation 按会话分页拉取消息，最新的在前。
// startAfter 为上一页最后一条消息的 ID；下一页严格早于该条，
// created_at 相同时用 _id 补充定序，保证翻页无重叠无空洞。
func (s *messageRepoImpl) ListByConversation(ctx context.Context, convID string, limit int64, startAfter string) ([]*Message, error) {
	filter := bson.M{"conversation_id": mustObjectID(convID)}

	if startAfter != "" {
		cursorMsg, err := s.GetByID(ctx, startAfter)
		if err != nil {
			return nil, err
		}
		filter["$or"] = bson.A{
			bson.M{"created_at": bson.M{"$lt": cursorMsg.CreatedAt}},
			bson.M{
				"created_at": cursorMsg.CreatedAt,
				"_id":        bson.M{"$lt": cursorMsg.ID},
			},
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	var messages []*Message
	if err := s.store.Find(ctx, MessageCollection, filter, opts, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// ListAscending 按发送时间正序拉取会话全部消息 (推送订阅用)
func (s *messageRepoImpl) ListAscending(ctx context.Context, convID string) ([]*Message, error) {
	filter := bson.M{"conversation_id": mustObjectID(convID)}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	var messages []*Message
	if err := s.store.Find(ctx, MessageCollection, filter, opts, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// Latest 获取会话最近一条消息，空会话返回 (nil, nil)
func (s *messageRepoImpl) Latest(ctx context.Context, convID string) (*Message, error) {
	filter := bson.M{"conversation_id": mustObjectID(convID)}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	var msg Message
	err := s.store.FindOne(ctx, MessageCollection, filter, opts, &msg)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// CountUnread 统计会话中指定用户未读的消息数
func (s *messageRepoImpl) CountUnread(ctx context.Context, convID, userID string) (int64, error) {
	filter := bson.M{
		"conversation_id": mustObjectID(convID),
		"read_by":         bson.M{"$ne": userID},
	}
	return s.store.Count(ctx, MessageCollection, filter)
}

// MarkRead 将单条消息标记为指定用户已读。
// 条件同时限定会话 ID，防止跨会话的消息 ID 复用；
// $addToSet 保证幂等，已读过时不产生写入。
func (s *messageRepoImpl) MarkRead(ctx context.Context, convID, msgID, userID string) error {
	filter := bson.M{
		"_id":             mustObjectID(msgID),
		"conversation_id": mustObjectID(convID),
	}
	update := bson.M{"$addToSet": bson.M{"read_by": userID}}

	matched, err := s.store.UpdateOne(ctx, MessageCollection, filter, update)
	if err != nil {
		return err
	}
	if matched == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead 将会话中该用户所有未读消息一次性置为已读，返回处理条数
func (s *messageRepoImpl) MarkAllRead(ctx context.Context, convID, userID string) (int64, error) {
	filter := bson.M{
		"conversation_id": mustObjectID(convID),
		"read_by":         bson.M{"$ne": userID},
	}
	update := bson.M{"$addToSet": bson.M{"read_by": userID}}
	return s.store.UpdateMany(ctx, MessageCollection, filter, update)
}
