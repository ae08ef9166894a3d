package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Document 由存储层统一分配 ID 与创建/更新时间的文档
type Document interface {
	SetID(id primitive.ObjectID)
	Stamp(now time.Time)
}

// Store 文档存储适配器。所有集合的通用读写入口，
// 驱动错误在这里统一归一化。
type Store struct {
	db *mongo.Database
}

func NewStore(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) Collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// Insert 写入文档，时间戳与 ID 由存储层分配，返回十六进制 ID
func (s *Store) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	doc.Stamp(time.Now().UTC())

	res, err := s.db.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return "", Normalize(err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", ErrOperationFailed
	}
	doc.SetID(oid)
	return oid.Hex(), nil
}

// FindByID 按 ID 查询单个文档，非法 ID 与未命中都视为 ErrNotFound
func (s *Store) FindByID(ctx context.Context, collection string, id string, out interface{}) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	err = s.db.Collection(collection).FindOne(ctx, bson.M{"_id": oid}).Decode(out)
	return Normalize(err)
}

// UpdateByID 按 ID 局部更新，自动合并 updated_at
func (s *Store) UpdateByID(ctx context.Context, collection string, id string, set bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	set["updated_at"] = time.Now().UTC()
	res, err := s.db.Collection(collection).UpdateByID(ctx, oid, bson.M{"$set": set})
	if err != nil {
		return Normalize(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Find 按条件查询文档列表
func (s *Store) Find(ctx context.Context, collection string, filter interface{}, opts *options.FindOptions, out interface{}) error {
	cursor, err := s.db.Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return Normalize(err)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	if err := cursor.All(ctx, out); err != nil {
		return Normalize(err)
	}
	return nil
}

// FindOne 按条件查询单个文档
func (s *Store) FindOne(ctx context.Context, collection string, filter interface{}, opts *options.FindOneOptions, out interface{}) error {
	err := s.db.Collection(collection).FindOne(ctx, filter, opts).Decode(out)
	return Normalize(err)
}

// Count 按条件统计文档数
func (s *Store) Count(ctx context.Context, collection string, filter interface{}) (int64, error) {
	n, err := s.db.Collection(collection).CountDocuments(ctx, filter)
	if err != nil {
		return 0, Normalize(err)
	}
	return n, nil
}

// UpdateOne 按条件更新单个文档，返回命中数
func (s *Store) UpdateOne(ctx context.Context, collection string, filter, update interface{}) (int64, error) {
	res, err := s.db.Collection(collection).UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, Normalize(err)
	}
	return res.MatchedCount, nil
}

// UpdateMany 按条件批量更新，返回修改数
func (s *Store) UpdateMany(ctx context.Context, collection string, filter, update interface{}) (int64, error) {
	res, err := s.db.Collection(collection).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, Normalize(err)
	}
	return res.ModifiedCount, nil
}
