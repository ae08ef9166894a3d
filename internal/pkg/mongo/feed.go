package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// Unsubscribe 取消订阅。调用返回时监听协程已退出。
type Unsubscribe func()

// Watcher 集合变更订阅能力，Store 为其生产实现
type Watcher interface {
	WatchCollection(ctx context.Context, collection string, pipeline mongo.Pipeline, onChange func(), onError func(error)) (Unsubscribe, error)
}

// WatchCollection 订阅集合变更 (Change Stream)。
// 每次底层集合发生匹配 pipeline 的变化时回调 onChange；
// 订阅方需要在回调中自行重查完整结果集，这里不下发增量。
func (s *Store) WatchCollection(ctx context.Context, collection string, pipeline mongo.Pipeline, onChange func(), onError func(error)) (Unsubscribe, error) {
	watchCtx, cancel := context.WithCancel(ctx)

	stream, err := s.db.Collection(collection).Watch(watchCtx, pipeline)
	if err != nil {
		cancel()
		return nil, Normalize(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			_ = stream.Close(context.Background())
		}()

		for stream.Next(watchCtx) {
			onChange()
		}

		// 主动取消不算错误
		if err := stream.Err(); err != nil && watchCtx.Err() == nil {
			onError(Normalize(err))
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}
