package mongo

import (
	goerrors "errors"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
)

// 存储层错误归一化：上层只依赖这四类哨兵错误，
// 不感知驱动的具体错误类型。
var (
	ErrNotFound         = goerrors.New("document not found")
	ErrAlreadyExists    = goerrors.New("document already exists")
	ErrPermissionDenied = goerrors.New("permission denied")
	ErrOperationFailed  = goerrors.New("store operation failed")
)

// Normalize 将 MongoDB 驱动错误映射到统一的错误分类
func Normalize(err error) error {
	if err == nil {
		return nil
	}

	if goerrors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadyExists
	}

	var cmdErr mongo.CommandError
	if goerrors.As(err, &cmdErr) && cmdErr.Code == 13 {
		return ErrPermissionDenied
	}

	return errors.Wrap(ErrOperationFailed, err.Error())
}
