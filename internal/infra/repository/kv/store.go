package kv

import (
	"context"
	"errors"
)

var ErrEmptyKey = errors.New("kv key is empty")

// IStore 單一 key 對應一份文件的持久化儲存
// Get 在 key 不存在時回傳 found == false，不視為錯誤
type IStore interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
}
