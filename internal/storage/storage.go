package storage

import (
	"context"
	"io"
)

// ObjectStorage 对象存储抽象
// 上传与删除均为幂等语义，删除不存在的对象不报错
type ObjectStorage interface {
	// Put 上传对象并返回外部可访问的 URL
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)
	// Remove 删除对象
	Remove(ctx context.Context, key string) error
	// URL 构造对象的外部访问 URL
	URL(key string) string
}
