package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/certvault/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStorage 基于 MinIO / S3 兼容服务的对象存储实现
type MinioStorage struct {
	client        *minio.Client
	bucket        string
	folder        string
	publicBaseURL string
	endpoint      string
	useSSL        bool
}

// normalizeEndpoint 支持 "minio:9000" 与 "https://minio:9000" 两种写法
func normalizeEndpoint(raw string, useSSL bool) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("存储端点不能为空")
	}
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("无效的存储端点: %s", raw)
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("存储端点不应包含路径: %s", raw)
		}
		return u.Host, u.Scheme == "https", nil
	}
	return raw, useSSL, nil
}

// NewMinioStorage 创建 MinIO 存储客户端并校验桶是否存在
func NewMinioStorage(ctx context.Context, cfg config.StorageConfig) (*MinioStorage, error) {
	if cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("存储配置不完整")
	}

	endpoint, secure, err := normalizeEndpoint(cfg.Endpoint, cfg.UseSSL)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化存储客户端失败: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("存储桶不存在: %s", cfg.Bucket)
	}

	return &MinioStorage{
		client:        client,
		bucket:        cfg.Bucket,
		folder:        strings.Trim(cfg.Folder, "/"),
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		endpoint:      endpoint,
		useSSL:        secure,
	}, nil
}

// ObjectKey 拼接存储目录前缀
func (s *MinioStorage) ObjectKey(name string) string {
	if s.folder == "" {
		return name
	}
	return s.folder + "/" + name
}

// Put 上传对象并返回外部访问 URL
func (s *MinioStorage) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("上传对象失败: %w", err)
	}
	return s.URL(key), nil
}

// Remove 删除对象，对象不存在时视为成功
func (s *MinioStorage) Remove(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("删除对象失败: %w", err)
	}
	return nil
}

// URL 构造对象的外部访问 URL
// 配置了 public_base_url 时优先使用，便于接 CDN 或反向代理
func (s *MinioStorage) URL(key string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key
	}
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, key)
}
