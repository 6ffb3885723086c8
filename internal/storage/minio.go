package storage

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"office_word_mcp_server/internal/config"
)

const minioScheme = "minio://"

type objectRef struct {
	bucket, key string
}

// parseObjectRef splits minio://bucket/key.
func parseObjectRef(ref string) (*objectRef, bool) {
	rest, ok := strings.CutPrefix(ref, minioScheme)
	if !ok {
		return nil, false
	}
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return nil, false
	}
	return &objectRef{bucket: bucket, key: key}, true
}

// IsObjectRef reports whether ref names an object in MinIO.
func IsObjectRef(ref string) bool {
	_, ok := parseObjectRef(ref)
	return ok
}

var (
	client  *minio.Client
	once    sync.Once
	initErr error
)

// GetClient 使用单例模式初始化并返回一个 MinIO 客户端实例。
// 它确保到 MinIO 的连接在整个应用生命周期中只被建立一次。
func GetClient(cfg *config.MinIOConfig) (*minio.Client, error) {
	once.Do(func() {
		c, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.Secure,
		})
		if err != nil {
			initErr = fmt.Errorf("无法创建 MinIO 客户端: %w", err)
			return
		}
		// 初始化时执行简单的健康检查
		if _, err = c.ListBuckets(context.Background()); err != nil {
			initErr = fmt.Errorf("MinIO 初始化健康检查失败: %w", err)
			return
		}
		log.Println("成功连接到 MinIO")
		client = c
	})
	return client, initErr
}

// MinIOStore 是基于 minio-go 的 ObjectStore 实现。
type MinIOStore struct {
	client *minio.Client
}

// NewMinIOStore 包装一个已初始化的客户端。
func NewMinIOStore(c *minio.Client) *MinIOStore {
	return &MinIOStore{client: c}
}

// Download 将对象下载到本地文件，对象不存在时返回 ErrNotExist。
func (m *MinIOStore) Download(ctx context.Context, bucket, key, path string) error {
	err := m.client.FGetObject(ctx, bucket, key, path, minio.GetObjectOptions{})
	if err == nil {
		return nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %s/%s", ErrNotExist, bucket, key)
	}
	return err
}

// Upload 将本地文件上传为对象，内容类型按文件内容检测。
func (m *MinIOStore) Upload(ctx context.Context, bucket, key, path string) error {
	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectFile(path); err == nil {
		contentType = mt.String()
	}
	_, err := m.client.FPutObject(ctx, bucket, key, path, minio.PutObjectOptions{ContentType: contentType})
	return err
}

// HealthCheck 检查 MinIO 连接的健康状况。
func (m *MinIOStore) HealthCheck(ctx context.Context) error {
	if _, err := m.client.ListBuckets(ctx); err != nil {
		return fmt.Errorf("MinIO 健康检查失败: %w", err)
	}
	return nil
}
