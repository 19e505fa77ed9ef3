package artifact

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vinli0921/product-recommender-system/core"
)

// MinioStore 是 MinIO（S3 兼容协议）实现的 ObjectStore。
//
// 工程特征：
//   - 连接内部自带连接池，单实例可被并发复用
//   - 每次调用都带超时，超时/不可达映射为 UNAVAILABLE
type MinioStore struct {
	client  *minio.Client
	timeout time.Duration
}

// MinioConfig MinIO 客户端配置
type MinioConfig struct {
	// Endpoint 服务地址，例如 "localhost:9000"（不含协议前缀）
	Endpoint string

	// AccessKey / SecretKey 访问凭证
	AccessKey string
	SecretKey string

	// UseSSL 是否启用 TLS
	UseSSL bool

	// Timeout 单次请求超时（默认 30s）
	Timeout time.Duration
}

// NewMinioStore 创建 MinIO 对象存储客户端。
func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return &MinioStore{client: client, timeout: cfg.Timeout}, nil
}

// GetObject 获取对象内容（实现 ObjectStore 接口）。
// 对象不存在返回 NOT_FOUND，传输失败返回 UNAVAILABLE。
func (s *MinioStore) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)

	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		cancel()
		return nil, core.WrapDomainError(core.ModuleArtifact, core.ErrorCodeUnavailable,
			fmt.Sprintf("artifact: get object %s/%s", bucket, key), err)
	}

	// GetObject 是惰性的：错误要到第一次 Read 才暴露。
	// 先 Stat 一次，把 "对象不存在" 和 "存储不可达" 在这里就区分开。
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		cancel()
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil, core.WrapDomainError(core.ModuleArtifact, core.ErrorCodeNotFound,
				fmt.Sprintf("artifact: object %s/%s not found", bucket, key), err)
		}
		return nil, core.WrapDomainError(core.ModuleArtifact, core.ErrorCodeUnavailable,
			fmt.Sprintf("artifact: stat object %s/%s", bucket, key), err)
	}

	// cancel 绑定到 ReadCloser 的 Close 上，保证 context 在读完后释放
	return &objectReader{obj: obj, cancel: cancel}, nil
}

// objectReader 把对象句柄和它的超时 context 绑在一起关闭。
type objectReader struct {
	obj    *minio.Object
	cancel context.CancelFunc
}

func (r *objectReader) Read(p []byte) (int, error) { return r.obj.Read(p) }

func (r *objectReader) Close() error {
	err := r.obj.Close()
	r.cancel()
	return err
}
