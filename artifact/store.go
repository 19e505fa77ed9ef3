package artifact

import (
	"context"
	"fmt"
	"io"
)

// ObjectStore 是对象存储的抽象接口（不直接依赖具体 SDK，支持依赖注入）。
// S3 兼容协议支持 AWS S3、阿里云 OSS、腾讯云 COS、MinIO 等。
//
// 实现：
//   - MinioStore 实现此接口（生产环境）
//   - 测试中可用内存 map 实现
type ObjectStore interface {
	// GetObject 获取对象内容
	// bucket 是存储桶名称
	// key 是对象键（文件路径）
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// 用户编码器产物的命名约定：
//   - 桶按产物类型固定（用户编码器统一放 "user-encoder"）
//   - 权重键为 {产物类型}-{版本}.{扩展名}
//   - 配置键为 {产物类型}-config-{版本}.json
const (
	// EncoderBucket 用户编码器产物所在的桶
	EncoderBucket = "user-encoder"

	// encoderWeightsExt 权重文件扩展名（序列化的 state dict）
	encoderWeightsExt = "json"
)

// EncoderWeightsKey 返回指定版本用户编码器的权重对象键。
func EncoderWeightsKey(version string) string {
	return fmt.Sprintf("user-encoder-%s.%s", version, encoderWeightsExt)
}

// EncoderConfigKey 返回指定版本用户编码器的配置对象键。
func EncoderConfigKey(version string) string {
	return fmt.Sprintf("user-encoder-config-%s.json", version)
}
