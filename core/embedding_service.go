package core

import "context"

// EmbeddingService 是跨模态编码服务的领域接口。
//
// 使用场景：
//   - 文本搜索：query 文本 -> 文本 Embedding（如 BGE 系列模型）
//   - 图片搜索：图片字节 -> CLIP Embedding
//
// 与用户编码器（进程内推理）不同，文本/图片编码器是外部模型服务，
// 通过 RPC 调用；传输失败由实现映射为 UNAVAILABLE。
//
// 实现：
//   - service.HTTPEmbedder 实现此接口（TF Serving / KServe 风格 REST）
type EmbeddingService interface {
	// EncodeText 把文本编码为 Embedding
	EncodeText(ctx context.Context, text string) ([]float64, error)

	// EncodeImage 把图片（原始字节）编码为 Embedding。
	// 字节已由调用方校验为合法的光栅图片。
	EncodeImage(ctx context.Context, image []byte) ([]float64, error)

	// Close 关闭连接
	Close() error
}
