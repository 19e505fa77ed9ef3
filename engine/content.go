package engine

import (
	"bytes"
	"context"
	"image"

	// 注册内容搜索支持的光栅图片格式
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/vinli0921/product-recommender-system/core"
)

// Modality 内容搜索的输入模态
type Modality string

const (
	// ModalityText 文本查询
	ModalityText Modality = "text"

	// ModalityImage 图片查询（原始字节）
	ModalityImage Modality = "image"
)

// ContentQuery 是内容搜索的输入。
// Modality 决定读取哪个载荷字段。
type ContentQuery struct {
	Modality Modality

	// Text 文本查询串（Modality == text 时必填）
	Text string

	// Image 图片原始字节（Modality == image 时必填）
	Image []byte
}

// SearchByContent 跨模态内容搜索：查询被编码为与物品索引同空间的 Embedding，
// 再做向量近邻检索并解析商品。
//
// 边界行为：
//   - 未注入编码服务返回 NOT_SUPPORTED
//   - 未知模态返回 NOT_SUPPORTED
//   - 空文本 / 无法解码的图片字节返回 INVALID_INPUT（区别于编码服务
//     不可达的 UNAVAILABLE：前者不应重试，后者可以）
func (e *Engine) SearchByContent(ctx context.Context, query ContentQuery, k int) ([]core.Product, error) {
	if e.embedder == nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeNotSupported,
			"engine: content search requires an embedding service")
	}
	k, err := normalizeTopK(k)
	if err != nil {
		return nil, err
	}

	var embedding []float64
	switch query.Modality {
	case ModalityText:
		if query.Text == "" {
			return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
				"engine: text query is empty")
		}
		embedding, err = e.embedder.EncodeText(ctx, query.Text)
	case ModalityImage:
		if err := validateImage(query.Image); err != nil {
			return nil, err
		}
		embedding, err = e.embedder.EncodeImage(ctx, query.Image)
	default:
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeNotSupported,
			"engine: unknown content modality "+string(query.Modality))
	}
	if err != nil {
		return nil, err
	}

	ids, err := e.gateway.NearestNeighbors(ctx, embedding, k, core.NamespaceItemEmbedding)
	if err != nil {
		return nil, err
	}
	return e.resolveProducts(ctx, ids, nil)
}

// validateImage 在进编码服务之前确认字节是合法的光栅图片。
// 只解析头部元信息，不做全量解码。
func validateImage(data []byte) error {
	if len(data) == 0 {
		return core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"engine: image payload is empty")
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return core.WrapDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"engine: image payload is not a decodable raster image", err)
	}
	return nil
}
