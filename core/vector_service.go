package core

import "context"

// VectorService 是向量检索服务的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（vector）实现
//   - 遵循依赖倒置原则：领域层定义接口，基础设施层实现接口
//   - 避免循环依赖：领域层不依赖基础设施层
//
// 使用场景（召回场景专用）：
//   - 冷启动召回：根据 User Embedding 检索 Item Embeddings
//   - 内容搜索：根据文本/图片 Embedding 检索相似物品
//
// 实现：
//   - vector.MilvusService 实现此接口（通过注入的 MilvusClient）
//   - 其他向量索引（Faiss、Elasticsearch 等）也可以实现此接口
type VectorService interface {
	// Search 向量搜索，结果按相似度降序排列，至多返回 TopK 个
	Search(ctx context.Context, req *VectorSearchRequest) (*VectorSearchResult, error)

	// Close 关闭连接
	Close() error
}

// VectorSearchRequest 向量搜索请求
type VectorSearchRequest struct {
	// Namespace 向量索引命名空间（对应物品 Embedding 的特征视图，
	// 如 "item_embedding" / "item_text_embedding" / "item_clip_embedding"）
	Namespace string

	// Vector 查询向量
	Vector []float64

	// TopK 返回 TopK 个最相似的结果，必须 >= 1
	TopK int

	// Metric 距离度量方式：cosine / euclidean / inner_product
	Metric string
}

// VectorSearchItem 单个向量搜索结果项
type VectorSearchItem struct {
	// ID 物品 ID
	ID string

	// Score 相似度分数
	Score float64
}

// VectorSearchResult 向量搜索结果
type VectorSearchResult struct {
	// Items 搜索结果项列表（按相似度降序）
	Items []VectorSearchItem
}

// ValidateVectorMetric 验证距离度量类型
func ValidateVectorMetric(metric string) bool {
	switch metric {
	case "cosine", "euclidean", "inner_product":
		return true
	default:
		return false
	}
}
