package core

import "context"

// FeatureGateway 是特征/向量存储的领域接口（类型化门面）。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（feast）实现
//   - 外部存储视为可能阻塞、可能失败的黑盒：三个操作都是同步调用，
//     传输失败 / 超时一律映射为 UNAVAILABLE，网关内部绝不静默重试，
//     重试与熔断策略归调用方
//
// 实现：
//   - feast.Gateway 实现此接口（特征与预计算 TopK 走 Feast gRPC SDK，
//     向量检索走注入的 core.VectorService）
type FeatureGateway interface {
	// FetchFeatures 批量拉取实体特征。
	// 返回行的顺序不保证与 entityKeys 一致，调用方必须按键关联。
	FetchFeatures(ctx context.Context, entityKeys []string, featureService string) ([]FeatureRow, error)

	// FetchPrecomputedTopK 拉取单个实体的预计算排序（有序物品 ID 列表）。
	// 实体没有预计算排序（新用户）时返回 NOT_FOUND，这是正常控制流。
	FetchPrecomputedTopK(ctx context.Context, entityKey string) ([]string, error)

	// NearestNeighbors 在指定命名空间内做向量近邻检索，
	// 按相似度降序返回至多 topK 个物品 ID；topK 必须 >= 1。
	// 仅当索引内候选不足 topK 时返回更少的结果。
	NearestNeighbors(ctx context.Context, vector []float64, topK int, namespace string) ([]string, error)

	// Close 关闭网关，释放底层连接
	Close() error
}

// 网关使用的特征服务名（与外部存储中注册的 Feature Service 对应）
const (
	// FeatureServiceUserTopK 用户预计算 TopK 排序
	FeatureServiceUserTopK = "user_top_k_items"

	// FeatureServiceItem 物品全量特征（解析 Product 用）
	FeatureServiceItem = "item_service"

	// NamespaceItemEmbedding 物品 Embedding 向量索引命名空间
	NamespaceItemEmbedding = "item_embedding"
)
