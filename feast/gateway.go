package feast

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vinli0921/product-recommender-system/core"
	"github.com/vinli0921/product-recommender-system/pkg/conv"
)

// Gateway 是 core.FeatureGateway 的 Feast 实现：
// 实体特征与预计算 TopK 走 Feast 在线特征服务（Client），
// 向量近邻检索走注入的 core.VectorService。
//
// 设计原则：
//   - 外部系统视为可能阻塞、可能失败：每次调用都带超时，
//     传输失败映射为 UNAVAILABLE，网关内部绝不重试
//   - 单实例持有共享连接，可被并发复用
type Gateway struct {
	client  Client
	vectors core.VectorService

	project  string
	timeout  time.Duration
	metric   string
	services map[string]ServiceSpec
}

// ServiceSpec 描述一个特征服务在 Feast 中的注册形态。
type ServiceSpec struct {
	// EntityKey 实体键名（如 "user_id" / "item_id"）
	EntityKey string

	// Features 特征引用列表（"featureView:featureName" 形式）
	Features []string
}

// topKFeature 是预计算排序特征的引用与取值字段。
const (
	topKFeatureRef  = "user_top_k_items:top_k_item_ids"
	topKFeatureName = "top_k_item_ids"
)

// defaultServiceSpecs 内置的特征服务注册表，
// 与特征存储侧的 Feature Service 定义一一对应。
func defaultServiceSpecs() map[string]ServiceSpec {
	return map[string]ServiceSpec{
		core.FeatureServiceUserTopK: {
			EntityKey: "user_id",
			Features:  []string{topKFeatureRef},
		},
		core.FeatureServiceItem: {
			EntityKey: "item_id",
			Features: []string{
				"item_features:product_name",
				"item_features:category",
				"item_features:about_product",
				"item_features:img_link",
				"item_features:discount_percentage",
				"item_features:discounted_price",
				"item_features:actual_price",
				"item_features:product_link",
				"item_features:rating_count",
				"item_features:rating",
			},
		},
	}
}

// GatewayOption Gateway 配置选项
type GatewayOption func(*Gateway)

// WithGatewayTimeout 设置单次外部调用超时（默认 5s）。
func WithGatewayTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) { g.timeout = d }
}

// WithMetric 设置向量检索的距离度量（默认 cosine）。
func WithMetric(metric string) GatewayOption {
	return func(g *Gateway) { g.metric = metric }
}

// WithServiceSpec 注册/覆盖一个特征服务的定义。
func WithServiceSpec(name string, spec ServiceSpec) GatewayOption {
	return func(g *Gateway) { g.services[name] = spec }
}

// NewGateway 创建特征存储网关。
func NewGateway(client Client, vectors core.VectorService, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		client:   client,
		vectors:  vectors,
		timeout:  5 * time.Second,
		metric:   "cosine",
		services: defaultServiceSpecs(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// FetchFeatures 批量拉取实体特征（实现 core.FeatureGateway 接口）。
// 返回行的顺序不保证与 entityKeys 一致，调用方必须按键关联。
func (g *Gateway) FetchFeatures(ctx context.Context, entityKeys []string, featureService string) ([]core.FeatureRow, error) {
	if len(entityKeys) == 0 {
		return nil, nil
	}
	spec, ok := g.services[featureService]
	if !ok {
		return nil, core.NewDomainError(core.ModuleGateway, core.ErrorCodeInvalidInput,
			fmt.Sprintf("gateway: unknown feature service %q", featureService))
	}

	entityRows := make([]map[string]interface{}, len(entityKeys))
	for i, key := range entityKeys {
		entityRows[i] = map[string]interface{}{spec.EntityKey: key}
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.GetOnlineFeatures(ctx, &GetOnlineFeaturesRequest{
		Features:   spec.Features,
		EntityRows: entityRows,
	})
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleGateway, core.ErrorCodeUnavailable,
			fmt.Sprintf("gateway: fetch features via %q", featureService), err)
	}

	rows := make([]core.FeatureRow, 0, len(resp.FeatureVectors))
	for _, fv := range resp.FeatureVectors {
		row := make(core.FeatureRow, len(fv.Values)+1)
		// 实体键带回行内，调用方靠它做关联
		for k, v := range fv.EntityRow {
			row[k] = v
		}
		for name, value := range fv.Values {
			row[featureName(name)] = value
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// FetchPrecomputedTopK 拉取单个实体的预计算排序（实现 core.FeatureGateway 接口）。
// 实体没有预计算排序（新用户）时返回 NOT_FOUND，这是正常控制流而不是故障。
func (g *Gateway) FetchPrecomputedTopK(ctx context.Context, entityKey string) ([]string, error) {
	rows, err := g.FetchFeatures(ctx, []string{entityKey}, core.FeatureServiceUserTopK)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, g.noTopK(entityKey)
	}

	ids := itemIDList(rows[0][topKFeatureName])
	if len(ids) == 0 {
		return nil, g.noTopK(entityKey)
	}
	return ids, nil
}

func (g *Gateway) noTopK(entityKey string) error {
	return core.NewDomainError(core.ModuleGateway, core.ErrorCodeNotFound,
		fmt.Sprintf("gateway: no precomputed ranking for entity %q", entityKey))
}

// NearestNeighbors 向量近邻检索（实现 core.FeatureGateway 接口）。
func (g *Gateway) NearestNeighbors(ctx context.Context, vector []float64, topK int, namespace string) ([]string, error) {
	if topK < 1 {
		return nil, core.NewDomainError(core.ModuleGateway, core.ErrorCodeInvalidInput,
			fmt.Sprintf("gateway: topK must be >= 1, got %d", topK))
	}
	if len(vector) == 0 {
		return nil, core.NewDomainError(core.ModuleGateway, core.ErrorCodeInvalidInput,
			"gateway: query vector is empty")
	}
	if namespace == "" {
		namespace = core.NamespaceItemEmbedding
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	result, err := g.vectors.Search(ctx, &core.VectorSearchRequest{
		Namespace: namespace,
		Vector:    vector,
		TopK:      topK,
		Metric:    g.metric,
	})
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleGateway, core.ErrorCodeUnavailable,
			fmt.Sprintf("gateway: nearest neighbors in %q", namespace), err)
	}

	ids := make([]string, 0, len(result.Items))
	for _, item := range result.Items {
		ids = append(ids, item.ID)
	}
	return ids, nil
}

// Close 关闭网关（实现 core.FeatureGateway 接口）。
func (g *Gateway) Close() error {
	var firstErr error
	if g.client != nil {
		if err := g.client.Close(); err != nil {
			firstErr = err
		}
	}
	if g.vectors != nil {
		if err := g.vectors.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// featureName 去掉特征引用的 featureView 前缀（"item_features:rating" -> "rating"）。
func featureName(ref string) string {
	if idx := strings.LastIndex(ref, ":"); idx >= 0 {
		return ref[idx+1:]
	}
	return ref
}

// itemIDList 把特征存储返回的 TopK 值归一化为字符串 ID 列表。
// 不同在线存储后端对 Array 特征的回读形态不一致，这里统一兜底。
func itemIDList(v interface{}) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case []string:
		return val
	case []interface{}:
		return conv.SliceAnyToString(val)
	case string:
		// 逗号拼接的退化形态
		if val == "" {
			return nil
		}
		parts := strings.Split(val, ",")
		ids := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				ids = append(ids, p)
			}
		}
		return ids
	default:
		return nil
	}
}

// 确保 Gateway 实现了 core.FeatureGateway 接口
var _ core.FeatureGateway = (*Gateway)(nil)
