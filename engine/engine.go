// Package engine 实现召回引擎：对上层提供按用户/按内容取回商品列表的同步操作。
//
// 三条召回路径：
//   - 老用户：离线预计算的 TopK 排序直读
//   - 新用户：进程内用户塔推理 + 向量近邻检索
//   - 内容搜索：外部跨模态编码器 + 向量近邻检索
//
// 工程特征：
//   - 纯同步调用链，每个阶段的错误携带模块与错误码
//   - 依赖全部注入（网关/注册表/加载器/编码器/缓存），无全局状态，可并发复用
//   - 解析后的商品列表可经过可配置的过滤器链，再返回给调用方
package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vinli0921/product-recommender-system/core"
	"github.com/vinli0921/product-recommender-system/encoder"
	"github.com/vinli0921/product-recommender-system/filter"
	"github.com/vinli0921/product-recommender-system/model"
	"github.com/vinli0921/product-recommender-system/registry"
)

// DefaultTopK 未显式指定 k 时的默认取回条数。
const DefaultTopK = 10

// Engine 是召回引擎。
type Engine struct {
	gateway  core.FeatureGateway
	registry registry.Resolver
	encoders *encoder.Loader
	embedder core.EmbeddingService

	filters []filter.Filter

	// cache 老用户结果的短 TTL 缓存（可选，nil 表示关闭）
	cache    core.Store
	cacheTTL int
}

// Option Engine 配置选项
type Option func(*Engine)

// WithEmbedder 注入跨模态编码服务（内容搜索路径需要）。
func WithEmbedder(e core.EmbeddingService) Option {
	return func(eng *Engine) { eng.embedder = e }
}

// WithFilters 设置解析后应用的过滤器链。
func WithFilters(filters ...filter.Filter) Option {
	return func(eng *Engine) { eng.filters = filters }
}

// WithResultCache 开启老用户召回结果缓存，ttl 单位为秒。
func WithResultCache(store core.Store, ttlSeconds int) Option {
	return func(eng *Engine) {
		eng.cache = store
		eng.cacheTTL = ttlSeconds
	}
}

// New 创建召回引擎。
// gateway、resolver、loader 是所有路径共享的必备依赖。
func New(gateway core.FeatureGateway, resolver registry.Resolver, loader *encoder.Loader, opts ...Option) *Engine {
	eng := &Engine{
		gateway:  gateway,
		registry: resolver,
		encoders: loader,
	}
	for _, opt := range opts {
		opt(eng)
	}
	return eng
}

// RecommendExistingUser 取回老用户的预计算推荐。
//
// 边界行为：
//   - 没有预计算排序（离线任务尚未覆盖该用户）返回空列表而不是错误，
//     调用方据此决定是否降级到新用户路径
//   - k == 0 使用 DefaultTopK，k < 0 返回 INVALID_INPUT
func (e *Engine) RecommendExistingUser(ctx context.Context, userID string, k int) ([]core.Product, error) {
	if userID == "" {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"engine: user id is empty")
	}
	k, err := normalizeTopK(k)
	if err != nil {
		return nil, err
	}

	if cached, ok := e.cachedResult(ctx, userID, k); ok {
		return cached, nil
	}

	ids, err := e.gateway.FetchPrecomputedTopK(ctx, userID)
	if err != nil {
		if core.IsNotFound(err) {
			return []core.Product{}, nil
		}
		return nil, err
	}
	if len(ids) > k {
		ids = ids[:k]
	}

	products, err := e.resolveProducts(ctx, ids, nil)
	if err != nil {
		return nil, err
	}

	e.storeResult(ctx, userID, k, products)
	return products, nil
}

// RecommendNewUser 为没有预计算排序的新用户做实时召回：
// 解析当前编码器版本 -> 取回编码器 -> 注册信息特征化 -> 推理出用户 Embedding
// -> 物品向量索引近邻检索 -> 解析商品。
func (e *Engine) RecommendNewUser(ctx context.Context, user core.User, k int) ([]core.Product, error) {
	if user.UserID == "" {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"engine: user id is empty")
	}
	k, err := normalizeTopK(k)
	if err != nil {
		return nil, err
	}

	version, err := e.registry.ActiveVersion(ctx)
	if err != nil {
		return nil, err
	}
	tower, err := e.encoders.Get(ctx, version)
	if err != nil {
		return nil, err
	}

	features, err := model.UserFeatures(user, tower.Config())
	if err != nil {
		return nil, err
	}
	embedding, err := tower.Encode(features)
	if err != nil {
		return nil, err
	}

	ids, err := e.gateway.NearestNeighbors(ctx, embedding, k, core.NamespaceItemEmbedding)
	if err != nil {
		return nil, err
	}
	return e.resolveProducts(ctx, ids, &user)
}

// ProductByID 取回单个商品。商品不存在时返回 NOT_FOUND。
func (e *Engine) ProductByID(ctx context.Context, itemID string) (core.Product, error) {
	if itemID == "" {
		return core.Product{}, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"engine: item id is empty")
	}

	rows, err := e.gateway.FetchFeatures(ctx, []string{itemID}, core.FeatureServiceItem)
	if err != nil {
		return core.Product{}, err
	}
	for _, row := range rows {
		p, err := core.ProductFromRow(row)
		if err != nil {
			return core.Product{}, err
		}
		if p.ItemID == itemID {
			return p, nil
		}
	}
	return core.Product{}, core.NewDomainError(core.ModuleEngine, core.ErrorCodeNotFound,
		fmt.Sprintf("engine: product %q not found", itemID))
}

// resolveProducts 把有序 ID 列表解析为商品列表。
//
// 合约：
//   - 输出保持输入的排序
//   - 特征行里缺失的 ID 被静默丢弃（物品已下架但排序是旧的），不视为错误
//   - 特征行形状异常（缺必填字段）则整体失败，绝不返回部分脏数据
func (e *Engine) resolveProducts(ctx context.Context, ids []string, user *core.User) ([]core.Product, error) {
	if len(ids) == 0 {
		return []core.Product{}, nil
	}

	rows, err := e.gateway.FetchFeatures(ctx, ids, core.FeatureServiceItem)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]core.Product, len(rows))
	for _, row := range rows {
		p, err := core.ProductFromRow(row)
		if err != nil {
			return nil, err
		}
		byID[p.ItemID] = p
	}

	// 按输入顺序重组；索引偶尔会回吐重复 ID，每个物品只保留首次出现
	products := make([]core.Product, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := byID[id]; ok {
			products = append(products, p)
		}
	}

	return filter.Apply(ctx, user, products, e.filters...)
}

func normalizeTopK(k int) (int, error) {
	if k == 0 {
		return DefaultTopK, nil
	}
	if k < 0 {
		return 0, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			fmt.Sprintf("engine: k must be >= 1, got %d", k))
	}
	return k, nil
}

func cacheKey(userID string, k int) string {
	return fmt.Sprintf("recs:%s:%d", userID, k)
}

// cachedResult 尝试读缓存。缓存故障视为未命中，绝不影响主链路。
func (e *Engine) cachedResult(ctx context.Context, userID string, k int) ([]core.Product, bool) {
	if e.cache == nil {
		return nil, false
	}
	data, err := e.cache.Get(ctx, cacheKey(userID, k))
	if err != nil {
		return nil, false
	}
	var products []core.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, false
	}
	return products, true
}

func (e *Engine) storeResult(ctx context.Context, userID string, k int, products []core.Product) {
	if e.cache == nil {
		return
	}
	data, err := json.Marshal(products)
	if err != nil {
		return
	}
	// 写失败同样只是放弃缓存
	_ = e.cache.Set(ctx, cacheKey(userID, k), data, e.cacheTTL)
}
