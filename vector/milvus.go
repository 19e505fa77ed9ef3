package vector

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/vinli0921/product-recommender-system/core"
)

// MilvusService 是 Milvus 向量索引的 core.VectorService 实现。
//
// 命名空间约定：core.VectorSearchRequest.Namespace 对应 Milvus 的
// collection 名称（item_embedding / item_text_embedding 等）。
type MilvusService struct {
	Address  string
	Username string
	Password string
	Database string
	Timeout  int // 秒

	// mu 保护 client 的惰性建连：网关把所有近邻检索汇聚到同一个
	// 实例上，首次 Search 可能并发到达
	mu            sync.Mutex
	client        MilvusClient
	clientFactory MilvusClientFactory
}

// NewMilvusService 创建一个新的 Milvus 服务实例。
func NewMilvusService(address string, opts ...MilvusOption) *MilvusService {
	service := &MilvusService{
		Address:       address,
		Database:      "default",
		Timeout:       30,
		clientFactory: &DefaultMilvusClientFactory{},
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// MilvusOption Milvus 服务配置选项
type MilvusOption func(*MilvusService)

func WithMilvusAuth(username, password string) MilvusOption {
	return func(s *MilvusService) {
		s.Username = username
		s.Password = password
	}
}

func WithMilvusDatabase(database string) MilvusOption {
	return func(s *MilvusService) {
		s.Database = database
	}
}

func WithMilvusTimeout(timeout int) MilvusOption {
	return func(s *MilvusService) {
		s.Timeout = timeout
	}
}

func WithMilvusClientFactory(factory MilvusClientFactory) MilvusOption {
	return func(s *MilvusService) {
		s.clientFactory = factory
	}
}

func WithMilvusClient(client MilvusClient) MilvusOption {
	return func(s *MilvusService) {
		s.client = client
	}
}

// activeClient 返回可用的 Milvus 客户端，首次调用时惰性建连。
// 建连失败不缓存，下次调用重试。
func (s *MilvusService) activeClient(ctx context.Context) (MilvusClient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return s.client, nil
	}
	if s.clientFactory == nil {
		s.clientFactory = &DefaultMilvusClientFactory{}
	}

	timeout := time.Duration(s.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client, err := s.clientFactory.NewClient(ctx, s.Address, s.Username, s.Password, s.Database, timeout)
	if err != nil {
		return nil, fmt.Errorf("init milvus client: %w", err)
	}
	s.client = client
	return client, nil
}

// Search 向量搜索（实现 core.VectorService 接口）。
func (s *MilvusService) Search(ctx context.Context, req *core.VectorSearchRequest) (*core.VectorSearchResult, error) {
	client, err := s.activeClient(ctx)
	if err != nil {
		return nil, err
	}

	if req.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if len(req.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if req.TopK <= 0 {
		req.TopK = 10
	}
	metric := req.Metric
	if !core.ValidateVectorMetric(metric) {
		metric = "cosine"
	}

	ids, scores, _, err := client.Search(
		ctx,
		req.Namespace,
		[][]float32{convertToFloat32(req.Vector)},
		int64(req.TopK),
		convertMetric(metric),
	)
	if err != nil {
		return nil, fmt.Errorf("milvus search failed: %w", err)
	}

	items := make([]core.VectorSearchItem, len(ids))
	for i, id := range ids {
		items[i] = core.VectorSearchItem{
			// Milvus 内部主键是 int64，统一转回字符串 ID
			ID:    strconv.FormatInt(id, 10),
			Score: scoreAt(scores, i),
		}
	}

	return &core.VectorSearchResult{Items: items}, nil
}

// Close 关闭连接（实现 core.VectorService 接口）。
func (s *MilvusService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// convertMetric 把领域层度量名转换为 Milvus 的 metric type。
func convertMetric(metric string) string {
	switch metric {
	case "cosine":
		return "COSINE"
	case "euclidean":
		return "L2"
	case "inner_product":
		return "IP"
	default:
		return "COSINE"
	}
}

func convertToFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func scoreAt(scores []float64, i int) float64 {
	if i < len(scores) {
		return scores[i]
	}
	return 0
}

// 确保 MilvusService 实现了 core.VectorService 接口
var _ core.VectorService = (*MilvusService)(nil)
