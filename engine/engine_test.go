package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/vinli0921/product-recommender-system/artifact"
	"github.com/vinli0921/product-recommender-system/core"
	"github.com/vinli0921/product-recommender-system/encoder"
	"github.com/vinli0921/product-recommender-system/filter"
	"github.com/vinli0921/product-recommender-system/registry"
	"github.com/vinli0921/product-recommender-system/store"
)

// fakeGateway 内存特征网关，记录调用次数。
type fakeGateway struct {
	topK    map[string][]string
	topKErr error
	rows    map[string]core.FeatureRow
	nnIDs   []string
	nnErr   error

	topKCalls  int
	fetchCalls int

	lastNNVector    []float64
	lastNNTopK      int
	lastNNNamespace string
}

var _ core.FeatureGateway = (*fakeGateway)(nil)

func (g *fakeGateway) FetchFeatures(_ context.Context, entityKeys []string, _ string) ([]core.FeatureRow, error) {
	g.fetchCalls++
	rows := make([]core.FeatureRow, 0, len(entityKeys))
	for _, key := range entityKeys {
		if row, ok := g.rows[key]; ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (g *fakeGateway) FetchPrecomputedTopK(_ context.Context, entityKey string) ([]string, error) {
	g.topKCalls++
	if g.topKErr != nil {
		return nil, g.topKErr
	}
	ids, ok := g.topK[entityKey]
	if !ok {
		return nil, core.NewDomainError(core.ModuleGateway, core.ErrorCodeNotFound,
			fmt.Sprintf("no precomputed ranking for %q", entityKey))
	}
	return ids, nil
}

func (g *fakeGateway) NearestNeighbors(_ context.Context, vector []float64, topK int, namespace string) ([]string, error) {
	g.lastNNVector = vector
	g.lastNNTopK = topK
	g.lastNNNamespace = namespace
	if g.nnErr != nil {
		return nil, g.nnErr
	}
	return g.nnIDs, nil
}

func (g *fakeGateway) Close() error { return nil }

// fakeResolver 固定版本的注册表。
type fakeResolver struct {
	version string
	err     error
}

var _ registry.Resolver = (*fakeResolver)(nil)

func (r *fakeResolver) ActiveVersion(context.Context) (string, error) {
	return r.version, r.err
}

func (r *fakeResolver) Close() {}

// fakeObjects 内存对象存储，预灌一个可用的编码器版本。
type fakeObjects struct {
	objects map[string][]byte
}

var _ artifact.ObjectStore = (*fakeObjects)(nil)

func (s *fakeObjects) GetObject(_ context.Context, _, key string) (io.ReadCloser, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, core.NewDomainError(core.ModuleArtifact, core.ErrorCodeNotFound,
			fmt.Sprintf("no object %q", key))
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// newTestLoader 返回一个能加载版本 v7 的编码器加载器（输入维度 3，输出维度 2）。
func newTestLoader() *encoder.Loader {
	objects := &fakeObjects{objects: map[string][]byte{
		artifact.EncoderConfigKey("v7"): []byte(`{"users_num_numerical": 1, "users_num_categorical": 2}`),
		artifact.EncoderWeightsKey("v7"): []byte(`{"layers": [
			{"name": "out", "weight": [[0.1, 0.2, 0.3], [0.4, 0.5, 0.6]], "bias": [0.0, 0.0]}
		]}`),
	}}
	return encoder.NewLoader(objects)
}

func productRow(id, name string, price float64) core.FeatureRow {
	return core.FeatureRow{
		"item_id":      id,
		"product_name": name,
		"category":     "Electronics",
		"actual_price": price,
	}
}

func TestRecommendExistingUser_PreservesRankOrder(t *testing.T) {
	gateway := &fakeGateway{
		topK: map[string][]string{"u1": {"B003", "B001", "B002"}},
		rows: map[string]core.FeatureRow{
			"B001": productRow("B001", "Cable", 399),
			"B002": productRow("B002", "Mouse", 899),
			"B003": productRow("B003", "Keyboard", 1999),
		},
	}
	eng := New(gateway, &fakeResolver{version: "v7"}, newTestLoader())

	products, err := eng.RecommendExistingUser(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}

	want := []string{"B003", "B001", "B002"}
	if len(products) != len(want) {
		t.Fatalf("got %d products, want %d", len(products), len(want))
	}
	for i, p := range products {
		if p.ItemID != want[i] {
			t.Errorf("products[%d] = %s, want %s", i, p.ItemID, want[i])
		}
	}
}

func TestRecommendExistingUser_DeduplicatesIDs(t *testing.T) {
	gateway := &fakeGateway{
		topK: map[string][]string{"u1": {"B001", "B002", "B001", "B002"}},
		rows: map[string]core.FeatureRow{
			"B001": productRow("B001", "Cable", 399),
			"B002": productRow("B002", "Mouse", 899),
		},
	}
	eng := New(gateway, &fakeResolver{version: "v7"}, newTestLoader())

	products, err := eng.RecommendExistingUser(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}

	// 索引回吐重复 ID 时每个物品只出现一次，顺序按首次出现
	want := []string{"B001", "B002"}
	if len(products) != len(want) {
		t.Fatalf("got %d products, want %d", len(products), len(want))
	}
	for i, p := range products {
		if p.ItemID != want[i] {
			t.Errorf("products[%d] = %s, want %s", i, p.ItemID, want[i])
		}
	}
}

func TestRecommendExistingUser_DropsUnresolvableIDs(t *testing.T) {
	gateway := &fakeGateway{
		topK: map[string][]string{"u1": {"B001", "B404", "B002"}},
		rows: map[string]core.FeatureRow{
			"B001": productRow("B001", "Cable", 399),
			"B002": productRow("B002", "Mouse", 899),
		},
	}
	eng := New(gateway, &fakeResolver{version: "v7"}, newTestLoader())

	products, err := eng.RecommendExistingUser(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(products) != 2 || products[0].ItemID != "B001" || products[1].ItemID != "B002" {
		t.Errorf("products = %v", products)
	}
}

func TestRecommendExistingUser_NoRankingMeansEmptyList(t *testing.T) {
	gateway := &fakeGateway{topK: map[string][]string{}}
	eng := New(gateway, &fakeResolver{version: "v7"}, newTestLoader())

	products, err := eng.RecommendExistingUser(context.Background(), "u-cold", 10)
	if err != nil {
		t.Fatalf("no-ranking must not be an error, got %v", err)
	}
	if products == nil || len(products) != 0 {
		t.Errorf("products = %v, want empty non-nil list", products)
	}
}

func TestRecommendExistingUser_TruncatesToK(t *testing.T) {
	gateway := &fakeGateway{
		topK: map[string][]string{"u1": {"B001", "B002", "B003", "B004"}},
		rows: map[string]core.FeatureRow{
			"B001": productRow("B001", "A", 1),
			"B002": productRow("B002", "B", 2),
			"B003": productRow("B003", "C", 3),
			"B004": productRow("B004", "D", 4),
		},
	}
	eng := New(gateway, &fakeResolver{version: "v7"}, newTestLoader())

	products, err := eng.RecommendExistingUser(context.Background(), "u1", 2)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(products) != 2 || products[0].ItemID != "B001" || products[1].ItemID != "B002" {
		t.Errorf("products = %v", products)
	}
}

func TestRecommendExistingUser_Validation(t *testing.T) {
	eng := New(&fakeGateway{}, &fakeResolver{version: "v7"}, newTestLoader())

	if _, err := eng.RecommendExistingUser(context.Background(), "", 10); !core.IsInvalidInput(err) {
		t.Errorf("empty user error = %v, want INVALID_INPUT", err)
	}
	if _, err := eng.RecommendExistingUser(context.Background(), "u1", -1); !core.IsInvalidInput(err) {
		t.Errorf("negative k error = %v, want INVALID_INPUT", err)
	}
}

func TestRecommendExistingUser_GatewayFailurePropagates(t *testing.T) {
	gateway := &fakeGateway{
		topKErr: core.NewDomainError(core.ModuleGateway, core.ErrorCodeUnavailable, "feast down"),
	}
	eng := New(gateway, &fakeResolver{version: "v7"}, newTestLoader())

	_, err := eng.RecommendExistingUser(context.Background(), "u1", 10)
	if !core.IsUnavailable(err) {
		t.Errorf("error = %v, want UNAVAILABLE", err)
	}
}

func TestRecommendExistingUser_CacheHitSkipsGateway(t *testing.T) {
	gateway := &fakeGateway{
		topK: map[string][]string{"u1": {"B001"}},
		rows: map[string]core.FeatureRow{"B001": productRow("B001", "Cable", 399)},
	}
	eng := New(gateway, &fakeResolver{version: "v7"}, newTestLoader(),
		WithResultCache(store.NewMemoryStore(), 60))

	ctx := context.Background()
	first, err := eng.RecommendExistingUser(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := eng.RecommendExistingUser(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("second: %v", err)
	}

	if gateway.topKCalls != 1 {
		t.Errorf("gateway hit %d times, want 1 (second call served from cache)", gateway.topKCalls)
	}
	if len(second) != len(first) || second[0] != first[0] {
		t.Errorf("cached result %v differs from original %v", second, first)
	}

	// 不同 k 是不同的缓存条目
	if _, err := eng.RecommendExistingUser(ctx, "u1", 5); err != nil {
		t.Fatalf("different k: %v", err)
	}
	if gateway.topKCalls != 2 {
		t.Errorf("gateway hit %d times, want 2", gateway.topKCalls)
	}
}

func TestRecommendNewUser(t *testing.T) {
	gateway := &fakeGateway{
		nnIDs: []string{"B002", "B001"},
		rows: map[string]core.FeatureRow{
			"B001": productRow("B001", "Cable", 399),
			"B002": productRow("B002", "Mouse", 899),
		},
	}
	eng := New(gateway, &fakeResolver{version: "v7"}, newTestLoader())

	user := core.User{UserID: "u-new", Age: 27, Gender: "F", Preferences: "Electronics"}
	products, err := eng.RecommendNewUser(context.Background(), user, 2)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}

	if len(products) != 2 || products[0].ItemID != "B002" || products[1].ItemID != "B001" {
		t.Errorf("products = %v", products)
	}
	if gateway.lastNNNamespace != core.NamespaceItemEmbedding {
		t.Errorf("namespace = %q", gateway.lastNNNamespace)
	}
	if gateway.lastNNTopK != 2 {
		t.Errorf("topK = %d", gateway.lastNNTopK)
	}
	// 用户塔输出维度 2 的归一化 Embedding
	if len(gateway.lastNNVector) != 2 {
		t.Errorf("embedding dim = %d, want 2", len(gateway.lastNNVector))
	}
}

func TestRecommendNewUser_ResolverFailurePropagates(t *testing.T) {
	resolver := &fakeResolver{
		err: core.NewDomainError(core.ModuleRegistry, core.ErrorCodeNotFound, "empty registry"),
	}
	eng := New(&fakeGateway{}, resolver, newTestLoader())

	_, err := eng.RecommendNewUser(context.Background(), core.User{UserID: "u"}, 5)
	if !core.IsNotFound(err) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}
}

func TestRecommendNewUser_UnknownVersion(t *testing.T) {
	eng := New(&fakeGateway{}, &fakeResolver{version: "v999"}, newTestLoader())

	_, err := eng.RecommendNewUser(context.Background(), core.User{UserID: "u"}, 5)
	if !core.IsNotFound(err) {
		t.Errorf("error = %v, want NOT_FOUND (missing artifact)", err)
	}
}

func TestRecommendNewUser_Validation(t *testing.T) {
	eng := New(&fakeGateway{}, &fakeResolver{version: "v7"}, newTestLoader())

	if _, err := eng.RecommendNewUser(context.Background(), core.User{}, 5); !core.IsInvalidInput(err) {
		t.Errorf("empty user error = %v, want INVALID_INPUT", err)
	}
}

func TestProductByID(t *testing.T) {
	gateway := &fakeGateway{
		rows: map[string]core.FeatureRow{"B001": productRow("B001", "Cable", 399)},
	}
	eng := New(gateway, &fakeResolver{version: "v7"}, newTestLoader())

	p, err := eng.ProductByID(context.Background(), "B001")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if p.ItemID != "B001" || p.ProductName != "Cable" {
		t.Errorf("product = %+v", p)
	}

	_, err = eng.ProductByID(context.Background(), "B404")
	if !core.IsNotFound(err) {
		t.Errorf("error = %v, want NOT_FOUND", err)
	}

	_, err = eng.ProductByID(context.Background(), "")
	if !core.IsInvalidInput(err) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
}

func TestEngine_FiltersApplied(t *testing.T) {
	gateway := &fakeGateway{
		topK: map[string][]string{"u1": {"B001", "B002", "B003"}},
		rows: map[string]core.FeatureRow{
			"B001": productRow("B001", "Cable", 399),
			"B002": productRow("B002", "TV", 99999),
			"B003": productRow("B003", "Mouse", 899),
		},
	}
	priceCap, err := filter.NewRuleFilter("product.actual_price > 50000.0")
	if err != nil {
		t.Fatalf("rule: %v", err)
	}
	eng := New(gateway, &fakeResolver{version: "v7"}, newTestLoader(),
		WithFilters(priceCap))

	products, err := eng.RecommendExistingUser(context.Background(), "u1", 10)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(products) != 2 || products[0].ItemID != "B001" || products[1].ItemID != "B003" {
		t.Errorf("products = %v, want B002 filtered out", products)
	}
}

func TestEngine_ResolveFailsOnMalformedRow(t *testing.T) {
	gateway := &fakeGateway{
		topK: map[string][]string{"u1": {"B001"}},
		rows: map[string]core.FeatureRow{
			// 缺 actual_price 的脏行
			"B001": {"item_id": "B001", "product_name": "Cable", "category": "Electronics"},
		},
	}
	eng := New(gateway, &fakeResolver{version: "v7"}, newTestLoader())

	_, err := eng.RecommendExistingUser(context.Background(), "u1", 10)
	if err == nil {
		t.Fatal("malformed feature row must fail loudly")
	}
}
