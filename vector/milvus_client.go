package vector

import (
	"context"
	"fmt"
	"time"
)

// MilvusClient 是 Milvus SDK 客户端的接口抽象（遵循 DDD 原则，高内聚低耦合）。
//
// 这个接口定义了本仓库用到的 Milvus 客户端能力，不直接依赖具体 SDK。
// 召回链路只读索引，写入/建表归离线物料管道，故接口只保留 Search。
//
// 使用方式：
//   - 方式1：直接使用 SDK（需要安装依赖）
//   - 方式2：通过依赖注入（推荐，保持低耦合）
type MilvusClient interface {
	// Search 向量搜索，返回 ID、相似度分数、距离三个对齐的切片
	Search(ctx context.Context, collection string, vectors [][]float32, topK int64, metricType string) ([]int64, []float64, []float64, error)

	// Close 关闭连接
	Close() error
}

// MilvusClientFactory 是 Milvus 客户端工厂接口（用于依赖注入）。
type MilvusClientFactory interface {
	NewClient(ctx context.Context, address string, username, password, database string, timeout time.Duration) (MilvusClient, error)
}

// DefaultMilvusClientFactory 是默认的 Milvus 客户端工厂（使用 SDK）。
// 实际实现需要安装：go get github.com/milvus-io/milvus-sdk-go/v2/client
type DefaultMilvusClientFactory struct{}

// NewClient 创建 Milvus SDK 客户端
func (f *DefaultMilvusClientFactory) NewClient(ctx context.Context, address, username, password, database string, timeout time.Duration) (MilvusClient, error) {
	// 实际实现（需要安装 SDK）：
	// import "github.com/milvus-io/milvus-sdk-go/v2/client"
	//
	// client, err := client.NewClient(ctx, client.Config{
	//     Address:  address,
	//     Username: username,
	//     Password: password,
	//     DBName:   database,
	// })
	//
	// 为了避免根模块强依赖 Milvus SDK，这里要求通过
	// WithMilvusClient / WithMilvusClientFactory 注入实现。
	return nil, fmt.Errorf("milvus sdk client not wired: inject a MilvusClient via WithMilvusClient")
}
