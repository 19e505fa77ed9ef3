package event

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaBus 是 Kafka 实现的 BusClient（生产环境推荐）。
//
// 同步投递语义：每次 Produce 都 flush 到 broker 并等待确认
// （RequiredAcks=AllISR），吞吐换取更简单的失败契约。
type KafkaBus struct {
	client *kgo.Client
}

// KafkaBusConfig Kafka 生产者配置
type KafkaBusConfig struct {
	// Brokers Kafka Broker 地址列表
	Brokers []string

	// ClientID 客户端 ID
	ClientID string

	// Compression 压缩类型（gzip, snappy, lz4, zstd；空为不压缩）
	Compression string
}

// NewKafkaBus 创建 Kafka 事件总线生产者。
func NewKafkaBus(config KafkaBusConfig) (*KafkaBus, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if config.ClientID == "" {
		config.ClientID = "recsys-event-publisher"
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(config.Brokers...),
		kgo.ClientID(config.ClientID),
		// 至少一次投递：等待全部 ISR 确认，幂等生产者默认开启
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}

	switch config.Compression {
	case "gzip":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.GzipCompression()))
	case "snappy":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.SnappyCompression()))
	case "lz4":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.Lz4Compression()))
	case "zstd":
		opts = append(opts, kgo.ProducerBatchCompression(kgo.ZstdCompression()))
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	return &KafkaBus{client: client}, nil
}

// Produce 同步投递一条消息（实现 BusClient 接口）。
// 返回 nil 当且仅当 broker 已确认接收。
func (b *KafkaBus) Produce(ctx context.Context, topic string, value []byte) error {
	record := &kgo.Record{Topic: topic, Value: value}
	results := b.client.ProduceSync(ctx, record)
	return results.FirstErr()
}

// Close 关闭生产者（实现 BusClient 接口）。
// 内部会先 flush 缓冲中的消息。
func (b *KafkaBus) Close() error {
	b.client.Close()
	return nil
}

// 确保 KafkaBus 实现了 BusClient 接口
var _ BusClient = (*KafkaBus)(nil)
