// Package config 提供服务配置的 YAML 加载、默认值与校验。
// 配置只描述外部依赖的连接参数与少量引擎行为，不包含任何业务规则以外的逻辑。
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是服务的全量配置。
type Config struct {
	Feast    FeastConfig    `yaml:"feast"`
	Milvus   MilvusConfig   `yaml:"milvus"`
	Minio    MinioConfig    `yaml:"minio"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Engine   EngineConfig   `yaml:"engine"`
}

// FeastConfig Feast 在线特征服务连接配置
type FeastConfig struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Project string        `yaml:"project"`
	Timeout time.Duration `yaml:"timeout"`
}

// MilvusConfig 向量检索服务连接配置
type MilvusConfig struct {
	Address  string        `yaml:"address"`
	Database string        `yaml:"database"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	Timeout  time.Duration `yaml:"timeout"`
}

// MinioConfig 模型产物对象存储连接配置
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// PostgresConfig 模型版本注册表连接配置
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// KafkaConfig 事件发布配置
type KafkaConfig struct {
	Brokers  []string      `yaml:"brokers"`
	ClientID string        `yaml:"client_id"`
	Timeout  time.Duration `yaml:"timeout"`
}

// RedisConfig 结果缓存配置（可选）
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// EmbedderConfig 跨模态编码服务配置（可选）
type EmbedderConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

// EngineConfig 召回引擎行为配置
type EngineConfig struct {
	// DefaultTopK 未显式指定 k 时的取回条数
	DefaultTopK int `yaml:"default_top_k"`

	// EncoderCacheVersions 编码器缓存保留的版本数
	EncoderCacheVersions int `yaml:"encoder_cache_versions"`

	// EncoderLoadTimeout 单次编码器加载超时
	EncoderLoadTimeout time.Duration `yaml:"encoder_load_timeout"`

	// ResultCacheTTL 老用户结果缓存 TTL，秒；0 表示关闭缓存
	ResultCacheTTL int `yaml:"result_cache_ttl"`

	// FilterRules 解析后应用的 CEL 过滤规则（命中即过滤）
	FilterRules []string `yaml:"filter_rules"`

	// BlockedCategories 类目黑名单
	BlockedCategories []string `yaml:"blocked_categories"`
}

// Default 返回一份带默认值的配置。
func Default() *Config {
	return &Config{
		Feast: FeastConfig{
			Host:    "localhost",
			Port:    6566,
			Timeout: 5 * time.Second,
		},
		Milvus: MilvusConfig{
			Address: "localhost:19530",
			Timeout: 5 * time.Second,
		},
		Minio: MinioConfig{
			Endpoint: "localhost:9000",
		},
		Kafka: KafkaConfig{
			Brokers:  []string{"localhost:9092"},
			ClientID: "recsys-event-publisher",
			Timeout:  10 * time.Second,
		},
		Embedder: EmbedderConfig{
			Timeout: 10 * time.Second,
		},
		Engine: EngineConfig{
			DefaultTopK:          10,
			EncoderCacheVersions: 3,
			EncoderLoadTimeout:   60 * time.Second,
		},
	}
}

// Load 从文件加载配置，文件中的字段覆盖默认值。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse 解析 YAML 配置，缺失的字段保留默认值。
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置的内部一致性。
func (c *Config) Validate() error {
	if c.Feast.Host == "" {
		return fmt.Errorf("config: feast.host is required")
	}
	if c.Feast.Port <= 0 || c.Feast.Port > 65535 {
		return fmt.Errorf("config: feast.port %d out of range", c.Feast.Port)
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers is required")
	}
	if c.Engine.DefaultTopK < 1 {
		return fmt.Errorf("config: engine.default_top_k must be >= 1, got %d", c.Engine.DefaultTopK)
	}
	if c.Engine.ResultCacheTTL < 0 {
		return fmt.Errorf("config: engine.result_cache_ttl must be >= 0, got %d", c.Engine.ResultCacheTTL)
	}
	if c.Engine.ResultCacheTTL > 0 && c.Redis.Addr == "" {
		return fmt.Errorf("config: engine.result_cache_ttl set but redis.addr is empty")
	}
	return nil
}
