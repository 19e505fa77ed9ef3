package config

import (
	"strings"
	"testing"
	"time"
)

func TestParse_DefaultsAndOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
feast:
  host: feast.prod.svc
  port: 6566
  project: recsys
kafka:
  brokers: ["kafka-0:9092", "kafka-1:9092"]
engine:
  default_top_k: 20
  filter_rules:
    - product.actual_price > 50000.0
  blocked_categories: ["Tobacco"]
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.Feast.Host != "feast.prod.svc" || cfg.Feast.Project != "recsys" {
		t.Errorf("feast = %+v", cfg.Feast)
	}
	// 未显式配置的字段保留默认值
	if cfg.Feast.Timeout != 5*time.Second {
		t.Errorf("feast timeout = %v, want default 5s", cfg.Feast.Timeout)
	}
	if cfg.Milvus.Address != "localhost:19530" {
		t.Errorf("milvus address = %q, want default", cfg.Milvus.Address)
	}
	if len(cfg.Kafka.Brokers) != 2 {
		t.Errorf("brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Engine.DefaultTopK != 20 {
		t.Errorf("default_top_k = %d", cfg.Engine.DefaultTopK)
	}
	if len(cfg.Engine.FilterRules) != 1 || len(cfg.Engine.BlockedCategories) != 1 {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if cfg.Engine.EncoderCacheVersions != 3 {
		t.Errorf("encoder_cache_versions = %d, want default 3", cfg.Engine.EncoderCacheVersions)
	}
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantSub string
	}{
		{
			name:    "empty feast host",
			yaml:    "feast:\n  host: \"\"\n",
			wantSub: "feast.host",
		},
		{
			name:    "port out of range",
			yaml:    "feast:\n  port: 99999\n",
			wantSub: "feast.port",
		},
		{
			name:    "no brokers",
			yaml:    "kafka:\n  brokers: []\n",
			wantSub: "kafka.brokers",
		},
		{
			name:    "zero top k",
			yaml:    "engine:\n  default_top_k: 0\n",
			wantSub: "default_top_k",
		},
		{
			name:    "cache ttl without redis",
			yaml:    "engine:\n  result_cache_ttl: 60\n",
			wantSub: "redis.addr",
		},
		{
			name:    "negative cache ttl",
			yaml:    "engine:\n  result_cache_ttl: -5\n",
			wantSub: "result_cache_ttl",
		},
		{
			name:    "not yaml",
			yaml:    "{{{",
			wantSub: "parse yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestParse_CacheTTLWithRedis(t *testing.T) {
	cfg, err := Parse([]byte(`
redis:
  addr: localhost:6379
engine:
  result_cache_ttl: 60
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Engine.ResultCacheTTL != 60 {
		t.Errorf("ttl = %d", cfg.Engine.ResultCacheTTL)
	}
}
