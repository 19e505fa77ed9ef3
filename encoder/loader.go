package encoder

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vinli0921/product-recommender-system/artifact"
	"github.com/vinli0921/product-recommender-system/core"
	"github.com/vinli0921/product-recommender-system/model"
)

// Loader 是用户编码器的加载器 + 进程级缓存。
//
// 设计原则：
//   - 缓存按版本号惰性填充，模型实例加载后不可变
//   - 同一未缓存版本的并发请求只触发一次下载与加载
//     （singleflight），所有等待者拿到同一个实例
//   - 加载失败（INVALID_ARTIFACT / CORRUPT_ARTIFACT）绝不入缓存，
//     也绝不静默回退到旧版本
//   - 超出 MaxVersions 时按最久未使用的版本淘汰
type Loader struct {
	store artifact.ObjectStore

	// loadTimeout 单次加载（两个对象的下载 + 解析）的超时
	loadTimeout time.Duration

	// maxVersions 缓存的版本数上限（<=0 表示不淘汰）
	maxVersions int

	group singleflight.Group

	mu    sync.Mutex
	cache map[string]*cacheEntry
}

type cacheEntry struct {
	model    *model.EntityTower
	lastUsed time.Time
}

// LoaderOption Loader 配置选项
type LoaderOption func(*Loader)

// WithLoadTimeout 设置单次加载超时（默认 60s）。
func WithLoadTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) { l.loadTimeout = d }
}

// WithMaxVersions 设置缓存版本数上限（默认 3）。
func WithMaxVersions(n int) LoaderOption {
	return func(l *Loader) { l.maxVersions = n }
}

// NewLoader 创建编码器加载器。
func NewLoader(store artifact.ObjectStore, opts ...LoaderOption) *Loader {
	l := &Loader{
		store:       store,
		loadTimeout: 60 * time.Second,
		maxVersions: 3,
		cache:       make(map[string]*cacheEntry),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Get 返回指定版本的编码器模型。
// 缓存命中时无任何 I/O；未命中时触发至多一次下载与加载。
func (l *Loader) Get(ctx context.Context, version string) (*model.EntityTower, error) {
	if version == "" {
		return nil, core.NewDomainError(core.ModuleEncoder, core.ErrorCodeInvalidInput,
			"encoder: version is empty")
	}

	if m := l.cached(version); m != nil {
		return m, nil
	}

	// singleflight 保证同版本至多一个在途加载；加载使用与调用方
	// 解耦的 context，单个等待者取消不会拖垮其他等待者的加载
	v, err, _ := l.group.Do(version, func() (any, error) {
		if m := l.cached(version); m != nil {
			return m, nil
		}

		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.loadTimeout)
		defer cancel()

		m, err := l.load(loadCtx, version)
		if err != nil {
			return nil, err
		}
		l.put(version, m)
		return m, nil
	})
	if err != nil {
		return nil, err
	}

	// 等待者的 context 已取消时仍然返回取消错误，但加载结果已入缓存
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, core.WrapDomainError(core.ModuleEncoder, core.ErrorCodeUnavailable,
			"encoder: caller cancelled", ctxErr)
	}

	return v.(*model.EntityTower), nil
}

// load 下载并实例化一个版本：先配置后权重，任一步失败都不会留下半成品。
func (l *Loader) load(ctx context.Context, version string) (*model.EntityTower, error) {
	cfgBytes, err := l.fetch(ctx, artifact.EncoderConfigKey(version))
	if err != nil {
		return nil, err
	}
	cfg, err := model.ParseEncoderConfig(cfgBytes)
	if err != nil {
		return nil, err
	}

	weightBytes, err := l.fetch(ctx, artifact.EncoderWeightsKey(version))
	if err != nil {
		return nil, err
	}
	return model.NewEntityTower(cfg, weightBytes)
}

// fetch 把对象内容整体读进内存（权重产物在 MB 量级，不落临时文件）。
func (l *Loader) fetch(ctx context.Context, key string) ([]byte, error) {
	reader, err := l.store.GetObject(ctx, artifact.EncoderBucket, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleEncoder, core.ErrorCodeUnavailable,
			fmt.Sprintf("encoder: read artifact %s", key), err)
	}
	return data, nil
}

// cached 返回缓存中的实例并刷新其访问时间，未命中返回 nil。
func (l *Loader) cached(version string) *model.EntityTower {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.cache[version]
	if !ok {
		return nil
	}
	entry.lastUsed = time.Now()
	return entry.model
}

// put 写入缓存并按 LRU 淘汰超出上限的版本。
func (l *Loader) put(version string, m *model.EntityTower) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cache[version] = &cacheEntry{model: m, lastUsed: time.Now()}

	if l.maxVersions <= 0 {
		return
	}
	for len(l.cache) > l.maxVersions {
		var oldestKey string
		var oldestTime time.Time
		first := true
		for key, entry := range l.cache {
			if first || entry.lastUsed.Before(oldestTime) {
				oldestKey = key
				oldestTime = entry.lastUsed
				first = false
			}
		}
		delete(l.cache, oldestKey)
	}
}

// Len 返回当前缓存的版本数（用于观测/测试）。
func (l *Loader) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cache)
}
