package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vinli0921/product-recommender-system/core"
)

// 事件总线的两个固定主题。
const (
	TopicInteractions = "interactions"
	TopicNewUsers     = "new-users"
)

// timestampLayout 与训练侧的时间戳解析格式一致（日期与时间以空格分隔）。
const timestampLayout = "2006-01-02 15:04:05.000000"

// BusClient 是事件总线生产者的抽象接口（不直接依赖具体 SDK，支持依赖注入）。
//
// 合约：Produce 返回 nil 当且仅当 broker 已确认接收该消息
// （同步 flush 语义）；投递保证为至少一次，不保证有序与去重。
//
// 实现：
//   - KafkaBus 实现此接口（franz-go 生产者）
//   - 测试中可用内存 fake 实现
type BusClient interface {
	// Produce 同步投递一条消息，阻塞到 broker 确认
	Produce(ctx context.Context, topic string, value []byte) error

	// Close 关闭生产者，释放连接
	Close() error
}

// Publisher 把用户行为与新用户注册转换为 {schema, payload} 消息
// 并投递到事件总线。
//
// 设计原则：
//   - 同步 flush：返回 nil 即 broker 已接收，换取更简单的失败契约
//   - 发布失败映射为 PUBLISH_FAILED，内部绝不重试（重试归调用方）
//   - 可选字段缺省为 null / 空串而不是省略，schema 恒定
type Publisher struct {
	bus     BusClient
	timeout time.Duration

	// now 可注入的时钟（测试用）
	now func() time.Time
}

// PublisherOption Publisher 配置选项
type PublisherOption func(*Publisher)

// WithPublishTimeout 设置单次投递超时（默认 10s）。
func WithPublishTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) { p.timeout = d }
}

// WithClock 注入时钟（测试用）。
func WithClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) { p.now = now }
}

// NewPublisher 创建事件发布器。
func NewPublisher(bus BusClient, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		bus:     bus,
		timeout: 10 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishInteraction 发布一次用户行为事件。
// 返回发布器生成的 interaction_id；broker 未确认时返回 PUBLISH_FAILED。
func (p *Publisher) PublishInteraction(ctx context.Context, evt core.InteractionEvent) (string, error) {
	if evt.UserID == "" || evt.ItemID == "" {
		return "", core.NewDomainError(core.ModuleEvent, core.ErrorCodeInvalidInput,
			"event: user_id and item_id are required")
	}
	if !evt.InteractionType.Valid() {
		return "", core.NewDomainError(core.ModuleEvent, core.ErrorCodeInvalidInput,
			fmt.Sprintf("event: unknown interaction type %q", evt.InteractionType))
	}

	now := p.now().UTC()
	ts := evt.Timestamp
	if ts.IsZero() {
		ts = now
	}

	// interaction_id 由 {user_id, item_id, 发布时刻} 派生
	interactionID := fmt.Sprintf("%s-%s-%d", evt.UserID, evt.ItemID, now.UnixNano())

	payload := map[string]any{
		"user_id":          evt.UserID,
		"item_id":          evt.ItemID,
		"timestamp":        ts.Format(timestampLayout),
		"interaction_type": string(evt.InteractionType),
		"rating":           optionalInt(evt.Rating),
		"quantity":         optionalInt(evt.Quantity),
		"review_title":     optionalString(evt.ReviewTitle),
		"review_content":   optionalString(evt.ReviewContent),
		"interaction_id":   interactionID,
	}

	if err := p.send(ctx, TopicInteractions, interactionSchema(), payload); err != nil {
		return "", err
	}
	return interactionID, nil
}

// PublishNewUser 发布新用户注册事件。
func (p *Publisher) PublishNewUser(ctx context.Context, evt core.NewUserEvent) error {
	if evt.UserID == "" {
		return core.NewDomainError(core.ModuleEvent, core.ErrorCodeInvalidInput,
			"event: user_id is required")
	}

	signup := evt.SignupDate
	if signup.IsZero() {
		signup = p.now().UTC()
	}

	payload := map[string]any{
		"user_id":     evt.UserID,
		"user_name":   evt.UserName,
		"preferences": evt.Preferences,
		"signup_date": signup.Format(timestampLayout),
	}

	return p.send(ctx, TopicNewUsers, newUserSchema(), payload)
}

// send 序列化 {schema, payload} 并同步投递。
func (p *Publisher) send(ctx context.Context, topic string, schema Schema, payload map[string]any) error {
	value, err := json.Marshal(Envelope{Schema: schema, Payload: payload})
	if err != nil {
		return core.WrapDomainError(core.ModuleEvent, core.ErrorCodeInternalError,
			"event: marshal envelope", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.bus.Produce(ctx, topic, value); err != nil {
		return core.WrapDomainError(core.ModuleEvent, core.ErrorCodePublishFailed,
			fmt.Sprintf("event: publish to %q", topic), err)
	}
	return nil
}

// optionalInt 把可选整数编码为值或 null（字段恒在，不省略）。
func optionalInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

// optionalString 把可选字符串编码为值或空串。
func optionalString(v *string) any {
	if v == nil {
		return ""
	}
	return *v
}
