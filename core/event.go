package core

import "time"

// InteractionType 是用户行为类型。
type InteractionType string

const (
	InteractionPositiveView InteractionType = "positive_view" // 正向浏览
	InteractionNegativeView InteractionType = "negative_view" // 负向浏览（快速跳出等）
	InteractionCart         InteractionType = "cart"          // 加购
	InteractionPurchase     InteractionType = "purchase"      // 购买
	InteractionRate         InteractionType = "rate"          // 评分/评论
)

// Valid 检查行为类型是否为已知枚举值。
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionPositiveView, InteractionNegativeView,
		InteractionCart, InteractionPurchase, InteractionRate:
		return true
	default:
		return false
	}
}

// InteractionEvent 是一次用户行为事件。
// 在行为发生时创建，发布后即不可变，核心不再持有引用。
//
// Rating / Quantity / ReviewTitle / ReviewContent 为可选字段：
// 指针为 nil 表示缺失，发布时序列化为 null / 空串而不是省略字段，
// 以便下游消费者按固定 schema 解析。
type InteractionEvent struct {
	UserID          string
	ItemID          string
	InteractionType InteractionType
	Timestamp       time.Time
	Rating          *int
	Quantity        *int
	ReviewTitle     *string
	ReviewContent   *string

	// InteractionID 由 {user_id, item_id, 发布时刻} 派生的唯一 ID，
	// 由发布器生成，调用方无需填写。
	InteractionID string
}

// NewUserEvent 是新用户注册事件，供下游训练管道生成用户特征。
type NewUserEvent struct {
	UserID      string
	UserName    string
	Preferences string
	SignupDate  time.Time
}
