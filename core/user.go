package core

import "time"

// User 是冷启动召回的输入特征载体。
//
// 本核心从不持久化 User（用户表由外部 CRUD 层负责），只把它的
// 数值/类别字段喂给用户编码器生成 Embedding。
//
// 新用户 / 老用户的判定是调用方显式传入的事实（老用户走预计算 TopK，
// 新用户走在线编码），不要从 ID 形态推断。
type User struct {
	UserID      string    // 用户 ID
	Email       string    // 邮箱（仅透传，不参与编码）
	Age         int       // 年龄
	Gender      string    // 性别：male / female / unknown
	Preferences string    // 偏好标签（自由文本，逗号分隔）
	SignupDate  time.Time // 注册时间
}
