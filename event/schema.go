package event

// 每条消息都随 payload 携带一份自描述 schema，下游消费者只依赖
// {schema, payload} 对解析，schema 演进不需要与代码部署同步。
// schema 的版本独立于 payload 数据递增。

// SchemaField 描述 payload 中的一个字段。
type SchemaField struct {
	Field    string `json:"field"`
	Type     string `json:"type"`
	Optional bool   `json:"optional"`
	Format   string `json:"format,omitempty"`
}

// Schema 是消息 payload 的结构描述。
type Schema struct {
	Type     string        `json:"type"`
	Fields   []SchemaField `json:"fields"`
	Optional bool          `json:"optional"`
	Name     string        `json:"name"`
	Version  int           `json:"version"`
}

// Envelope 是投递到事件总线的完整消息：schema 与 payload 成对出现。
type Envelope struct {
	Schema  Schema         `json:"schema"`
	Payload map[string]any `json:"payload"`
}

// interactionSchemaVersion / newUserSchemaVersion 随字段集合演进递增。
const (
	interactionSchemaVersion = 1
	newUserSchemaVersion     = 1
)

// interactionSchema 构建行为事件的 schema。
func interactionSchema() Schema {
	return Schema{
		Type: "struct",
		Fields: []SchemaField{
			{Field: "user_id", Type: "string", Optional: false},
			{Field: "item_id", Type: "string", Optional: false},
			{Field: "timestamp", Type: "string", Optional: false, Format: "timestamp"},
			{Field: "interaction_type", Type: "string", Optional: false},
			{Field: "rating", Type: "float64", Optional: true},
			{Field: "quantity", Type: "float64", Optional: true},
			{Field: "interaction_id", Type: "string", Optional: false},
			{Field: "review_title", Type: "string", Optional: true},
			{Field: "review_content", Type: "string", Optional: true},
		},
		Optional: false,
		Name:     "interaction",
		Version:  interactionSchemaVersion,
	}
}

// newUserSchema 构建新用户事件的 schema。
func newUserSchema() Schema {
	return Schema{
		Type: "struct",
		Fields: []SchemaField{
			{Field: "user_id", Type: "string", Optional: false},
			{Field: "user_name", Type: "string", Optional: false},
			{Field: "preferences", Type: "string", Optional: false},
			{Field: "signup_date", Type: "string", Optional: false, Format: "timestamp"},
		},
		Optional: false,
		Name:     "new-users",
		Version:  newUserSchemaVersion,
	}
}
