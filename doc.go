// Package recsys 是商品推荐核心：召回引擎 + 行为事件管道。
//
// 两条链路：
//   - 召回：老用户走特征存储的预计算 TopK；新用户走在线
//     Embedding 推理 + 向量近邻检索；文本/图片查询走跨模态
//     Embedding 检索。召回到的物品 ID 统一解析为强类型 Product。
//   - 事件：浏览/加购/购买/评分等行为打包成 {schema, payload}
//     自描述消息，至少一次投递到事件总线，供下游训练管道消费。
//
// HTTP 路由、用户/订单的关系型存储、鉴权、特征存储本体都是外部
// 协作者，不在本仓库范围内。
package recsys
