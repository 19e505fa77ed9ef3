package registry

import "context"

// Resolver 是模型版本解析的领域接口。
//
// 合约：
//   - ActiveVersion 返回注册表中最近更新的一个版本号
//   - 注册表为空返回 NOT_FOUND，注册表不可达返回 UNAVAILABLE
//   - 幂等、无副作用；结果的有效期由调用方自行缓存
//
// 实现：
//   - PostgresResolver 实现此接口
//   - 测试中可用固定版本的 fake 实现
type Resolver interface {
	// ActiveVersion 返回当前生效的编码器模型版本
	ActiveVersion(ctx context.Context) (string, error)

	// Close 释放底层连接
	Close()
}
