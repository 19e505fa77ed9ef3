package filter

import (
	"context"

	"github.com/vinli0921/product-recommender-system/core"
)

// Filter 是商品过滤器的抽象接口，用于判断一个 Product 是否应该被过滤掉。
// 返回 true 表示应该过滤（移除），false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 product 是否应该被过滤。
	// user 为请求上下文中的用户，匿名请求时可能为 nil。
	ShouldFilter(ctx context.Context, user *core.User, product *core.Product) (bool, error)
}

// Apply 依次应用过滤器，返回保留下来的商品。
// 输出保持输入顺序，是输入的子序列；任何过滤器报错则整体失败。
func Apply(ctx context.Context, user *core.User, products []core.Product, filters ...Filter) ([]core.Product, error) {
	if len(filters) == 0 {
		return products, nil
	}

	kept := make([]core.Product, 0, len(products))
	for i := range products {
		drop, err := shouldDrop(ctx, user, &products[i], filters)
		if err != nil {
			return nil, err
		}
		if !drop {
			kept = append(kept, products[i])
		}
	}
	return kept, nil
}

func shouldDrop(ctx context.Context, user *core.User, p *core.Product, filters []Filter) (bool, error) {
	for _, f := range filters {
		drop, err := f.ShouldFilter(ctx, user, p)
		if err != nil {
			return false, core.WrapDomainError(core.ModuleEngine, core.ErrorCodeInternalError,
				"filter: "+f.Name()+" failed", err)
		}
		if drop {
			return true, nil
		}
	}
	return false, nil
}
