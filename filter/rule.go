package filter

import (
	"context"

	"github.com/vinli0921/product-recommender-system/core"
	"github.com/vinli0921/product-recommender-system/pkg/dsl"
)

// RuleFilter 是基于 CEL 规则表达式的过滤器。
// 表达式命中（返回 true）的商品会被过滤掉，例如：
//   - `product.actual_price > 10000.0`
//   - `product.rating < 2.0 && product.rating_count > 100.0`
//
// 表达式语法见 pkg/dsl。
type RuleFilter struct {
	rule *dsl.Rule
}

var _ Filter = (*RuleFilter)(nil)

// NewRuleFilter 编译表达式并创建规则过滤器。
// 表达式非法时返回 INVALID_INPUT。
func NewRuleFilter(expr string) (*RuleFilter, error) {
	rule, err := dsl.NewRule(expr)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput,
			"filter: invalid rule expression", err)
	}
	return &RuleFilter{rule: rule}, nil
}

func (f *RuleFilter) Name() string {
	return "filter.rule(" + f.rule.Expr() + ")"
}

func (f *RuleFilter) ShouldFilter(_ context.Context, user *core.User, product *core.Product) (bool, error) {
	if product == nil {
		return true, nil
	}
	return f.rule.Matches(product, user)
}
