package filter

import (
	"context"
	"strings"

	"github.com/vinli0921/product-recommender-system/core"
)

// CategoryFilter 是类目黑名单过滤器，过滤掉命中黑名单类目的商品。
// 商品类目是 "A|B|C" 形态的层级路径，任意一级命中即过滤。
type CategoryFilter struct {
	blocked map[string]struct{}
}

var _ Filter = (*CategoryFilter)(nil)

// NewCategoryFilter 创建类目黑名单过滤器。
func NewCategoryFilter(categories []string) *CategoryFilter {
	blocked := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		if c = strings.TrimSpace(c); c != "" {
			blocked[c] = struct{}{}
		}
	}
	return &CategoryFilter{blocked: blocked}
}

func (f *CategoryFilter) Name() string {
	return "filter.category"
}

func (f *CategoryFilter) ShouldFilter(_ context.Context, _ *core.User, product *core.Product) (bool, error) {
	if product == nil {
		return true, nil
	}
	if len(f.blocked) == 0 {
		return false, nil
	}
	for _, level := range strings.Split(product.Category, "|") {
		if _, ok := f.blocked[strings.TrimSpace(level)]; ok {
			return true, nil
		}
	}
	return false, nil
}
