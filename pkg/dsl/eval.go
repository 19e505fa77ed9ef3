// Package dsl 提供基于 CEL (Common Expression Language) 的商品规则表达式。
// 规则在过滤阶段对已解析的 Product 求值，决定其去留。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/vinli0921/product-recommender-system/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		cel.Variable("product", cel.DynType),
		cel.Variable("user", cel.DynType),
	)
	return env, err
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = initCELEnv()
	})
	return celEnv, err
}

// Rule 是编译好的商品规则，可被并发复用。
//
// 表达式语法（CEL 标准语法）：
//   - 数值：product.discounted_price > 500.0
//   - 字符串：product.category == "Electronics"
//   - 逻辑：product.rating < 2.0 && product.rating_count > 100.0
//   - 包含：product.category.contains("Cables")
//   - 结合用户：user.age < 18.0 && product.category == "Alcohol"
//
// 示例：
//   - `product.actual_price > 10000.0` → 过滤高价商品
//   - `product.rating_count == 0.0` → 过滤无评价商品
type Rule struct {
	expr string
	prg  cel.Program
}

// NewRule 编译一条规则表达式。
// 编译只发生一次，Matches 可以被任意并发调用。
func NewRule(expr string) (*Rule, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, issues.Err())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program %q: %w", expr, err)
	}

	return &Rule{expr: expr, prg: prg}, nil
}

// Expr 返回规则的原始表达式文本。
func (r *Rule) Expr() string {
	return r.expr
}

// Matches 对单个商品求值，返回表达式结果。
// 表达式必须返回布尔值，否则报错。
func (r *Rule) Matches(product *core.Product, user *core.User) (bool, error) {
	out, _, err := r.prg.Eval(buildInput(product, user))
	if err != nil {
		return false, fmt.Errorf("eval %q: %w", r.expr, err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %q must return boolean, got %T", r.expr, out.Value())
	}
	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据。
// 数值字段统一为 float64，表达式里请写浮点字面量（如 100.0）。
func buildInput(product *core.Product, user *core.User) map[string]interface{} {
	p := map[string]interface{}{}
	if product != nil {
		p = map[string]interface{}{
			"item_id":             product.ItemID,
			"product_name":        product.ProductName,
			"category":            product.Category,
			"about_product":       product.AboutProduct,
			"img_link":            product.ImgLink,
			"product_link":        product.ProductLink,
			"discount_percentage": product.DiscountPercentage,
			"discounted_price":    product.DiscountedPrice,
			"actual_price":        product.ActualPrice,
			"rating":              product.Rating,
			"rating_count":        float64(product.RatingCount),
		}
	}

	u := map[string]interface{}{}
	if user != nil {
		u = map[string]interface{}{
			"user_id":     user.UserID,
			"email":       user.Email,
			"age":         float64(user.Age),
			"gender":      user.Gender,
			"preferences": user.Preferences,
		}
	}

	return map[string]interface{}{
		"product": p,
		"user":    u,
	}
}
