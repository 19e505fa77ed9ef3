package core

import (
	"fmt"
	"strconv"
)

// Product 是商品的只读投影，字段来自外部特征存储的特征行。
//
// 设计要点：
//   - 本核心只读取、从不修改 Product（特征写入由离线管道负责）
//   - 字段显式枚举，禁止鸭子类型式的动态属性访问
//   - 可选字段使用零值表示缺失（价格/评分为 0，链接为空串）
type Product struct {
	ItemID             string  // 物品 ID，与外部存储的实体键类型一致
	ProductName        string  // 商品名称
	Category           string  // 类目
	AboutProduct       string  // 商品描述（可选）
	ImgLink            string  // 图片链接（可选）
	DiscountPercentage float64 // 折扣百分比（可选）
	DiscountedPrice    float64 // 折后价（可选）
	ActualPrice        float64 // 原价
	ProductLink        string  // 商品链接（可选）
	RatingCount        int64   // 评分人数（可选）
	Rating             float64 // 平均评分（可选）
}

// FeatureRow 是特征存储返回的单行特征：特征名 -> 特征值。
// 行的顺序不保证与请求实体顺序一致，调用方必须按实体键自行关联。
type FeatureRow map[string]any

// ProductFromRow 将一行特征映射为强类型的 Product。
//
// 必填字段（item_id、product_name、category、actual_price）缺失或类型
// 不符时返回错误，而不是静默填 nil；可选字段缺失时取零值。
func ProductFromRow(row FeatureRow) (Product, error) {
	var p Product

	id, ok := rowString(row, "item_id")
	if !ok {
		return p, fmt.Errorf("feature row missing item_id: %v", row)
	}
	name, ok := rowString(row, "product_name")
	if !ok {
		return p, fmt.Errorf("feature row %q missing product_name", id)
	}
	category, ok := rowString(row, "category")
	if !ok {
		return p, fmt.Errorf("feature row %q missing category", id)
	}
	price, ok := rowFloat(row, "actual_price")
	if !ok {
		return p, fmt.Errorf("feature row %q missing actual_price", id)
	}

	p.ItemID = id
	p.ProductName = name
	p.Category = category
	p.ActualPrice = price

	// 可选字段：缺失时保持零值
	p.AboutProduct, _ = rowString(row, "about_product")
	p.ImgLink, _ = rowString(row, "img_link")
	p.ProductLink, _ = rowString(row, "product_link")
	p.DiscountPercentage, _ = rowFloat(row, "discount_percentage")
	p.DiscountedPrice, _ = rowFloat(row, "discounted_price")
	p.Rating, _ = rowFloat(row, "rating")
	if n, ok := rowFloat(row, "rating_count"); ok {
		p.RatingCount = int64(n)
	}

	return p, nil
}

// rowString 从特征行中提取字符串值。
// 整数型 ID（部分存储后端把 item_id 存成 int64）会被转成十进制字符串。
func rowString(row FeatureRow, key string) (string, bool) {
	v, ok := row[key]
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case []byte:
		return string(val), true
	case int:
		return strconv.Itoa(val), true
	case int32:
		return strconv.FormatInt(int64(val), 10), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		// 浮点承载的整型 ID（JSON 解码的常见形态）
		return strconv.FormatInt(int64(val), 10), true
	default:
		return "", false
	}
}

// rowFloat 从特征行中提取数值。
func rowFloat(row FeatureRow, key string) (float64, bool) {
	v, ok := row[key]
	if !ok || v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
