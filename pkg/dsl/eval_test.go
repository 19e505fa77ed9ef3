package dsl

import (
	"testing"

	"github.com/vinli0921/product-recommender-system/core"
)

func TestRule_Matches(t *testing.T) {
	product := &core.Product{
		ItemID:      "B001",
		ProductName: "USB-C Cable",
		Category:    "Electronics|Cables",
		ActualPrice: 399,
		Rating:      4.3,
		RatingCount: 1210,
	}
	user := &core.User{UserID: "u1", Age: 27, Gender: "F"}

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"price comparison true", "product.actual_price > 100.0", true},
		{"price comparison false", "product.actual_price > 1000.0", false},
		{"string equality", `product.category == "Electronics|Cables"`, true},
		{"contains", `product.category.contains("Cables")`, true},
		{"conjunction", `product.rating >= 4.0 && product.rating_count > 1000.0`, true},
		{"user field", "user.age < 30.0", true},
		{"mixed user and product", `user.gender == "F" && product.actual_price < 500.0`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := NewRule(tt.expr)
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			got, err := rule.Matches(product, user)
			if err != nil {
				t.Fatalf("eval: %v", err)
			}
			if got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestNewRule_CompileError(t *testing.T) {
	if _, err := NewRule("product.actual_price >"); err == nil {
		t.Error("expected compile error")
	}
}

func TestRule_NonBooleanResult(t *testing.T) {
	rule, err := NewRule("product.actual_price")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if _, err := rule.Matches(&core.Product{ActualPrice: 1}, nil); err == nil {
		t.Error("expected error for non-boolean expression")
	}
}

func TestRule_NilProduct(t *testing.T) {
	rule, err := NewRule(`user.user_id == "u1"`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got, err := rule.Matches(nil, &core.User{UserID: "u1"})
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	if !got {
		t.Error("user-only rule should evaluate with nil product")
	}
}
