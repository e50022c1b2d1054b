package catalog

import (
	"strings"

	"github.com/Knetic/govaluate"
)

// 活动规则可引用的商品字段
var ruleVariables = map[string]struct{}{
	"price":          {},
	"stock":          {},
	"likes_count":    {},
	"views_count":    {},
	"category_id":    {},
	"subcategory_id": {},
}

// ProductRule 编译后的活动规则
// 例：price >= 50 && category_id == 2
type ProductRule struct {
	expr *govaluate.EvaluableExpression
}

// CompileRule 解析规则表达式，只允许引用已知字段
func CompileRule(rule string) (*ProductRule, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return nil, invalidf("rule is required")
	}

	expr, err := govaluate.NewEvaluableExpression(rule)
	if err != nil {
		return nil, invalidf("invalid rule: %v", err)
	}
	for _, v := range expr.Vars() {
		if _, ok := ruleVariables[v]; !ok {
			return nil, invalidf("unknown rule variable %q", v)
		}
	}
	return &ProductRule{expr: expr}, nil
}

// Match 对商品求值，结果必须为布尔值
func (r *ProductRule) Match(p *Product) (bool, error) {
	params := map[string]interface{}{
		"price":          p.Price.InexactFloat64(),
		"stock":          float64(EffectiveStock(p)),
		"likes_count":    float64(p.LikesCount),
		"views_count":    float64(p.ViewsCount),
		"category_id":    float64(0),
		"subcategory_id": float64(0),
	}
	if p.SubCategoryID != nil {
		params["subcategory_id"] = float64(*p.SubCategoryID)
	}
	if p.SubCategory != nil {
		params["category_id"] = float64(p.SubCategory.CategoryID)
	}

	result, err := r.expr.Evaluate(params)
	if err != nil {
		return false, invalidf("evaluate rule: %v", err)
	}
	matched, ok := result.(bool)
	if !ok {
		return false, invalidf("rule must evaluate to a boolean, got %v", result)
	}
	return matched, nil
}
