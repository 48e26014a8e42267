package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dokan-next/internal/constants"
	"github.com/dokan-next/internal/models"

	"github.com/shopspring/decimal"
)

// PurchaseContext 规则评估所需的购买上下文
type PurchaseContext struct {
	ProductID     uint
	CategoryID    uint
	UnitPrice     decimal.Decimal
	Quantity      int
	OrderTotal    decimal.Decimal
	PaymentMethod string
	Region        string
}

// AppliedRule 命中的规则及其生效的折扣参数
type AppliedRule struct {
	RuleID            uint    `json:"rule_id"`
	RuleType          string  `json:"rule_type"`
	DiscountType      string  `json:"discount_type,omitempty"`
	DiscountValue     *string `json:"discount_value,omitempty"`
	MaxDiscountAmount *string `json:"max_discount_amount,omitempty"`

	rule *models.PromotionRule
}

// Rule 命中的规则模型
func (a *AppliedRule) Rule() *models.PromotionRule {
	if a == nil {
		return nil
	}
	return a.rule
}

// FailedRule 未命中的规则及原因
type FailedRule struct {
	RuleID     uint   `json:"rule_id"`
	RuleType   string `json:"rule_type"`
	Reason     string `json:"reason"`
	Suggestion string `json:"suggestion,omitempty"`
}

// RuleEvaluation 规则评估结果
type RuleEvaluation struct {
	Matched *AppliedRule
	Applied []AppliedRule
	Failed  []FailedRule
}

// HasMatch 是否有规则命中
func (e RuleEvaluation) HasMatch() bool {
	return e.Matched != nil
}

// RuleEvaluator 活动规则评估器
type RuleEvaluator struct {
	currencySymbol string
}

// NewRuleEvaluator 创建规则评估器
func NewRuleEvaluator(currencySymbol string) *RuleEvaluator {
	if strings.TrimSpace(currencySymbol) == "" {
		currencySymbol = "Rs."
	}
	return &RuleEvaluator{currencySymbol: currencySymbol}
}

// Evaluate 按优先级升序评估规则，第一条满足条件的规则生效
func (e *RuleEvaluator) Evaluate(rules []models.PromotionRule, pc PurchaseContext) RuleEvaluation {
	result := RuleEvaluation{}
	if len(rules) == 0 {
		return result
	}

	ordered := make([]models.PromotionRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority < ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})

	for i := range ordered {
		rule := &ordered[i]
		matched, reason := e.matchPredicate(rule, pc)
		if !matched {
			result.Failed = append(result.Failed, FailedRule{
				RuleID:   rule.ID,
				RuleType: rule.RuleType,
				Reason:   reason,
			})
			continue
		}
		if rule.MinOrderValue != nil && rule.MinOrderValue.IsPositive() && pc.OrderTotal.LessThan(rule.MinOrderValue.Decimal) {
			shortfall := models.NewMoneyFromDecimal(rule.MinOrderValue.Decimal.Sub(pc.OrderTotal))
			result.Failed = append(result.Failed, FailedRule{
				RuleID:     rule.ID,
				RuleType:   rule.RuleType,
				Reason:     fmt.Sprintf("order total below minimum of %s", rule.MinOrderValue.Format(e.currencySymbol)),
				Suggestion: fmt.Sprintf("add %s more to unlock", shortfall.Format(e.currencySymbol)),
			})
			continue
		}

		applied := toAppliedRule(rule)
		result.Matched = &applied
		result.Applied = append(result.Applied, applied)
		return result
	}
	return result
}

func toAppliedRule(rule *models.PromotionRule) AppliedRule {
	applied := AppliedRule{
		RuleID:   rule.ID,
		RuleType: rule.RuleType,
		rule:     rule,
	}
	if rule.OverridesDiscount() {
		applied.DiscountType = rule.DiscountType
		value := rule.DiscountValue.String()
		applied.DiscountValue = &value
	}
	if rule.MaxDiscountAmount != nil {
		value := rule.MaxDiscountAmount.String()
		applied.MaxDiscountAmount = &value
	}
	return applied
}

func (e *RuleEvaluator) matchPredicate(rule *models.PromotionRule, pc PurchaseContext) (bool, string) {
	target := strings.TrimSpace(rule.TargetValue)
	switch strings.ToLower(strings.TrimSpace(rule.RuleType)) {
	case constants.RuleTypeAll:
		return true, ""
	case constants.RuleTypeCategory:
		if containsID(target, pc.CategoryID) {
			return true, ""
		}
		return false, "product category not covered by rule"
	case constants.RuleTypeProduct:
		if containsID(target, pc.ProductID) {
			return true, ""
		}
		return false, "product not covered by rule"
	case constants.RuleTypePriceRange:
		low, high, ok := parsePriceRange(target)
		if !ok {
			return false, "price range rule is malformed"
		}
		if low != nil && pc.UnitPrice.LessThan(*low) {
			return false, fmt.Sprintf("price below %s", models.NewMoneyFromDecimal(*low).Format(e.currencySymbol))
		}
		if high != nil && pc.UnitPrice.GreaterThan(*high) {
			return false, fmt.Sprintf("price above %s", models.NewMoneyFromDecimal(*high).Format(e.currencySymbol))
		}
		return true, ""
	case constants.RuleTypePaymentMethod:
		if pc.PaymentMethod == "" {
			return false, "payment method not selected"
		}
		if containsFold(target, pc.PaymentMethod) {
			return true, ""
		}
		return false, fmt.Sprintf("available only with %s", target)
	case constants.RuleTypeGeography:
		if pc.Region == "" {
			return false, "delivery region unknown"
		}
		if containsFold(target, pc.Region) {
			return true, ""
		}
		return false, "delivery region not covered by rule"
	default:
		return false, "unknown rule type"
	}
}

func splitTargets(target string) []string {
	parts := strings.Split(target, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsID(target string, id uint) bool {
	if id == 0 {
		return false
	}
	for _, part := range splitTargets(target) {
		parsed, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			continue
		}
		if uint(parsed) == id {
			return true
		}
	}
	return false
}

func containsFold(target, value string) bool {
	value = strings.TrimSpace(value)
	for _, part := range splitTargets(target) {
		if strings.EqualFold(part, value) {
			return true
		}
	}
	return false
}

// parsePriceRange 解析 "min-max"、"min-"、"-max"，边界包含
func parsePriceRange(target string) (*decimal.Decimal, *decimal.Decimal, bool) {
	lowRaw, highRaw, found := strings.Cut(target, "-")
	if !found {
		return nil, nil, false
	}
	lowRaw = strings.TrimSpace(lowRaw)
	highRaw = strings.TrimSpace(highRaw)
	if lowRaw == "" && highRaw == "" {
		return nil, nil, false
	}

	var low, high *decimal.Decimal
	if lowRaw != "" {
		d, err := decimal.NewFromString(lowRaw)
		if err != nil {
			return nil, nil, false
		}
		low = &d
	}
	if highRaw != "" {
		d, err := decimal.NewFromString(highRaw)
		if err != nil {
			return nil, nil, false
		}
		high = &d
	}
	if low != nil && high != nil && low.GreaterThan(*high) {
		return nil, nil, false
	}
	return low, high, true
}

// DiscountLabel 折扣展示文案
func DiscountLabel(discountType string, value models.Money, currencySymbol string) string {
	switch discountType {
	case constants.DiscountTypePercentage:
		return value.Decimal.Round(2).String() + "% OFF"
	case constants.DiscountTypeFixedAmount:
		return value.Format(currencySymbol) + " OFF"
	case constants.DiscountTypeFreeShipping:
		return "FREE SHIPPING"
	case constants.DiscountTypeBuyOneGetOne:
		return "BUY 1 GET 1"
	default:
		return ""
	}
}
