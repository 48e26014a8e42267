package service

import (
	"testing"

	"github.com/dokan-next/internal/constants"
	"github.com/dokan-next/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleEvaluatorFirstMatchByPriority(t *testing.T) {
	evaluator := NewRuleEvaluator("Rs.")
	rules := []models.PromotionRule{
		{ID: 3, RuleType: constants.RuleTypeAll, Priority: 5},
		{ID: 2, RuleType: constants.RuleTypeProduct, TargetValue: "7, 9", Priority: 1,
			DiscountType: constants.DiscountTypeFixedAmount, DiscountValue: models.NewMoney("40").Ptr()},
		{ID: 1, RuleType: constants.RuleTypeCategory, TargetValue: "4", Priority: 1},
	}
	pc := PurchaseContext{ProductID: 9, CategoryID: 2, UnitPrice: decimal.NewFromInt(300), Quantity: 1, OrderTotal: decimal.NewFromInt(300)}

	evaluation := evaluator.Evaluate(rules, pc)
	require.True(t, evaluation.HasMatch())
	assert.Equal(t, uint(2), evaluation.Matched.RuleID)
	assert.True(t, evaluation.Matched.Rule().OverridesDiscount())
	require.Len(t, evaluation.Failed, 1)
	assert.Equal(t, uint(1), evaluation.Failed[0].RuleID)
	assert.Equal(t, constants.RuleTypeCategory, evaluation.Failed[0].RuleType)
}

func TestRuleEvaluatorMinOrderSuggestion(t *testing.T) {
	evaluator := NewRuleEvaluator("Rs.")
	rules := []models.PromotionRule{
		{ID: 1, RuleType: constants.RuleTypeAll, MinOrderValue: models.NewMoney("1000").Ptr()},
	}
	pc := PurchaseContext{ProductID: 1, UnitPrice: decimal.NewFromInt(750), Quantity: 1, OrderTotal: decimal.NewFromInt(750)}

	evaluation := evaluator.Evaluate(rules, pc)
	assert.False(t, evaluation.HasMatch())
	require.Len(t, evaluation.Failed, 1)
	assert.Equal(t, "add Rs. 250.00 more to unlock", evaluation.Failed[0].Suggestion)
}

func TestRuleEvaluatorPredicates(t *testing.T) {
	evaluator := NewRuleEvaluator("Rs.")
	base := PurchaseContext{
		ProductID:     11,
		CategoryID:    3,
		UnitPrice:     decimal.NewFromInt(250),
		Quantity:      1,
		OrderTotal:    decimal.NewFromInt(250),
		PaymentMethod: "ESEWA",
		Region:        "Bagmati",
	}
	cases := []struct {
		name   string
		rule   models.PromotionRule
		pc     PurchaseContext
		expect bool
	}{
		{"price range inside", models.PromotionRule{RuleType: constants.RuleTypePriceRange, TargetValue: "100-500"}, base, true},
		{"price range inclusive upper", models.PromotionRule{RuleType: constants.RuleTypePriceRange, TargetValue: "100-250"}, base, true},
		{"price range open upper", models.PromotionRule{RuleType: constants.RuleTypePriceRange, TargetValue: "300-"}, base, false},
		{"price range open lower", models.PromotionRule{RuleType: constants.RuleTypePriceRange, TargetValue: "-300"}, base, true},
		{"price range reversed", models.PromotionRule{RuleType: constants.RuleTypePriceRange, TargetValue: "500-100"}, base, false},
		{"payment method folded", models.PromotionRule{RuleType: constants.RuleTypePaymentMethod, TargetValue: "cod, eSewa"}, base, true},
		{"payment method missing", models.PromotionRule{RuleType: constants.RuleTypePaymentMethod, TargetValue: "cod"}, PurchaseContext{ProductID: 11}, false},
		{"geography match", models.PromotionRule{RuleType: constants.RuleTypeGeography, TargetValue: "bagmati,gandaki"}, base, true},
		{"geography miss", models.PromotionRule{RuleType: constants.RuleTypeGeography, TargetValue: "koshi"}, base, false},
		{"category list", models.PromotionRule{RuleType: constants.RuleTypeCategory, TargetValue: "1,3"}, base, true},
		{"unknown type", models.PromotionRule{RuleType: "weekday", TargetValue: "mon"}, base, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			evaluation := evaluator.Evaluate([]models.PromotionRule{tc.rule}, tc.pc)
			assert.Equal(t, tc.expect, evaluation.HasMatch())
		})
	}
}

func TestDiscountLabel(t *testing.T) {
	assert.Equal(t, "10% OFF", DiscountLabel(constants.DiscountTypePercentage, models.NewMoney("10"), "Rs."))
	assert.Equal(t, "12.5% OFF", DiscountLabel(constants.DiscountTypePercentage, models.NewMoney("12.50"), "Rs."))
	assert.Equal(t, "Rs. 1,500.00 OFF", DiscountLabel(constants.DiscountTypeFixedAmount, models.NewMoney("1500"), "Rs."))
	assert.Equal(t, "FREE SHIPPING", DiscountLabel(constants.DiscountTypeFreeShipping, models.Money{}, "Rs."))
	assert.Equal(t, "BUY 1 GET 1", DiscountLabel(constants.DiscountTypeBuyOneGetOne, models.Money{}, "Rs."))
}
