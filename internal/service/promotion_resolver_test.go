package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dokan-next/internal/constants"
	"github.com/dokan-next/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectivePriceWithoutEvent(t *testing.T) {
	env := newServiceTestEnv(t)
	product := env.seedProduct(t, 1, "1000", "800", 5)

	info, err := env.resolver.GetEffectivePrice(context.Background(), product.ID, 0)
	require.NoError(t, err)
	assert.False(t, info.HasEvent)
	assert.Equal(t, "800.00", info.BasePrice.String())
	assert.Equal(t, "200.00", info.ProductDiscountAmount.String())
	assert.Equal(t, "800.00", info.EffectivePrice.String())
	assert.Equal(t, "20", info.TotalDiscountPercent.String())
	assert.Equal(t, "Rs. 800.00", info.FormattedPrice)
	assert.False(t, info.Degraded)
}

func TestEffectivePriceCappedPercentageEvent(t *testing.T) {
	env := newServiceTestEnv(t)
	product := env.seedProduct(t, 1, "1000", "800", 5)
	env.seedEvent(t, models.PromotionalEvent{
		Name:              "Dashain Sale",
		DiscountType:      constants.DiscountTypePercentage,
		DiscountValue:     models.NewMoney("10"),
		MaxDiscountAmount: models.NewMoney("50").Ptr(),
		Priority:          1,
	})

	info, err := env.resolver.GetEffectivePrice(context.Background(), product.ID, 0)
	require.NoError(t, err)
	require.True(t, info.HasEvent)
	assert.Equal(t, "Dashain Sale", info.EventName)
	assert.Equal(t, "50.00", info.EventDiscountAmount.String())
	assert.Equal(t, "750.00", info.EffectivePrice.String())
	assert.Equal(t, "250.00", info.TotalDiscountAmount.String())
	assert.Equal(t, "25", info.TotalDiscountPercent.String())
	assert.Equal(t, "10% OFF", info.DiscountLabel)
	assert.Equal(t, "Rs. 750.00", info.FormattedPrice)
	require.NotNil(t, info.EventEndsAt)
	assert.Equal(t, 345*60, offsetOf(*info.EventEndsAt))
	assert.Equal(t, "3d 0h", info.TimeRemaining)
	assert.False(t, info.ExpiringSoon)
}

func offsetOf(t time.Time) int {
	_, offset := t.Zone()
	return offset
}

func TestEffectivePriceFixedDiscountNeverNegative(t *testing.T) {
	env := newServiceTestEnv(t)
	product := env.seedProduct(t, 1, "100", "", 5)
	env.seedEvent(t, models.PromotionalEvent{
		DiscountType:  constants.DiscountTypeFixedAmount,
		DiscountValue: models.NewMoney("150"),
	})

	info, err := env.resolver.GetEffectivePrice(context.Background(), product.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "100.00", info.EventDiscountAmount.String())
	assert.Equal(t, "0.00", info.EffectivePrice.String())
	assert.Equal(t, "100", info.TotalDiscountPercent.String())
}

func TestEffectivePriceTieBreakPrefersLowerID(t *testing.T) {
	env := newServiceTestEnv(t)
	product := env.seedProduct(t, 1, "1000", "", 5)
	first := env.seedEvent(t, models.PromotionalEvent{
		Name:          "first",
		DiscountType:  constants.DiscountTypeFixedAmount,
		DiscountValue: models.NewMoney("100"),
		Priority:      3,
	})
	env.seedEvent(t, models.PromotionalEvent{
		Name:          "second",
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: models.NewMoney("10"),
		Priority:      3,
	})

	info, err := env.resolver.GetEffectivePrice(context.Background(), product.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, info.EventID)
	assert.Equal(t, first.ID, *info.EventID)
}

func TestEffectivePricePriorityBeatsLargerDiscount(t *testing.T) {
	env := newServiceTestEnv(t)
	product := env.seedProduct(t, 1, "1000", "", 5)
	env.seedEvent(t, models.PromotionalEvent{
		Name:          "big",
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: models.NewMoney("40"),
		Priority:      1,
	})
	env.seedEvent(t, models.PromotionalEvent{
		Name:          "priority",
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: models.NewMoney("5"),
		Priority:      9,
	})

	info, err := env.resolver.GetEffectivePrice(context.Background(), product.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "priority", info.EventName)
	assert.Equal(t, "950.00", info.EffectivePrice.String())
}

func TestEffectivePriceWindowBoundaries(t *testing.T) {
	env := newServiceTestEnv(t)
	product := env.seedProduct(t, 1, "1000", "", 5)
	now := env.clock.Now()
	start := now
	end := now.Add(time.Hour)
	env.seedEvent(t, models.PromotionalEvent{
		StartsAt:      &start,
		EndsAt:        &end,
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: models.NewMoney("10"),
	})
	ctx := context.Background()

	info, err := env.resolver.GetEffectivePrice(ctx, product.ID, 0)
	require.NoError(t, err)
	assert.True(t, info.HasEvent, "event applies at its start instant")
	assert.True(t, info.ExpiringSoon)

	env.clock.Set(end.Add(-time.Nanosecond))
	info, err = env.resolver.GetEffectivePrice(ctx, product.ID, 0)
	require.NoError(t, err)
	assert.True(t, info.HasEvent)

	env.clock.Set(end)
	info, err = env.resolver.GetEffectivePrice(ctx, product.ID, 0)
	require.NoError(t, err)
	assert.False(t, info.HasEvent, "event excluded at its end instant")

	env.clock.Set(start.Add(-time.Second))
	info, err = env.resolver.GetEffectivePrice(ctx, product.ID, 0)
	require.NoError(t, err)
	assert.False(t, info.HasEvent)
}

func TestEffectivePriceSkipsUntargetedAndExhaustedEvents(t *testing.T) {
	env := newServiceTestEnv(t)
	product := env.seedProduct(t, 1, "1000", "", 5)
	env.seedEvent(t, models.PromotionalEvent{
		Name:          "other product",
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: models.NewMoney("30"),
		ProductIDs:    models.UintArray{product.ID + 100},
	})
	env.seedEvent(t, models.PromotionalEvent{
		Name:          "exhausted",
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: models.NewMoney("20"),
		MaxTotalUsage: 2,
		CurrentUsage:  2,
	})
	env.seedEvent(t, models.PromotionalEvent{
		Name:          "paused",
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: models.NewMoney("25"),
		Status:        constants.EventStatusPaused,
	})

	info, err := env.resolver.GetEffectivePrice(context.Background(), product.ID, 0)
	require.NoError(t, err)
	assert.False(t, info.HasEvent)
	assert.Equal(t, "1000.00", info.EffectivePrice.String())
}

func TestEffectivePricePerUserLimit(t *testing.T) {
	env := newServiceTestEnv(t)
	ctx := context.Background()
	product := env.seedProduct(t, 1, "1000", "", 5)
	event := env.seedEvent(t, models.PromotionalEvent{
		DiscountType:    constants.DiscountTypePercentage,
		DiscountValue:   models.NewMoney("10"),
		MaxUsagePerUser: 1,
	})

	require.NoError(t, env.usage.RecordUsage(ctx, event.ID, 7, "order-1", models.NewMoney("100")))

	used, err := env.resolver.GetEffectivePrice(ctx, product.ID, 7)
	require.NoError(t, err)
	assert.False(t, used.HasEvent)

	fresh, err := env.resolver.GetEffectivePrice(ctx, product.ID, 8)
	require.NoError(t, err)
	assert.True(t, fresh.HasEvent)
	assert.Equal(t, "900.00", fresh.EffectivePrice.String())
}

func TestEffectivePriceRuleOverrideAndRegion(t *testing.T) {
	env := newServiceTestEnv(t)
	ctx := context.Background()
	category := env.seedCategory(t, "electronics")
	product := env.seedProduct(t, category.ID, "2000", "", 5)
	env.seedUser(t, 21, constants.CustomerTierGold, "Bagmati")
	env.seedEvent(t, models.PromotionalEvent{
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: models.NewMoney("5"),
		Rules: []models.PromotionRule{
			{RuleType: constants.RuleTypeGeography, TargetValue: "bagmati", Priority: 1,
				DiscountType: constants.DiscountTypeFixedAmount, DiscountValue: models.NewMoney("300").Ptr()},
			{RuleType: constants.RuleTypeAll, Priority: 2},
		},
	})

	local, err := env.resolver.GetEffectivePrice(ctx, product.ID, 21)
	require.NoError(t, err)
	assert.Equal(t, "300.00", local.EventDiscountAmount.String())
	assert.Equal(t, "Rs. 300.00 OFF", local.DiscountLabel)
	require.NotNil(t, local.AppliedRule)
	assert.Equal(t, constants.RuleTypeGeography, local.AppliedRule.RuleType)

	anonymous, err := env.resolver.GetEffectivePrice(ctx, product.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "100.00", anonymous.EventDiscountAmount.String())
	require.Len(t, anonymous.FailedRules, 1)
}

func TestEffectivePriceBuyOneGetOne(t *testing.T) {
	env := newServiceTestEnv(t)
	product := env.seedProduct(t, 1, "600", "", 10)
	env.seedEvent(t, models.PromotionalEvent{DiscountType: constants.DiscountTypeBuyOneGetOne})

	info, err := env.resolver.GetEffectivePriceFor(context.Background(), PriceQuery{ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, "200.00", info.EventDiscountAmount.String())
	assert.Equal(t, "400.00", info.EffectivePrice.String())
}

func TestEffectivePriceProductErrors(t *testing.T) {
	env := newServiceTestEnv(t)
	ctx := context.Background()

	_, err := env.resolver.GetEffectivePrice(ctx, 999, 0)
	assert.ErrorIs(t, err, ErrProductNotFound)

	product := env.seedProduct(t, 1, "1000", "", 5)
	env.seedEvent(t, models.PromotionalEvent{
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: models.NewMoney("10"),
	})
	require.NoError(t, env.db.Model(&models.Product{}).Where("id = ?", product.ID).Update("is_active", false).Error)
	info, err := env.resolver.GetEffectivePrice(ctx, product.ID, 0)
	require.NoError(t, err)
	assert.False(t, info.HasEvent)
	assert.Equal(t, "1000.00", info.EffectivePrice.String())
}

type failingEventSource struct{}

func (failingEventSource) ListActive(context.Context, time.Time) ([]models.PromotionalEvent, error) {
	return nil, errors.New("event store offline")
}

func TestEffectivePriceDegradesWhenEventsUnavailable(t *testing.T) {
	env := newServiceTestEnv(t)
	product := env.seedProduct(t, 1, "1000", "900", 5)
	resolver := NewPromotionResolver(env.productRepo, nil, failingEventSource{}, nil, env.clock, nil, PromotionResolverOptions{})

	info, err := resolver.GetEffectivePrice(context.Background(), product.ID, 3)
	require.NoError(t, err)
	assert.True(t, info.Degraded)
	assert.False(t, info.HasEvent)
	assert.Equal(t, "900.00", info.EffectivePrice.String())
}

type failingUsageChecker struct{}

func (failingUsageChecker) CanUserUseEvent(context.Context, *models.PromotionalEvent, uint) (bool, error) {
	return false, ErrCollaboratorUnavailable
}

func TestEffectivePriceDegradesWhenUsageCheckFails(t *testing.T) {
	env := newServiceTestEnv(t)
	product := env.seedProduct(t, 1, "1000", "", 5)
	env.seedEvent(t, models.PromotionalEvent{
		DiscountType:    constants.DiscountTypePercentage,
		DiscountValue:   models.NewMoney("10"),
		MaxUsagePerUser: 1,
	})
	resolver := NewPromotionResolver(env.productRepo, nil, env.eventRepo, failingUsageChecker{}, env.clock, nil, PromotionResolverOptions{})

	info, err := resolver.GetEffectivePrice(context.Background(), product.ID, 3)
	require.NoError(t, err)
	assert.True(t, info.Degraded)
	assert.False(t, info.HasEvent)
	assert.Equal(t, "1000.00", info.EffectivePrice.String())
}

func TestEffectivePricesPreservesOrder(t *testing.T) {
	env := newServiceTestEnv(t)
	a := env.seedProduct(t, 1, "100", "", 1)
	b := env.seedProduct(t, 1, "200", "", 1)
	c := env.seedProduct(t, 1, "300", "", 1)

	prices, err := env.resolver.GetEffectivePrices(context.Background(), []uint{c.ID, 999, a.ID, b.ID}, 0)
	require.NoError(t, err)
	require.Len(t, prices, 3)
	assert.Equal(t, []uint{c.ID, a.ID, b.ID}, []uint{prices[0].ProductID, prices[1].ProductID, prices[2].ProductID})
}
