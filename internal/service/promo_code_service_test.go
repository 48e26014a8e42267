package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dokan-next/internal/constants"
	"github.com/dokan-next/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func promoLines() []CartLineInput {
	return []CartLineInput{
		{LineID: 1, ProductID: 10, CategoryID: 1, Quantity: 2, UnitPrice: models.NewMoney("300")},
		{LineID: 2, ProductID: 11, CategoryID: 2, Quantity: 1, UnitPrice: models.NewMoney("400")},
	}
}

func TestPromoCodePercentageDiscount(t *testing.T) {
	env := newServiceTestEnv(t)
	env.seedPromoCode(t, models.PromoCode{
		Code:          "SAVE10",
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: models.NewMoney("10"),
	})

	result, err := env.promo.Apply(context.Background(), ApplyPromoCodeInput{
		Code:         " save10 ",
		Lines:        promoLines(),
		ShippingCost: models.NewMoney("100"),
	})
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", result.Code)
	assert.Equal(t, "1000.00", result.Subtotal.String())
	assert.Equal(t, "60.00", result.LineDiscount(1).String())
	assert.Equal(t, "40.00", result.LineDiscount(2).String())
	assert.Equal(t, "100.00", result.TotalDiscount.String())
	assert.Equal(t, "0.00", result.ShippingDiscount.String())
	assert.Equal(t, -1, result.RemainingGlobal)
	assert.Equal(t, "10% OFF", result.DiscountLabel)
}

func TestPromoCodeFixedAllocation(t *testing.T) {
	env := newServiceTestEnv(t)
	env.seedPromoCode(t, models.PromoCode{
		Code:          "FLAT100",
		DiscountType:  constants.DiscountTypeFixedAmount,
		DiscountValue: models.NewMoney("100"),
	})
	lines := []CartLineInput{
		{LineID: 1, ProductID: 10, Quantity: 1, UnitPrice: models.NewMoney("100")},
		{LineID: 2, ProductID: 11, Quantity: 1, UnitPrice: models.NewMoney("100")},
		{LineID: 3, ProductID: 12, Quantity: 1, UnitPrice: models.NewMoney("100")},
	}

	result, err := env.promo.Apply(context.Background(), ApplyPromoCodeInput{Code: "FLAT100", Lines: lines})
	require.NoError(t, err)
	assert.Equal(t, "33.33", result.LineDiscount(1).String())
	assert.Equal(t, "33.33", result.LineDiscount(2).String())
	assert.Equal(t, "33.34", result.LineDiscount(3).String())
	assert.Equal(t, "100.00", result.TotalDiscount.String())
}

func TestPromoCodeFixedNeverExceedsSubtotal(t *testing.T) {
	env := newServiceTestEnv(t)
	env.seedPromoCode(t, models.PromoCode{
		Code:          "BIG",
		DiscountType:  constants.DiscountTypeFixedAmount,
		DiscountValue: models.NewMoney("5000"),
	})

	result, err := env.promo.Apply(context.Background(), ApplyPromoCodeInput{Code: "BIG", Lines: promoLines()})
	require.NoError(t, err)
	assert.Equal(t, "1000.00", result.TotalDiscount.String())
	for _, line := range result.Lines {
		assert.False(t, line.After.IsNegative())
	}
}

func TestPromoCodeCapScalesComponents(t *testing.T) {
	env := newServiceTestEnv(t)
	env.seedPromoCode(t, models.PromoCode{
		Code:              "HALF",
		DiscountType:      constants.DiscountTypePercentage,
		DiscountValue:     models.NewMoney("50"),
		MaxDiscountAmount: models.NewMoney("100").Ptr(),
		ApplyToShipping:   true,
	})

	result, err := env.promo.Apply(context.Background(), ApplyPromoCodeInput{
		Code:         "HALF",
		Lines:        promoLines(),
		ShippingCost: models.NewMoney("100"),
	})
	require.NoError(t, err)
	assert.True(t, result.CapApplied)
	assert.Equal(t, "100.00", result.TotalDiscount.String())
	sum := result.ItemsDiscount.Add(result.ShippingDiscount.Decimal)
	assert.Equal(t, "100", sum.String())
	assert.True(t, result.ShippingDiscount.IsPositive())
}

func TestPromoCodeCollectsAllValidationErrors(t *testing.T) {
	env := newServiceTestEnv(t)
	start := testNow.Add(time.Hour)
	categoryID := uint(9)
	env.seedPromoCode(t, models.PromoCode{
		Code:           "FUTURE",
		DiscountType:   constants.DiscountTypePercentage,
		DiscountValue:  models.NewMoney("10"),
		StartsAt:       &start,
		MinOrderAmount: models.NewMoney("1500"),
		CategoryID:     &categoryID,
	})

	_, err := env.promo.Apply(context.Background(), ApplyPromoCodeInput{Code: "FUTURE", Lines: promoLines()})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPromoCodeInvalid)

	var verrs *ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.ElementsMatch(t, []string{
		constants.PromoErrNotStarted,
		constants.PromoErrMinOrder,
		constants.PromoErrCategory,
	}, verrs.Codes())
	assert.Contains(t, err.Error(), "add Rs. 500.00 more")
}

func TestPromoCodeUnknownAndInactive(t *testing.T) {
	env := newServiceTestEnv(t)
	ctx := context.Background()

	_, err := env.promo.Apply(ctx, ApplyPromoCodeInput{Code: "NOPE", Lines: promoLines()})
	var verrs *ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, []string{constants.PromoErrNotFound}, verrs.Codes())

	promo := env.seedPromoCode(t, models.PromoCode{
		Code:          "OFF",
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: models.NewMoney("10"),
	})
	require.NoError(t, env.db.Model(&models.PromoCode{}).Where("id = ?", promo.ID).Update("is_active", false).Error)
	_, err = env.promo.Apply(ctx, ApplyPromoCodeInput{Code: "OFF", Lines: promoLines()})
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, []string{constants.PromoErrInactive}, verrs.Codes())
}

func TestPromoCodeNotStackableWithEvents(t *testing.T) {
	env := newServiceTestEnv(t)
	env.seedPromoCode(t, models.PromoCode{
		Code:          "SOLO",
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: models.NewMoney("10"),
	})
	lines := promoLines()
	lines[0].HasEventDiscount = true

	result, err := env.promo.Apply(context.Background(), ApplyPromoCodeInput{Code: "SOLO", Lines: lines})
	require.NoError(t, err)
	assert.Equal(t, "0.00", result.LineDiscount(1).String())
	assert.Equal(t, "40.00", result.LineDiscount(2).String())

	lines[1].HasEventDiscount = true
	_, err = env.promo.Apply(context.Background(), ApplyPromoCodeInput{Code: "SOLO", Lines: lines})
	var verrs *ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.True(t, verrs.Has(constants.PromoErrNotStackable))
}

func TestPromoCodeTierRestriction(t *testing.T) {
	env := newServiceTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, 1, "gold", "")
	env.seedUser(t, 2, "silver", "")
	env.seedPromoCode(t, models.PromoCode{
		Code:         "GOLD",
		DiscountType: constants.DiscountTypeFreeShipping,
		CustomerTier: "Gold",
	})

	result, err := env.promo.Apply(ctx, ApplyPromoCodeInput{Code: "GOLD", UserID: 1, Lines: promoLines(), ShippingCost: models.NewMoney("100")})
	require.NoError(t, err)
	assert.Equal(t, "100.00", result.ShippingDiscount.String())
	assert.Equal(t, "100.00", result.TotalDiscount.String())

	_, err = env.promo.Apply(ctx, ApplyPromoCodeInput{Code: "GOLD", UserID: 2, Lines: promoLines()})
	var verrs *ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, []string{constants.PromoErrTier}, verrs.Codes())
}

func TestPromoCodeRedeemPerUserLimit(t *testing.T) {
	env := newServiceTestEnv(t)
	ctx := context.Background()
	promo := env.seedPromoCode(t, models.PromoCode{
		Code:            "ONCE",
		DiscountType:    constants.DiscountTypePercentage,
		DiscountValue:   models.NewMoney("10"),
		MaxUsagePerUser: 1,
		MaxTotalUsage:   5,
	})

	result, err := env.promo.Apply(ctx, ApplyPromoCodeInput{Code: "ONCE", UserID: 3, Lines: promoLines()})
	require.NoError(t, err)
	assert.Equal(t, 5, result.RemainingGlobal)
	assert.Equal(t, 1, result.RemainingUser)

	require.NoError(t, env.promo.Redeem(ctx, promo.ID, 3, "order-1", result.TotalDiscount))
	require.NoError(t, env.promo.Redeem(ctx, promo.ID, 3, "order-1", result.TotalDiscount))
	assert.ErrorIs(t, env.promo.Redeem(ctx, promo.ID, 3, "order-2", result.TotalDiscount), ErrPromoCodeUserLimit)

	reloaded, err := env.codeRepo.GetByID(ctx, promo.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.CurrentUsage)

	_, err = env.promo.Apply(ctx, ApplyPromoCodeInput{Code: "ONCE", UserID: 3, Lines: promoLines()})
	var verrs *ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, []string{constants.PromoErrUserLimit}, verrs.Codes())

	_, err = env.promo.Apply(ctx, ApplyPromoCodeInput{Code: "ONCE", Lines: promoLines()})
	require.True(t, errors.As(err, &verrs))
	assert.Equal(t, []string{constants.PromoErrUsageUnverified}, verrs.Codes())
}

func TestPromoCodeRedeemGlobalLimit(t *testing.T) {
	env := newServiceTestEnv(t)
	ctx := context.Background()
	promo := env.seedPromoCode(t, models.PromoCode{
		Code:          "LAST",
		DiscountType:  constants.DiscountTypeFixedAmount,
		DiscountValue: models.NewMoney("50"),
		MaxTotalUsage: 1,
	})

	require.NoError(t, env.promo.Redeem(ctx, promo.ID, 1, "order-a", models.NewMoney("50")))
	assert.ErrorIs(t, env.promo.Redeem(ctx, promo.ID, 2, "order-b", models.NewMoney("50")), ErrPromoCodeUsageLimit)

	_, err := env.promo.Apply(ctx, ApplyPromoCodeInput{Code: "LAST", UserID: 2, Lines: promoLines()})
	var verrs *ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.True(t, verrs.Has(constants.PromoErrUsageLimit))
}

func TestPromoCodeRedeemConcurrentSameUser(t *testing.T) {
	env := newServiceTestEnv(t)
	ctx := context.Background()
	promo := env.seedPromoCode(t, models.PromoCode{
		Code:            "ONCEONLY",
		DiscountType:    constants.DiscountTypeFixedAmount,
		DiscountValue:   models.NewMoney("50"),
		MaxUsagePerUser: 1,
	})

	errs := make([]error, 8)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs[i] = env.promo.Redeem(ctx, promo.ID, 7, fmt.Sprintf("order-%d", i), models.NewMoney("50"))
		}()
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrPromoCodeUserLimit)
	}
	assert.Equal(t, 1, succeeded)

	count, err := env.codeUsageRepo.CountByUser(ctx, promo.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	reloaded, err := env.codeRepo.GetByID(ctx, promo.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.CurrentUsage)
}
