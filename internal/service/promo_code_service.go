package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/dokan-next/internal/clock"
	"github.com/dokan-next/internal/constants"
	"github.com/dokan-next/internal/logger"
	"github.com/dokan-next/internal/models"
	"github.com/dokan-next/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CartLineInput 优惠码计算所需的购物车行
type CartLineInput struct {
	LineID           uint
	ProductID        uint
	CategoryID       uint
	Quantity         int
	UnitPrice        models.Money
	HasEventDiscount bool
}

// Total 行合计
func (l CartLineInput) Total() decimal.Decimal {
	if l.Quantity <= 0 {
		return decimal.Zero
	}
	return l.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ApplyPromoCodeInput 优惠码应用参数
type ApplyPromoCodeInput struct {
	Code         string
	UserID       uint
	CustomerTier string
	Lines        []CartLineInput
	ShippingCost models.Money
}

// PromoLineResult 单行优惠结果
type PromoLineResult struct {
	LineID     uint         `json:"line_id"`
	ProductID  uint         `json:"product_id"`
	Qualifying bool         `json:"qualifying"`
	Before     models.Money `json:"before"`
	Discount   models.Money `json:"discount"`
	After      models.Money `json:"after"`
}

// PromoCodeResult 优惠码计算结果
type PromoCodeResult struct {
	PromoCodeID      uint              `json:"promo_code_id"`
	Code             string            `json:"code"`
	DiscountType     string            `json:"discount_type"`
	DiscountLabel    string            `json:"discount_label"`
	Lines            []PromoLineResult `json:"lines"`
	Subtotal         models.Money      `json:"subtotal"`
	ItemsDiscount    models.Money      `json:"items_discount"`
	ShippingCost     models.Money      `json:"shipping_cost"`
	ShippingDiscount models.Money      `json:"shipping_discount"`
	TotalDiscount    models.Money      `json:"total_discount"`
	CapApplied       bool              `json:"cap_applied"`
	RemainingGlobal  int               `json:"remaining_global"` // -1 表示不限
	RemainingUser    int               `json:"remaining_user"`   // -1 表示不限
}

// LineDiscount 指定行的优惠金额
func (r *PromoCodeResult) LineDiscount(lineID uint) models.Money {
	if r == nil {
		return models.Money{}
	}
	for _, line := range r.Lines {
		if line.LineID == lineID {
			return line.Discount
		}
	}
	return models.Money{}
}

// PromoCodeService 优惠码校验与叠加计算
type PromoCodeService struct {
	codeRepo       repository.PromoCodeRepository
	usageRepo      repository.PromoCodeUsageRepository
	userRepo       repository.UserRepository
	clock          clock.Clock
	analytics      *AnalyticsEmitter
	currencySymbol string
	redeemLocks    [promoRedeemStripes]sync.Mutex
}

const promoRedeemStripes = 32

// NewPromoCodeService 创建优惠码服务
func NewPromoCodeService(
	codeRepo repository.PromoCodeRepository,
	usageRepo repository.PromoCodeUsageRepository,
	userRepo repository.UserRepository,
	clk clock.Clock,
	analytics *AnalyticsEmitter,
	currencySymbol string,
) *PromoCodeService {
	if strings.TrimSpace(currencySymbol) == "" {
		currencySymbol = "Rs."
	}
	return &PromoCodeService{
		codeRepo:       codeRepo,
		usageRepo:      usageRepo,
		userRepo:       userRepo,
		clock:          clk,
		analytics:      analytics,
		currencySymbol: currencySymbol,
	}
}

// Apply 校验优惠码并计算各行优惠；校验失败返回 *ValidationErrors（包含全部命中的错误）
func (s *PromoCodeService) Apply(ctx context.Context, input ApplyPromoCodeInput) (*PromoCodeResult, error) {
	errs := &ValidationErrors{}
	code := repository.NormalizeCode(input.Code)
	if code == "" {
		errs.Add(constants.PromoErrNotFound, "promo code is required")
		return nil, errs
	}
	promo, err := s.codeRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if promo == nil {
		errs.Add(constants.PromoErrNotFound, "promo code not found")
		return nil, errs
	}
	if !promo.IsActive {
		errs.Add(constants.PromoErrInactive, "promo code is not active")
		return nil, errs
	}

	remainingGlobal, remainingUser := s.validate(ctx, promo, input, errs)
	qualifying := s.qualifyingLines(promo, input.Lines, errs)
	if !errs.Empty() {
		return nil, errs
	}

	result := s.calculate(promo, input, qualifying)
	result.RemainingGlobal = remainingGlobal
	result.RemainingUser = remainingUser
	return result, nil
}

// validate 第二批校验：收集全部错误
func (s *PromoCodeService) validate(ctx context.Context, promo *models.PromoCode, input ApplyPromoCodeInput, errs *ValidationErrors) (int, int) {
	now := s.clock.Now()
	window := clock.NewWindow(promo.StartsAt, promo.EndsAt)
	switch {
	case window.NotStarted(now):
		errs.Add(constants.PromoErrNotStarted, "promo code is not active yet")
	case window.Ended(now):
		errs.Add(constants.PromoErrExpired, "promo code has expired")
	}

	remainingGlobal := -1
	if promo.MaxTotalUsage > 0 {
		remainingGlobal = max(promo.MaxTotalUsage-promo.CurrentUsage, 0)
		if promo.CurrentUsage >= promo.MaxTotalUsage {
			errs.Add(constants.PromoErrUsageLimit, "promo code usage limit reached")
		}
	}

	remainingUser := -1
	if promo.MaxUsagePerUser > 0 {
		if input.UserID == 0 {
			errs.Add(constants.PromoErrUsageUnverified, "sign in to use this promo code")
		} else {
			count, err := s.usageRepo.CountByUser(ctx, promo.ID, input.UserID)
			if err != nil {
				logger.Warnw("promo_code_usage_count_failed",
					"promo_code_id", promo.ID,
					"user_id", input.UserID,
					"error", err,
				)
				errs.Add(constants.PromoErrUsageUnverified, "promo code usage could not be verified")
			} else {
				remainingUser = max(promo.MaxUsagePerUser-int(count), 0)
				if count >= int64(promo.MaxUsagePerUser) {
					errs.Add(constants.PromoErrUserLimit, "promo code per-user limit reached")
				}
			}
		}
	}

	if promo.MinOrderAmount.IsPositive() {
		threshold := sumLines(input.Lines)
		if promo.ApplyToShipping {
			threshold = threshold.Add(input.ShippingCost.Decimal)
		}
		if threshold.LessThan(promo.MinOrderAmount.Decimal) {
			shortfall := models.NewMoneyFromDecimal(promo.MinOrderAmount.Decimal.Sub(threshold))
			errs.Add(constants.PromoErrMinOrder, fmt.Sprintf("minimum order of %s required, add %s more",
				promo.MinOrderAmount.Format(s.currencySymbol), shortfall.Format(s.currencySymbol)))
		}
	}

	if promo.CategoryID != nil {
		found := false
		for _, line := range input.Lines {
			if line.CategoryID == *promo.CategoryID {
				found = true
				break
			}
		}
		if !found {
			errs.Add(constants.PromoErrCategory, "cart has no items from the eligible category")
		}
	}

	required := strings.ToLower(strings.TrimSpace(promo.CustomerTier))
	if required != "" && required != constants.CustomerTierAll {
		tier := s.resolveTier(ctx, input)
		if !strings.EqualFold(tier, required) {
			errs.Add(constants.PromoErrTier, fmt.Sprintf("promo code is reserved for %s members", required))
		}
	}
	return remainingGlobal, remainingUser
}

func (s *PromoCodeService) resolveTier(ctx context.Context, input ApplyPromoCodeInput) string {
	if tier := strings.TrimSpace(input.CustomerTier); tier != "" {
		return tier
	}
	if input.UserID == 0 || s.userRepo == nil {
		return ""
	}
	user, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		logger.Warnw("promo_code_tier_lookup_failed", "user_id", input.UserID, "error", err)
		return ""
	}
	if user == nil {
		return ""
	}
	return user.Tier
}

// qualifyingLines 返回可享受优惠的行下标
func (s *PromoCodeService) qualifyingLines(promo *models.PromoCode, lines []CartLineInput, errs *ValidationErrors) []int {
	qualifying := make([]int, 0, len(lines))
	blockedByEvent := false
	for i, line := range lines {
		if line.Quantity <= 0 {
			continue
		}
		if promo.CategoryID != nil && line.CategoryID != *promo.CategoryID {
			continue
		}
		if !promo.StackableWithEvents && line.HasEventDiscount {
			blockedByEvent = true
			continue
		}
		qualifying = append(qualifying, i)
	}
	if len(qualifying) > 0 || promo.DiscountType == constants.DiscountTypeFreeShipping {
		return qualifying
	}
	if errs.Has(constants.PromoErrCategory) {
		return qualifying
	}
	if blockedByEvent {
		errs.Add(constants.PromoErrNotStackable, "promo code cannot be combined with event discounts")
	} else {
		errs.Add(constants.PromoErrNoQualifying, "no items in the cart qualify for this promo code")
	}
	return qualifying
}

func (s *PromoCodeService) calculate(promo *models.PromoCode, input ApplyPromoCodeInput, qualifying []int) *PromoCodeResult {
	lines := input.Lines
	// 最后一个分量为运费优惠
	components := make([]decimal.Decimal, len(lines)+1)
	for i := range components {
		components[i] = decimal.Zero
	}
	shippingIdx := len(lines)
	shipping := input.ShippingCost.Decimal
	value := promo.DiscountValue.Decimal

	switch promo.DiscountType {
	case constants.DiscountTypePercentage:
		rate := value.Div(decimal.NewFromInt(100))
		for _, i := range qualifying {
			components[i] = lines[i].Total().Mul(rate).Round(2)
		}
		if promo.ApplyToShipping {
			components[shippingIdx] = shipping.Mul(rate).Round(2)
		}
	case constants.DiscountTypeFixedAmount:
		allocateFixed(components, lines, qualifying, value)
	case constants.DiscountTypeBuyOneGetOne:
		for _, i := range qualifying {
			free := int64(lines[i].Quantity / 2)
			components[i] = lines[i].UnitPrice.Decimal.Mul(decimal.NewFromInt(free)).Round(2)
		}
	case constants.DiscountTypeFreeShipping:
		components[shippingIdx] = shipping
	}

	for _, i := range qualifying {
		if total := lines[i].Total(); components[i].GreaterThan(total) {
			components[i] = total
		}
	}
	if components[shippingIdx].GreaterThan(shipping) {
		components[shippingIdx] = shipping
	}

	capApplied := false
	if promo.MaxDiscountAmount != nil && promo.MaxDiscountAmount.IsPositive() {
		capApplied = scaleToCap(components, promo.MaxDiscountAmount.Decimal)
	}

	result := &PromoCodeResult{
		PromoCodeID:   promo.ID,
		Code:          promo.Code,
		DiscountType:  promo.DiscountType,
		DiscountLabel: DiscountLabel(promo.DiscountType, promo.DiscountValue, s.currencySymbol),
		Lines:         make([]PromoLineResult, 0, len(lines)),
		ShippingCost:  models.NewMoneyFromDecimal(shipping),
		CapApplied:    capApplied,
	}
	qualifies := make(map[int]bool, len(qualifying))
	for _, i := range qualifying {
		qualifies[i] = true
	}
	subtotal := decimal.Zero
	itemsDiscount := decimal.Zero
	for i, line := range lines {
		before := line.Total()
		subtotal = subtotal.Add(before)
		itemsDiscount = itemsDiscount.Add(components[i])
		result.Lines = append(result.Lines, PromoLineResult{
			LineID:     line.LineID,
			ProductID:  line.ProductID,
			Qualifying: qualifies[i],
			Before:     models.NewMoneyFromDecimal(before),
			Discount:   models.NewMoneyFromDecimal(components[i]),
			After:      models.NewMoneyFromDecimal(before.Sub(components[i])),
		})
	}
	result.Subtotal = models.NewMoneyFromDecimal(subtotal)
	result.ItemsDiscount = models.NewMoneyFromDecimal(itemsDiscount)
	result.ShippingDiscount = models.NewMoneyFromDecimal(components[shippingIdx])
	result.TotalDiscount = models.NewMoneyFromDecimal(itemsDiscount.Add(components[shippingIdx]))
	return result
}

// allocateFixed 固定金额按行金额占比分摊，最后一行承接尾差，每行不超过行合计
func allocateFixed(components []decimal.Decimal, lines []CartLineInput, qualifying []int, amount decimal.Decimal) {
	base := decimal.Zero
	for _, i := range qualifying {
		base = base.Add(lines[i].Total())
	}
	if !base.IsPositive() || !amount.IsPositive() {
		return
	}
	if amount.GreaterThan(base) {
		amount = base
	}
	allocated := decimal.Zero
	for n, i := range qualifying {
		total := lines[i].Total()
		share := amount.Mul(total).Div(base).Round(2)
		if n == len(qualifying)-1 {
			share = amount.Sub(allocated)
		}
		if share.GreaterThan(total) {
			share = total
		}
		components[i] = share
		allocated = allocated.Add(share)
	}
}

// scaleToCap 总优惠超过上限时各分量按同一比例缩减，舍入尾差计入最大分量，使总和恰好等于上限
func scaleToCap(components []decimal.Decimal, limit decimal.Decimal) bool {
	total := decimal.Zero
	for _, c := range components {
		total = total.Add(c)
	}
	if !total.GreaterThan(limit) {
		return false
	}
	factor := limit.Div(total)
	scaled := decimal.Zero
	largest := 0
	for i, c := range components {
		components[i] = c.Mul(factor).Round(2)
		scaled = scaled.Add(components[i])
		if components[i].GreaterThan(components[largest]) {
			largest = i
		}
	}
	if residual := limit.Sub(scaled); !residual.IsZero() {
		components[largest] = components[largest].Add(residual)
	}
	return true
}

func sumLines(lines []CartLineInput) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Total())
	}
	return total
}

// Redeem 核销优惠码：同一订单幂等，每人限额以使用记录为准，全局计数受上限保护；
// 同一优惠码的核销在进程内串行，并在事务内对优惠码行加锁
func (s *PromoCodeService) Redeem(ctx context.Context, promoCodeID, userID uint, orderID string, amount models.Money) error {
	m := &s.redeemLocks[promoCodeID%promoRedeemStripes]
	m.Lock()
	defer m.Unlock()

	err := s.codeRepo.Transaction(ctx, func(tx *gorm.DB) error {
		codeRepo := s.codeRepo.WithTx(tx)
		usageRepo := s.usageRepo.WithTx(tx)

		promo, err := codeRepo.GetByIDForUpdate(ctx, promoCodeID)
		if err != nil {
			return err
		}
		if promo == nil {
			return ErrPromoCodeNotFound
		}
		if orderID != "" {
			recorded, err := usageRepo.ExistsForOrder(ctx, promoCodeID, orderID)
			if err != nil {
				return err
			}
			if recorded {
				return errUsageAlreadyRecorded
			}
		}
		if userID != 0 && promo.MaxUsagePerUser > 0 {
			count, err := usageRepo.CountByUser(ctx, promoCodeID, userID)
			if err != nil {
				return err
			}
			if count >= int64(promo.MaxUsagePerUser) {
				return ErrPromoCodeUserLimit
			}
		}
		rows, err := codeRepo.IncrementUsage(ctx, promoCodeID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrPromoCodeUsageLimit
		}
		return usageRepo.Create(ctx, &models.PromoCodeUsage{
			PromoCodeID:    promoCodeID,
			UserID:         userID,
			OrderID:        orderID,
			DiscountAmount: amount,
		})
	})
	if errors.Is(err, errUsageAlreadyRecorded) {
		return nil
	}
	if err != nil {
		return err
	}
	s.analytics.Emit(constants.AnalyticsPromoCodeRedeemed, 0, userID, map[string]string{
		"promo_code_id":   strconv.FormatUint(uint64(promoCodeID), 10),
		"order_id":        orderID,
		"discount_amount": amount.String(),
	})
	return nil
}
