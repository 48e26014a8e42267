package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/dokan-next/internal/clock"
	"github.com/dokan-next/internal/logger"
	"github.com/dokan-next/internal/models"
	"github.com/dokan-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PriceReader 价格读取接口
type PriceReader interface {
	GetFor(ctx context.Context, query PriceQuery) (*PriceInfo, error)
}

// CartOptions 购物车运费与数量限制
type CartOptions struct {
	ShippingCost          models.Money
	FreeShippingThreshold models.Money
	MaxQuantityPerLine    int
	CurrencySymbol        string
}

// AddCartItemInput 加购参数
type AddCartItemInput struct {
	UserID        uint
	ProductID     uint
	Quantity      int
	PaymentMethod string
	Region        string
}

// CartLineView 购物车行展示
type CartLineView struct {
	ID                 uint         `json:"id"`
	ProductID          uint         `json:"product_id"`
	ProductName        string       `json:"product_name"`
	Quantity           int          `json:"quantity"`
	UnitPrice          models.Money `json:"unit_price"`
	OriginalPrice      models.Money `json:"original_price"`
	EventID            *uint        `json:"event_id,omitempty"`
	EventDiscount      models.Money `json:"event_discount"`
	PromoCode          string       `json:"promo_code,omitempty"`
	PromoDiscount      models.Money `json:"promo_discount"`
	LineTotal          models.Money `json:"line_total"`
	FreeShipping       bool         `json:"free_shipping"`
	ExpiresAt          *time.Time   `json:"expires_at,omitempty"`
	ExpiresIn          string       `json:"expires_in,omitempty"`
	Expired            bool         `json:"expired"`
	FormattedUnitPrice string       `json:"formatted_unit_price"`
	FormattedLineTotal string       `json:"formatted_line_total"`
}

// CartSummary 购物车汇总
type CartSummary struct {
	UserID              uint              `json:"user_id"`
	Lines               []CartLineView    `json:"lines"`
	ExpiredLines        []CartLineView    `json:"expired_lines"`
	ItemCount           int               `json:"item_count"`
	OriginalTotal       models.Money      `json:"original_total"`
	Subtotal            models.Money      `json:"subtotal"`
	EventSavings        models.Money      `json:"event_savings"`
	PromoCode           string            `json:"promo_code,omitempty"`
	PromoDiscount       models.Money      `json:"promo_discount"`
	ShippingCost        models.Money      `json:"shipping_cost"`
	ShippingDiscount    models.Money      `json:"shipping_discount"`
	GrandTotal          models.Money      `json:"grand_total"`
	TotalSavings        models.Money      `json:"total_savings"`
	PromoErrors         []ValidationError `json:"promo_errors,omitempty"`
	FormattedSubtotal   string            `json:"formatted_subtotal"`
	FormattedShipping   string            `json:"formatted_shipping"`
	FormattedSavings    string            `json:"formatted_savings"`
	FormattedGrandTotal string            `json:"formatted_grand_total"`

	promo    *PromoCodeResult
	promoErr error
}

// CheckoutResult 结算结果
type CheckoutResult struct {
	OrderID string       `json:"order_id"`
	Summary *CartSummary `json:"summary"`
}

// CartService 购物车聚合服务
type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	prices      PriceReader
	stock       *StockReservationService
	promo       *PromoCodeService
	eventUsage  *EventUsageService
	invalidator PricingInvalidator
	clock       clock.Clock
	opts        CartOptions
}

// NewCartService 创建购物车服务
func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	prices PriceReader,
	stock *StockReservationService,
	promo *PromoCodeService,
	eventUsage *EventUsageService,
	invalidator PricingInvalidator,
	clk clock.Clock,
	opts CartOptions,
) *CartService {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	if strings.TrimSpace(opts.CurrencySymbol) == "" {
		opts.CurrencySymbol = "Rs."
	}
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		prices:      prices,
		stock:       stock,
		promo:       promo,
		eventUsage:  eventUsage,
		invalidator: invalidator,
		clock:       clk,
		opts:        opts,
	}
}

func (s *CartService) checkQuantity(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if s.opts.MaxQuantityPerLine > 0 && quantity > s.opts.MaxQuantityPerLine {
		return ErrInvalidQuantity
	}
	return nil
}

// AddItem 加购：锁定当前有效价并预占库存；同商品已有有效行时合并数量
func (s *CartService) AddItem(ctx context.Context, input AddCartItemInput) (*models.CartItem, error) {
	if input.UserID == 0 || input.ProductID == 0 {
		return nil, ErrProductNotFound
	}
	if err := s.checkQuantity(input.Quantity); err != nil {
		return nil, err
	}
	existing, err := s.cartRepo.GetByUserAndProduct(ctx, input.UserID, input.ProductID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if !existing.Expired(s.clock.Now()) {
			return s.UpdateQuantity(ctx, input.UserID, existing.ID, existing.Quantity+input.Quantity)
		}
		s.expireLine(ctx, existing)
	}

	price, err := s.prices.GetFor(ctx, PriceQuery{
		ProductID:     input.ProductID,
		UserID:        input.UserID,
		Quantity:      input.Quantity,
		PaymentMethod: input.PaymentMethod,
		Region:        input.Region,
	})
	if err != nil {
		return nil, err
	}
	reservation, err := s.stock.TryReserve(ctx, input.ProductID, input.Quantity, input.UserID)
	if err != nil {
		return nil, err
	}
	if !reservation.Success {
		if reservation.Reason == reasonNotAvailable {
			return nil, ErrProductNotAvailable
		}
		return nil, &InsufficientStockError{Available: reservation.AvailableStock}
	}

	item := &models.CartItem{
		UserID:           input.UserID,
		ProductID:        input.ProductID,
		Quantity:         input.Quantity,
		ReservationToken: reservation.Token,
		StockReserved:    true,
		ExpiresAt:        reservation.ExpiresAt,
		PaymentMethod:    input.PaymentMethod,
		Region:           input.Region,
	}
	applyPrice(item, price)
	if err := s.cartRepo.Create(ctx, item); err != nil {
		if releaseErr := s.stock.Release(ctx, reservation.Token); releaseErr != nil {
			logger.Warnw("cart_add_release_failed", "token", reservation.Token, "error", releaseErr)
		}
		return nil, err
	}
	s.refreshPromo(ctx, input.UserID)
	return item, nil
}

func applyPrice(item *models.CartItem, price *PriceInfo) {
	item.ReservedPrice = price.EffectivePrice
	item.OriginalPrice = price.MarketPrice
	item.EventID = price.EventID
	item.EventDiscount = price.EventDiscountAmount
	item.FreeShipping = price.FreeShipping
}

// UpdateQuantity 修改数量：数量 ≤ 0 时移除；调整预占后按新数量重新定价
func (s *CartService) UpdateQuantity(ctx context.Context, userID, itemID uint, quantity int) (*models.CartItem, error) {
	item, err := s.cartRepo.GetByID(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrCartItemNotFound
	}
	if quantity <= 0 {
		return nil, s.RemoveItem(ctx, userID, itemID)
	}
	if err := s.checkQuantity(quantity); err != nil {
		return nil, err
	}
	if item.Expired(s.clock.Now()) {
		s.expireLine(ctx, item)
		return nil, ErrCartItemExpired
	}

	reservation, err := s.stock.UpdateReservation(ctx, item.ReservationToken, quantity)
	if err != nil {
		if errors.Is(err, ErrReservationExpired) || errors.Is(err, ErrReservationNotFound) {
			s.expireLine(ctx, item)
			return nil, ErrCartItemExpired
		}
		return nil, err
	}
	if !reservation.Success {
		return nil, &InsufficientStockError{Available: reservation.AvailableStock}
	}

	price, err := s.prices.GetFor(ctx, PriceQuery{
		ProductID:     item.ProductID,
		UserID:        userID,
		Quantity:      quantity,
		PaymentMethod: item.PaymentMethod,
		Region:        item.Region,
	})
	if err != nil {
		return nil, err
	}
	item.Quantity = quantity
	item.ExpiresAt = reservation.ExpiresAt
	applyPrice(item, price)
	if err := s.cartRepo.Save(ctx, item); err != nil {
		return nil, err
	}
	s.refreshPromo(ctx, userID)
	return item, nil
}

// RemoveItem 移除购物车行并释放预占
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID uint) error {
	item, err := s.cartRepo.GetByID(ctx, userID, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return ErrCartItemNotFound
	}
	if item.StockReserved && item.ReservationToken != "" {
		if err := s.stock.Release(ctx, item.ReservationToken); err != nil && !errors.Is(err, ErrReservationNotFound) {
			return err
		}
	}
	if err := s.cartRepo.Delete(ctx, item.ID); err != nil {
		return err
	}
	s.refreshPromo(ctx, userID)
	return nil
}

// ExtendItem 延长购物车行的库存预占
func (s *CartService) ExtendItem(ctx context.Context, userID, itemID uint) (*models.CartItem, error) {
	item, err := s.cartRepo.GetByID(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrCartItemNotFound
	}
	if item.Expired(s.clock.Now()) {
		s.expireLine(ctx, item)
		return nil, ErrCartItemExpired
	}
	expiresAt, err := s.stock.Extend(ctx, item.ReservationToken, 0)
	if err != nil {
		if errors.Is(err, ErrReservationExpired) {
			s.expireLine(ctx, item)
			return nil, ErrCartItemExpired
		}
		return nil, err
	}
	item.ExpiresAt = &expiresAt
	if err := s.cartRepo.Save(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// GetCart 购物车汇总；优惠码在读取时重新校验
func (s *CartService) GetCart(ctx context.Context, userID uint) (*CartSummary, error) {
	return s.summarize(ctx, userID)
}

// ApplyPromoCode 应用优惠码并在同一事务内写入各行优惠
func (s *CartService) ApplyPromoCode(ctx context.Context, userID uint, code string) (*PromoCodeResult, error) {
	items, err := s.activeItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrCartEmpty
	}
	result, err := s.promo.Apply(ctx, s.promoInput(ctx, userID, code, items))
	if err != nil {
		return nil, err
	}
	if err := s.persistPromo(ctx, items, result); err != nil {
		return nil, err
	}
	return result, nil
}

// RemovePromoCode 移除优惠码
func (s *CartService) RemovePromoCode(ctx context.Context, userID uint) error {
	items, err := s.activeItems(ctx, userID)
	if err != nil {
		return err
	}
	return s.persistPromo(ctx, items, nil)
}

// Checkout 结算：确认库存、核销优惠码、记录活动使用并清除已结算行；同一订单号重试不会重复计数
func (s *CartService) Checkout(ctx context.Context, userID uint, orderID string) (*CheckoutResult, error) {
	if strings.TrimSpace(orderID) == "" {
		orderID = uuid.NewString()
	}
	summary, err := s.summarize(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(summary.Lines) == 0 {
		return nil, ErrCartEmpty
	}
	if summary.promoErr != nil {
		return nil, summary.promoErr
	}

	items := make([]*models.CartItem, 0, len(summary.Lines))
	for _, line := range summary.Lines {
		item, err := s.cartRepo.GetByID(ctx, userID, line.ID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			continue
		}
		items = append(items, item)
	}
	// 先校验全部预占，任一行失效则不做任何确认
	stale := false
	for _, item := range items {
		if err := s.stock.CheckHold(ctx, item.ReservationToken); err != nil {
			if !errors.Is(err, ErrReservationExpired) && !errors.Is(err, ErrReservationNotFound) {
				return nil, err
			}
			s.expireLine(ctx, item)
			stale = true
		}
	}
	if stale {
		return nil, ErrCartItemExpired
	}

	confirmed := make([]*models.CartItem, 0, len(items))
	for _, item := range items {
		if err := s.stock.Confirm(ctx, item.ReservationToken); err != nil {
			s.revertConfirmed(ctx, orderID, confirmed)
			if errors.Is(err, ErrReservationExpired) {
				s.expireLine(ctx, item)
				return nil, ErrCartItemExpired
			}
			return nil, err
		}
		confirmed = append(confirmed, item)
	}

	if summary.promo != nil && summary.promo.TotalDiscount.IsPositive() {
		if err := s.promo.Redeem(ctx, summary.promo.PromoCodeID, userID, orderID, summary.promo.TotalDiscount); err != nil {
			s.revertConfirmed(ctx, orderID, confirmed)
			return nil, err
		}
	}

	s.recordEventUsage(ctx, userID, orderID, summary.Lines)

	err = s.cartRepo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.cartRepo.WithTx(tx)
		for _, line := range summary.Lines {
			if err := repo.Delete(ctx, line.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, productID := range touchedProducts(summary.Lines) {
		s.invalidator.Invalidate(ctx, productID)
	}
	logger.Infow("cart_checkout_completed",
		"user_id", userID,
		"order_id", orderID,
		"lines", len(summary.Lines),
		"grand_total", summary.GrandTotal.String(),
	)
	return &CheckoutResult{OrderID: orderID, Summary: summary}, nil
}

// revertConfirmed 结算中途失败时撤销已确认的行，使其仍可释放
func (s *CartService) revertConfirmed(ctx context.Context, orderID string, items []*models.CartItem) {
	for _, item := range items {
		if err := s.stock.Revert(ctx, item.ReservationToken); err != nil {
			logger.Warnw("cart_checkout_revert_failed",
				"order_id", orderID,
				"item_id", item.ID,
				"token", item.ReservationToken,
				"error", err,
			)
		}
	}
}

func (s *CartService) recordEventUsage(ctx context.Context, userID uint, orderID string, lines []CartLineView) {
	if s.eventUsage == nil {
		return
	}
	amounts := make(map[uint]decimal.Decimal)
	for _, line := range lines {
		if line.EventID == nil {
			continue
		}
		lineDiscount := line.EventDiscount.Decimal.Mul(decimal.NewFromInt(int64(line.Quantity)))
		amounts[*line.EventID] = amounts[*line.EventID].Add(lineDiscount)
	}
	eventIDs := make([]uint, 0, len(amounts))
	for id := range amounts {
		eventIDs = append(eventIDs, id)
	}
	sort.Slice(eventIDs, func(i, j int) bool { return eventIDs[i] < eventIDs[j] })
	for _, eventID := range eventIDs {
		if err := s.eventUsage.RecordUsage(ctx, eventID, userID, orderID, models.NewMoneyFromDecimal(amounts[eventID])); err != nil {
			logger.Warnw("cart_checkout_event_usage_failed",
				"event_id", eventID,
				"user_id", userID,
				"order_id", orderID,
				"error", err,
			)
		}
	}
}

func touchedProducts(lines []CartLineView) []uint {
	seen := make(map[uint]struct{}, len(lines))
	out := make([]uint, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		out = append(out, line.ProductID)
	}
	return out
}

// ExpireLines 标记已过期的购物车行并释放其预占，返回处理条数
func (s *CartService) ExpireLines(ctx context.Context, limit int) (int, error) {
	items, err := s.cartRepo.ListExpiring(ctx, s.clock.Now(), limit)
	if err != nil {
		return 0, err
	}
	expired := 0
	for i := range items {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		if s.expireLine(ctx, &items[i]) {
			expired++
		}
	}
	return expired, nil
}

// ExpireByToken 预占到期后同步标记对应购物车行；已延期的行保持不变
func (s *CartService) ExpireByToken(ctx context.Context, token string) (int, error) {
	items, err := s.cartRepo.ListByReservationToken(ctx, token)
	if err != nil {
		return 0, err
	}
	now := s.clock.Now()
	expired := 0
	for i := range items {
		if items[i].IsExpired || !items[i].Expired(now) {
			continue
		}
		if s.expireLine(ctx, &items[i]) {
			expired++
		}
	}
	return expired, nil
}

// expireLine 释放过期行的预占并标记过期
func (s *CartService) expireLine(ctx context.Context, item *models.CartItem) bool {
	if item.StockReserved && item.ReservationToken != "" {
		if err := s.stock.ExpireReservation(ctx, item.ReservationToken); err != nil {
			logger.Warnw("cart_line_expire_release_failed",
				"cart_item_id", item.ID,
				"token", item.ReservationToken,
				"error", err,
			)
			return false
		}
	}
	if err := s.cartRepo.MarkExpired(ctx, item.ID); err != nil {
		logger.Warnw("cart_line_mark_expired_failed", "cart_item_id", item.ID, "error", err)
		return false
	}
	item.IsExpired = true
	item.StockReserved = false
	return true
}

func (s *CartService) activeItems(ctx context.Context, userID uint) ([]models.CartItem, error) {
	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	active := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		if !item.Expired(now) {
			active = append(active, item)
		}
	}
	return active, nil
}

func (s *CartService) promoInput(ctx context.Context, userID uint, code string, items []models.CartItem) ApplyPromoCodeInput {
	lines := make([]CartLineInput, 0, len(items))
	subtotal := decimal.Zero
	freeShipping := false
	for _, item := range items {
		lines = append(lines, CartLineInput{
			LineID:           item.ID,
			ProductID:        item.ProductID,
			CategoryID:       s.categoryOf(ctx, &item),
			Quantity:         item.Quantity,
			UnitPrice:        item.ReservedPrice,
			HasEventDiscount: item.EventID != nil && item.EventDiscount.IsPositive(),
		})
		subtotal = subtotal.Add(item.ReservedPrice.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity))))
		freeShipping = freeShipping || item.FreeShipping
	}
	return ApplyPromoCodeInput{
		Code:         code,
		UserID:       userID,
		Lines:        lines,
		ShippingCost: models.NewMoneyFromDecimal(s.shippingFor(subtotal, freeShipping, len(items))),
	}
}

func (s *CartService) categoryOf(ctx context.Context, item *models.CartItem) uint {
	if item.Product != nil && item.Product.ID != 0 {
		return item.Product.CategoryID
	}
	product, err := s.productRepo.GetByID(ctx, item.ProductID)
	if err != nil || product == nil {
		return 0
	}
	return product.CategoryID
}

// shippingFor 运费：满额或活动包邮时为 0
func (s *CartService) shippingFor(subtotal decimal.Decimal, freeShipping bool, lines int) decimal.Decimal {
	if lines == 0 || freeShipping {
		return decimal.Zero
	}
	if s.opts.FreeShippingThreshold.IsPositive() && subtotal.GreaterThanOrEqual(s.opts.FreeShippingThreshold.Decimal) {
		return decimal.Zero
	}
	return s.opts.ShippingCost.Decimal
}

func (s *CartService) persistPromo(ctx context.Context, items []models.CartItem, result *PromoCodeResult) error {
	return s.cartRepo.Transaction(ctx, func(tx *gorm.DB) error {
		repo := s.cartRepo.WithTx(tx)
		for i := range items {
			item := &items[i]
			if result == nil {
				item.PromoCode = ""
				item.PromoDiscount = models.Money{}
			} else {
				item.PromoCode = result.Code
				item.PromoDiscount = result.LineDiscount(item.ID)
			}
			if err := repo.Save(ctx, item); err != nil {
				return err
			}
		}
		return nil
	})
}

// refreshPromo 购物车变动后重新计算已用优惠码；不再满足条件时移除
func (s *CartService) refreshPromo(ctx context.Context, userID uint) {
	items, err := s.activeItems(ctx, userID)
	if err != nil {
		logger.Warnw("cart_promo_refresh_failed", "user_id", userID, "error", err)
		return
	}
	code := appliedCode(items)
	if code == "" {
		return
	}
	result, err := s.promo.Apply(ctx, s.promoInput(ctx, userID, code, items))
	if err != nil {
		var validation *ValidationErrors
		if !errors.As(err, &validation) {
			logger.Warnw("cart_promo_refresh_failed", "user_id", userID, "code", code, "error", err)
			return
		}
		result = nil
	}
	if err := s.persistPromo(ctx, items, result); err != nil {
		logger.Warnw("cart_promo_persist_failed", "user_id", userID, "code", code, "error", err)
	}
}

func appliedCode(items []models.CartItem) string {
	for _, item := range items {
		if item.PromoCode != "" {
			return item.PromoCode
		}
	}
	return ""
}

// summarize 计算购物车汇总，优惠码校验错误记录在 promoErr
func (s *CartService) summarize(ctx context.Context, userID uint) (*CartSummary, error) {
	items, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	symbol := s.opts.CurrencySymbol
	summary := &CartSummary{
		UserID:       userID,
		Lines:        make([]CartLineView, 0, len(items)),
		ExpiredLines: make([]CartLineView, 0),
	}

	active := make([]models.CartItem, 0, len(items))
	for _, item := range items {
		if item.Expired(now) {
			summary.ExpiredLines = append(summary.ExpiredLines, s.lineView(&item, now))
			continue
		}
		active = append(active, item)
	}

	code := appliedCode(active)
	if code != "" {
		result, err := s.promo.Apply(ctx, s.promoInput(ctx, userID, code, active))
		if err != nil {
			var validation *ValidationErrors
			if errors.As(err, &validation) {
				summary.PromoErrors = validation.Errors
			} else {
				logger.Warnw("cart_promo_reapply_failed", "user_id", userID, "code", code, "error", err)
			}
			summary.promoErr = err
		} else {
			summary.promo = result
			summary.PromoCode = result.Code
		}
	}

	original := decimal.Zero
	subtotal := decimal.Zero
	eventSavings := decimal.Zero
	freeShipping := false
	for i := range active {
		item := &active[i]
		qty := decimal.NewFromInt(int64(item.Quantity))
		original = original.Add(item.OriginalPrice.Decimal.Mul(qty))
		subtotal = subtotal.Add(item.ReservedPrice.Decimal.Mul(qty))
		eventSavings = eventSavings.Add(item.EventDiscount.Decimal.Mul(qty))
		freeShipping = freeShipping || item.FreeShipping
		summary.ItemCount += item.Quantity

		if summary.promo != nil {
			item.PromoDiscount = summary.promo.LineDiscount(item.ID)
		} else {
			item.PromoDiscount = models.Money{}
		}
		summary.Lines = append(summary.Lines, s.lineView(item, now))
	}

	shipping := s.shippingFor(subtotal, freeShipping, len(active))
	promoDiscount := decimal.Zero
	shippingDiscount := decimal.Zero
	if summary.promo != nil {
		promoDiscount = summary.promo.ItemsDiscount.Decimal
		shippingDiscount = summary.promo.ShippingDiscount.Decimal
		if shippingDiscount.GreaterThan(shipping) {
			shippingDiscount = shipping
		}
	}
	grand := subtotal.Sub(promoDiscount).Add(shipping).Sub(shippingDiscount)
	if grand.IsNegative() {
		grand = decimal.Zero
	}
	productSavings := original.Sub(subtotal)
	if productSavings.IsNegative() {
		productSavings = decimal.Zero
	}

	summary.OriginalTotal = models.NewMoneyFromDecimal(original)
	summary.Subtotal = models.NewMoneyFromDecimal(subtotal)
	summary.EventSavings = models.NewMoneyFromDecimal(eventSavings)
	summary.PromoDiscount = models.NewMoneyFromDecimal(promoDiscount)
	summary.ShippingCost = models.NewMoneyFromDecimal(shipping)
	summary.ShippingDiscount = models.NewMoneyFromDecimal(shippingDiscount)
	summary.GrandTotal = models.NewMoneyFromDecimal(grand)
	summary.TotalSavings = models.NewMoneyFromDecimal(productSavings.Add(promoDiscount).Add(shippingDiscount))
	summary.FormattedSubtotal = summary.Subtotal.Format(symbol)
	summary.FormattedShipping = summary.ShippingCost.Format(symbol)
	summary.FormattedSavings = summary.TotalSavings.Format(symbol)
	summary.FormattedGrandTotal = summary.GrandTotal.Format(symbol)
	return summary, nil
}

func (s *CartService) lineView(item *models.CartItem, now time.Time) CartLineView {
	symbol := s.opts.CurrencySymbol
	qty := decimal.NewFromInt(int64(item.Quantity))
	lineTotal := item.ReservedPrice.Decimal.Mul(qty).Sub(item.PromoDiscount.Decimal)
	if lineTotal.IsNegative() {
		lineTotal = decimal.Zero
	}
	view := CartLineView{
		ID:            item.ID,
		ProductID:     item.ProductID,
		Quantity:      item.Quantity,
		UnitPrice:     item.ReservedPrice,
		OriginalPrice: item.OriginalPrice,
		EventID:       item.EventID,
		EventDiscount: item.EventDiscount,
		PromoCode:     item.PromoCode,
		PromoDiscount: item.PromoDiscount,
		LineTotal:     models.NewMoneyFromDecimal(lineTotal),
		FreeShipping:  item.FreeShipping,
		ExpiresAt:     item.ExpiresAt,
		Expired:       item.Expired(now),
	}
	if item.Product != nil {
		view.ProductName = item.Product.Name
	}
	if item.ExpiresAt != nil {
		remaining, _ := clock.NewWindow(nil, item.ExpiresAt).Remaining(now)
		view.ExpiresIn = clock.HumanizeRemaining(remaining)
	}
	view.FormattedUnitPrice = view.UnitPrice.Format(symbol)
	view.FormattedLineTotal = view.LineTotal.Format(symbol)
	return view
}
