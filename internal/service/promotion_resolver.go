package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dokan-next/internal/clock"
	"github.com/dokan-next/internal/constants"
	"github.com/dokan-next/internal/logger"
	"github.com/dokan-next/internal/models"
	"github.com/dokan-next/internal/repository"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// EventSource 活动来源（当前可用活动）
type EventSource interface {
	ListActive(ctx context.Context, now time.Time) ([]models.PromotionalEvent, error)
}

// EventUsageChecker 活动每人限额校验
type EventUsageChecker interface {
	CanUserUseEvent(ctx context.Context, event *models.PromotionalEvent, userID uint) (bool, error)
}

// PriceQuery 价格查询参数
type PriceQuery struct {
	ProductID     uint
	UserID        uint
	Quantity      int
	PaymentMethod string
	Region        string
	OrderTotal    *decimal.Decimal
}

// PriceInfo 商品有效价格明细
type PriceInfo struct {
	ProductID             uint            `json:"product_id"`
	UserID                uint            `json:"user_id,omitempty"`
	Quantity              int             `json:"quantity"`
	MarketPrice           models.Money    `json:"market_price"`
	BasePrice             models.Money    `json:"base_price"`
	ProductDiscountAmount models.Money    `json:"product_discount_amount"`
	EventDiscountAmount   models.Money    `json:"event_discount_amount"`
	EffectivePrice        models.Money    `json:"effective_price"`
	TotalDiscountAmount   models.Money    `json:"total_discount_amount"`
	TotalDiscountPercent  decimal.Decimal `json:"total_discount_percent"`

	HasEvent      bool         `json:"has_event"`
	EventID       *uint        `json:"event_id,omitempty"`
	EventName     string       `json:"event_name,omitempty"`
	EventPriority int          `json:"event_priority,omitempty"`
	DiscountType  string       `json:"discount_type,omitempty"`
	DiscountLabel string       `json:"discount_label,omitempty"`
	FreeShipping  bool         `json:"free_shipping"`
	AppliedRule   *AppliedRule `json:"applied_rule,omitempty"`
	FailedRules   []FailedRule `json:"failed_rules,omitempty"`

	EventEndsAt     *time.Time `json:"event_ends_at,omitempty"`
	TimeRemaining   string     `json:"time_remaining,omitempty"`
	ExpiringSoon    bool       `json:"expiring_soon"`
	FormattedMarket string     `json:"formatted_market_price"`
	FormattedBase   string     `json:"formatted_base_price"`
	FormattedPrice  string     `json:"formatted_effective_price"`
	FormattedSaving string     `json:"formatted_total_discount"`

	Degraded   bool      `json:"degraded"`
	ComputedAt time.Time `json:"computed_at"`
}

// PromotionResolverOptions 价格计算展示参数
type PromotionResolverOptions struct {
	Location       *time.Location
	CurrencySymbol string
	ExpiringSoon   time.Duration
	BatchLimit     int
}

// PromotionResolver 有效价格计算服务
type PromotionResolver struct {
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	events      EventSource
	usage       EventUsageChecker
	evaluator   *RuleEvaluator
	clock       clock.Clock
	analytics   *AnalyticsEmitter
	opts        PromotionResolverOptions
}

// NewPromotionResolver 创建价格计算服务
func NewPromotionResolver(
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	events EventSource,
	usage EventUsageChecker,
	clk clock.Clock,
	analytics *AnalyticsEmitter,
	opts PromotionResolverOptions,
) *PromotionResolver {
	if opts.Location == nil {
		opts.Location = clock.LoadLocation("", clock.DefaultUTCOffsetMinutes)
	}
	if strings.TrimSpace(opts.CurrencySymbol) == "" {
		opts.CurrencySymbol = "Rs."
	}
	if opts.ExpiringSoon <= 0 {
		opts.ExpiringSoon = 24 * time.Hour
	}
	if opts.BatchLimit <= 0 {
		opts.BatchLimit = 8
	}
	return &PromotionResolver{
		productRepo: productRepo,
		userRepo:    userRepo,
		events:      events,
		usage:       usage,
		evaluator:   NewRuleEvaluator(opts.CurrencySymbol),
		clock:       clk,
		analytics:   analytics,
		opts:        opts,
	}
}

// CurrencySymbol 货币符号
func (s *PromotionResolver) CurrencySymbol() string {
	return s.opts.CurrencySymbol
}

// GetEffectivePrice 计算单件商品对指定用户的有效价格（userID 为 0 表示匿名）
func (s *PromotionResolver) GetEffectivePrice(ctx context.Context, productID, userID uint) (*PriceInfo, error) {
	return s.GetEffectivePriceFor(ctx, PriceQuery{ProductID: productID, UserID: userID, Quantity: 1})
}

// GetEffectivePrices 批量计算有效价格，保持入参顺序，不存在的商品被跳过
func (s *PromotionResolver) GetEffectivePrices(ctx context.Context, productIDs []uint, userID uint) ([]PriceInfo, error) {
	results := make([]*PriceInfo, len(productIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.BatchLimit)
	for i, productID := range productIDs {
		g.Go(func() error {
			info, err := s.GetEffectivePrice(gctx, productID, userID)
			if err != nil {
				if errors.Is(err, ErrProductNotFound) {
					return nil
				}
				return err
			}
			results[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return compactPrices(results), nil
}

func compactPrices(results []*PriceInfo) []PriceInfo {
	out := make([]PriceInfo, 0, len(results))
	for _, info := range results {
		if info != nil {
			out = append(out, *info)
		}
	}
	return out
}

// GetEffectivePriceFor 按完整上下文计算有效价格；协作方故障时退化为仅商品直降
func (s *PromotionResolver) GetEffectivePriceFor(ctx context.Context, query PriceQuery) (*PriceInfo, error) {
	if query.ProductID == 0 {
		return nil, ErrProductNotFound
	}
	if query.Quantity <= 0 {
		query.Quantity = 1
	}
	product, err := s.productRepo.GetByID(ctx, query.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}

	now := s.clock.Now()
	info := s.basePriceInfo(product, query, now)
	if !product.IsActive {
		s.finalize(info, now)
		return info, nil
	}

	events, err := s.events.ListActive(ctx, now)
	if err != nil {
		logger.Warnw("promotion_resolver_events_unavailable",
			"product_id", product.ID,
			"error", err,
		)
		info.Degraded = true
		s.finalize(info, now)
		return info, nil
	}

	pc := s.purchaseContext(ctx, product, query, info.BasePrice.Decimal)
	candidates := s.rankCandidates(events, product, pc, info.BasePrice.Decimal, query.Quantity, now)

	for i := range candidates {
		candidate := candidates[i]
		if query.UserID != 0 && candidate.event.MaxUsagePerUser > 0 && s.usage != nil {
			allowed, err := s.usage.CanUserUseEvent(ctx, candidate.event, query.UserID)
			if err != nil {
				logger.Warnw("promotion_resolver_usage_check_failed",
					"product_id", product.ID,
					"event_id", candidate.event.ID,
					"user_id", query.UserID,
					"error", err,
				)
				info.Degraded = true
				break
			}
			if !allowed {
				continue
			}
		}
		s.applyCandidate(info, &candidate)
		break
	}

	s.finalize(info, now)
	if info.HasEvent && s.analytics != nil {
		s.analytics.Emit(constants.AnalyticsPriceComputed, product.ID, query.UserID, map[string]string{
			"event_id":        strconv.FormatUint(uint64(*info.EventID), 10),
			"effective_price": info.EffectivePrice.String(),
			"event_discount":  info.EventDiscountAmount.String(),
		})
	}
	return info, nil
}

func (s *PromotionResolver) basePriceInfo(product *models.Product, query PriceQuery, now time.Time) *PriceInfo {
	base := product.BasePrice()
	productDiscount := product.MarketPrice.Decimal.Sub(base.Decimal)
	if productDiscount.IsNegative() {
		productDiscount = decimal.Zero
	}
	return &PriceInfo{
		ProductID:             product.ID,
		UserID:                query.UserID,
		Quantity:              query.Quantity,
		MarketPrice:           models.NewMoneyFromDecimal(product.MarketPrice.Decimal),
		BasePrice:             base,
		ProductDiscountAmount: models.NewMoneyFromDecimal(productDiscount),
		ComputedAt:            now,
	}
}

func (s *PromotionResolver) purchaseContext(ctx context.Context, product *models.Product, query PriceQuery, base decimal.Decimal) PurchaseContext {
	orderTotal := base.Mul(decimal.NewFromInt(int64(query.Quantity)))
	if query.OrderTotal != nil {
		orderTotal = *query.OrderTotal
	}
	region := strings.TrimSpace(query.Region)
	if region == "" && query.UserID != 0 && s.userRepo != nil {
		user, err := s.userRepo.GetByID(ctx, query.UserID)
		if err != nil {
			logger.Warnw("promotion_resolver_user_lookup_failed", "user_id", query.UserID, "error", err)
		} else if user != nil {
			region = user.Region
		}
	}
	return PurchaseContext{
		ProductID:     product.ID,
		CategoryID:    product.CategoryID,
		UnitPrice:     base,
		Quantity:      query.Quantity,
		OrderTotal:    orderTotal,
		PaymentMethod: strings.TrimSpace(query.PaymentMethod),
		Region:        region,
	}
}

type eventCandidate struct {
	event        *models.PromotionalEvent
	rule         *AppliedRule
	failed       []FailedRule
	discountType string
	discount     decimal.Decimal
	freeShipping bool
}

// rankCandidates 过滤可用活动并按 优先级降序、优惠额降序、活动 ID 升序 排列
func (s *PromotionResolver) rankCandidates(events []models.PromotionalEvent, product *models.Product, pc PurchaseContext, base decimal.Decimal, quantity int, now time.Time) []eventCandidate {
	candidates := make([]eventCandidate, 0, len(events))
	for i := range events {
		event := &events[i]
		if !eventEligibleAt(event, product.ID, now) {
			continue
		}
		if event.MinOrderValue != nil && event.MinOrderValue.IsPositive() && pc.OrderTotal.LessThan(event.MinOrderValue.Decimal) {
			continue
		}

		var applied *AppliedRule
		var failed []FailedRule
		if len(event.Rules) > 0 {
			evaluation := s.evaluator.Evaluate(event.Rules, pc)
			if !evaluation.HasMatch() {
				continue
			}
			applied = evaluation.Matched
			failed = evaluation.Failed
		}

		discountType, discount, freeShipping := calculateEventDiscount(base, quantity, event, applied)
		candidates = append(candidates, eventCandidate{
			event:        event,
			rule:         applied,
			failed:       failed,
			discountType: discountType,
			discount:     discount,
			freeShipping: freeShipping,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.event.Priority != b.event.Priority {
			return a.event.Priority > b.event.Priority
		}
		if cmp := a.discount.Cmp(b.discount); cmp != 0 {
			return cmp > 0
		}
		return a.event.ID < b.event.ID
	})
	return candidates
}

// eventEligibleAt 以当前时间重新校验活动可用性（活动列表可能来自缓存）
func eventEligibleAt(event *models.PromotionalEvent, productID uint, now time.Time) bool {
	if event == nil || !event.IsActive || event.Status != constants.EventStatusActive {
		return false
	}
	if !clock.NewWindow(event.StartsAt, event.EndsAt).Contains(now) {
		return false
	}
	if event.UsageExhausted() {
		return false
	}
	return event.TargetsProduct(productID)
}

// calculateEventDiscount 计算单件活动优惠，规则覆盖时使用规则的折扣参数
func calculateEventDiscount(base decimal.Decimal, quantity int, event *models.PromotionalEvent, applied *AppliedRule) (string, decimal.Decimal, bool) {
	discountType := event.DiscountType
	value := event.DiscountValue.Decimal
	maxDiscount := event.MaxDiscountAmount
	if rule := applied.Rule(); rule != nil {
		if rule.OverridesDiscount() {
			discountType = rule.DiscountType
			value = rule.DiscountValue.Decimal
		}
		if rule.MaxDiscountAmount != nil {
			maxDiscount = rule.MaxDiscountAmount
		}
	}
	if quantity <= 0 {
		quantity = 1
	}

	discount := decimal.Zero
	freeShipping := false
	switch discountType {
	case constants.DiscountTypePercentage:
		discount = base.Mul(value).Div(decimal.NewFromInt(100))
	case constants.DiscountTypeFixedAmount:
		discount = value
	case constants.DiscountTypeBuyOneGetOne:
		free := int64(quantity / 2)
		discount = base.Mul(decimal.NewFromInt(free)).Div(decimal.NewFromInt(int64(quantity)))
	case constants.DiscountTypeFreeShipping:
		freeShipping = true
	}

	if maxDiscount != nil && maxDiscount.IsPositive() && discount.GreaterThan(maxDiscount.Decimal) {
		discount = maxDiscount.Decimal
	}
	if discount.GreaterThan(base) {
		discount = base
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discountType, discount.Round(2), freeShipping
}

func (s *PromotionResolver) applyCandidate(info *PriceInfo, candidate *eventCandidate) {
	event := candidate.event
	eventID := event.ID
	info.HasEvent = true
	info.EventID = &eventID
	info.EventName = event.Name
	info.EventPriority = event.Priority
	info.DiscountType = candidate.discountType
	info.FreeShipping = candidate.freeShipping
	info.AppliedRule = candidate.rule
	info.FailedRules = candidate.failed
	info.EventDiscountAmount = models.NewMoneyFromDecimal(candidate.discount)

	labelValue := event.DiscountValue
	if rule := candidate.rule.Rule(); rule != nil && rule.OverridesDiscount() {
		labelValue = *rule.DiscountValue
	}
	info.DiscountLabel = DiscountLabel(candidate.discountType, labelValue, s.opts.CurrencySymbol)
	if event.EndsAt != nil {
		endsLocal := event.EndsAt.UTC().In(s.opts.Location)
		info.EventEndsAt = &endsLocal
	}
}

// finalize 汇总价格并填充展示字段
func (s *PromotionResolver) finalize(info *PriceInfo, now time.Time) {
	effective := info.BasePrice.Decimal.Sub(info.EventDiscountAmount.Decimal)
	if effective.IsNegative() {
		effective = decimal.Zero
	}
	info.EffectivePrice = models.NewMoneyFromDecimal(effective)
	total := info.ProductDiscountAmount.Decimal.Add(info.EventDiscountAmount.Decimal)
	info.TotalDiscountAmount = models.NewMoneyFromDecimal(total)
	info.TotalDiscountPercent = decimal.Zero
	if info.MarketPrice.IsPositive() {
		info.TotalDiscountPercent = total.Div(info.MarketPrice.Decimal).Mul(decimal.NewFromInt(100)).Round(2)
	}

	symbol := s.opts.CurrencySymbol
	info.FormattedMarket = info.MarketPrice.Format(symbol)
	info.FormattedBase = info.BasePrice.Format(symbol)
	info.FormattedPrice = info.EffectivePrice.Format(symbol)
	info.FormattedSaving = info.TotalDiscountAmount.Format(symbol)
	s.RefreshCountdown(info, now)
}

// RefreshCountdown 按当前时间刷新剩余时长（缓存命中后调用）
func (s *PromotionResolver) RefreshCountdown(info *PriceInfo, now time.Time) {
	if info == nil || info.EventEndsAt == nil {
		return
	}
	window := clock.NewWindow(nil, info.EventEndsAt)
	remaining, ok := window.Remaining(now)
	if !ok {
		return
	}
	info.TimeRemaining = clock.HumanizeRemaining(remaining)
	info.ExpiringSoon = remaining > 0 && remaining < s.opts.ExpiringSoon
}
