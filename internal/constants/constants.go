package constants

// 折扣类型常量
const (
	DiscountTypePercentage   = "percentage"
	DiscountTypeFixedAmount  = "fixed_amount"
	DiscountTypeFreeShipping = "free_shipping"
	DiscountTypeBuyOneGetOne = "buy_one_get_one"
)

// 活动规则类型常量
const (
	RuleTypeCategory      = "category"
	RuleTypeProduct       = "product"
	RuleTypePriceRange    = "price_range"
	RuleTypePaymentMethod = "payment_method"
	RuleTypeGeography     = "geography"
	RuleTypeAll           = "all"
)

// 活动状态常量
const (
	EventStatusDraft     = "draft"
	EventStatusActive    = "active"
	EventStatusPaused    = "paused"
	EventStatusExpired   = "expired"
	EventStatusCancelled = "cancelled"
)

// 库存预占状态常量
const (
	ReservationStatusReserved  = "reserved"
	ReservationStatusReleased  = "released"
	ReservationStatusConfirmed = "confirmed"
	ReservationStatusExpired   = "expired"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 用户等级常量
const (
	CustomerTierAll      = "all"
	CustomerTierRegular  = "regular"
	CustomerTierSilver   = "silver"
	CustomerTierGold     = "gold"
	CustomerTierPlatinum = "platinum"
)

// 支付方式常量
const (
	PaymentMethodEsewa  = "esewa"
	PaymentMethodKhalti = "khalti"
	PaymentMethodCOD    = "cod"
)

// 队列名
const (
	QueueDefault  = "default"
	QueueCritical = "critical"
	QueueLow      = "low"
)

// 异步任务名
const (
	TaskReservationExpire = "reservation:expire"
	TaskAnalyticsEvent    = "analytics:event"
)

// 分析事件类型
const (
	AnalyticsPriceComputed      = "price_computed"
	AnalyticsStockReserved      = "stock_reserved"
	AnalyticsStockConfirmed     = "stock_confirmed"
	AnalyticsStockReleased      = "stock_released"
	AnalyticsPromoCodeRedeemed  = "promo_code_redeemed"
	AnalyticsEventUsageRecorded = "event_usage_recorded"
)

// 缓存键前缀
const (
	CacheKeyPricingProduct = "pricing:product:"
	CacheKeyPricingAll     = "pricing:"
	CacheKeyEventsActive   = "pricing:events:active"
)

// 校验错误码
const (
	PromoErrNotFound        = "not_found"
	PromoErrInactive        = "inactive"
	PromoErrNotStarted      = "not_started"
	PromoErrExpired         = "expired"
	PromoErrUsageLimit      = "usage_limit_reached"
	PromoErrUserLimit       = "user_limit_reached"
	PromoErrUsageUnverified = "usage_unverified"
	PromoErrMinOrder        = "min_order_not_met"
	PromoErrCategory        = "category_not_eligible"
	PromoErrTier            = "tier_not_eligible"
	PromoErrNoQualifying    = "no_qualifying_items"
	PromoErrNotStackable    = "not_stackable_with_events"
)
