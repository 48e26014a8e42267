package models

import (
	"time"

	"gorm.io/gorm"
)

// PromotionalEvent 限时促销活动
type PromotionalEvent struct {
	ID                uint           `gorm:"primarykey" json:"id"`                                          // 主键
	Name              string         `gorm:"not null" json:"name"`                                          // 名称
	Description       string         `gorm:"type:text" json:"description"`                                  // 描述
	StartsAt          *time.Time     `gorm:"index" json:"starts_at"`                                        // 开始时间（UTC）
	EndsAt            *time.Time     `gorm:"index" json:"ends_at"`                                          // 结束时间（UTC，不含）
	DiscountType      string         `gorm:"type:varchar(32);not null" json:"discount_type"`                // 折扣类型
	DiscountValue     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"discount_value"`   // 折扣数值（百分比或金额）
	MaxDiscountAmount *Money         `gorm:"type:decimal(20,2)" json:"max_discount_amount"`                 // 单件优惠上限
	MinOrderValue     *Money         `gorm:"type:decimal(20,2)" json:"min_order_value"`                     // 订单门槛
	Priority          int            `gorm:"not null;default:0;index" json:"priority"`                      // 优先级（越大越优先）
	MaxTotalUsage     int            `gorm:"not null;default:0" json:"max_total_usage"`                     // 总使用上限（0 表示不限制）
	MaxUsagePerUser   int            `gorm:"not null;default:0" json:"max_usage_per_user"`                  // 每人使用上限（0 表示不限制）
	CurrentUsage      int            `gorm:"not null;default:0" json:"current_usage"`                       // 已使用次数
	ProductIDs        UintArray      `gorm:"type:text" json:"product_ids"`                                  // 适用商品（空表示全部）
	IsActive          bool           `gorm:"not null;default:true" json:"is_active"`                        // 是否启用
	Status            string         `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"` // 生命周期状态
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt         time.Time      `gorm:"index" json:"updated_at"`                                       // 更新时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                                // 软删除时间

	Rules []PromotionRule `gorm:"foreignKey:EventID" json:"rules,omitempty"` // 适用规则
}

// TableName 指定表名
func (PromotionalEvent) TableName() string {
	return "promotional_events"
}

// TargetsProduct 活动是否覆盖指定商品
func (e *PromotionalEvent) TargetsProduct(productID uint) bool {
	return len(e.ProductIDs) == 0 || e.ProductIDs.Contains(productID)
}

// UsageExhausted 全局使用次数是否已满
func (e *PromotionalEvent) UsageExhausted() bool {
	return e.MaxTotalUsage > 0 && e.CurrentUsage >= e.MaxTotalUsage
}

// PromotionRule 活动适用规则
type PromotionRule struct {
	ID                uint           `gorm:"primarykey" json:"id"`                             // 主键
	EventID           uint           `gorm:"not null;index" json:"event_id"`                   // 活动ID
	RuleType          string         `gorm:"type:varchar(32);not null" json:"rule_type"`       // 规则类型
	TargetValue       string         `gorm:"type:text" json:"target_value"`                    // 目标值（逗号分隔 ID、价格区间、地区等）
	DiscountType      string         `gorm:"type:varchar(32);default:''" json:"discount_type"` // 覆盖折扣类型（空表示沿用活动）
	DiscountValue     *Money         `gorm:"type:decimal(20,2)" json:"discount_value"`         // 覆盖折扣数值
	MaxDiscountAmount *Money         `gorm:"type:decimal(20,2)" json:"max_discount_amount"`    // 覆盖优惠上限
	MinOrderValue     *Money         `gorm:"type:decimal(20,2)" json:"min_order_value"`        // 规则门槛
	Priority          int            `gorm:"not null;default:0" json:"priority"`               // 评估顺序（越小越先）
	CreatedAt         time.Time      `gorm:"index" json:"created_at"`                          // 创建时间
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`                                   // 软删除时间
}

// TableName 指定表名
func (PromotionRule) TableName() string {
	return "promotion_rules"
}

// OverridesDiscount 规则是否覆盖活动折扣
func (r *PromotionRule) OverridesDiscount() bool {
	return r.DiscountType != "" && r.DiscountValue != nil
}

// EventUsage 活动使用记录（只增不改）
type EventUsage struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                         // 主键
	EventID        uint      `gorm:"not null;index:idx_event_usage_user" json:"event_id"`          // 活动ID
	UserID         uint      `gorm:"not null;index:idx_event_usage_user" json:"user_id"`           // 用户ID
	OrderID        string    `gorm:"type:varchar(64);index" json:"order_id"`                       // 订单号
	DiscountAmount Money     `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"` // 优惠金额
	CreatedAt      time.Time `gorm:"index" json:"created_at"`                                      // 使用时间
}

// TableName 指定表名
func (EventUsage) TableName() string {
	return "event_usages"
}
