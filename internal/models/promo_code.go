package models

import (
	"time"

	"gorm.io/gorm"
)

// PromoCode 优惠码
type PromoCode struct {
	ID                  uint           `gorm:"primarykey" json:"id"`                                          // 主键
	Code                string         `gorm:"uniqueIndex;not null" json:"code"`                              // 优惠码（大写存储）
	Description         string         `gorm:"type:text" json:"description"`                                  // 描述
	DiscountType        string         `gorm:"type:varchar(32);not null" json:"discount_type"`                // 折扣类型
	DiscountValue       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"discount_value"`   // 折扣数值
	MaxDiscountAmount   *Money         `gorm:"type:decimal(20,2)" json:"max_discount_amount"`                 // 总优惠上限
	MinOrderAmount      Money          `gorm:"type:decimal(20,2);not null;default:0" json:"min_order_amount"` // 订单门槛
	MaxTotalUsage       int            `gorm:"not null;default:0" json:"max_total_usage"`                     // 总使用上限（0 表示不限制）
	MaxUsagePerUser     int            `gorm:"not null;default:0" json:"max_usage_per_user"`                  // 每人使用上限（0 表示不限制）
	CurrentUsage        int            `gorm:"not null;default:0" json:"current_usage"`                       // 已使用次数
	StartsAt            *time.Time     `gorm:"index" json:"starts_at"`                                        // 生效时间
	EndsAt              *time.Time     `gorm:"index" json:"ends_at"`                                          // 失效时间（不含）
	CategoryID          *uint          `gorm:"index" json:"category_id"`                                      // 限定分类
	CustomerTier        string         `gorm:"type:varchar(20);default:''" json:"customer_tier"`              // 限定会员等级（空或 all 表示不限）
	StackableWithEvents bool           `gorm:"not null;default:false" json:"stackable_with_events"`           // 是否可与活动叠加
	ApplyToShipping     bool           `gorm:"not null;default:false" json:"apply_to_shipping"`               // 是否作用于运费
	IsActive            bool           `gorm:"not null;default:true" json:"is_active"`                        // 是否启用
	CreatedAt           time.Time      `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt           time.Time      `gorm:"index" json:"updated_at"`                                       // 更新时间
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"-"`                                                // 软删除时间
}

// TableName 指定表名
func (PromoCode) TableName() string {
	return "promo_codes"
}

// PromoCodeUsage 优惠码使用记录（只增不改）
type PromoCodeUsage struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                         // 主键
	PromoCodeID    uint      `gorm:"not null;index:idx_promo_usage_user" json:"promo_code_id"`     // 优惠码ID
	UserID         uint      `gorm:"not null;index:idx_promo_usage_user" json:"user_id"`           // 用户ID
	OrderID        string    `gorm:"type:varchar(64);index" json:"order_id"`                       // 订单号
	DiscountAmount Money     `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"` // 优惠金额
	CreatedAt      time.Time `gorm:"index" json:"created_at"`                                      // 使用时间
}

// TableName 指定表名
func (PromoCodeUsage) TableName() string {
	return "promo_code_usages"
}
