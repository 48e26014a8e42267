package models

import (
	"time"

	"gorm.io/gorm"
)

// CartItem 购物车项（锁定价格与库存预占）
type CartItem struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                        // 主键
	UserID           uint           `gorm:"not null;index:idx_cart_user_product" json:"user_id"`         // 用户ID
	ProductID        uint           `gorm:"not null;index:idx_cart_user_product" json:"product_id"`      // 商品ID
	Quantity         int            `gorm:"not null" json:"quantity"`                                    // 数量
	ReservedPrice    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"reserved_price"` // 锁定单价（活动后）
	OriginalPrice    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"original_price"` // 加购时市场价
	EventID          *uint          `gorm:"index" json:"event_id"`                                       // 命中活动
	EventDiscount    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"event_discount"` // 单件活动优惠
	PromoCode        string         `gorm:"type:varchar(64);default:''" json:"promo_code"`               // 已用优惠码
	PromoDiscount    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"promo_discount"` // 行优惠码优惠合计
	FreeShipping     bool           `gorm:"not null;default:false" json:"free_shipping"`                 // 活动包邮
	PaymentMethod    string         `gorm:"type:varchar(32);default:''" json:"payment_method"`           // 定价时的支付方式
	Region           string         `gorm:"type:varchar(64);default:''" json:"region"`                   // 定价时的地区
	ReservationToken string         `gorm:"type:varchar(64);index" json:"reservation_token"`             // 库存预占凭证
	StockReserved    bool           `gorm:"not null;default:false" json:"stock_reserved"`                // 是否持有预占
	ExpiresAt        *time.Time     `gorm:"index" json:"expires_at"`                                     // 预占过期时间
	IsExpired        bool           `gorm:"not null;default:false;index" json:"is_expired"`              // 是否已过期
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                                     // 创建时间
	UpdatedAt        time.Time      `gorm:"index" json:"updated_at"`                                     // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                                              // 软删除时间

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"` // 关联商品
}

// TableName 指定表名
func (CartItem) TableName() string {
	return "cart_items"
}

// Expired 当前时间下该行是否已失效
func (c *CartItem) Expired(now time.Time) bool {
	if c.IsExpired {
		return true
	}
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}
