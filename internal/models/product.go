package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表
type Product struct {
	ID            uint           `gorm:"primarykey" json:"id"`                                      // 主键
	CategoryID    uint           `gorm:"not null;index" json:"category_id"`                         // 分类ID
	Slug          string         `gorm:"uniqueIndex;not null" json:"slug"`                          // 唯一标识
	Name          string         `gorm:"not null" json:"name"`                                      // 名称
	MarketPrice   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"market_price"` // 市场价
	DiscountPrice *Money         `gorm:"type:decimal(20,2)" json:"discount_price"`                  // 商品直降价（可空）
	StockTotal    int            `gorm:"not null;default:0" json:"stock_total"`                     // 库存总量
	StockReserved int            `gorm:"not null;default:0" json:"stock_reserved"`                  // 已预占数量
	StockVersion  int64          `gorm:"not null;default:0" json:"-"`                               // 库存版本号（CAS）
	IsActive      bool           `gorm:"default:true;index" json:"is_active"`                       // 是否上架
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                                   // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                                                // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                                            // 软删除时间

	// 关联
	Category Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"` // 分类信息
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}

// Available 可售库存
func (p *Product) Available() int {
	return p.StockTotal - p.StockReserved
}

// BasePrice 商品直降后的基础价，直降价无效时回退为市场价
func (p *Product) BasePrice() Money {
	if p.DiscountPrice != nil && p.DiscountPrice.IsPositive() && p.DiscountPrice.LessThan(p.MarketPrice.Decimal) {
		return NewMoneyFromDecimal(p.DiscountPrice.Decimal)
	}
	return NewMoneyFromDecimal(p.MarketPrice.Decimal)
}
