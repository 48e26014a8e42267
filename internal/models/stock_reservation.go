package models

import "time"

// StockReservation 库存预占记录
type StockReservation struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                                        // 主键
	Token     string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"token"`                          // 预占凭证
	ProductID uint      `gorm:"not null;index" json:"product_id"`                                            // 商品ID
	UserID    uint      `gorm:"not null;index" json:"user_id"`                                               // 用户ID
	Quantity  int       `gorm:"not null" json:"quantity"`                                                    // 数量
	Status    string    `gorm:"type:varchar(20);not null;index:idx_reservation_status_expiry" json:"status"` // 状态
	ExpiresAt time.Time `gorm:"not null;index:idx_reservation_status_expiry" json:"expires_at"`              // 过期时间
	CreatedAt time.Time `gorm:"index" json:"created_at"`                                                     // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                                                                  // 更新时间
}

// TableName 指定表名
func (StockReservation) TableName() string {
	return "stock_reservations"
}
