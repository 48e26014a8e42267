package repository

import (
	"context"

	"github.com/dokan-next/internal/models"

	"gorm.io/gorm"
)

// PromoCodeUsageRepository 优惠码使用记录数据访问接口
type PromoCodeUsageRepository interface {
	CountByUser(ctx context.Context, promoCodeID, userID uint) (int64, error)
	ExistsForOrder(ctx context.Context, promoCodeID uint, orderID string) (bool, error)
	Create(ctx context.Context, usage *models.PromoCodeUsage) error
	WithTx(tx *gorm.DB) PromoCodeUsageRepository
}

// GormPromoCodeUsageRepository GORM 实现
type GormPromoCodeUsageRepository struct {
	db *gorm.DB
}

// NewPromoCodeUsageRepository 创建优惠码使用记录仓库
func NewPromoCodeUsageRepository(db *gorm.DB) *GormPromoCodeUsageRepository {
	return &GormPromoCodeUsageRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPromoCodeUsageRepository) WithTx(tx *gorm.DB) PromoCodeUsageRepository {
	if tx == nil {
		return r
	}
	return &GormPromoCodeUsageRepository{db: tx}
}

// CountByUser 统计用户使用次数
func (r *GormPromoCodeUsageRepository) CountByUser(ctx context.Context, promoCodeID, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.PromoCodeUsage{}).
		Where("promo_code_id = ? AND user_id = ?", promoCodeID, userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsForOrder 订单是否已记录过使用（幂等）
func (r *GormPromoCodeUsageRepository) ExistsForOrder(ctx context.Context, promoCodeID uint, orderID string) (bool, error) {
	if orderID == "" {
		return false, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.PromoCodeUsage{}).
		Where("promo_code_id = ? AND order_id = ?", promoCodeID, orderID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create 创建使用记录
func (r *GormPromoCodeUsageRepository) Create(ctx context.Context, usage *models.PromoCodeUsage) error {
	return r.db.WithContext(ctx).Create(usage).Error
}
