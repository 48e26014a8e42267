package repository

import (
	"context"

	"github.com/dokan-next/internal/models"

	"gorm.io/gorm"
)

// EventUsageRepository 活动使用记录数据访问接口
type EventUsageRepository interface {
	CountByUser(ctx context.Context, eventID, userID uint) (int64, error)
	ExistsForOrder(ctx context.Context, eventID uint, orderID string) (bool, error)
	Create(ctx context.Context, usage *models.EventUsage) error
	WithTx(tx *gorm.DB) EventUsageRepository
}

// GormEventUsageRepository GORM 实现
type GormEventUsageRepository struct {
	db *gorm.DB
}

// NewEventUsageRepository 创建活动使用记录仓库
func NewEventUsageRepository(db *gorm.DB) *GormEventUsageRepository {
	return &GormEventUsageRepository{db: db}
}

// WithTx 绑定事务
func (r *GormEventUsageRepository) WithTx(tx *gorm.DB) EventUsageRepository {
	if tx == nil {
		return r
	}
	return &GormEventUsageRepository{db: tx}
}

// CountByUser 统计用户在活动上的使用次数
func (r *GormEventUsageRepository) CountByUser(ctx context.Context, eventID, userID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.EventUsage{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsForOrder 订单是否已记录过使用（幂等）
func (r *GormEventUsageRepository) ExistsForOrder(ctx context.Context, eventID uint, orderID string) (bool, error) {
	if orderID == "" {
		return false, nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.EventUsage{}).
		Where("event_id = ? AND order_id = ?", eventID, orderID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create 创建使用记录
func (r *GormEventUsageRepository) Create(ctx context.Context, usage *models.EventUsage) error {
	return r.db.WithContext(ctx).Create(usage).Error
}
