package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dokan-next/internal/models"

	"gorm.io/gorm"
)

// CartRepository 购物车数据访问接口
type CartRepository interface {
	ListByUser(ctx context.Context, userID uint) ([]models.CartItem, error)
	GetByUserAndProduct(ctx context.Context, userID, productID uint) (*models.CartItem, error)
	GetByID(ctx context.Context, userID, id uint) (*models.CartItem, error)
	Create(ctx context.Context, item *models.CartItem) error
	Save(ctx context.Context, item *models.CartItem) error
	Delete(ctx context.Context, id uint) error
	ClearByUser(ctx context.Context, userID uint) error
	ListExpiring(ctx context.Context, now time.Time, limit int) ([]models.CartItem, error)
	ListByReservationToken(ctx context.Context, token string) ([]models.CartItem, error)
	MarkExpired(ctx context.Context, id uint) error
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CartRepository
}

// GormCartRepository GORM 实现
type GormCartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓库
func NewCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCartRepository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &GormCartRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCartRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

// ListByUser 获取用户购物车项
func (r *GormCartRepository) ListByUser(ctx context.Context, userID uint) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.db.WithContext(ctx).Preload("Product").
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetByUserAndProduct 获取用户某商品的有效购物车项
func (r *GormCartRepository) GetByUserAndProduct(ctx context.Context, userID, productID uint) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ? AND is_expired = ?", userID, productID, false).
		Order("id desc").
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// GetByID 获取用户的指定购物车项
func (r *GormCartRepository) GetByID(ctx context.Context, userID, id uint) (*models.CartItem, error) {
	var item models.CartItem
	if err := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// Create 创建购物车项
func (r *GormCartRepository) Create(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Omit("Product").Create(item).Error
}

// Save 保存购物车项
func (r *GormCartRepository) Save(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Omit("Product").Save(item).Error
}

// Delete 删除购物车项
func (r *GormCartRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.CartItem{}, id).Error
}

// ClearByUser 清空购物车
func (r *GormCartRepository) ClearByUser(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.CartItem{}).Error
}

// ListExpiring 获取已过期但尚未标记的购物车项
func (r *GormCartRepository) ListExpiring(ctx context.Context, now time.Time, limit int) ([]models.CartItem, error) {
	var items []models.CartItem
	query := r.db.WithContext(ctx).
		Where("is_expired = ? AND expires_at IS NOT NULL AND expires_at < ?", false, now).
		Order("expires_at asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListByReservationToken 按预占凭证查找购物车项
func (r *GormCartRepository) ListByReservationToken(ctx context.Context, token string) ([]models.CartItem, error) {
	var items []models.CartItem
	if token == "" {
		return items, nil
	}
	if err := r.db.WithContext(ctx).Where("reservation_token = ?", token).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// MarkExpired 标记购物车项过期并清除预占标记
func (r *GormCartRepository) MarkExpired(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_expired":     true,
			"stock_reserved": false,
		}).Error
}
