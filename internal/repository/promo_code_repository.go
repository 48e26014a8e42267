package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/dokan-next/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PromoCodeRepository 优惠码数据访问接口
type PromoCodeRepository interface {
	GetByCode(ctx context.Context, code string) (*models.PromoCode, error)
	GetByID(ctx context.Context, id uint) (*models.PromoCode, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.PromoCode, error)
	List(ctx context.Context, filter PromoCodeListFilter) ([]models.PromoCode, int64, error)
	Create(ctx context.Context, code *models.PromoCode) error
	Update(ctx context.Context, code *models.PromoCode) error
	Delete(ctx context.Context, id uint) error
	IncrementUsage(ctx context.Context, id uint) (int64, error)
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) PromoCodeRepository
}

// GormPromoCodeRepository GORM 实现
type GormPromoCodeRepository struct {
	db *gorm.DB
}

// NewPromoCodeRepository 创建优惠码仓库
func NewPromoCodeRepository(db *gorm.DB) *GormPromoCodeRepository {
	return &GormPromoCodeRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPromoCodeRepository) WithTx(tx *gorm.DB) PromoCodeRepository {
	if tx == nil {
		return r
	}
	return &GormPromoCodeRepository{db: tx}
}

// Transaction 执行事务
func (r *GormPromoCodeRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

// NormalizeCode 优惠码统一大写
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GetByCode 按优惠码查询（不区分大小写，已删除的不返回）
func (r *GormPromoCodeRepository) GetByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, nil
	}
	var promo models.PromoCode
	if err := r.db.WithContext(ctx).Where("UPPER(code) = ?", normalized).First(&promo).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &promo, nil
}

// GetByID 根据 ID 获取优惠码
func (r *GormPromoCodeRepository) GetByID(ctx context.Context, id uint) (*models.PromoCode, error) {
	var promo models.PromoCode
	if err := r.db.WithContext(ctx).First(&promo, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &promo, nil
}

// GetByIDForUpdate 加锁获取优惠码，需在事务内调用
func (r *GormPromoCodeRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.PromoCode, error) {
	var promo models.PromoCode
	if err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&promo, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &promo, nil
}

// List 优惠码列表
func (r *GormPromoCodeRepository) List(ctx context.Context, filter PromoCodeListFilter) ([]models.PromoCode, int64, error) {
	var codes []models.PromoCode
	query := r.db.WithContext(ctx).Model(&models.PromoCode{})
	if code := NormalizeCode(filter.Code); code != "" {
		query = query.Where("UPPER(code) = ?", code)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	total, err := findPage(query, filter.Page, filter.PageSize, "id desc", &codes)
	if err != nil {
		return nil, 0, err
	}
	return codes, total, nil
}

// Create 创建优惠码
func (r *GormPromoCodeRepository) Create(ctx context.Context, code *models.PromoCode) error {
	code.Code = NormalizeCode(code.Code)
	return r.db.WithContext(ctx).Create(code).Error
}

// Update 更新优惠码
func (r *GormPromoCodeRepository) Update(ctx context.Context, code *models.PromoCode) error {
	code.Code = NormalizeCode(code.Code)
	return r.db.WithContext(ctx).Save(code).Error
}

// Delete 软删除优惠码
func (r *GormPromoCodeRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.PromoCode{}, id).Error
}

// IncrementUsage 增加使用次数（未达上限时），返回受影响行数
func (r *GormPromoCodeRepository) IncrementUsage(ctx context.Context, id uint) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.PromoCode{}).
		Where("id = ?", id).
		Where("(max_total_usage = 0 OR current_usage < max_total_usage)").
		UpdateColumn("current_usage", gorm.Expr("current_usage + ?", 1))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
