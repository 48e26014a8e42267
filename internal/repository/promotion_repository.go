package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dokan-next/internal/constants"
	"github.com/dokan-next/internal/models"

	"gorm.io/gorm"
)

// PromotionalEventRepository 促销活动数据访问接口
type PromotionalEventRepository interface {
	GetByID(ctx context.Context, id uint) (*models.PromotionalEvent, error)
	ListActive(ctx context.Context, now time.Time) ([]models.PromotionalEvent, error)
	List(ctx context.Context, filter EventListFilter) ([]models.PromotionalEvent, int64, error)
	Create(ctx context.Context, event *models.PromotionalEvent) error
	UpdateWindow(ctx context.Context, id uint, startsAt, endsAt *time.Time) error
	UpdateStatus(ctx context.Context, id uint, from []string, to string) (int64, error)
	SetActive(ctx context.Context, id uint, active bool) error
	IncrementUsage(ctx context.Context, id uint) (int64, error)
	ExpireEnded(ctx context.Context, now time.Time) (int64, error)
	ActivateStarted(ctx context.Context, now time.Time) (int64, error)
	Delete(ctx context.Context, id uint) error
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) PromotionalEventRepository
}

// GormPromotionalEventRepository GORM 实现
type GormPromotionalEventRepository struct {
	db *gorm.DB
}

// NewPromotionalEventRepository 创建促销活动仓库
func NewPromotionalEventRepository(db *gorm.DB) *GormPromotionalEventRepository {
	return &GormPromotionalEventRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPromotionalEventRepository) WithTx(tx *gorm.DB) PromotionalEventRepository {
	if tx == nil {
		return r
	}
	return &GormPromotionalEventRepository{db: tx}
}

// Transaction 执行事务
func (r *GormPromotionalEventRepository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(fn)
}

func preloadRules(db *gorm.DB) *gorm.DB {
	return db.Order("priority asc, id asc")
}

// GetByID 根据 ID 获取活动（含规则）
func (r *GormPromotionalEventRepository) GetByID(ctx context.Context, id uint) (*models.PromotionalEvent, error) {
	var event models.PromotionalEvent
	if err := r.db.WithContext(ctx).Preload("Rules", preloadRules).First(&event, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

// ListActive 获取当前时间窗口内可用的活动（含规则）
func (r *GormPromotionalEventRepository) ListActive(ctx context.Context, now time.Time) ([]models.PromotionalEvent, error) {
	var events []models.PromotionalEvent
	query := r.db.WithContext(ctx).Preload("Rules", preloadRules).
		Where("is_active = ? AND status = ?", true, constants.EventStatusActive).
		Where("(starts_at IS NULL OR starts_at <= ?)", now).
		Where("(ends_at IS NULL OR ends_at > ?)", now).
		Where("(max_total_usage = 0 OR current_usage < max_total_usage)")
	if err := query.Order("priority desc, id asc").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// List 活动列表
func (r *GormPromotionalEventRepository) List(ctx context.Context, filter EventListFilter) ([]models.PromotionalEvent, int64, error) {
	var events []models.PromotionalEvent
	query := r.db.WithContext(ctx).Model(&models.PromotionalEvent{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	query = applyLikeSearch(query, filter.Search, "name", "description")

	total, err := findPage(query, filter.Page, filter.PageSize, "id desc", &events, func(db *gorm.DB) *gorm.DB {
		return db.Preload("Rules", preloadRules)
	})
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// Create 创建活动（规则一并写入）
func (r *GormPromotionalEventRepository) Create(ctx context.Context, event *models.PromotionalEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// UpdateWindow 更新活动时间窗口
func (r *GormPromotionalEventRepository) UpdateWindow(ctx context.Context, id uint, startsAt, endsAt *time.Time) error {
	return r.db.WithContext(ctx).Model(&models.PromotionalEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"starts_at": startsAt,
			"ends_at":   endsAt,
		}).Error
}

// UpdateStatus 按前置状态切换活动状态，返回受影响行数
func (r *GormPromotionalEventRepository) UpdateStatus(ctx context.Context, id uint, from []string, to string) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PromotionalEvent{}).Where("id = ?", id)
	if len(from) > 0 {
		query = query.Where("status IN ?", from)
	}
	result := query.Update("status", to)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// SetActive 设置活动启用开关
func (r *GormPromotionalEventRepository) SetActive(ctx context.Context, id uint, active bool) error {
	return r.db.WithContext(ctx).Model(&models.PromotionalEvent{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}

// IncrementUsage 增加活动使用次数（未达上限时）
func (r *GormPromotionalEventRepository) IncrementUsage(ctx context.Context, id uint) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.PromotionalEvent{}).
		Where("id = ?", id).
		Where("(max_total_usage = 0 OR current_usage < max_total_usage)").
		UpdateColumn("current_usage", gorm.Expr("current_usage + ?", 1))
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ExpireEnded 将已结束或已用尽的活动标记为过期
func (r *GormPromotionalEventRepository) ExpireEnded(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.PromotionalEvent{}).
		Where("status IN ?", []string{constants.EventStatusActive, constants.EventStatusPaused, constants.EventStatusDraft}).
		Where("((ends_at IS NOT NULL AND ends_at <= ?) OR (max_total_usage > 0 AND current_usage >= max_total_usage))", now).
		Update("status", constants.EventStatusExpired)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ActivateStarted 将已排期且窗口已开始的草稿活动切换为进行中
func (r *GormPromotionalEventRepository) ActivateStarted(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.PromotionalEvent{}).
		Where("status = ? AND is_active = ?", constants.EventStatusDraft, true).
		Where("starts_at IS NOT NULL AND starts_at <= ?", now).
		Where("(ends_at IS NULL OR ends_at > ?)", now).
		Update("status", constants.EventStatusActive)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Delete 软删除活动及其规则
func (r *GormPromotionalEventRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return models.SoftDeleteCascade(tx, &models.PromotionalEvent{}, id)
	})
}
