package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dokan-next/internal/constants"
	"github.com/dokan-next/internal/models"

	"gorm.io/gorm"
)

// ReservationRepository 库存预占记录数据访问接口
type ReservationRepository interface {
	Create(ctx context.Context, reservation *models.StockReservation) error
	GetByToken(ctx context.Context, token string) (*models.StockReservation, error)
	Transition(ctx context.Context, token, to string) (int64, error)
	Reopen(ctx context.Context, token string) (int64, error)
	UpdateQuantity(ctx context.Context, token string, quantity int, expiresAt time.Time) (int64, error)
	UpdateExpiry(ctx context.Context, token string, expiresAt time.Time) (int64, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.StockReservation, error)
	WithTx(tx *gorm.DB) ReservationRepository
}

// GormReservationRepository GORM 实现
type GormReservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository 创建库存预占仓库
func NewReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReservationRepository) WithTx(tx *gorm.DB) ReservationRepository {
	if tx == nil {
		return r
	}
	return &GormReservationRepository{db: tx}
}

// Create 创建预占记录
func (r *GormReservationRepository) Create(ctx context.Context, reservation *models.StockReservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

// GetByToken 按凭证获取预占
func (r *GormReservationRepository) GetByToken(ctx context.Context, token string) (*models.StockReservation, error) {
	if token == "" {
		return nil, nil
	}
	var reservation models.StockReservation
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&reservation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reservation, nil
}

// Transition 仅当预占仍处于 reserved 状态时切换状态，返回受影响行数
func (r *GormReservationRepository) Transition(ctx context.Context, token, to string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.StockReservation{}).
		Where("token = ? AND status = ?", token, constants.ReservationStatusReserved).
		Update("status", to)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// Reopen 撤销确认：confirmed 恢复为 reserved，返回受影响行数
func (r *GormReservationRepository) Reopen(ctx context.Context, token string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.StockReservation{}).
		Where("token = ? AND status = ?", token, constants.ReservationStatusConfirmed).
		Update("status", constants.ReservationStatusReserved)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// UpdateQuantity 更新仍有效的预占数量与过期时间
func (r *GormReservationRepository) UpdateQuantity(ctx context.Context, token string, quantity int, expiresAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.StockReservation{}).
		Where("token = ? AND status = ?", token, constants.ReservationStatusReserved).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"expires_at": expiresAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// UpdateExpiry 延长仍有效的预占
func (r *GormReservationRepository) UpdateExpiry(ctx context.Context, token string, expiresAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.StockReservation{}).
		Where("token = ? AND status = ?", token, constants.ReservationStatusReserved).
		Update("expires_at", expiresAt)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ListExpired 获取已过期仍未释放的预占
func (r *GormReservationRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.StockReservation, error) {
	var reservations []models.StockReservation
	query := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", constants.ReservationStatusReserved, now).
		Order("expires_at asc, id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}
