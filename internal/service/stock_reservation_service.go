package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/dokan-next/internal/clock"
	"github.com/dokan-next/internal/constants"
	"github.com/dokan-next/internal/logger"
	"github.com/dokan-next/internal/models"
	"github.com/dokan-next/internal/queue"
	"github.com/dokan-next/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	stockLockStripes    = 64
	defaultSweepBatch   = 200
	defaultReserveRetry = 5
	reasonInsufficient  = "insufficient stock"
	reasonNotAvailable  = "product not available"
)

var (
	errCASConflict      = errors.New("stock version conflict")
	errReservationGone  = errors.New("reservation already closed")
	errReservationAlive = errors.New("reservation not yet expired")
)

// StockReservationOptions 库存预占参数
type StockReservationOptions struct {
	TTL            time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	SweepBatchSize int
}

// ReserveResult 预占结果
type ReserveResult struct {
	Success        bool       `json:"success"`
	Token          string     `json:"token,omitempty"`
	AvailableStock int        `json:"available_stock"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Reason         string     `json:"reason,omitempty"`
}

// StockReservationService 库存预占服务：同商品内串行 + 版本号 CAS，保证 0 ≤ reserved ≤ total
type StockReservationService struct {
	productRepo     repository.ProductRepository
	reservationRepo repository.ReservationRepository
	queue           *queue.Client
	clock           clock.Clock
	analytics       *AnalyticsEmitter
	opts            StockReservationOptions
	locks           [stockLockStripes]sync.Mutex
}

// NewStockReservationService 创建库存预占服务
func NewStockReservationService(
	productRepo repository.ProductRepository,
	reservationRepo repository.ReservationRepository,
	queueClient *queue.Client,
	clk clock.Clock,
	analytics *AnalyticsEmitter,
	opts StockReservationOptions,
) *StockReservationService {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultReserveRetry
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 5 * time.Millisecond
	}
	if opts.SweepBatchSize <= 0 {
		opts.SweepBatchSize = defaultSweepBatch
	}
	return &StockReservationService{
		productRepo:     productRepo,
		reservationRepo: reservationRepo,
		queue:           queueClient,
		clock:           clk,
		analytics:       analytics,
		opts:            opts,
	}
}

// TTL 预占有效期
func (s *StockReservationService) TTL() time.Duration {
	return s.opts.TTL
}

type stockCounters struct {
	total    int
	reserved int
}

func (c stockCounters) valid() bool {
	return c.reserved >= 0 && c.total >= 0 && c.reserved <= c.total
}

func (s *StockReservationService) lock(productID uint) func() {
	m := &s.locks[productID%stockLockStripes]
	m.Lock()
	return m.Unlock
}

// mutateStock 在事务内读取计数、执行变更并以版本号写回；版本冲突时有限次重试
func (s *StockReservationService) mutateStock(ctx context.Context, productID uint, fn func(tx *gorm.DB, product *models.Product, counters *stockCounters) error) error {
	unlock := s.lock(productID)
	defer unlock()

	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.productRepo.Transaction(ctx, func(tx *gorm.DB) error {
			productRepo := s.productRepo.WithTx(tx)
			product, err := productRepo.GetByID(ctx, productID)
			if err != nil {
				return err
			}
			if product == nil {
				return ErrProductNotFound
			}
			before := stockCounters{total: product.StockTotal, reserved: product.StockReserved}
			if !before.valid() {
				logger.Invariantw("stock_invariant_violation_detected",
					"product_id", productID,
					"stock_total", before.total,
					"stock_reserved", before.reserved,
				)
				return ErrStockInvariantViolation
			}

			after := before
			if err := fn(tx, product, &after); err != nil {
				return err
			}
			if after == before {
				return nil
			}
			if !after.valid() {
				logger.Invariantw("stock_invariant_violation_rejected",
					"product_id", productID,
					"stock_total", after.total,
					"stock_reserved", after.reserved,
				)
				return ErrStockInvariantViolation
			}
			rows, err := productRepo.CompareAndSwapStock(ctx, productID, product.StockVersion, after.total, after.reserved)
			if err != nil {
				return err
			}
			if rows == 0 {
				return errCASConflict
			}
			return nil
		})
		if !errors.Is(err, errCASConflict) {
			return err
		}
		logger.Debugw("stock_cas_conflict_retry", "product_id", productID, "attempt", attempt+1)
		if err := sleepCtx(ctx, s.opts.RetryBackoff*time.Duration(attempt+1)); err != nil {
			return err
		}
	}
	logger.Warnw("stock_cas_retries_exhausted", "product_id", productID, "max_retries", s.opts.MaxRetries)
	return ErrStockConflict
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// TryReserve 原子地校验可售库存并预占；库存不足返回 Success=false 而非错误
func (s *StockReservationService) TryReserve(ctx context.Context, productID uint, quantity int, userID uint) (*ReserveResult, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	token := uuid.NewString()
	expiresAt := s.clock.Now().Add(s.opts.TTL)

	available := 0
	err := s.mutateStock(ctx, productID, func(tx *gorm.DB, product *models.Product, counters *stockCounters) error {
		available = counters.total - counters.reserved
		if !product.IsActive {
			return ErrProductNotAvailable
		}
		if available < quantity {
			return ErrInsufficientStock
		}
		counters.reserved += quantity
		available = counters.total - counters.reserved
		return s.reservationRepo.WithTx(tx).Create(ctx, &models.StockReservation{
			Token:     token,
			ProductID: productID,
			UserID:    userID,
			Quantity:  quantity,
			Status:    constants.ReservationStatusReserved,
			ExpiresAt: expiresAt,
		})
	})
	switch {
	case errors.Is(err, ErrInsufficientStock):
		return &ReserveResult{Success: false, AvailableStock: available, Reason: reasonInsufficient}, nil
	case errors.Is(err, ErrProductNotAvailable):
		return &ReserveResult{Success: false, AvailableStock: 0, Reason: reasonNotAvailable}, nil
	case err != nil:
		return nil, err
	}

	if err := s.queue.EnqueueReservationExpire(queue.ReservationExpirePayload{Token: token, ProductID: productID}, s.opts.TTL); err != nil {
		logger.Warnw("reservation_expire_enqueue_failed", "token", token, "product_id", productID, "error", err)
	}
	s.analytics.Emit(constants.AnalyticsStockReserved, productID, userID, map[string]string{
		"token":    token,
		"quantity": strconv.Itoa(quantity),
	})
	return &ReserveResult{
		Success:        true,
		Token:          token,
		AvailableStock: available,
		ExpiresAt:      &expiresAt,
	}, nil
}

// Release 按凭证释放预占，重复释放无副作用
func (s *StockReservationService) Release(ctx context.Context, token string) error {
	reservation, err := s.reservationRepo.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if reservation == nil {
		return ErrReservationNotFound
	}
	if reservation.Status != constants.ReservationStatusReserved {
		return nil
	}
	_, err = s.closeReservation(ctx, reservation, constants.ReservationStatusReleased)
	return err
}

// ExpireReservation 到期释放；已延期或已关闭的预占直接跳过
func (s *StockReservationService) ExpireReservation(ctx context.Context, token string) error {
	reservation, err := s.reservationRepo.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if reservation == nil || reservation.Status != constants.ReservationStatusReserved {
		return nil
	}
	if !s.clock.Now().After(reservation.ExpiresAt) {
		return nil
	}
	_, err = s.closeReservation(ctx, reservation, constants.ReservationStatusExpired)
	return err
}

// closeReservation 关闭预占并归还占用数量（下限为 0），返回本次是否实际关闭；
// 以 expired 关闭时在锁内重新校验过期时间，期间被续期的预占保持不变
func (s *StockReservationService) closeReservation(ctx context.Context, reservation *models.StockReservation, status string) (bool, error) {
	quantity := 0
	err := s.mutateStock(ctx, reservation.ProductID, func(tx *gorm.DB, _ *models.Product, counters *stockCounters) error {
		repo := s.reservationRepo.WithTx(tx)
		current, err := repo.GetByToken(ctx, reservation.Token)
		if err != nil {
			return err
		}
		if current == nil || current.Status != constants.ReservationStatusReserved {
			return errReservationGone
		}
		if status == constants.ReservationStatusExpired && !s.clock.Now().After(current.ExpiresAt) {
			return errReservationAlive
		}
		rows, err := repo.Transition(ctx, reservation.Token, status)
		if err != nil {
			return err
		}
		if rows == 0 {
			return errReservationGone
		}
		quantity = current.Quantity
		counters.reserved = floorRelease(reservation.ProductID, counters.reserved, current.Quantity)
		return nil
	})
	if errors.Is(err, errReservationGone) || errors.Is(err, errReservationAlive) {
		return false, nil
	}
	if errors.Is(err, ErrProductNotFound) {
		// 商品已删除，只关闭预占记录
		rows, err := s.reservationRepo.Transition(ctx, reservation.Token, status)
		if err != nil {
			return false, err
		}
		return rows > 0, nil
	}
	if err != nil {
		return false, err
	}
	s.analytics.Emit(constants.AnalyticsStockReleased, reservation.ProductID, reservation.UserID, map[string]string{
		"token":    reservation.Token,
		"quantity": strconv.Itoa(quantity),
		"status":   status,
	})
	return true, nil
}

func floorRelease(productID uint, reserved, quantity int) int {
	next := reserved - quantity
	if next < 0 {
		logger.Warnw("stock_release_floored",
			"product_id", productID,
			"stock_reserved", reserved,
			"release_quantity", quantity,
		)
		return 0
	}
	return next
}

// ReleaseQuantity 直接归还占用数量（无凭证场景），下限为 0
func (s *StockReservationService) ReleaseQuantity(ctx context.Context, productID uint, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	return s.mutateStock(ctx, productID, func(_ *gorm.DB, _ *models.Product, counters *stockCounters) error {
		counters.reserved = floorRelease(productID, counters.reserved, quantity)
		return nil
	})
}

// Confirm 结算确认：总库存与占用同时扣减，同一凭证重复确认无副作用
func (s *StockReservationService) Confirm(ctx context.Context, token string) error {
	reservation, err := s.reservationRepo.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if reservation == nil {
		return ErrReservationNotFound
	}
	switch reservation.Status {
	case constants.ReservationStatusConfirmed:
		return nil
	case constants.ReservationStatusReserved:
	default:
		return ErrReservationExpired
	}
	if s.clock.Now().After(reservation.ExpiresAt) {
		return ErrReservationExpired
	}

	quantity := 0
	err = s.mutateStock(ctx, reservation.ProductID, func(tx *gorm.DB, _ *models.Product, counters *stockCounters) error {
		repo := s.reservationRepo.WithTx(tx)
		current, err := repo.GetByToken(ctx, token)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrReservationNotFound
		}
		if current.Status == constants.ReservationStatusConfirmed {
			return errReservationGone
		}
		if current.Status != constants.ReservationStatusReserved {
			return ErrReservationExpired
		}
		if counters.reserved < current.Quantity {
			logger.Invariantw("stock_confirm_exceeds_reserved",
				"product_id", current.ProductID,
				"stock_reserved", counters.reserved,
				"confirm_quantity", current.Quantity,
			)
			return ErrStockInvariantViolation
		}
		rows, err := repo.Transition(ctx, token, constants.ReservationStatusConfirmed)
		if err != nil {
			return err
		}
		if rows == 0 {
			return errReservationGone
		}
		quantity = current.Quantity
		counters.total -= current.Quantity
		counters.reserved -= current.Quantity
		return nil
	})
	if errors.Is(err, errReservationGone) {
		return nil
	}
	if err != nil {
		return err
	}
	s.analytics.Emit(constants.AnalyticsStockConfirmed, reservation.ProductID, reservation.UserID, map[string]string{
		"token":    token,
		"quantity": strconv.Itoa(quantity),
	})
	return nil
}

// CheckHold 校验预占仍可确认：状态为 reserved 且未过期
func (s *StockReservationService) CheckHold(ctx context.Context, token string) error {
	reservation, err := s.reservationRepo.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if reservation == nil {
		return ErrReservationNotFound
	}
	if reservation.Status != constants.ReservationStatusReserved || s.clock.Now().After(reservation.ExpiresAt) {
		return ErrReservationExpired
	}
	return nil
}

// Revert 撤销一次确认：归还总库存并恢复占用，预占回到 reserved；未确认的凭证直接跳过
func (s *StockReservationService) Revert(ctx context.Context, token string) error {
	reservation, err := s.reservationRepo.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if reservation == nil {
		return ErrReservationNotFound
	}
	if reservation.Status != constants.ReservationStatusConfirmed {
		return nil
	}
	err = s.mutateStock(ctx, reservation.ProductID, func(tx *gorm.DB, _ *models.Product, counters *stockCounters) error {
		repo := s.reservationRepo.WithTx(tx)
		rows, err := repo.Reopen(ctx, token)
		if err != nil {
			return err
		}
		if rows == 0 {
			return errReservationGone
		}
		counters.total += reservation.Quantity
		counters.reserved += reservation.Quantity
		return nil
	})
	if errors.Is(err, errReservationGone) {
		return nil
	}
	if err != nil {
		return err
	}
	logger.Infow("stock_confirm_reverted",
		"token", token,
		"product_id", reservation.ProductID,
		"quantity", reservation.Quantity,
	)
	return nil
}

// ConfirmQuantity 直接确认扣减（无凭证场景）
func (s *StockReservationService) ConfirmQuantity(ctx context.Context, productID uint, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	return s.mutateStock(ctx, productID, func(_ *gorm.DB, _ *models.Product, counters *stockCounters) error {
		if counters.reserved < quantity {
			logger.Invariantw("stock_confirm_exceeds_reserved",
				"product_id", productID,
				"stock_reserved", counters.reserved,
				"confirm_quantity", quantity,
			)
			return ErrStockInvariantViolation
		}
		counters.total -= quantity
		counters.reserved -= quantity
		return nil
	})
}

// UpdateReservation 调整预占数量：增量先按可售库存校验，成功后刷新过期时间
func (s *StockReservationService) UpdateReservation(ctx context.Context, token string, quantity int) (*ReserveResult, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	reservation, err := s.reservationRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if reservation == nil {
		return nil, ErrReservationNotFound
	}
	if reservation.Status != constants.ReservationStatusReserved || s.clock.Now().After(reservation.ExpiresAt) {
		return nil, ErrReservationExpired
	}

	expiresAt := s.clock.Now().Add(s.opts.TTL)
	available := 0
	err = s.mutateStock(ctx, reservation.ProductID, func(tx *gorm.DB, _ *models.Product, counters *stockCounters) error {
		repo := s.reservationRepo.WithTx(tx)
		current, err := repo.GetByToken(ctx, token)
		if err != nil {
			return err
		}
		if current == nil || current.Status != constants.ReservationStatusReserved {
			return ErrReservationExpired
		}
		if s.clock.Now().After(current.ExpiresAt) {
			return ErrReservationExpired
		}
		available = counters.total - counters.reserved
		delta := quantity - current.Quantity
		if delta > available {
			return ErrInsufficientStock
		}
		counters.reserved += delta
		available = counters.total - counters.reserved
		rows, err := repo.UpdateQuantity(ctx, token, quantity, expiresAt)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrReservationExpired
		}
		return nil
	})
	if errors.Is(err, ErrInsufficientStock) {
		return &ReserveResult{Success: false, Token: token, AvailableStock: available, Reason: reasonInsufficient}, nil
	}
	if err != nil {
		return nil, err
	}
	return &ReserveResult{Success: true, Token: token, AvailableStock: available, ExpiresAt: &expiresAt}, nil
}

// AdjustQuantity 按新旧数量直接调整占用（无凭证场景）
func (s *StockReservationService) AdjustQuantity(ctx context.Context, productID uint, oldQuantity, newQuantity int) error {
	if oldQuantity < 0 || newQuantity < 0 {
		return ErrInvalidQuantity
	}
	delta := newQuantity - oldQuantity
	if delta == 0 {
		return nil
	}
	return s.mutateStock(ctx, productID, func(_ *gorm.DB, _ *models.Product, counters *stockCounters) error {
		if delta > 0 {
			if counters.total-counters.reserved < delta {
				return ErrInsufficientStock
			}
			counters.reserved += delta
			return nil
		}
		counters.reserved = floorRelease(productID, counters.reserved, -delta)
		return nil
	})
}

// Extend 延长仍有效的预占
func (s *StockReservationService) Extend(ctx context.Context, token string, ttl time.Duration) (time.Time, error) {
	if ttl <= 0 {
		ttl = s.opts.TTL
	}
	reservation, err := s.reservationRepo.GetByToken(ctx, token)
	if err != nil {
		return time.Time{}, err
	}
	if reservation == nil {
		return time.Time{}, ErrReservationNotFound
	}
	now := s.clock.Now()
	if reservation.Status != constants.ReservationStatusReserved || now.After(reservation.ExpiresAt) {
		return time.Time{}, ErrReservationExpired
	}
	expiresAt := now.Add(ttl)
	rows, err := s.reservationRepo.UpdateExpiry(ctx, token, expiresAt)
	if err != nil {
		return time.Time{}, err
	}
	if rows == 0 {
		return time.Time{}, ErrReservationExpired
	}
	return expiresAt, nil
}

// Availability 当前可售库存
func (s *StockReservationService) Availability(ctx context.Context, productID uint) (int, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return 0, err
	}
	if product == nil {
		return 0, ErrProductNotFound
	}
	return product.Available(), nil
}

// SweepExpired 分批释放已过期的预占，返回释放条数
func (s *StockReservationService) SweepExpired(ctx context.Context) (int, error) {
	released := 0
	for {
		if err := ctx.Err(); err != nil {
			return released, err
		}
		expired, err := s.reservationRepo.ListExpired(ctx, s.clock.Now(), s.opts.SweepBatchSize)
		if err != nil {
			return released, err
		}
		if len(expired) == 0 {
			return released, nil
		}
		progressed := 0
		for i := range expired {
			closed, err := s.closeReservation(ctx, &expired[i], constants.ReservationStatusExpired)
			if err != nil {
				logger.Warnw("reservation_sweep_release_failed",
					"token", expired[i].Token,
					"product_id", expired[i].ProductID,
					"error", err,
				)
				continue
			}
			if closed {
				progressed++
			}
		}
		released += progressed
		if progressed == 0 || len(expired) < s.opts.SweepBatchSize {
			return released, nil
		}
	}
}
