package worker

import (
	"context"
	"errors"
	"time"

	"github.com/dokan-next/internal/logger"
	"github.com/dokan-next/internal/provider"
)

const defaultMaintenanceInterval = time.Minute

// MaintenanceService 周期性维护：回收过期预占、过期购物车行、同步活动状态
type MaintenanceService struct {
	name      string
	container *provider.Container
	interval  time.Duration
	batchSize int
}

// NewMaintenanceService 创建维护服务
func NewMaintenanceService(c *provider.Container) (*MaintenanceService, error) {
	if c == nil || c.Config == nil {
		return nil, errors.New("container is nil")
	}
	interval := c.Config.Reservation.SweepInterval()
	if interval <= 0 {
		interval = defaultMaintenanceInterval
	}
	return &MaintenanceService{
		name:      "maintenance",
		container: c,
		interval:  interval,
		batchSize: c.Config.Reservation.SweepBatchSize,
	}, nil
}

// Name 服务名称
func (s *MaintenanceService) Name() string {
	if s == nil || s.name == "" {
		return "maintenance"
	}
	return s.name
}

// Start 启动维护循环，直到 ctx 结束
func (s *MaintenanceService) Start(ctx context.Context) error {
	if s == nil || s.container == nil {
		return errors.New("maintenance not initialized")
	}
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// Stop 停止服务
func (s *MaintenanceService) Stop(ctx context.Context) error {
	_ = ctx
	return nil
}

// RunOnce 执行一轮维护，单项失败不影响其他项
func (s *MaintenanceService) RunOnce(ctx context.Context) {
	c := s.container
	log := logger.Component("maintenance")
	if c.StockService != nil {
		released, err := c.StockService.SweepExpired(ctx)
		if err != nil {
			log.Warnw("worker_reservation_sweep_failed", "released", released, "error", err)
		} else if released > 0 {
			log.Infow("worker_reservation_sweep_done", "released", released)
		}
	}
	if c.CartService != nil {
		expired, err := c.CartService.ExpireLines(ctx, s.batchSize)
		if err != nil {
			log.Warnw("worker_cart_expire_failed", "expired", expired, "error", err)
		} else if expired > 0 {
			log.Infow("worker_cart_expire_done", "expired", expired)
		}
	}
	if c.PromotionAdminService != nil {
		changed, err := c.PromotionAdminService.SyncStatuses(ctx)
		if err != nil {
			log.Warnw("worker_event_status_sync_failed", "error", err)
		} else if changed > 0 {
			log.Infow("worker_event_status_sync_done", "changed", changed)
		}
	}
}
