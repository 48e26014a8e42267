package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dokan-next/internal/logger"
	"github.com/dokan-next/internal/provider"
	"github.com/dokan-next/internal/queue"
	"github.com/dokan-next/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskReservationExpire, c.handleReservationExpire)
	mux.HandleFunc(queue.TaskAnalyticsEvent, c.handleAnalyticsEvent)
}

func (c *Consumer) handleReservationExpire(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_reservation_expire_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.ReservationExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_reservation_expire_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if payload.Token == "" {
		logger.Debugw("worker_reservation_expire_skip_invalid_payload", "product_id", payload.ProductID)
		return nil
	}
	if c.StockService == nil {
		logger.Warnw("worker_reservation_expire_skip_stock_service_nil", "token", payload.Token)
		return nil
	}
	if err := c.StockService.ExpireReservation(ctx, payload.Token); err != nil {
		switch {
		case errors.Is(err, service.ErrReservationNotFound):
			logger.Debugw("worker_reservation_expire_skip_not_found", "token", payload.Token)
			return nil
		default:
			logger.Warnw("worker_reservation_expire_failed",
				"token", payload.Token,
				"product_id", payload.ProductID,
				"error", err,
			)
			return err
		}
	}
	if c.CartService != nil {
		expired, err := c.CartService.ExpireByToken(ctx, payload.Token)
		if err != nil {
			logger.Warnw("worker_reservation_expire_cart_failed", "token", payload.Token, "error", err)
			return err
		}
		if expired > 0 {
			logger.Debugw("worker_reservation_expire_cart_lines", "token", payload.Token, "expired", expired)
		}
	}
	return nil
}

func (c *Consumer) handleAnalyticsEvent(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_analytics_event_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.AnalyticsEventPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_analytics_event_unmarshal_failed", "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if payload.Type == "" {
		logger.Debugw("worker_analytics_event_skip_invalid_payload", "id", payload.ID)
		return nil
	}
	if err := service.PublishAnalytics(ctx, c.Publisher, payload); err != nil {
		// 分析事件尽力投递，不重试
		logger.Warnw("worker_analytics_event_publish_failed",
			"id", payload.ID,
			"type", payload.Type,
			"error", err,
		)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return nil
}
