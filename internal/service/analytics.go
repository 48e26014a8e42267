package service

import (
	"context"
	"strconv"
	"time"

	"github.com/dokan-next/internal/logger"
	"github.com/dokan-next/internal/queue"
	"github.com/dokan-next/internal/stream"

	"github.com/google/uuid"
)

const analyticsPublishTimeout = 3 * time.Second

// AnalyticsEmitter 分析事件投递（至多一次，失败只记录日志）
type AnalyticsEmitter struct {
	queue     *queue.Client
	publisher stream.Publisher
	now       func() time.Time
}

// NewAnalyticsEmitter 创建分析事件投递器；队列可用时走异步任务，否则直接写入事件流
func NewAnalyticsEmitter(queueClient *queue.Client, publisher stream.Publisher) *AnalyticsEmitter {
	return &AnalyticsEmitter{
		queue:     queueClient,
		publisher: publisher,
		now:       time.Now,
	}
}

// Emit 投递分析事件
func (e *AnalyticsEmitter) Emit(eventType string, productID, userID uint, attributes map[string]string) {
	if e == nil {
		return
	}
	payload := queue.AnalyticsEventPayload{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: e.now().UTC(),
		ProductID:  productID,
		UserID:     userID,
		Attributes: attributes,
	}

	if e.queue.Enabled() {
		if err := e.queue.EnqueueAnalytics(payload); err != nil {
			logger.Warnw("analytics_enqueue_failed",
				"type", eventType,
				"product_id", productID,
				"error", err,
			)
		}
		return
	}
	if e.publisher == nil || !e.publisher.Enabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), analyticsPublishTimeout)
		defer cancel()
		if err := PublishAnalytics(ctx, e.publisher, payload); err != nil {
			logger.Warnw("analytics_publish_failed",
				"type", eventType,
				"product_id", productID,
				"error", err,
			)
		}
	}()
}

// PublishAnalytics 将分析事件写入事件流，以商品 ID 作为分区键
func PublishAnalytics(ctx context.Context, publisher stream.Publisher, payload queue.AnalyticsEventPayload) error {
	if publisher == nil || !publisher.Enabled() {
		return nil
	}
	key := payload.Type
	if payload.ProductID > 0 {
		key = strconv.FormatUint(uint64(payload.ProductID), 10)
	}
	return publisher.Publish(ctx, key, payload)
}
