package queue

import (
	"encoding/json"
	"time"

	"github.com/dokan-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskReservationExpire 库存预占到期释放任务
	TaskReservationExpire = constants.TaskReservationExpire
	// TaskAnalyticsEvent 分析事件投递任务（至多一次）
	TaskAnalyticsEvent = constants.TaskAnalyticsEvent
)

// ReservationExpirePayload 预占到期任务载荷
type ReservationExpirePayload struct {
	Token     string `json:"token"`
	ProductID uint   `json:"product_id"`
}

// AnalyticsEventPayload 分析事件载荷
type AnalyticsEventPayload struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	OccurredAt time.Time         `json:"occurred_at"`
	ProductID  uint              `json:"product_id,omitempty"`
	UserID     uint              `json:"user_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// NewReservationExpireTask 创建预占到期任务
func NewReservationExpireTask(payload ReservationExpirePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReservationExpire, body), nil
}

// NewAnalyticsEventTask 创建分析事件任务
func NewAnalyticsEventTask(payload AnalyticsEventPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyticsEvent, body), nil
}
