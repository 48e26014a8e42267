package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dokan-next/internal/config"
	"github.com/dokan-next/internal/constants"
	"github.com/dokan-next/internal/logger"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// AnalyticsQueue 分析事件队列
	AnalyticsQueue = constants.QueueLow
)

// Client 队列客户端封装
type Client struct {
	client       *asynq.Client
	enabled      bool
	defaultQueue string
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, defaultQueue: DefaultQueue}, nil
	}
	return &Client{
		client:       asynq.NewClient(buildRedisOpt(cfg)),
		enabled:      true,
		defaultQueue: DefaultQueue,
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueReservationExpire 推送预占到期释放任务，同一凭证只会排队一次
func (c *Client) EnqueueReservationExpire(payload ReservationExpirePayload, delay time.Duration) error {
	if !c.Enabled() {
		return nil
	}
	if delay < 0 {
		delay = 0
	}
	err := c.enqueue(
		func() (*asynq.Task, error) { return NewReservationExpireTask(payload) },
		asynq.Queue(c.defaultQueue),
		asynq.ProcessIn(delay),
		asynq.TaskID(reservationTaskID(payload.Token)),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// EnqueueAnalytics 推送分析事件，失败不重试
func (c *Client) EnqueueAnalytics(payload AnalyticsEventPayload) error {
	return c.enqueue(
		func() (*asynq.Task, error) { return NewAnalyticsEventTask(payload) },
		asynq.Queue(AnalyticsQueue),
		asynq.MaxRetry(0),
		asynq.Timeout(10*time.Second),
	)
}

func (c *Client) enqueue(build func() (*asynq.Task, error), opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	task, err := build()
	if err != nil {
		return err
	}
	_, err = c.client.Enqueue(task, opts...)
	return err
}

func reservationTaskID(token string) string {
	return "reservation-expire:" + strings.TrimSpace(token)
}

// BuildServerConfig 生成队列服务配置，任务日志接入全局 zap
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	serverCfg := asynq.Config{
		Concurrency:     10,
		Queues:          map[string]int{DefaultQueue: 2, AnalyticsQueue: 1},
		ShutdownTimeout: 8 * time.Second,
		Logger:          logger.Component("queue"),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Warnw("queue_task_failed", "type", task.Type(), "retried", retried, "max_retry", maxRetry, "error", err)
		}),
	}
	if cfg != nil && cfg.Concurrency > 0 {
		serverCfg.Concurrency = cfg.Concurrency
	}
	if cfg != nil && len(cfg.Queues) > 0 {
		serverCfg.Queues = cfg.Queues
	}
	return buildRedisOpt(cfg), serverCfg
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	opt := asynq.RedisClientOpt{Addr: "127.0.0.1:6379"}
	if cfg == nil {
		return opt
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port <= 0 {
		port = 6379
	}
	opt.Addr = fmt.Sprintf("%s:%d", host, port)
	opt.Password = cfg.Password
	opt.DB = cfg.DB
	return opt
}
