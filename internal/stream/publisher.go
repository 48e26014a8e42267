package stream

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/dokan-next/internal/config"

	"github.com/segmentio/kafka-go"
)

// Publisher 分析事件发布接口
type Publisher interface {
	Enabled() bool
	Publish(ctx context.Context, key string, event any) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher 基于 kafka-go 的发布者，只尝试一次（至多一次投递）
type KafkaPublisher struct {
	writer messageWriter
	now    func() time.Time
}

// NewKafkaPublisher 创建发布者，未启用时返回空实现
func NewKafkaPublisher(cfg *config.KafkaConfig) *KafkaPublisher {
	if cfg == nil || !cfg.Enabled || len(cfg.Brokers) == 0 || strings.TrimSpace(cfg.Topic) == "" {
		return &KafkaPublisher{now: time.Now}
	}
	batchTimeout := 10 * time.Millisecond
	if cfg.BatchTimeoutMS > 0 {
		batchTimeout = time.Duration(cfg.BatchTimeoutMS) * time.Millisecond
	}
	writeTimeout := 2 * time.Second
	if cfg.WriteTimeoutMS > 0 {
		writeTimeout = time.Duration(cfg.WriteTimeoutMS) * time.Millisecond
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        strings.TrimSpace(cfg.Topic),
		Balancer:     &kafka.Hash{},
		BatchTimeout: batchTimeout,
		WriteTimeout: writeTimeout,
		MaxAttempts:  1,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaPublisher{writer: writer, now: time.Now}
}

// Enabled 判断是否启用
func (p *KafkaPublisher) Enabled() bool {
	return p != nil && p.writer != nil
}

// Publish 以 JSON 写入一条消息，key 决定分区
func (p *KafkaPublisher) Publish(ctx context.Context, key string, event any) error {
	if !p.Enabled() {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  p.now(),
	})
}

// Close 关闭发布者
func (p *KafkaPublisher) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.writer.Close()
}
