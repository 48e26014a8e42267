package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dokan-next/internal/config"
)

func TestDisabledClientSkipsEnqueue(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("disabled client should not be enabled")
	}
	if err := client.EnqueueReservationExpire(ReservationExpirePayload{Token: "t"}, time.Minute); err != nil {
		t.Fatalf("disabled enqueue should be a no-op: %v", err)
	}
	var nilClient *Client
	if err := nilClient.EnqueueAnalytics(AnalyticsEventPayload{Type: "x"}); err != nil {
		t.Fatalf("nil client enqueue should be a no-op: %v", err)
	}
}

func TestReservationExpireTaskPayload(t *testing.T) {
	task, err := NewReservationExpireTask(ReservationExpirePayload{Token: "abc", ProductID: 4})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if task.Type() != TaskReservationExpire {
		t.Fatalf("want type %s got %s", TaskReservationExpire, task.Type())
	}
	var payload ReservationExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("decode payload failed: %v", err)
	}
	if payload.Token != "abc" || payload.ProductID != 4 {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if got := reservationTaskID(" abc "); got != "reservation-expire:abc" {
		t.Fatalf("want reservation-expire:abc got %s", got)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(nil)
	if opt.Addr != "127.0.0.1:6379" {
		t.Fatalf("want default addr got %s", opt.Addr)
	}
	if cfg.Concurrency != 10 || cfg.Queues[AnalyticsQueue] != 1 {
		t.Fatalf("unexpected server config %+v", cfg)
	}
	if cfg.Logger == nil || cfg.ErrorHandler == nil {
		t.Fatalf("server config should carry logger and error handler")
	}

	opt, cfg = BuildServerConfig(&config.QueueConfig{Host: " redis ", Port: 6380, DB: 2, Concurrency: 4})
	if opt.Addr != "redis:6380" || opt.DB != 2 || cfg.Concurrency != 4 {
		t.Fatalf("unexpected overrides addr=%s db=%d concurrency=%d", opt.Addr, opt.DB, cfg.Concurrency)
	}
}
