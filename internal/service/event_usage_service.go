package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dokan-next/internal/constants"
	"github.com/dokan-next/internal/logger"
	"github.com/dokan-next/internal/models"
	"github.com/dokan-next/internal/repository"

	"gorm.io/gorm"
)

var errUsageAlreadyRecorded = errors.New("usage already recorded for order")

// EventUsageService 活动使用次数核算
type EventUsageService struct {
	eventRepo   repository.PromotionalEventRepository
	usageRepo   repository.EventUsageRepository
	invalidator PricingInvalidator
	analytics   *AnalyticsEmitter
}

// NewEventUsageService 创建活动使用核算服务
func NewEventUsageService(
	eventRepo repository.PromotionalEventRepository,
	usageRepo repository.EventUsageRepository,
	invalidator PricingInvalidator,
	analytics *AnalyticsEmitter,
) *EventUsageService {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	return &EventUsageService{
		eventRepo:   eventRepo,
		usageRepo:   usageRepo,
		invalidator: invalidator,
		analytics:   analytics,
	}
}

// SetInvalidator 设置缓存失效器（价格缓存依赖本服务，构造后回填）
func (s *EventUsageService) SetInvalidator(invalidator PricingInvalidator) {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	s.invalidator = invalidator
}

// CanUserUseEvent 用户是否仍可参与活动；以使用记录表计数为准
func (s *EventUsageService) CanUserUseEvent(ctx context.Context, event *models.PromotionalEvent, userID uint) (bool, error) {
	if event == nil {
		return false, nil
	}
	if userID == 0 || event.MaxUsagePerUser <= 0 {
		return true, nil
	}
	count, err := s.usageRepo.CountByUser(ctx, event.ID, userID)
	if err != nil {
		return false, fmt.Errorf("%w: count event usage: %v", ErrCollaboratorUnavailable, err)
	}
	return count < int64(event.MaxUsagePerUser), nil
}

// RemainingForUser 用户在活动上的剩余可用次数（同时受全局上限约束），-1 表示不限
func (s *EventUsageService) RemainingForUser(ctx context.Context, eventID, userID uint) (int, error) {
	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if event == nil {
		return 0, ErrEventNotFound
	}

	remaining := -1
	if event.MaxTotalUsage > 0 {
		remaining = max(event.MaxTotalUsage-event.CurrentUsage, 0)
	}
	if userID == 0 || event.MaxUsagePerUser <= 0 {
		return remaining, nil
	}
	count, err := s.usageRepo.CountByUser(ctx, eventID, userID)
	if err != nil {
		return 0, err
	}
	perUser := max(event.MaxUsagePerUser-int(count), 0)
	if remaining < 0 || perUser < remaining {
		remaining = perUser
	}
	return remaining, nil
}

// RecordUsage 记录一次活动核销：同一订单幂等，全局计数只增不减，达到上限时活动自动过期
func (s *EventUsageService) RecordUsage(ctx context.Context, eventID, userID uint, orderID string, amount models.Money) error {
	var perUserCapped, exhausted bool
	err := s.eventRepo.Transaction(ctx, func(tx *gorm.DB) error {
		eventRepo := s.eventRepo.WithTx(tx)
		usageRepo := s.usageRepo.WithTx(tx)

		event, err := eventRepo.GetByID(ctx, eventID)
		if err != nil {
			return err
		}
		if event == nil {
			return ErrEventNotFound
		}
		if orderID != "" {
			recorded, err := usageRepo.ExistsForOrder(ctx, eventID, orderID)
			if err != nil {
				return err
			}
			if recorded {
				return errUsageAlreadyRecorded
			}
		}
		if userID != 0 && event.MaxUsagePerUser > 0 {
			count, err := usageRepo.CountByUser(ctx, eventID, userID)
			if err != nil {
				return err
			}
			if count >= int64(event.MaxUsagePerUser) {
				return ErrEventUserLimit
			}
			perUserCapped = true
		}

		rows, err := eventRepo.IncrementUsage(ctx, eventID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrEventUsageLimit
		}
		if err := usageRepo.Create(ctx, &models.EventUsage{
			EventID:        eventID,
			UserID:         userID,
			OrderID:        orderID,
			DiscountAmount: amount,
		}); err != nil {
			return err
		}

		exhausted = event.MaxTotalUsage > 0 && event.CurrentUsage+1 >= event.MaxTotalUsage
		if exhausted {
			if _, err := eventRepo.UpdateStatus(ctx, eventID, []string{constants.EventStatusActive, constants.EventStatusPaused}, constants.EventStatusExpired); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, errUsageAlreadyRecorded) {
		return nil
	}
	if err != nil {
		return err
	}

	switch {
	case exhausted:
		logger.Infow("promotional_event_usage_exhausted", "event_id", eventID)
		s.invalidator.InvalidateAll(ctx)
	case perUserCapped:
		s.invalidator.InvalidateUser(ctx, userID)
	}
	s.analytics.Emit(constants.AnalyticsEventUsageRecorded, 0, userID, map[string]string{
		"event_id":        strconv.FormatUint(uint64(eventID), 10),
		"order_id":        orderID,
		"discount_amount": amount.String(),
	})
	return nil
}
