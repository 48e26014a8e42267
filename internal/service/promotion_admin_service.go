package service

import (
	"context"
	"strings"
	"time"

	"github.com/dokan-next/internal/clock"
	"github.com/dokan-next/internal/constants"
	"github.com/dokan-next/internal/logger"
	"github.com/dokan-next/internal/models"
	"github.com/dokan-next/internal/repository"

	"github.com/shopspring/decimal"
)

// PromotionAdminService 促销活动生命周期管理
type PromotionAdminService struct {
	repo        repository.PromotionalEventRepository
	invalidator PricingInvalidator
	clock       clock.Clock
}

// NewPromotionAdminService 创建活动管理服务
func NewPromotionAdminService(repo repository.PromotionalEventRepository, invalidator PricingInvalidator, clk clock.Clock) *PromotionAdminService {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	return &PromotionAdminService{repo: repo, invalidator: invalidator, clock: clk}
}

// RuleInput 活动规则输入
type RuleInput struct {
	RuleType          string
	TargetValue       string
	DiscountType      string
	DiscountValue     *models.Money
	MaxDiscountAmount *models.Money
	MinOrderValue     *models.Money
	Priority          int
}

// CreateEventInput 创建活动输入
type CreateEventInput struct {
	Name              string
	Description       string
	StartsAt          *time.Time
	EndsAt            *time.Time
	DiscountType      string
	DiscountValue     models.Money
	MaxDiscountAmount *models.Money
	MinOrderValue     *models.Money
	Priority          int
	MaxTotalUsage     int
	MaxUsagePerUser   int
	ProductIDs        []uint
	IsActive          *bool
	Rules             []RuleInput
}

func normalizeDiscountType(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func validDiscount(discountType string, value decimal.Decimal) bool {
	switch discountType {
	case constants.DiscountTypePercentage:
		return value.GreaterThan(decimal.Zero) && value.LessThanOrEqual(decimal.NewFromInt(100))
	case constants.DiscountTypeFixedAmount:
		return value.GreaterThan(decimal.Zero)
	case constants.DiscountTypeFreeShipping, constants.DiscountTypeBuyOneGetOne:
		return !value.IsNegative()
	default:
		return false
	}
}

func nonNegative(m *models.Money) bool {
	return m == nil || !m.IsNegative()
}

func validRule(rule RuleInput) bool {
	switch strings.ToLower(strings.TrimSpace(rule.RuleType)) {
	case constants.RuleTypeAll:
	case constants.RuleTypeCategory, constants.RuleTypeProduct, constants.RuleTypePaymentMethod, constants.RuleTypeGeography:
		if len(splitTargets(rule.TargetValue)) == 0 {
			return false
		}
	case constants.RuleTypePriceRange:
		if _, _, ok := parsePriceRange(rule.TargetValue); !ok {
			return false
		}
	default:
		return false
	}
	if rule.DiscountType != "" {
		if rule.DiscountValue == nil || !validDiscount(normalizeDiscountType(rule.DiscountType), rule.DiscountValue.Decimal) {
			return false
		}
	}
	return nonNegative(rule.MaxDiscountAmount) && nonNegative(rule.MinOrderValue)
}

// CreateEvent 创建活动（草稿状态），规则随活动一并写入
func (s *PromotionAdminService) CreateEvent(ctx context.Context, input CreateEventInput) (*models.PromotionalEvent, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrEventInvalid
	}
	discountType := normalizeDiscountType(input.DiscountType)
	if !validDiscount(discountType, input.DiscountValue.Decimal) {
		return nil, ErrEventInvalid
	}
	if !clock.NewWindow(input.StartsAt, input.EndsAt).Valid() {
		return nil, ErrEventInvalid
	}
	if input.MaxTotalUsage < 0 || input.MaxUsagePerUser < 0 {
		return nil, ErrEventInvalid
	}
	if !nonNegative(input.MaxDiscountAmount) || !nonNegative(input.MinOrderValue) {
		return nil, ErrEventInvalid
	}

	rules := make([]models.PromotionRule, 0, len(input.Rules))
	for _, rule := range input.Rules {
		if !validRule(rule) {
			return nil, ErrEventInvalid
		}
		rules = append(rules, models.PromotionRule{
			RuleType:          strings.ToLower(strings.TrimSpace(rule.RuleType)),
			TargetValue:       strings.TrimSpace(rule.TargetValue),
			DiscountType:      normalizeDiscountType(rule.DiscountType),
			DiscountValue:     rule.DiscountValue,
			MaxDiscountAmount: rule.MaxDiscountAmount,
			MinOrderValue:     rule.MinOrderValue,
			Priority:          rule.Priority,
		})
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	event := &models.PromotionalEvent{
		Name:              name,
		Description:       strings.TrimSpace(input.Description),
		StartsAt:          utcPtr(input.StartsAt),
		EndsAt:            utcPtr(input.EndsAt),
		DiscountType:      discountType,
		DiscountValue:     models.NewMoneyFromDecimal(input.DiscountValue.Decimal),
		MaxDiscountAmount: input.MaxDiscountAmount,
		MinOrderValue:     input.MinOrderValue,
		Priority:          input.Priority,
		MaxTotalUsage:     input.MaxTotalUsage,
		MaxUsagePerUser:   input.MaxUsagePerUser,
		ProductIDs:        models.UintArray(input.ProductIDs),
		IsActive:          isActive,
		Status:            constants.EventStatusDraft,
		Rules:             rules,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}
	if !isActive {
		if err := s.repo.SetActive(ctx, event.ID, false); err != nil {
			return nil, err
		}
		event.IsActive = false
	}
	return event, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

// Activate 启用活动：草稿或暂停 → 进行中；窗口已结束时拒绝
func (s *PromotionAdminService) Activate(ctx context.Context, id uint) (*models.PromotionalEvent, error) {
	event, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	window := clock.NewWindow(event.StartsAt, event.EndsAt)
	if window.Ended(s.clock.Now()) {
		return nil, ErrEventWindowEnded
	}
	if event.UsageExhausted() {
		return nil, ErrEventUsageLimit
	}
	return s.transition(ctx, event, []string{constants.EventStatusDraft, constants.EventStatusPaused}, constants.EventStatusActive)
}

// Pause 暂停进行中的活动
func (s *PromotionAdminService) Pause(ctx context.Context, id uint) (*models.PromotionalEvent, error) {
	event, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, event, []string{constants.EventStatusActive}, constants.EventStatusPaused)
}

// Cancel 取消活动，已过期或已取消的活动不可再取消
func (s *PromotionAdminService) Cancel(ctx context.Context, id uint) (*models.PromotionalEvent, error) {
	event, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, event, []string{constants.EventStatusDraft, constants.EventStatusActive, constants.EventStatusPaused}, constants.EventStatusCancelled)
}

// UpdateWindow 调整活动时间窗口；终态活动不可调整
func (s *PromotionAdminService) UpdateWindow(ctx context.Context, id uint, startsAt, endsAt *time.Time) (*models.PromotionalEvent, error) {
	if !clock.NewWindow(startsAt, endsAt).Valid() {
		return nil, ErrEventInvalid
	}
	event, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	if isTerminalStatus(event.Status) {
		return nil, ErrEventInvalidTransition
	}
	startsAt, endsAt = utcPtr(startsAt), utcPtr(endsAt)
	if err := s.repo.UpdateWindow(ctx, id, startsAt, endsAt); err != nil {
		return nil, err
	}
	event.StartsAt = startsAt
	event.EndsAt = endsAt
	s.invalidator.InvalidateAll(ctx)
	return event, nil
}

// DeleteEvent 软删除活动及其规则
func (s *PromotionAdminService) DeleteEvent(ctx context.Context, id uint) error {
	if _, err := s.mustGet(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidator.InvalidateAll(ctx)
	return nil
}

// GetEvent 获取活动详情
func (s *PromotionAdminService) GetEvent(ctx context.Context, id uint) (*models.PromotionalEvent, error) {
	return s.mustGet(ctx, id)
}

// ListEvents 活动列表
func (s *PromotionAdminService) ListEvents(ctx context.Context, filter repository.EventListFilter) ([]models.PromotionalEvent, int64, error) {
	return s.repo.List(ctx, filter)
}

// SyncStatuses 按时间推进活动状态：已排期草稿到点开启，窗口结束或次数用尽则过期
func (s *PromotionAdminService) SyncStatuses(ctx context.Context) (int64, error) {
	now := s.clock.Now()
	expired, err := s.repo.ExpireEnded(ctx, now)
	if err != nil {
		return 0, err
	}
	activated, err := s.repo.ActivateStarted(ctx, now)
	if err != nil {
		return expired, err
	}
	changed := expired + activated
	if changed > 0 {
		logger.Infow("promotional_event_status_synced", "expired", expired, "activated", activated)
		s.invalidator.InvalidateAll(ctx)
	}
	return changed, nil
}

func (s *PromotionAdminService) mustGet(ctx context.Context, id uint) (*models.PromotionalEvent, error) {
	if id == 0 {
		return nil, ErrEventNotFound
	}
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, ErrEventNotFound
	}
	return event, nil
}

func (s *PromotionAdminService) transition(ctx context.Context, event *models.PromotionalEvent, from []string, to string) (*models.PromotionalEvent, error) {
	if event.Status == to {
		return event, nil
	}
	rows, err := s.repo.UpdateStatus(ctx, event.ID, from, to)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrEventInvalidTransition
	}
	logger.Infow("promotional_event_status_changed",
		"event_id", event.ID,
		"from", event.Status,
		"to", to,
	)
	event.Status = to
	s.invalidator.InvalidateAll(ctx)
	return event, nil
}

func isTerminalStatus(status string) bool {
	return status == constants.EventStatusExpired || status == constants.EventStatusCancelled
}
