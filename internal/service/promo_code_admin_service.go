package service

import (
	"context"
	"strings"
	"time"

	"github.com/dokan-next/internal/clock"
	"github.com/dokan-next/internal/constants"
	"github.com/dokan-next/internal/models"
	"github.com/dokan-next/internal/repository"
)

// PromoCodeAdminService 优惠码管理服务
type PromoCodeAdminService struct {
	repo repository.PromoCodeRepository
}

// NewPromoCodeAdminService 创建优惠码管理服务
func NewPromoCodeAdminService(repo repository.PromoCodeRepository) *PromoCodeAdminService {
	return &PromoCodeAdminService{repo: repo}
}

// PromoCodeInput 创建/更新优惠码输入
type PromoCodeInput struct {
	Code                string
	Description         string
	DiscountType        string
	DiscountValue       models.Money
	MaxDiscountAmount   *models.Money
	MinOrderAmount      models.Money
	MaxTotalUsage       int
	MaxUsagePerUser     int
	StartsAt            *time.Time
	EndsAt              *time.Time
	CategoryID          *uint
	CustomerTier        string
	StackableWithEvents bool
	ApplyToShipping     bool
	IsActive            *bool
}

func validTier(tier string) bool {
	switch tier {
	case "", constants.CustomerTierAll, constants.CustomerTierRegular, constants.CustomerTierSilver,
		constants.CustomerTierGold, constants.CustomerTierPlatinum:
		return true
	default:
		return false
	}
}

func (s *PromoCodeAdminService) validate(input PromoCodeInput) (string, string, error) {
	code := repository.NormalizeCode(input.Code)
	if code == "" {
		return "", "", ErrPromoCodeInvalid
	}
	discountType := normalizeDiscountType(input.DiscountType)
	if !validDiscount(discountType, input.DiscountValue.Decimal) {
		return "", "", ErrPromoCodeInvalid
	}
	if !clock.NewWindow(input.StartsAt, input.EndsAt).Valid() {
		return "", "", ErrPromoCodeInvalid
	}
	if input.MaxTotalUsage < 0 || input.MaxUsagePerUser < 0 || input.MinOrderAmount.IsNegative() {
		return "", "", ErrPromoCodeInvalid
	}
	if !nonNegative(input.MaxDiscountAmount) {
		return "", "", ErrPromoCodeInvalid
	}
	if !validTier(strings.ToLower(strings.TrimSpace(input.CustomerTier))) {
		return "", "", ErrPromoCodeInvalid
	}
	return code, discountType, nil
}

func (s *PromoCodeAdminService) apply(promo *models.PromoCode, code, discountType string, input PromoCodeInput) {
	promo.Code = code
	promo.Description = strings.TrimSpace(input.Description)
	promo.DiscountType = discountType
	promo.DiscountValue = models.NewMoneyFromDecimal(input.DiscountValue.Decimal)
	promo.MaxDiscountAmount = input.MaxDiscountAmount
	promo.MinOrderAmount = input.MinOrderAmount
	promo.MaxTotalUsage = input.MaxTotalUsage
	promo.MaxUsagePerUser = input.MaxUsagePerUser
	promo.StartsAt = utcPtr(input.StartsAt)
	promo.EndsAt = utcPtr(input.EndsAt)
	promo.CategoryID = input.CategoryID
	promo.CustomerTier = strings.ToLower(strings.TrimSpace(input.CustomerTier))
	promo.StackableWithEvents = input.StackableWithEvents
	promo.ApplyToShipping = input.ApplyToShipping
}

// Create 创建优惠码
func (s *PromoCodeAdminService) Create(ctx context.Context, input PromoCodeInput) (*models.PromoCode, error) {
	code, discountType, err := s.validate(input)
	if err != nil {
		return nil, err
	}
	exist, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if exist != nil {
		return nil, ErrPromoCodeExists
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	promo := &models.PromoCode{IsActive: true}
	s.apply(promo, code, discountType, input)
	if err := s.repo.Create(ctx, promo); err != nil {
		return nil, err
	}
	if !isActive {
		promo.IsActive = false
		if err := s.repo.Update(ctx, promo); err != nil {
			return nil, err
		}
	}
	return promo, nil
}

// Update 更新优惠码；已使用次数不受影响
func (s *PromoCodeAdminService) Update(ctx context.Context, id uint, input PromoCodeInput) (*models.PromoCode, error) {
	existing, err := s.mustGet(ctx, id)
	if err != nil {
		return nil, err
	}
	code, discountType, err := s.validate(input)
	if err != nil {
		return nil, err
	}
	if code != existing.Code {
		dup, err := s.repo.GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if dup != nil && dup.ID != existing.ID {
			return nil, ErrPromoCodeExists
		}
	}

	s.apply(existing, code, discountType, input)
	if input.IsActive != nil {
		existing.IsActive = *input.IsActive
	}
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete 软删除优惠码
func (s *PromoCodeAdminService) Delete(ctx context.Context, id uint) error {
	if _, err := s.mustGet(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// List 优惠码列表
func (s *PromoCodeAdminService) List(ctx context.Context, filter repository.PromoCodeListFilter) ([]models.PromoCode, int64, error) {
	return s.repo.List(ctx, filter)
}

func (s *PromoCodeAdminService) mustGet(ctx context.Context, id uint) (*models.PromoCode, error) {
	if id == 0 {
		return nil, ErrPromoCodeNotFound
	}
	promo, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if promo == nil {
		return nil, ErrPromoCodeNotFound
	}
	return promo, nil
}
