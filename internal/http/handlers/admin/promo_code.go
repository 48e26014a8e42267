package admin

import (
	"strconv"
	"strings"

	handlershared "github.com/dokan-next/internal/http/handlers/shared"
	"github.com/dokan-next/internal/http/response"
	"github.com/dokan-next/internal/models"
	"github.com/dokan-next/internal/repository"
	"github.com/dokan-next/internal/service"

	"github.com/gin-gonic/gin"
)

// PromoCodeRequest 创建/更新优惠码请求
type PromoCodeRequest struct {
	Code                string        `json:"code" binding:"required"`
	Description         string        `json:"description"`
	DiscountType        string        `json:"discount_type" binding:"required"`
	DiscountValue       models.Money  `json:"discount_value"`
	MaxDiscountAmount   *models.Money `json:"max_discount_amount"`
	MinOrderAmount      models.Money  `json:"min_order_amount"`
	MaxTotalUsage       int           `json:"max_total_usage"`
	MaxUsagePerUser     int           `json:"max_usage_per_user"`
	StartsAt            string        `json:"starts_at"`
	EndsAt              string        `json:"ends_at"`
	CategoryID          *uint         `json:"category_id"`
	CustomerTier        string        `json:"customer_tier"`
	StackableWithEvents bool          `json:"stackable_with_events"`
	ApplyToShipping     bool          `json:"apply_to_shipping"`
	IsActive            *bool         `json:"is_active"`
}

var promoCodeAdminErrorRules = []handlershared.MappedError{
	{Target: service.ErrPromoCodeNotFound, Code: response.CodeNotFound, Key: "error.promo_code_not_found"},
	{Target: service.ErrPromoCodeExists, Code: response.CodeConflict, Key: "error.promo_code_exists"},
	{Target: service.ErrPromoCodeInvalid, Code: response.CodeBadRequest, Key: "error.promo_code_invalid"},
}

func (r PromoCodeRequest) toInput() (service.PromoCodeInput, error) {
	startsAt, err := handlershared.ParseTimeNullable(r.StartsAt)
	if err != nil {
		return service.PromoCodeInput{}, err
	}
	endsAt, err := handlershared.ParseTimeNullable(r.EndsAt)
	if err != nil {
		return service.PromoCodeInput{}, err
	}
	return service.PromoCodeInput{
		Code:                r.Code,
		Description:         r.Description,
		DiscountType:        r.DiscountType,
		DiscountValue:       r.DiscountValue,
		MaxDiscountAmount:   r.MaxDiscountAmount,
		MinOrderAmount:      r.MinOrderAmount,
		MaxTotalUsage:       r.MaxTotalUsage,
		MaxUsagePerUser:     r.MaxUsagePerUser,
		StartsAt:            startsAt,
		EndsAt:              endsAt,
		CategoryID:          r.CategoryID,
		CustomerTier:        r.CustomerTier,
		StackableWithEvents: r.StackableWithEvents,
		ApplyToShipping:     r.ApplyToShipping,
		IsActive:            r.IsActive,
	}, nil
}

// ListPromoCodes 优惠码列表
func (h *Handler) ListPromoCodes(c *gin.Context) {
	page, pageSize := handlershared.Pagination(c)
	filter := repository.PromoCodeListFilter{
		Page:     page,
		PageSize: pageSize,
		Code:     strings.TrimSpace(c.Query("code")),
	}
	if raw := strings.TrimSpace(c.Query("is_active")); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.IsActive = &active
		}
	}
	codes, total, err := h.PromoCodeAdminService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, response.CodeInternal, "error.promo_code_save_failed", err)
		return
	}
	response.SuccessWithPage(c, codes, response.NewPagination(page, pageSize, total))
}

// CreatePromoCode 创建优惠码
func (h *Handler) CreatePromoCode(c *gin.Context) {
	var req PromoCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	promo, err := h.PromoCodeAdminService.Create(c.Request.Context(), input)
	if err != nil {
		handlershared.RespondMapped(c, err, promoCodeAdminErrorRules, response.CodeInternal, "error.promo_code_save_failed")
		return
	}
	response.Success(c, promo)
}

// UpdatePromoCode 更新优惠码
func (h *Handler) UpdatePromoCode(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req PromoCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	promo, err := h.PromoCodeAdminService.Update(c.Request.Context(), id, input)
	if err != nil {
		handlershared.RespondMapped(c, err, promoCodeAdminErrorRules, response.CodeInternal, "error.promo_code_save_failed")
		return
	}
	response.Success(c, promo)
}

// DeletePromoCode 删除优惠码
func (h *Handler) DeletePromoCode(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	if err := h.PromoCodeAdminService.Delete(c.Request.Context(), id); err != nil {
		handlershared.RespondMapped(c, err, promoCodeAdminErrorRules, response.CodeInternal, "error.promo_code_save_failed")
		return
	}
	response.Success(c, gin.H{"deleted": true})
}
