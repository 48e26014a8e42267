package admin

import (
	"context"
	"strings"

	handlershared "github.com/dokan-next/internal/http/handlers/shared"
	"github.com/dokan-next/internal/http/response"
	"github.com/dokan-next/internal/models"
	"github.com/dokan-next/internal/repository"
	"github.com/dokan-next/internal/service"

	"github.com/gin-gonic/gin"
)

// EventRuleRequest 活动规则请求
type EventRuleRequest struct {
	RuleType          string        `json:"rule_type" binding:"required"`
	TargetValue       string        `json:"target_value"`
	DiscountType      string        `json:"discount_type"`
	DiscountValue     *models.Money `json:"discount_value"`
	MaxDiscountAmount *models.Money `json:"max_discount_amount"`
	MinOrderValue     *models.Money `json:"min_order_value"`
	Priority          int           `json:"priority"`
}

// CreateEventRequest 创建活动请求
type CreateEventRequest struct {
	Name              string             `json:"name" binding:"required"`
	Description       string             `json:"description"`
	StartsAt          string             `json:"starts_at"`
	EndsAt            string             `json:"ends_at"`
	DiscountType      string             `json:"discount_type" binding:"required"`
	DiscountValue     models.Money       `json:"discount_value"`
	MaxDiscountAmount *models.Money      `json:"max_discount_amount"`
	MinOrderValue     *models.Money      `json:"min_order_value"`
	Priority          int                `json:"priority"`
	MaxTotalUsage     int                `json:"max_total_usage"`
	MaxUsagePerUser   int                `json:"max_usage_per_user"`
	ProductIDs        []uint             `json:"product_ids"`
	IsActive          *bool              `json:"is_active"`
	Rules             []EventRuleRequest `json:"rules"`
}

// UpdateEventWindowRequest 调整活动时间窗请求
type UpdateEventWindowRequest struct {
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
}

var eventErrorRules = []handlershared.MappedError{
	{Target: service.ErrEventNotFound, Code: response.CodeNotFound, Key: "error.event_not_found"},
	{Target: service.ErrEventInvalid, Code: response.CodeBadRequest, Key: "error.event_invalid"},
	{Target: service.ErrEventInvalidTransition, Code: response.CodeBadRequest, Key: "error.event_transition"},
	{Target: service.ErrEventWindowEnded, Code: response.CodeBadRequest, Key: "error.event_window_ended"},
}

// ListEvents 活动列表
func (h *Handler) ListEvents(c *gin.Context) {
	page, pageSize := handlershared.Pagination(c)
	events, total, err := h.PromotionAdminService.ListEvents(c.Request.Context(), repository.EventListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   strings.TrimSpace(c.Query("status")),
		Search:   strings.TrimSpace(c.Query("search")),
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.event_fetch_failed", err)
		return
	}
	response.SuccessWithPage(c, events, response.NewPagination(page, pageSize, total))
}

// GetEvent 活动详情
func (h *Handler) GetEvent(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	event, err := h.PromotionAdminService.GetEvent(c.Request.Context(), id)
	if err != nil {
		handlershared.RespondMapped(c, err, eventErrorRules, response.CodeInternal, "error.event_fetch_failed")
		return
	}
	response.Success(c, event)
}

// CreateEvent 创建活动
func (h *Handler) CreateEvent(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	startsAt, err := handlershared.ParseTimeNullable(req.StartsAt)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	endsAt, err := handlershared.ParseTimeNullable(req.EndsAt)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	rules := make([]service.RuleInput, 0, len(req.Rules))
	for _, rule := range req.Rules {
		rules = append(rules, service.RuleInput{
			RuleType:          rule.RuleType,
			TargetValue:       rule.TargetValue,
			DiscountType:      rule.DiscountType,
			DiscountValue:     rule.DiscountValue,
			MaxDiscountAmount: rule.MaxDiscountAmount,
			MinOrderValue:     rule.MinOrderValue,
			Priority:          rule.Priority,
		})
	}

	event, err := h.PromotionAdminService.CreateEvent(c.Request.Context(), service.CreateEventInput{
		Name:              req.Name,
		Description:       req.Description,
		StartsAt:          startsAt,
		EndsAt:            endsAt,
		DiscountType:      req.DiscountType,
		DiscountValue:     req.DiscountValue,
		MaxDiscountAmount: req.MaxDiscountAmount,
		MinOrderValue:     req.MinOrderValue,
		Priority:          req.Priority,
		MaxTotalUsage:     req.MaxTotalUsage,
		MaxUsagePerUser:   req.MaxUsagePerUser,
		ProductIDs:        req.ProductIDs,
		IsActive:          req.IsActive,
		Rules:             rules,
	})
	if err != nil {
		handlershared.RespondMapped(c, err, eventErrorRules, response.CodeInternal, "error.event_save_failed")
		return
	}
	handlershared.RequestLog(c).Infow("admin_event_created", "admin_id", adminID, "event_id", event.ID)
	response.Success(c, event)
}

// ActivateEvent 启用活动
func (h *Handler) ActivateEvent(c *gin.Context) {
	h.transitionEvent(c, h.PromotionAdminService.Activate)
}

// PauseEvent 暂停活动
func (h *Handler) PauseEvent(c *gin.Context) {
	h.transitionEvent(c, h.PromotionAdminService.Pause)
}

// CancelEvent 取消活动
func (h *Handler) CancelEvent(c *gin.Context) {
	h.transitionEvent(c, h.PromotionAdminService.Cancel)
}

func (h *Handler) transitionEvent(c *gin.Context, fn func(ctx context.Context, id uint) (*models.PromotionalEvent, error)) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	event, err := fn(c.Request.Context(), id)
	if err != nil {
		handlershared.RespondMapped(c, err, eventErrorRules, response.CodeInternal, "error.event_save_failed")
		return
	}
	response.Success(c, event)
}

// UpdateEventWindow 调整活动时间窗
func (h *Handler) UpdateEventWindow(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req UpdateEventWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	startsAt, err := handlershared.ParseTimeNullable(req.StartsAt)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	endsAt, err := handlershared.ParseTimeNullable(req.EndsAt)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	event, err := h.PromotionAdminService.UpdateWindow(c.Request.Context(), id, startsAt, endsAt)
	if err != nil {
		handlershared.RespondMapped(c, err, eventErrorRules, response.CodeInternal, "error.event_save_failed")
		return
	}
	response.Success(c, event)
}

// DeleteEvent 删除活动
func (h *Handler) DeleteEvent(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	if err := h.PromotionAdminService.DeleteEvent(c.Request.Context(), id); err != nil {
		handlershared.RespondMapped(c, err, eventErrorRules, response.CodeInternal, "error.event_save_failed")
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// SyncEventStatuses 立即按时间窗同步活动状态
func (h *Handler) SyncEventStatuses(c *gin.Context) {
	changed, err := h.PromotionAdminService.SyncStatuses(c.Request.Context())
	if err != nil {
		respondError(c, response.CodeInternal, "error.event_save_failed", err)
		return
	}
	response.Success(c, gin.H{"changed": changed})
}
