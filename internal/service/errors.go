package service

import (
	"errors"
	"fmt"
	"strings"
)

// 商品与库存
var (
	ErrProductNotFound         = errors.New("product not found")
	ErrProductInvalid          = errors.New("product invalid")
	ErrCategoryNotFound        = errors.New("category not found")
	ErrProductNotAvailable     = errors.New("product not available")
	ErrInvalidQuantity         = errors.New("invalid quantity")
	ErrInsufficientStock       = errors.New("insufficient stock")
	ErrStockConflict           = errors.New("stock update conflict, retries exhausted")
	ErrStockInvariantViolation = errors.New("stock invariant violated")
	ErrReservationNotFound     = errors.New("reservation not found")
	ErrReservationExpired      = errors.New("reservation expired")
)

// 促销活动
var (
	ErrEventNotFound          = errors.New("promotional event not found")
	ErrEventInvalid           = errors.New("promotional event invalid")
	ErrEventInvalidTransition = errors.New("promotional event status transition not allowed")
	ErrEventWindowEnded       = errors.New("promotional event window has ended")
	ErrEventUsageLimit        = errors.New("promotional event usage limit reached")
	ErrEventUserLimit         = errors.New("promotional event per-user limit reached")
)

// 优惠码
var (
	ErrPromoCodeInvalid    = errors.New("promo code invalid")
	ErrPromoCodeNotFound   = errors.New("promo code not found")
	ErrPromoCodeExists     = errors.New("promo code already exists")
	ErrPromoCodeUsageLimit = errors.New("promo code usage limit reached")
	ErrPromoCodeUserLimit  = errors.New("promo code per-user limit reached")
)

// 购物车
var (
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrCartItemExpired  = errors.New("cart item reservation expired")
	ErrCartEmpty        = errors.New("cart is empty")
)

// ErrCollaboratorUnavailable 外部依赖（缓存、使用记录等）不可用
var ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

// ValidationError 单条校验错误
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationErrors 优惠码校验错误集合，返回全部命中的错误而非第一条
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (e *ValidationErrors) Error() string {
	if e == nil || len(e.Errors) == 0 {
		return ErrPromoCodeInvalid.Error()
	}
	messages := make([]string, 0, len(e.Errors))
	for _, item := range e.Errors {
		messages = append(messages, item.Message)
	}
	return ErrPromoCodeInvalid.Error() + ": " + strings.Join(messages, "; ")
}

// Is 使 errors.Is(err, ErrPromoCodeInvalid) 成立
func (e *ValidationErrors) Is(target error) bool {
	return target == ErrPromoCodeInvalid
}

// Add 追加错误
func (e *ValidationErrors) Add(code, message string) {
	e.Errors = append(e.Errors, ValidationError{Code: code, Message: message})
}

// Has 是否包含指定错误码
func (e *ValidationErrors) Has(code string) bool {
	if e == nil {
		return false
	}
	for _, item := range e.Errors {
		if item.Code == code {
			return true
		}
	}
	return false
}

// Empty 是否无错误
func (e *ValidationErrors) Empty() bool {
	return e == nil || len(e.Errors) == 0
}

// Codes 全部错误码
func (e *ValidationErrors) Codes() []string {
	if e == nil {
		return nil
	}
	codes := make([]string, 0, len(e.Errors))
	for _, item := range e.Errors {
		codes = append(codes, item.Code)
	}
	return codes
}

// InsufficientStockError 库存不足，携带当前可售数量
type InsufficientStockError struct {
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: %d available", ErrInsufficientStock.Error(), e.Available)
}

// Is 使 errors.Is(err, ErrInsufficientStock) 成立
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
