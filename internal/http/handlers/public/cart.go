package public

import (
	"strings"

	handlershared "github.com/dokan-next/internal/http/handlers/shared"
	"github.com/dokan-next/internal/http/response"
	"github.com/dokan-next/internal/service"

	"github.com/gin-gonic/gin"
)

// AddCartItemRequest 加购请求
type AddCartItemRequest struct {
	ProductID     uint   `json:"product_id" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required"`
	PaymentMethod string `json:"payment_method"`
	Region        string `json:"region"`
}

// UpdateCartItemRequest 修改数量请求
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// ApplyPromoCodeRequest 应用优惠码请求
type ApplyPromoCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// CheckoutRequest 结算请求
type CheckoutRequest struct {
	OrderID string `json:"order_id"`
}

// GetCart 获取购物车
func (h *Handler) GetCart(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	summary, err := h.CartService.GetCart(c.Request.Context(), uid)
	if err != nil {
		respondError(c, response.CodeInternal, "error.cart_fetch_failed", err)
		return
	}
	response.Success(c, summary)
}

// AddCartItem 加入购物车并预占库存
func (h *Handler) AddCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	item, err := h.CartService.AddItem(c.Request.Context(), service.AddCartItemInput{
		UserID:        uid,
		ProductID:     req.ProductID,
		Quantity:      req.Quantity,
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		Region:        strings.TrimSpace(req.Region),
	})
	if err != nil {
		respondStockOrMapped(c, err, cartItemErrorRules, "error.cart_update_failed")
		return
	}
	response.Success(c, item)
}

// UpdateCartItem 修改购物车行数量
func (h *Handler) UpdateCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	itemID, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	item, err := h.CartService.UpdateQuantity(c.Request.Context(), uid, itemID, req.Quantity)
	if err != nil {
		respondStockOrMapped(c, err, cartItemErrorRules, "error.cart_update_failed")
		return
	}
	response.Success(c, item)
}

// DeleteCartItem 移除购物车行并释放预占
func (h *Handler) DeleteCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	itemID, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	if err := h.CartService.RemoveItem(c.Request.Context(), uid, itemID); err != nil {
		handlershared.RespondMapped(c, err, cartItemErrorRules, response.CodeInternal, "error.cart_update_failed")
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// ExtendCartItem 延长购物车行的库存预占
func (h *Handler) ExtendCartItem(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	itemID, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	item, err := h.CartService.ExtendItem(c.Request.Context(), uid, itemID)
	if err != nil {
		handlershared.RespondMapped(c, err, cartItemErrorRules, response.CodeInternal, "error.cart_update_failed")
		return
	}
	response.Success(c, item)
}

// ApplyPromoCode 对购物车应用优惠码，校验失败时返回全部原因
func (h *Handler) ApplyPromoCode(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req ApplyPromoCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	result, err := h.CartService.ApplyPromoCode(c.Request.Context(), uid, req.Code)
	if err != nil {
		respondStockOrMapped(c, err, promoCodeErrorRules, "error.cart_update_failed")
		return
	}
	response.Success(c, result)
}

// RemovePromoCode 移除购物车优惠码
func (h *Handler) RemovePromoCode(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	if err := h.CartService.RemovePromoCode(c.Request.Context(), uid); err != nil {
		respondError(c, response.CodeInternal, "error.cart_update_failed", err)
		return
	}
	response.Success(c, gin.H{"removed": true})
}

// Checkout 结算购物车
func (h *Handler) Checkout(c *gin.Context) {
	uid, ok := getUserID(c)
	if !ok {
		return
	}
	var req CheckoutRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
	}
	result, err := h.CartService.Checkout(c.Request.Context(), uid, strings.TrimSpace(req.OrderID))
	if err != nil {
		respondStockOrMapped(c, err, handlershared.ConcatMapped(checkoutErrorRules, cartItemErrorRules), "error.checkout_failed")
		return
	}
	response.Success(c, result)
}
