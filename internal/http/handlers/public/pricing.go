package public

import (
	"strconv"
	"strings"

	handlershared "github.com/dokan-next/internal/http/handlers/shared"
	"github.com/dokan-next/internal/http/response"
	"github.com/dokan-next/internal/service"

	"github.com/gin-gonic/gin"
)

const maxBatchPriceProducts = 50

// BatchPriceRequest 批量价格查询请求
type BatchPriceRequest struct {
	ProductIDs []uint `json:"product_ids" binding:"required"`
}

// GetProductPrice 查询单个商品的有效价格
func (h *Handler) GetProductPrice(c *gin.Context) {
	productID, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	userID := optionalUserID(c)
	quantity, _ := strconv.Atoi(c.DefaultQuery("quantity", "1"))
	paymentMethod := strings.TrimSpace(c.Query("payment_method"))
	region := strings.TrimSpace(c.Query("region"))

	var (
		info *service.PriceInfo
		err  error
	)
	if quantity <= 1 && paymentMethod == "" && region == "" {
		info, err = h.PricingCache.Get(c.Request.Context(), productID, userID)
	} else {
		info, err = h.PricingCache.GetFor(c.Request.Context(), service.PriceQuery{
			ProductID:     productID,
			UserID:        userID,
			Quantity:      quantity,
			PaymentMethod: paymentMethod,
			Region:        region,
		})
	}
	if err != nil {
		handlershared.RespondMapped(c, err, priceErrorRules, response.CodeInternal, "error.price_fetch_failed")
		return
	}
	response.Success(c, info)
}

// GetProductPrices 批量查询商品有效价格，不存在的商品被忽略
func (h *Handler) GetProductPrices(c *gin.Context) {
	var req BatchPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if len(req.ProductIDs) > maxBatchPriceProducts {
		respondError(c, response.CodeBadRequest, "error.price_batch_too_large", nil)
		return
	}
	ids := dedupeIDs(req.ProductIDs)
	prices, err := h.PricingCache.GetMany(c.Request.Context(), ids, optionalUserID(c))
	if err != nil {
		respondError(c, response.CodeInternal, "error.price_fetch_failed", err)
		return
	}
	response.Success(c, gin.H{"items": prices})
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
