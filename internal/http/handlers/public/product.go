package public

import (
	"strings"

	handlershared "github.com/dokan-next/internal/http/handlers/shared"
	"github.com/dokan-next/internal/http/response"
	"github.com/dokan-next/internal/models"
	"github.com/dokan-next/internal/service"

	"github.com/gin-gonic/gin"
)

// PublicProductView 商品列表项（附带当前有效价格）
type PublicProductView struct {
	ID             uint               `json:"id"`
	CategoryID     uint               `json:"category_id"`
	Slug           string             `json:"slug"`
	Name           string             `json:"name"`
	MarketPrice    models.Money       `json:"market_price"`
	AvailableStock int                `json:"available_stock"`
	Price          *service.PriceInfo `json:"price,omitempty"`
}

// GetProducts 获取公开商品列表
func (h *Handler) GetProducts(c *gin.Context) {
	page, pageSize := handlershared.Pagination(c)
	categoryID := handlershared.QueryUint(c, "category_id")
	search := strings.TrimSpace(c.Query("search"))

	products, total, err := h.ProductService.ListPublic(c.Request.Context(), categoryID, search, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.product_fetch_failed", err)
		return
	}

	ids := make([]uint, 0, len(products))
	for i := range products {
		ids = append(ids, products[i].ID)
	}
	prices, err := h.PricingCache.GetMany(c.Request.Context(), ids, optionalUserID(c))
	if err != nil {
		// 价格不可用时仍返回商品列表
		handlershared.RequestLog(c).Warnw("public_product_prices_failed", "error", err)
	}
	byID := make(map[uint]*service.PriceInfo, len(prices))
	for i := range prices {
		byID[prices[i].ProductID] = &prices[i]
	}

	views := make([]PublicProductView, 0, len(products))
	for i := range products {
		product := &products[i]
		views = append(views, PublicProductView{
			ID:             product.ID,
			CategoryID:     product.CategoryID,
			Slug:           product.Slug,
			Name:           product.Name,
			MarketPrice:    product.MarketPrice,
			AvailableStock: product.Available(),
			Price:          byID[product.ID],
		})
	}
	response.SuccessWithPage(c, views, response.NewPagination(page, pageSize, total))
}
