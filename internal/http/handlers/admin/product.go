package admin

import (
	handlershared "github.com/dokan-next/internal/http/handlers/shared"
	"github.com/dokan-next/internal/http/response"
	"github.com/dokan-next/internal/models"
	"github.com/dokan-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateCategoryRequest 创建分类请求
type CreateCategoryRequest struct {
	Slug string `json:"slug" binding:"required"`
	Name string `json:"name" binding:"required"`
}

// CreateProductRequest 创建商品请求
type CreateProductRequest struct {
	CategoryID    uint          `json:"category_id" binding:"required"`
	Slug          string        `json:"slug" binding:"required"`
	Name          string        `json:"name" binding:"required"`
	MarketPrice   models.Money  `json:"market_price"`
	DiscountPrice *models.Money `json:"discount_price"`
	StockTotal    int           `json:"stock_total"`
}

// UpdatePriceRequest 调价请求
type UpdatePriceRequest struct {
	MarketPrice   models.Money  `json:"market_price"`
	DiscountPrice *models.Money `json:"discount_price"`
}

var productErrorRules = []handlershared.MappedError{
	{Target: service.ErrProductNotFound, Code: response.CodeNotFound, Key: "error.product_not_found"},
	{Target: service.ErrProductInvalid, Code: response.CodeBadRequest, Key: "error.product_invalid"},
	{Target: service.ErrCategoryNotFound, Code: response.CodeNotFound, Key: "error.category_not_found"},
}

// CreateCategory 创建分类
func (h *Handler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	category, err := h.ProductService.CreateCategory(c.Request.Context(), req.Slug, req.Name)
	if err != nil {
		handlershared.RespondMapped(c, err, productErrorRules, response.CodeInternal, "error.category_save_failed")
		return
	}
	response.Success(c, category)
}

// DeleteCategory 删除分类（级联下架商品与购物车行）
func (h *Handler) DeleteCategory(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	if err := h.ProductService.DeleteCategory(c.Request.Context(), id); err != nil {
		handlershared.RespondMapped(c, err, productErrorRules, response.CodeInternal, "error.category_save_failed")
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// CreateProduct 创建商品
func (h *Handler) CreateProduct(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	product, err := h.ProductService.Create(c.Request.Context(), service.CreateProductInput{
		CategoryID:    req.CategoryID,
		Slug:          req.Slug,
		Name:          req.Name,
		MarketPrice:   req.MarketPrice,
		DiscountPrice: req.DiscountPrice,
		StockTotal:    req.StockTotal,
	})
	if err != nil {
		handlershared.RespondMapped(c, err, productErrorRules, response.CodeInternal, "error.product_save_failed")
		return
	}
	response.Success(c, product)
}

// UpdateProductPrice 调整商品价格并失效价格缓存
func (h *Handler) UpdateProductPrice(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	var req UpdatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	product, err := h.ProductService.UpdatePrice(c.Request.Context(), id, req.MarketPrice, req.DiscountPrice)
	if err != nil {
		handlershared.RespondMapped(c, err, productErrorRules, response.CodeInternal, "error.product_save_failed")
		return
	}
	response.Success(c, product)
}

// DeleteProduct 删除商品
func (h *Handler) DeleteProduct(c *gin.Context) {
	id, ok := handlershared.ParamUint(c, "id")
	if !ok {
		return
	}
	if err := h.ProductService.DeleteProduct(c.Request.Context(), id); err != nil {
		handlershared.RespondMapped(c, err, productErrorRules, response.CodeInternal, "error.product_save_failed")
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// SweepReservations 立即回收已过期的库存预占
func (h *Handler) SweepReservations(c *gin.Context) {
	released, err := h.StockService.SweepExpired(c.Request.Context())
	if err != nil {
		respondError(c, response.CodeInternal, "error.product_save_failed", err)
		return
	}
	response.Success(c, gin.H{"released": released})
}
