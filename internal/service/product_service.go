package service

import (
	"context"
	"strings"

	"github.com/dokan-next/internal/models"
	"github.com/dokan-next/internal/repository"

	"github.com/shopspring/decimal"
)

// ProductService 商品目录服务（价格变更负责失效价格缓存）
type ProductService struct {
	repo         repository.ProductRepository
	categoryRepo repository.CategoryRepository
	invalidator  PricingInvalidator
}

// NewProductService 创建商品服务
func NewProductService(repo repository.ProductRepository, categoryRepo repository.CategoryRepository, invalidator PricingInvalidator) *ProductService {
	if invalidator == nil {
		invalidator = noopInvalidator{}
	}
	return &ProductService{repo: repo, categoryRepo: categoryRepo, invalidator: invalidator}
}

// CreateProductInput 创建商品输入
type CreateProductInput struct {
	CategoryID    uint
	Slug          string
	Name          string
	MarketPrice   models.Money
	DiscountPrice *models.Money
	StockTotal    int
}

// ListPublic 获取公开商品列表
func (s *ProductService) ListPublic(ctx context.Context, categoryID uint, search string, page, pageSize int) ([]models.Product, int64, error) {
	return s.repo.List(ctx, repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		CategoryID: categoryID,
		Search:     search,
		OnlyActive: true,
	})
}

// GetByID 获取商品
func (s *ProductService) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// Create 创建商品
func (s *ProductService) Create(ctx context.Context, input CreateProductInput) (*models.Product, error) {
	slug := strings.TrimSpace(input.Slug)
	name := strings.TrimSpace(input.Name)
	if slug == "" || name == "" || input.StockTotal < 0 {
		return nil, ErrProductInvalid
	}
	if !validPrice(input.MarketPrice, input.DiscountPrice) {
		return nil, ErrProductInvalid
	}
	category, err := s.categoryRepo.GetByID(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}
	product := &models.Product{
		CategoryID:    input.CategoryID,
		Slug:          slug,
		Name:          name,
		MarketPrice:   models.NewMoneyFromDecimal(input.MarketPrice.Decimal),
		DiscountPrice: input.DiscountPrice,
		StockTotal:    input.StockTotal,
		IsActive:      true,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func validPrice(market models.Money, discount *models.Money) bool {
	if market.Decimal.LessThan(decimal.Zero) {
		return false
	}
	return discount == nil || !discount.IsNegative()
}

// UpdatePrice 修改市场价与直降价，并失效该商品的价格缓存
func (s *ProductService) UpdatePrice(ctx context.Context, id uint, market models.Money, discount *models.Money) (*models.Product, error) {
	if !validPrice(market, discount) {
		return nil, ErrProductInvalid
	}
	product, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePrice(ctx, id, market, discount); err != nil {
		return nil, err
	}
	product.MarketPrice = models.NewMoneyFromDecimal(market.Decimal)
	product.DiscountPrice = discount
	s.invalidator.Invalidate(ctx, id)
	return product, nil
}

// DeleteProduct 软删除商品（购物车项随之删除）
func (s *ProductService) DeleteProduct(ctx context.Context, id uint) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidator.Invalidate(ctx, id)
	return nil
}

// CreateCategory 创建分类
func (s *ProductService) CreateCategory(ctx context.Context, slug, name string) (*models.Category, error) {
	slug = strings.TrimSpace(slug)
	name = strings.TrimSpace(name)
	if slug == "" || name == "" {
		return nil, ErrProductInvalid
	}
	category := &models.Category{Slug: slug, Name: name}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// DeleteCategory 软删除分类及其商品
func (s *ProductService) DeleteCategory(ctx context.Context, id uint) error {
	category, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if category == nil {
		return ErrCategoryNotFound
	}
	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidator.InvalidateAll(ctx)
	return nil
}
