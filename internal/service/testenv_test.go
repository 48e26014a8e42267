package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dokan-next/internal/clock"
	"github.com/dokan-next/internal/constants"
	"github.com/dokan-next/internal/models"
	"github.com/dokan-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var testNow = time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)

func openServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:svc_" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

type serviceTestEnv struct {
	db    *gorm.DB
	clock *clock.Fixed

	productRepo     *repository.GormProductRepository
	eventRepo       *repository.GormPromotionalEventRepository
	eventUsageRepo  *repository.GormEventUsageRepository
	codeRepo        *repository.GormPromoCodeRepository
	codeUsageRepo   *repository.GormPromoCodeUsageRepository
	reservationRepo *repository.GormReservationRepository
	cartRepo        *repository.GormCartRepository

	resolver *PromotionResolver
	pricing  *PricingCache
	usage    *EventUsageService
	promo    *PromoCodeService
	stock    *StockReservationService
	cart     *CartService
	admin    *PromotionAdminService
	codes    *PromoCodeAdminService
	products *ProductService
}

func newServiceTestEnv(t *testing.T) *serviceTestEnv {
	t.Helper()
	db := openServiceTestDB(t)
	clk := clock.NewFixed(testNow)

	env := &serviceTestEnv{
		db:              db,
		clock:           clk,
		productRepo:     repository.NewProductRepository(db),
		eventRepo:       repository.NewPromotionalEventRepository(db),
		eventUsageRepo:  repository.NewEventUsageRepository(db),
		codeRepo:        repository.NewPromoCodeRepository(db),
		codeUsageRepo:   repository.NewPromoCodeUsageRepository(db),
		reservationRepo: repository.NewReservationRepository(db),
		cartRepo:        repository.NewCartRepository(db),
	}
	userRepo := repository.NewUserRepository(db)

	env.usage = NewEventUsageService(env.eventRepo, env.eventUsageRepo, nil, nil)
	env.resolver = NewPromotionResolver(env.productRepo, userRepo, env.eventRepo, env.usage, clk, nil, PromotionResolverOptions{})
	env.pricing = NewPricingCache(env.resolver, nil, nil, clk, PricingCacheOptions{})
	env.usage.SetInvalidator(env.pricing)
	env.promo = NewPromoCodeService(env.codeRepo, env.codeUsageRepo, userRepo, clk, nil, "")
	env.stock = NewStockReservationService(env.productRepo, env.reservationRepo, nil, clk, nil, StockReservationOptions{
		TTL:          15 * time.Minute,
		RetryBackoff: time.Millisecond,
	})
	env.cart = NewCartService(env.cartRepo, env.productRepo, env.pricing, env.stock, env.promo, env.usage, env.pricing, clk, CartOptions{
		ShippingCost:          models.NewMoney("100"),
		FreeShippingThreshold: models.NewMoney("5000"),
		MaxQuantityPerLine:    50,
	})
	env.admin = NewPromotionAdminService(env.eventRepo, env.pricing, clk)
	env.codes = NewPromoCodeAdminService(env.codeRepo)
	env.products = NewProductService(env.productRepo, repository.NewCategoryRepository(db), env.pricing)
	return env
}

func (e *serviceTestEnv) seedCategory(t *testing.T, slug string) *models.Category {
	t.Helper()
	category := &models.Category{Slug: slug, Name: slug}
	if err := e.db.Create(category).Error; err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	return category
}

func (e *serviceTestEnv) seedProduct(t *testing.T, categoryID uint, market string, discount string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		CategoryID:  categoryID,
		Slug:        fmt.Sprintf("product-%d-%s", time.Now().UnixNano(), market),
		Name:        "测试商品 " + market,
		MarketPrice: models.NewMoney(market),
		StockTotal:  stock,
		IsActive:    true,
	}
	if discount != "" {
		product.DiscountPrice = models.NewMoney(discount).Ptr()
	}
	if err := e.productRepo.Create(context.Background(), product); err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func (e *serviceTestEnv) seedUser(t *testing.T, id uint, tier, region string) *models.User {
	t.Helper()
	user := &models.User{
		ID:     id,
		Email:  fmt.Sprintf("user_%d@example.com", id),
		Tier:   tier,
		Region: region,
	}
	if err := e.db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

// seedEvent 写入进行中的活动；未设置窗口时默认从一小时前开始、三天后结束
func (e *serviceTestEnv) seedEvent(t *testing.T, event models.PromotionalEvent) *models.PromotionalEvent {
	t.Helper()
	now := e.clock.Now()
	if event.StartsAt == nil {
		start := now.Add(-time.Hour)
		event.StartsAt = &start
	}
	if event.EndsAt == nil {
		end := now.Add(72 * time.Hour)
		event.EndsAt = &end
	}
	if event.Status == "" {
		event.Status = constants.EventStatusActive
	}
	if event.Name == "" {
		event.Name = "限时活动"
	}
	event.IsActive = true
	if err := e.eventRepo.Create(context.Background(), &event); err != nil {
		t.Fatalf("create event failed: %v", err)
	}
	return &event
}

func (e *serviceTestEnv) seedPromoCode(t *testing.T, promo models.PromoCode) *models.PromoCode {
	t.Helper()
	promo.IsActive = true
	if err := e.codeRepo.Create(context.Background(), &promo); err != nil {
		t.Fatalf("create promo code failed: %v", err)
	}
	return &promo
}

func (e *serviceTestEnv) reloadProduct(t *testing.T, id uint) *models.Product {
	t.Helper()
	product, err := e.productRepo.GetByID(context.Background(), id)
	if err != nil || product == nil {
		t.Fatalf("reload product %d failed: %v", id, err)
	}
	return product
}
