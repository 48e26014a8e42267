package main

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/dokan-next/internal/config"
	"github.com/dokan-next/internal/constants"
	"github.com/dokan-next/internal/logger"
	"github.com/dokan-next/internal/models"
	"github.com/dokan-next/internal/provider"
	"github.com/dokan-next/internal/service"
)

type seedProduct struct {
	Category string
	Slug     string
	Name     string
	Market   string
	Discount string
	Stock    int
}

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	c := provider.NewContainer(cfg)
	defer c.Close()
	ctx := context.Background()

	// 添加分类
	categoryIDs := map[string]uint{}
	for slug, name := range map[string]string{
		"phones":      "Phones",
		"laptops":     "Laptops",
		"accessories": "Accessories",
	} {
		if existing, err := c.CategoryRepo.GetBySlug(ctx, slug); err == nil && existing != nil {
			stdLog.Printf("Category already exists: %s", slug)
			categoryIDs[slug] = existing.ID
			continue
		}
		category, err := c.ProductService.CreateCategory(ctx, slug, name)
		if err != nil {
			stdLog.Printf("Failed to create category %s: %v", slug, err)
			continue
		}
		stdLog.Printf("Created category: %s", slug)
		categoryIDs[slug] = category.ID
	}

	// 添加商品
	products := []seedProduct{
		{Category: "phones", Slug: "galaxy-a15", Name: "Galaxy A15", Market: "25999", Discount: "23999", Stock: 40},
		{Category: "phones", Slug: "redmi-note-13", Name: "Redmi Note 13", Market: "31999", Stock: 25},
		{Category: "laptops", Slug: "ideapad-slim-3", Name: "IdeaPad Slim 3", Market: "89999", Stock: 8},
		{Category: "accessories", Slug: "usb-c-charger", Name: "USB-C Charger 25W", Market: "1499", Discount: "1299", Stock: 200},
		{Category: "accessories", Slug: "tws-earbuds", Name: "TWS Earbuds", Market: "2999", Stock: 0},
	}
	for _, item := range products {
		categoryID, ok := categoryIDs[item.Category]
		if !ok {
			continue
		}
		if existing, err := c.ProductRepo.GetBySlug(ctx, item.Slug); err == nil && existing != nil {
			stdLog.Printf("Product already exists: %s", item.Slug)
			continue
		}
		input := service.CreateProductInput{
			CategoryID:  categoryID,
			Slug:        item.Slug,
			Name:        item.Name,
			MarketPrice: models.NewMoney(item.Market),
			StockTotal:  item.Stock,
		}
		if item.Discount != "" {
			input.DiscountPrice = models.NewMoney(item.Discount).Ptr()
		}
		if _, err := c.ProductService.Create(ctx, input); err != nil {
			stdLog.Printf("Failed to create product %s: %v", item.Slug, err)
			continue
		}
		stdLog.Printf("Created product: %s", item.Slug)
	}

	// 添加示例活动
	var eventCount int64
	models.DB.Model(&models.PromotionalEvent{}).Where("name = ?", "Dashain Mega Sale").Count(&eventCount)
	if eventCount == 0 {
		startsAt := time.Now().UTC().Add(-time.Hour)
		endsAt := startsAt.Add(7 * 24 * time.Hour)
		event, err := c.PromotionAdminService.CreateEvent(ctx, service.CreateEventInput{
			Name:          "Dashain Mega Sale",
			Description:   "Festival discounts on phones and accessories",
			StartsAt:      &startsAt,
			EndsAt:        &endsAt,
			DiscountType:  constants.DiscountTypePercentage,
			DiscountValue: models.NewMoney("10"),
			Priority:      10,
			MaxTotalUsage: 500,
			Rules: []service.RuleInput{
				{RuleType: constants.RuleTypeCategory, TargetValue: uintList(categoryIDs["phones"], categoryIDs["accessories"]), Priority: 1},
				{RuleType: constants.RuleTypePaymentMethod, TargetValue: "esewa,khalti", DiscountType: constants.DiscountTypePercentage, DiscountValue: models.NewMoney("15").Ptr(), Priority: 2},
			},
		})
		if err != nil {
			stdLog.Printf("Failed to create event: %v", err)
		} else if _, err := c.PromotionAdminService.Activate(ctx, event.ID); err != nil {
			stdLog.Printf("Failed to activate event: %v", err)
		} else {
			stdLog.Printf("Created event: %s", event.Name)
		}
	} else {
		stdLog.Printf("Event already exists: Dashain Mega Sale")
	}

	// 添加示例优惠码
	for _, input := range []service.PromoCodeInput{
		{
			Code:            "WELCOME10",
			Description:     "10% off the first order",
			DiscountType:    constants.DiscountTypePercentage,
			DiscountValue:   models.NewMoney("10"),
			MinOrderAmount:  models.NewMoney("1000"),
			MaxUsagePerUser: 1,
		},
		{
			Code:                "FREESHIP",
			Description:         "Free delivery inside the valley",
			DiscountType:        constants.DiscountTypeFixedAmount,
			DiscountValue:       models.NewMoney("100"),
			StackableWithEvents: true,
			ApplyToShipping:     true,
		},
	} {
		if _, err := c.PromoCodeAdminService.Create(ctx, input); err != nil {
			if errors.Is(err, service.ErrPromoCodeExists) {
				stdLog.Printf("Promo code already exists: %s", input.Code)
				continue
			}
			stdLog.Printf("Failed to create promo code %s: %v", input.Code, err)
			continue
		}
		stdLog.Printf("Created promo code: %s", input.Code)
	}

	// 添加测试用户并输出调试 Token
	user, err := c.UserRepo.GetByEmail(ctx, "shopper@example.com")
	if err != nil {
		stdLog.Fatalf("Failed to load user: %v", err)
	}
	if user == nil {
		user = &models.User{
			Email:       "shopper@example.com",
			DisplayName: "Test Shopper",
			Tier:        constants.CustomerTierSilver,
			Region:      "bagmati",
			Status:      constants.UserStatusActive,
		}
		if err := c.UserRepo.Create(ctx, user); err != nil {
			stdLog.Fatalf("Failed to create user: %v", err)
		}
		stdLog.Printf("Created user: %s", user.Email)
	}
	userToken, _, err := service.GenerateUserJWT(cfg.UserJWT.SecretKey, user, cfg.UserJWT.ExpireHours)
	if err != nil {
		stdLog.Fatalf("Failed to sign user token: %v", err)
	}
	adminToken, _, err := service.GenerateAdminJWT(cfg.AdminJWT.SecretKey, 1, "admin", cfg.AdminJWT.ExpireHours)
	if err != nil {
		stdLog.Fatalf("Failed to sign admin token: %v", err)
	}
	stdLog.Printf("User token: %s", userToken)
	stdLog.Printf("Admin token: %s", adminToken)
	stdLog.Println("Seed data created successfully!")
}

func uintList(ids ...uint) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			parts = append(parts, strconv.FormatUint(uint64(id), 10))
		}
	}
	return strings.Join(parts, ",")
}
