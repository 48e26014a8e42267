//go:build integration
// +build integration

package repository

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dokan-next/internal/constants"
	"github.com/dokan-next/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// setupPostgresIntegrationDB 初始化 PostgreSQL 集成测试数据库。
func setupPostgresIntegrationDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("skip postgres integration test: TEST_POSTGRES_DSN is empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres failed: %v", err)
	}

	cleanupModels := models.AllModels()
	_ = db.Migrator().DropTable(cleanupModels...)
	if err := db.AutoMigrate(cleanupModels...); err != nil {
		t.Fatalf("migrate postgres models failed: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Migrator().DropTable(cleanupModels...)
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return db
}

func TestPostgresSearchIsCaseInsensitive(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	ctx := context.Background()

	category := &models.Category{Slug: "pg-category", Name: "Phones"}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	productRepo := NewProductRepository(db)
	product := &models.Product{
		CategoryID:  category.ID,
		Slug:        "pg-galaxy-a15",
		Name:        "Galaxy A15",
		MarketPrice: models.NewMoney("25999"),
		StockTotal:  10,
		IsActive:    true,
	}
	if err := productRepo.Create(ctx, product); err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	rows, total, err := productRepo.List(ctx, ProductListFilter{Page: 1, Search: "galaxy"})
	if err != nil {
		t.Fatalf("product search failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("product search want 1 got total=%d len=%d", total, len(rows))
	}

	eventRepo := NewPromotionalEventRepository(db)
	start := time.Now().UTC().Add(-time.Hour)
	event := &models.PromotionalEvent{
		Name:          "Dashain Mega Sale",
		StartsAt:      &start,
		DiscountType:  constants.DiscountTypePercentage,
		DiscountValue: models.NewMoney("10"),
		Status:        constants.EventStatusActive,
		IsActive:      true,
	}
	if err := eventRepo.Create(ctx, event); err != nil {
		t.Fatalf("create event failed: %v", err)
	}
	events, total, err := eventRepo.List(ctx, EventListFilter{Page: 1, Search: "dashain"})
	if err != nil {
		t.Fatalf("event search failed: %v", err)
	}
	if total != 1 || len(events) != 1 {
		t.Fatalf("event search want 1 got total=%d len=%d", total, len(events))
	}

	active, err := eventRepo.ListActive(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("list active events failed: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("active events want 1 got %d", len(active))
	}
}

func TestPostgresCompareAndSwapStock(t *testing.T) {
	db := setupPostgresIntegrationDB(t)
	ctx := context.Background()
	repo := NewProductRepository(db)

	product := &models.Product{
		CategoryID:  1,
		Slug:        "pg-stock",
		Name:        "Stock",
		MarketPrice: models.NewMoney("100"),
		StockTotal:  5,
		IsActive:    true,
	}
	if err := repo.Create(ctx, product); err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	affected, err := repo.CompareAndSwapStock(ctx, product.ID, product.StockVersion, 5, 2)
	if err != nil {
		t.Fatalf("cas failed: %v", err)
	}
	if affected != 1 {
		t.Fatalf("first cas want 1 row got %d", affected)
	}
	affected, err = repo.CompareAndSwapStock(ctx, product.ID, product.StockVersion, 5, 4)
	if err != nil {
		t.Fatalf("stale cas failed: %v", err)
	}
	if affected != 0 {
		t.Fatalf("stale cas want 0 rows got %d", affected)
	}

	reloaded, err := repo.GetByID(ctx, product.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload product failed: %v", err)
	}
	if reloaded.StockReserved != 2 || reloaded.StockVersion != product.StockVersion+1 {
		t.Fatalf("unexpected stock state reserved=%d version=%d", reloaded.StockReserved, reloaded.StockVersion)
	}
}
