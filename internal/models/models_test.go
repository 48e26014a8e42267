package models

import (
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func openModelsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
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
	if err := db.AutoMigrate(AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return db
}

func TestMoneyFormat(t *testing.T) {
	cases := map[string]string{
		"0":           "Rs. 0.00",
		"5.5":         "Rs. 5.50",
		"1234.5":      "Rs. 1,234.50",
		"1234567.891": "Rs. 1,234,567.89",
		"-999.999":    "Rs. -1,000.00",
	}
	for in, want := range cases {
		if got := NewMoney(in).Format("Rs."); got != want {
			t.Fatalf("format %s want %q got %q", in, want, got)
		}
	}
	if got := NewMoney("12").Format(""); got != "12.00" {
		t.Fatalf("format without symbol want 12.00 got %q", got)
	}
}

func TestProductBasePrice(t *testing.T) {
	p := Product{MarketPrice: NewMoney("1000")}
	if got := p.BasePrice().String(); got != "1000.00" {
		t.Fatalf("base without discount want 1000.00 got %s", got)
	}
	p.DiscountPrice = NewMoney("800").Ptr()
	if got := p.BasePrice().String(); got != "800.00" {
		t.Fatalf("base with discount want 800.00 got %s", got)
	}
	p.DiscountPrice = NewMoney("1200").Ptr()
	if got := p.BasePrice().String(); got != "1000.00" {
		t.Fatalf("discount above market should be ignored, got %s", got)
	}
	p.DiscountPrice = NewMoneyFromDecimal(decimal.Zero).Ptr()
	if got := p.BasePrice().String(); got != "1000.00" {
		t.Fatalf("zero discount should be ignored, got %s", got)
	}
}

func TestUintArrayRoundTrip(t *testing.T) {
	db := openModelsTestDB(t)
	event := PromotionalEvent{Name: "dashain", DiscountType: "percentage", ProductIDs: UintArray{3, 7}}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("create event failed: %v", err)
	}
	var loaded PromotionalEvent
	if err := db.First(&loaded, event.ID).Error; err != nil {
		t.Fatalf("load event failed: %v", err)
	}
	if !loaded.TargetsProduct(7) || loaded.TargetsProduct(8) {
		t.Fatalf("unexpected product targeting: %v", loaded.ProductIDs)
	}
}

func TestSoftDeleteCascadeFollowsDeclaredEdges(t *testing.T) {
	db := openModelsTestDB(t)
	category := Category{Slug: "phones", Name: "Phones"}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	product := Product{CategoryID: category.ID, Slug: "p1", Name: "P1", MarketPrice: NewMoney("100")}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	other := Product{CategoryID: category.ID + 100, Slug: "p2", Name: "P2", MarketPrice: NewMoney("100")}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("create other product failed: %v", err)
	}
	line := CartItem{UserID: 1, ProductID: product.ID, Quantity: 1}
	if err := db.Create(&line).Error; err != nil {
		t.Fatalf("create cart item failed: %v", err)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		return SoftDeleteCascade(tx, &Category{}, category.ID)
	}); err != nil {
		t.Fatalf("cascade failed: %v", err)
	}

	var count int64
	db.Model(&Product{}).Where("id = ?", product.ID).Count(&count)
	if count != 0 {
		t.Fatalf("product should be soft deleted, visible count %d", count)
	}
	db.Model(&CartItem{}).Where("id = ?", line.ID).Count(&count)
	if count != 0 {
		t.Fatalf("cart item should be soft deleted, visible count %d", count)
	}
	db.Unscoped().Model(&CartItem{}).Where("id = ?", line.ID).Count(&count)
	if count != 1 {
		t.Fatalf("cart item row should remain in table, got %d", count)
	}
	db.Model(&Product{}).Where("id = ?", other.ID).Count(&count)
	if count != 1 {
		t.Fatalf("unrelated product should stay visible, got %d", count)
	}
}

func TestCartItemExpired(t *testing.T) {
	line := CartItem{}
	now := time.Now()
	if line.Expired(now) {
		t.Fatalf("line without expiry should not be expired")
	}
	line.ExpiresAt = &now
	if line.Expired(now) {
		t.Fatalf("line should still be live at its expiry instant")
	}
	if !line.Expired(now.Add(time.Nanosecond)) {
		t.Fatalf("line should be expired once its expiry has passed")
	}
	line.IsExpired = true
	if !line.Expired(now.Add(-time.Minute)) {
		t.Fatalf("marked line should stay expired")
	}
}

func TestOpenDatabase(t *testing.T) {
	if _, err := Open("mysql", "whatever", DBPoolConfig{}); err == nil {
		t.Fatalf("unsupported driver should fail")
	}

	db, err := Open("sqlite", "file:open_test?mode=memory&cache=shared", DBPoolConfig{MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	if got := sqlDB.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("sqlite max open conns want 1 got %d", got)
	}
}
