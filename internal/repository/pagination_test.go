package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/dokan-next/internal/constants"
	"github.com/dokan-next/internal/models"
)

func TestProductListPagination(t *testing.T) {
	db := openRepositoryTestDB(t)
	repo := NewProductRepository(db)
	for i := 0; i < 5; i++ {
		createStockProduct(t, repo, fmt.Sprintf("page-%d", i), 1, 0)
	}

	rows, total, err := repo.List(context.Background(), ProductListFilter{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("list products failed: %v", err)
	}
	if total != 5 || len(rows) != 2 {
		t.Fatalf("page 2 want total=5 len=2 got total=%d len=%d", total, len(rows))
	}
	if rows[0].Slug != "page-2" {
		t.Fatalf("page 2 should start at page-2 got %s", rows[0].Slug)
	}

	rows, total, err = repo.List(context.Background(), ProductListFilter{Page: 0, PageSize: 0})
	if err != nil {
		t.Fatalf("list products failed: %v", err)
	}
	if total != 5 || len(rows) != 5 {
		t.Fatalf("unpaged list want 5 rows got total=%d len=%d", total, len(rows))
	}
}

func TestEventListPaginationPreloadsRules(t *testing.T) {
	db := openRepositoryTestDB(t)
	repo := NewPromotionalEventRepository(db)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		event := &models.PromotionalEvent{
			Name:         fmt.Sprintf("event-%d", i),
			DiscountType: constants.DiscountTypePercentage,
			Status:       constants.EventStatusDraft,
			Rules: []models.PromotionRule{
				{RuleType: constants.RuleTypeAll, Priority: 2},
				{RuleType: constants.RuleTypeCategory, TargetValue: "1", Priority: 1},
			},
		}
		if err := repo.Create(ctx, event); err != nil {
			t.Fatalf("create event failed: %v", err)
		}
	}

	events, total, err := repo.List(ctx, EventListFilter{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("list events failed: %v", err)
	}
	if total != 3 || len(events) != 2 {
		t.Fatalf("want total=3 len=2 got total=%d len=%d", total, len(events))
	}
	if events[0].Name != "event-2" {
		t.Fatalf("events should be newest first, got %s", events[0].Name)
	}
	if len(events[0].Rules) != 2 || events[0].Rules[0].RuleType != constants.RuleTypeCategory {
		t.Fatalf("rules should be preloaded in priority order: %+v", events[0].Rules)
	}
}
