package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dokan-next/internal/config"
	"github.com/dokan-next/internal/constants"
	"github.com/dokan-next/internal/models"
	"github.com/dokan-next/internal/provider"
	"github.com/dokan-next/internal/service"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type routerTestEnv struct {
	engine     *gin.Engine
	db         *gorm.DB
	userToken  string
	adminToken string
}

type apiResponse struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func newRouterTestEnv(t *testing.T) *routerTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := openRouterTestDB(t)

	cfg := &config.Config{
		Server:   config.ServerConfig{Mode: "debug"},
		UserJWT:  config.JWTConfig{SecretKey: "user-secret", ExpireHours: 1},
		AdminJWT: config.JWTConfig{SecretKey: "admin-secret", ExpireHours: 1},
		Pricing: config.PricingConfig{
			Timezone:         "Asia/Kathmandu",
			UTCOffsetMinutes: 345,
			CurrencySymbol:   "Rs.",
		},
		Reservation: config.ReservationConfig{TTLMinutes: 15, SweepBatchSize: 10},
		Cart: config.CartConfig{
			ShippingCost:          "100",
			FreeShippingThreshold: "5000",
			MaxQuantityPerLine:    50,
		},
	}
	c := provider.NewContainerWithDB(cfg, db)
	t.Cleanup(c.Close)

	user := &models.User{Email: "shopper@example.com", Status: constants.UserStatusActive}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	userToken, _, err := service.GenerateUserJWT(cfg.UserJWT.SecretKey, user, 1)
	if err != nil {
		t.Fatalf("generate user token failed: %v", err)
	}
	adminToken, _, err := service.GenerateAdminJWT(cfg.AdminJWT.SecretKey, 1, "root", 1)
	if err != nil {
		t.Fatalf("generate admin token failed: %v", err)
	}

	return &routerTestEnv{
		engine:     SetupRouter(cfg, c),
		db:         db,
		userToken:  userToken,
		adminToken: adminToken,
	}
}

func (e *routerTestEnv) seedProduct(t *testing.T, stock int) *models.Product {
	t.Helper()
	category := &models.Category{Slug: "phones", Name: "Phones"}
	if err := e.db.Create(category).Error; err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	product := &models.Product{
		CategoryID:  category.ID,
		Slug:        "galaxy-a15",
		Name:        "Galaxy A15",
		MarketPrice: models.NewMoney("1000"),
		StockTotal:  stock,
		IsActive:    true,
	}
	if err := e.db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func (e *routerTestEnv) do(t *testing.T, method, path, token string, body interface{}) apiResponse {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("%s %s http status want 200 got %d", method, path, w.Code)
	}
	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal %s %s failed: %v body=%s", method, path, err, w.Body.String())
	}
	return resp
}

func TestHealthRoute(t *testing.T) {
	env := newRouterTestEnv(t)
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health want 200 got %d", w.Code)
	}
}

func TestPublicPriceRoutes(t *testing.T) {
	env := newRouterTestEnv(t)
	product := env.seedProduct(t, 5)

	resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/public/products/%d/price", product.ID), "", nil)
	if resp.StatusCode != 0 {
		t.Fatalf("price status_code want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
	var info struct {
		EffectivePrice string `json:"effective_price"`
		HasEvent       bool   `json:"has_event"`
	}
	if err := json.Unmarshal(resp.Data, &info); err != nil {
		t.Fatalf("unmarshal price failed: %v", err)
	}
	if info.EffectivePrice != "1000.00" || info.HasEvent {
		t.Fatalf("unexpected price %+v", info)
	}

	resp = env.do(t, http.MethodGet, "/api/v1/public/products/999/price", "", nil)
	if resp.StatusCode != 404 {
		t.Fatalf("missing product status_code want 404 got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/api/v1/public/products/prices", "", gin.H{"product_ids": []uint{product.ID, product.ID, 999}})
	if resp.StatusCode != 0 {
		t.Fatalf("batch status_code want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}

	resp = env.do(t, http.MethodGet, "/api/v1/public/products", "", nil)
	if resp.StatusCode != 0 {
		t.Fatalf("product list status_code want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
}

func TestCartRoutesRequireUser(t *testing.T) {
	env := newRouterTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/v1/cart", "", nil)
	if resp.StatusCode != 401 {
		t.Fatalf("anonymous cart status_code want 401 got %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodGet, "/api/v1/cart", env.adminToken, nil)
	if resp.StatusCode != 401 {
		t.Fatalf("admin token on cart status_code want 401 got %d", resp.StatusCode)
	}
}

func TestCartFlowThroughRouter(t *testing.T) {
	env := newRouterTestEnv(t)
	product := env.seedProduct(t, 3)

	resp := env.do(t, http.MethodPost, "/api/v1/cart/items", env.userToken, gin.H{"product_id": product.ID, "quantity": 2})
	if resp.StatusCode != 0 {
		t.Fatalf("add item status_code want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}

	resp = env.do(t, http.MethodPost, "/api/v1/cart/items", env.userToken, gin.H{"product_id": product.ID, "quantity": 5})
	if resp.StatusCode != 409 {
		t.Fatalf("oversell status_code want 409 got %d", resp.StatusCode)
	}
	var stockData struct {
		AvailableStock int `json:"available_stock"`
	}
	if err := json.Unmarshal(resp.Data, &stockData); err != nil {
		t.Fatalf("unmarshal stock data failed: %v", err)
	}
	if stockData.AvailableStock != 1 {
		t.Fatalf("available_stock want 1 got %d", stockData.AvailableStock)
	}

	resp = env.do(t, http.MethodGet, "/api/v1/cart", env.userToken, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("get cart status_code want 0 got %d", resp.StatusCode)
	}
	var summary struct {
		Lines []struct {
			ID uint `json:"id"`
		} `json:"lines"`
	}
	if err := json.Unmarshal(resp.Data, &summary); err != nil {
		t.Fatalf("unmarshal cart failed: %v", err)
	}
	if len(summary.Lines) != 1 {
		t.Fatalf("cart lines want 1 got %d", len(summary.Lines))
	}

	resp = env.do(t, http.MethodPost, "/api/v1/cart/promo-code", env.userToken, gin.H{"code": "NOPE"})
	if resp.StatusCode != 400 {
		t.Fatalf("unknown promo status_code want 400 got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/api/v1/cart/checkout", env.userToken, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("checkout status_code want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}

	resp = env.do(t, http.MethodPost, "/api/v1/cart/checkout", env.userToken, nil)
	if resp.StatusCode != 400 {
		t.Fatalf("empty checkout status_code want 400 got %d", resp.StatusCode)
	}
}

func TestAdminEventRoutes(t *testing.T) {
	env := newRouterTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/v1/admin/events", "", nil)
	if resp.StatusCode != 401 {
		t.Fatalf("anonymous admin status_code want 401 got %d", resp.StatusCode)
	}
	resp = env.do(t, http.MethodGet, "/api/v1/admin/events", env.userToken, nil)
	if resp.StatusCode != 401 {
		t.Fatalf("user token on admin status_code want 401 got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, "/api/v1/admin/events", env.adminToken, gin.H{
		"name":           "Tihar Sale",
		"discount_type":  constants.DiscountTypePercentage,
		"discount_value": "10",
	})
	if resp.StatusCode != 0 {
		t.Fatalf("create event status_code want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
	var event struct {
		ID     uint   `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(resp.Data, &event); err != nil {
		t.Fatalf("unmarshal event failed: %v", err)
	}
	if event.ID == 0 || event.Status != constants.EventStatusDraft {
		t.Fatalf("unexpected created event %+v", event)
	}

	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/events/%d/pause", event.ID), env.adminToken, nil)
	if resp.StatusCode != 400 {
		t.Fatalf("pause draft status_code want 400 got %d", resp.StatusCode)
	}

	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/v1/admin/events/%d/activate", event.ID), env.adminToken, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("activate status_code want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}

	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/admin/events/%d", event.ID), env.adminToken, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("delete status_code want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/admin/events/%d", event.ID), env.adminToken, nil)
	if resp.StatusCode != 404 {
		t.Fatalf("deleted event status_code want 404 got %d", resp.StatusCode)
	}
}
