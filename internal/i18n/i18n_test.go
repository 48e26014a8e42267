package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestResolveLocale(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		header map[string]string
		query  string
		want   string
	}{
		{name: "default", want: LocaleEN},
		{name: "explicit header", header: map[string]string{"X-Locale": "zh-CN"}, want: LocaleZHCN},
		{name: "query", query: "?lang=zh", want: LocaleZHCN},
		{name: "accept language", header: map[string]string{"Accept-Language": "fr-FR,zh-TW;q=0.8"}, want: LocaleZHCN},
		{name: "unsupported", header: map[string]string{"Accept-Language": "ne-NP"}, want: LocaleEN},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/"+tc.query, nil)
			for k, v := range tc.header {
				c.Request.Header.Set(k, v)
			}
			if got := ResolveLocale(c); got != tc.want {
				t.Fatalf("locale want %s got %s", tc.want, got)
			}
		})
	}
}

func TestTranslateFallbacks(t *testing.T) {
	if got := T(LocaleZHCN, "error.cart_empty"); got != "购物车为空" {
		t.Fatalf("unexpected zh message: %s", got)
	}
	if got := T("fr", "error.cart_empty"); got != "Cart is empty" {
		t.Fatalf("unknown locale should fall back to en, got %s", got)
	}
	if got := T(LocaleEN, "error.missing_key"); got != "error.missing_key" {
		t.Fatalf("missing key should echo key, got %s", got)
	}
	if got := Sprintf(LocaleEN, "error.stock_insufficient", 2); got != "Only 2 left in stock" {
		t.Fatalf("unexpected formatted message: %s", got)
	}
}

func TestLocaleTablesHaveSameKeys(t *testing.T) {
	for key := range messages[LocaleEN] {
		if _, ok := messages[LocaleZHCN][key]; !ok {
			t.Fatalf("zh-CN missing key %s", key)
		}
	}
}
