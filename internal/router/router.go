package router

import (
	"fmt"
	"strings"

	"github.com/dokan-next/internal/config"
	adminhandlers "github.com/dokan-next/internal/http/handlers/admin"
	publichandlers "github.com/dokan-next/internal/http/handlers/public"
	"github.com/dokan-next/internal/logger"
	"github.com/dokan-next/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "dk"
	}
	var redisClient *redis.Client
	if c.SharedCache != nil {
		redisClient = c.SharedCache.Client()
	}
	priceRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:price", redisPrefix),
		WindowSeconds: cfg.Security.PriceRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.PriceRateLimit.MaxRequests,
		MessageKey:    "error.rate_limited",
		FailOpen:      true,
	}
	cartRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:cart", redisPrefix),
		WindowSeconds: cfg.Security.CartRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.CartRateLimit.MaxRequests,
		MessageKey:    "error.rate_limited",
	}
	promoRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:promo_code", redisPrefix),
		WindowSeconds: cfg.Security.CartRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.CartRateLimit.MaxRequests,
		MessageKey:    "error.rate_limited",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		public.Use(OptionalUserJWTMiddleware(cfg.UserJWT.SecretKey))
		{
			public.GET("/products", publicHandler.GetProducts)
			public.GET("/products/:id/price", RateLimitMiddleware(redisClient, priceRule, KeyByUserOrIP), publicHandler.GetProductPrice)
			public.POST("/products/prices", RateLimitMiddleware(redisClient, priceRule, KeyByUserOrIP), publicHandler.GetProductPrices)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			user.GET("/cart", publicHandler.GetCart)
			user.POST("/cart/items", RateLimitMiddleware(redisClient, cartRule, KeyByUserOrIP), publicHandler.AddCartItem)
			user.PUT("/cart/items/:id", publicHandler.UpdateCartItem)
			user.DELETE("/cart/items/:id", publicHandler.DeleteCartItem)
			user.POST("/cart/items/:id/extend", publicHandler.ExtendCartItem)
			user.POST("/cart/promo-code", RateLimitMiddleware(redisClient, promoRule, KeyByIPAndJSONField("code")), publicHandler.ApplyPromoCode)
			user.DELETE("/cart/promo-code", publicHandler.RemovePromoCode)
			user.POST("/cart/checkout", publicHandler.Checkout)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		admin.Use(AdminJWTAuthMiddleware(cfg.AdminJWT.SecretKey))
		{
			// 促销活动
			admin.GET("/events", adminHandler.ListEvents)
			admin.POST("/events", adminHandler.CreateEvent)
			admin.POST("/events/sync", adminHandler.SyncEventStatuses)
			admin.GET("/events/:id", adminHandler.GetEvent)
			admin.DELETE("/events/:id", adminHandler.DeleteEvent)
			admin.PUT("/events/:id/window", adminHandler.UpdateEventWindow)
			admin.POST("/events/:id/activate", adminHandler.ActivateEvent)
			admin.POST("/events/:id/pause", adminHandler.PauseEvent)
			admin.POST("/events/:id/cancel", adminHandler.CancelEvent)

			// 优惠码
			admin.GET("/promo-codes", adminHandler.ListPromoCodes)
			admin.POST("/promo-codes", adminHandler.CreatePromoCode)
			admin.PUT("/promo-codes/:id", adminHandler.UpdatePromoCode)
			admin.DELETE("/promo-codes/:id", adminHandler.DeletePromoCode)

			// 分类与商品
			admin.POST("/categories", adminHandler.CreateCategory)
			admin.DELETE("/categories/:id", adminHandler.DeleteCategory)
			admin.POST("/products", adminHandler.CreateProduct)
			admin.PUT("/products/:id/price", adminHandler.UpdateProductPrice)
			admin.DELETE("/products/:id", adminHandler.DeleteProduct)

			// 库存预占
			admin.POST("/reservations/sweep", adminHandler.SweepReservations)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
