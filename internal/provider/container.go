package provider

import (
	"github.com/dokan-next/internal/cache"
	"github.com/dokan-next/internal/clock"
	"github.com/dokan-next/internal/config"
	"github.com/dokan-next/internal/logger"
	"github.com/dokan-next/internal/models"
	"github.com/dokan-next/internal/queue"
	"github.com/dokan-next/internal/repository"
	"github.com/dokan-next/internal/service"
	"github.com/dokan-next/internal/stream"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	Clock       *clock.Business
	QueueClient *queue.Client
	LocalCache  *cache.LocalStore
	SharedCache *cache.RedisStore
	Publisher   *stream.KafkaPublisher
	Analytics   *service.AnalyticsEmitter

	// Repositories
	UserRepo           repository.UserRepository
	CategoryRepo       repository.CategoryRepository
	ProductRepo        repository.ProductRepository
	EventRepo          repository.PromotionalEventRepository
	EventUsageRepo     repository.EventUsageRepository
	PromoCodeRepo      repository.PromoCodeRepository
	PromoCodeUsageRepo repository.PromoCodeUsageRepository
	ReservationRepo    repository.ReservationRepository
	CartRepo           repository.CartRepository

	// Services
	EventSource           *service.CachedEventSource
	PromotionResolver     *service.PromotionResolver
	PricingCache          *service.PricingCache
	EventUsageService     *service.EventUsageService
	PromoCodeService      *service.PromoCodeService
	StockService          *service.StockReservationService
	CartService           *service.CartService
	ProductService        *service.ProductService
	PromotionAdminService *service.PromotionAdminService
	PromoCodeAdminService *service.PromoCodeAdminService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	return NewContainerWithDB(cfg, models.DB)
}

// NewContainerWithDB 使用指定数据库初始化容器
func NewContainerWithDB(cfg *config.Config, db *gorm.DB) *Container {
	c := &Container{
		Config: cfg,
		Clock:  clock.NewBusiness(cfg.Pricing.Timezone, cfg.Pricing.UTCOffsetMinutes),
	}

	// 初始化缓存
	c.LocalCache = cache.NewLocalStore(cfg.Pricing.Cache.LocalTTL(), 2*cfg.Pricing.Cache.LocalTTL())
	c.SharedCache = cache.NewRedisStore(&cfg.Redis)
	if !c.SharedCache.Enabled() {
		logger.Warnw("provider_shared_cache_disabled", "fallback", "local_only")
	}

	// 初始化队列客户端
	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		logger.Errorw("provider_init_queue_client_failed", "error", err)
		queueClient, _ = queue.NewClient(nil)
	}
	c.QueueClient = queueClient
	c.Publisher = stream.NewKafkaPublisher(&cfg.Kafka)
	c.Analytics = service.NewAnalyticsEmitter(c.QueueClient, c.Publisher)

	// 1. 初始化 Repositories
	c.initRepositories(db)

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.UserRepo = repository.NewUserRepository(db)
	c.CategoryRepo = repository.NewCategoryRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.EventRepo = repository.NewPromotionalEventRepository(db)
	c.EventUsageRepo = repository.NewEventUsageRepository(db)
	c.PromoCodeRepo = repository.NewPromoCodeRepository(db)
	c.PromoCodeUsageRepo = repository.NewPromoCodeUsageRepository(db)
	c.ReservationRepo = repository.NewReservationRepository(db)
	c.CartRepo = repository.NewCartRepository(db)
}

func (c *Container) initServices() {
	cfg := c.Config
	symbol := cfg.Pricing.CurrencySymbol

	c.EventSource = service.NewCachedEventSource(c.EventRepo, c.LocalCache, c.SharedCache, cfg.Pricing.Cache.EventsTTL())
	c.EventUsageService = service.NewEventUsageService(c.EventRepo, c.EventUsageRepo, nil, c.Analytics)
	c.PromotionResolver = service.NewPromotionResolver(
		c.ProductRepo,
		c.UserRepo,
		c.EventSource,
		c.EventUsageService,
		c.Clock,
		c.Analytics,
		service.PromotionResolverOptions{
			Location:       c.Clock.Location(),
			CurrencySymbol: symbol,
			ExpiringSoon:   cfg.Pricing.ExpiringSoonWindow(),
		},
	)
	c.PricingCache = service.NewPricingCache(c.PromotionResolver, c.LocalCache, c.SharedCache, c.Clock, service.PricingCacheOptions{
		LocalTTL:   cfg.Pricing.Cache.LocalTTL(),
		PricingTTL: cfg.Pricing.Cache.PricingTTL(),
	})
	c.EventUsageService.SetInvalidator(c.PricingCache)

	c.PromoCodeService = service.NewPromoCodeService(c.PromoCodeRepo, c.PromoCodeUsageRepo, c.UserRepo, c.Clock, c.Analytics, symbol)
	c.StockService = service.NewStockReservationService(c.ProductRepo, c.ReservationRepo, c.QueueClient, c.Clock, c.Analytics, service.StockReservationOptions{
		TTL:            cfg.Reservation.TTL(),
		MaxRetries:     cfg.Reservation.MaxRetries,
		RetryBackoff:   cfg.Reservation.RetryBackoff(),
		SweepBatchSize: cfg.Reservation.SweepBatchSize,
	})
	c.CartService = service.NewCartService(
		c.CartRepo,
		c.ProductRepo,
		c.PricingCache,
		c.StockService,
		c.PromoCodeService,
		c.EventUsageService,
		c.PricingCache,
		c.Clock,
		service.CartOptions{
			ShippingCost:          models.NewMoney(cfg.Cart.ShippingCost),
			FreeShippingThreshold: models.NewMoney(cfg.Cart.FreeShippingThreshold),
			MaxQuantityPerLine:    cfg.Cart.MaxQuantityPerLine,
			CurrencySymbol:        symbol,
		},
	)
	c.ProductService = service.NewProductService(c.ProductRepo, c.CategoryRepo, c.PricingCache)
	c.PromotionAdminService = service.NewPromotionAdminService(c.EventRepo, c.PricingCache, c.Clock)
	c.PromoCodeAdminService = service.NewPromoCodeAdminService(c.PromoCodeRepo)
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := c.Publisher.Close(); err != nil {
		logger.Warnw("provider_close_publisher_failed", "error", err)
	}
	if err := c.SharedCache.Close(); err != nil {
		logger.Warnw("provider_close_shared_cache_failed", "error", err)
	}
}
