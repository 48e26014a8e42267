package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dokan-next/internal/cache"
	"github.com/dokan-next/internal/clock"
	"github.com/dokan-next/internal/constants"
	"github.com/dokan-next/internal/logger"
	"github.com/dokan-next/internal/models"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// PricingInvalidator 价格缓存失效接口
type PricingInvalidator interface {
	Invalidate(ctx context.Context, productID uint)
	InvalidateUser(ctx context.Context, userID uint)
	InvalidateEvents(ctx context.Context)
	InvalidateAll(ctx context.Context)
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, uint)     {}
func (noopInvalidator) InvalidateUser(context.Context, uint) {}
func (noopInvalidator) InvalidateEvents(context.Context)     {}
func (noopInvalidator) InvalidateAll(context.Context)        {}

// PricingCacheOptions 缓存有效期
type PricingCacheOptions struct {
	LocalTTL   time.Duration
	PricingTTL time.Duration
}

// PricingCache 两级价格缓存：进程内 + 共享（Redis）
type PricingCache struct {
	resolver *PromotionResolver
	local    *cache.LocalStore
	shared   cache.SharedStore
	clock    clock.Clock
	opts     PricingCacheOptions
	group    singleflight.Group
}

// NewPricingCache 创建价格缓存
func NewPricingCache(resolver *PromotionResolver, local *cache.LocalStore, shared cache.SharedStore, clk clock.Clock, opts PricingCacheOptions) *PricingCache {
	if opts.LocalTTL <= 0 {
		opts.LocalTTL = time.Minute
	}
	if opts.PricingTTL <= 0 {
		opts.PricingTTL = 5 * time.Minute
	}
	if local == nil {
		local = cache.NewLocalStore(opts.LocalTTL, 2*opts.LocalTTL)
	}
	return &PricingCache{
		resolver: resolver,
		local:    local,
		shared:   shared,
		clock:    clk,
		opts:     opts,
	}
}

// PricingKey 价格缓存键
func PricingKey(productID, userID uint) string {
	user := "anon"
	if userID != 0 {
		user = fmt.Sprintf("%d", userID)
	}
	return fmt.Sprintf("%s%d:user:%s", constants.CacheKeyPricingProduct, productID, user)
}

func (c *PricingCache) sharedEnabled() bool {
	return c.shared != nil && c.shared.Enabled()
}

// Get 读取有效价格：本地 → 共享 → 计算，共享层故障时直接计算
func (c *PricingCache) Get(ctx context.Context, productID, userID uint) (*PriceInfo, error) {
	key := PricingKey(productID, userID)
	if cached, ok := c.local.Get(key); ok {
		if info, ok := cached.(*PriceInfo); ok {
			return c.fresh(info), nil
		}
	}

	if c.sharedEnabled() {
		var info PriceInfo
		hit, err := c.shared.GetJSON(ctx, key, &info)
		if err != nil {
			logger.Warnw("pricing_cache_shared_get_failed", "key", key, "error", err)
		} else if hit {
			c.local.SetWithTTL(key, &info, c.opts.LocalTTL)
			return c.fresh(&info), nil
		}
	}

	value, err, _ := c.group.Do(key, func() (interface{}, error) {
		info, err := c.resolver.GetEffectivePrice(ctx, productID, userID)
		if err != nil {
			return nil, err
		}
		if !info.Degraded {
			c.store(ctx, key, info)
		}
		return info, nil
	})
	if err != nil {
		return nil, err
	}
	return c.fresh(value.(*PriceInfo)), nil
}

// GetFor 带购买上下文的价格；数量、支付方式或地区会影响规则结果，不走缓存
func (c *PricingCache) GetFor(ctx context.Context, query PriceQuery) (*PriceInfo, error) {
	if query.Quantity <= 1 && strings.TrimSpace(query.PaymentMethod) == "" && strings.TrimSpace(query.Region) == "" && query.OrderTotal == nil {
		return c.Get(ctx, query.ProductID, query.UserID)
	}
	return c.resolver.GetEffectivePriceFor(ctx, query)
}

// GetMany 批量读取，保持入参顺序，不存在的商品被跳过
func (c *PricingCache) GetMany(ctx context.Context, productIDs []uint, userID uint) ([]PriceInfo, error) {
	results := make([]*PriceInfo, len(productIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.resolver.opts.BatchLimit)
	for i, productID := range productIDs {
		g.Go(func() error {
			info, err := c.Get(gctx, productID, userID)
			if err != nil {
				if errors.Is(err, ErrProductNotFound) {
					return nil
				}
				return err
			}
			results[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return compactPrices(results), nil
}

func (c *PricingCache) store(ctx context.Context, key string, info *PriceInfo) {
	c.local.SetWithTTL(key, info, c.opts.LocalTTL)
	if !c.sharedEnabled() {
		return
	}
	if err := c.shared.SetJSON(ctx, key, info, c.opts.PricingTTL); err != nil {
		logger.Warnw("pricing_cache_shared_set_failed", "key", key, "error", err)
	}
}

// fresh 返回副本并刷新倒计时，避免调用方修改缓存中的对象
func (c *PricingCache) fresh(info *PriceInfo) *PriceInfo {
	copied := *info
	c.resolver.RefreshCountdown(&copied, c.clock.Now())
	return &copied
}

// Invalidate 失效某商品全部用户的价格
func (c *PricingCache) Invalidate(ctx context.Context, productID uint) {
	prefix := fmt.Sprintf("%s%d:", constants.CacheKeyPricingProduct, productID)
	c.local.DeletePrefix(prefix)
	c.deleteShared(ctx, prefix+"*")
}

// InvalidateUser 失效某用户全部商品的价格
func (c *PricingCache) InvalidateUser(ctx context.Context, userID uint) {
	if userID == 0 {
		return
	}
	suffix := fmt.Sprintf(":user:%d", userID)
	c.local.DeleteMatching(func(key string) bool {
		return strings.HasPrefix(key, constants.CacheKeyPricingProduct) && strings.HasSuffix(key, suffix)
	})
	c.deleteShared(ctx, constants.CacheKeyPricingProduct+"*"+suffix)
}

// InvalidateEvents 失效活动列表缓存
func (c *PricingCache) InvalidateEvents(ctx context.Context) {
	c.local.Delete(constants.CacheKeyEventsActive)
	if !c.sharedEnabled() {
		return
	}
	if err := c.shared.Del(ctx, constants.CacheKeyEventsActive); err != nil {
		logger.Warnw("pricing_cache_shared_del_failed", "key", constants.CacheKeyEventsActive, "error", err)
	}
}

// InvalidateAll 失效全部价格与活动缓存
func (c *PricingCache) InvalidateAll(ctx context.Context) {
	c.local.DeletePrefix(constants.CacheKeyPricingAll)
	c.deleteShared(ctx, constants.CacheKeyPricingAll+"*")
}

func (c *PricingCache) deleteShared(ctx context.Context, pattern string) {
	if !c.sharedEnabled() {
		return
	}
	if _, err := c.shared.DelPattern(ctx, pattern); err != nil {
		logger.Warnw("pricing_cache_shared_invalidate_failed", "pattern", pattern, "error", err)
	}
}

// CachedEventSource 带缓存的活动来源
type CachedEventSource struct {
	source EventSource
	local  *cache.LocalStore
	shared cache.SharedStore
	ttl    time.Duration
	group  singleflight.Group
}

// NewCachedEventSource 创建带缓存的活动来源，与价格缓存共用本地存储以便统一失效
func NewCachedEventSource(source EventSource, local *cache.LocalStore, shared cache.SharedStore, ttl time.Duration) *CachedEventSource {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	if local == nil {
		local = cache.NewLocalStore(ttl, 2*ttl)
	}
	return &CachedEventSource{source: source, local: local, shared: shared, ttl: ttl}
}

// ListActive 读取当前可用活动；缓存内容由调用方按 now 再次校验时间窗口
func (s *CachedEventSource) ListActive(ctx context.Context, now time.Time) ([]models.PromotionalEvent, error) {
	key := constants.CacheKeyEventsActive
	if cached, ok := s.local.Get(key); ok {
		if events, ok := cached.([]models.PromotionalEvent); ok {
			return events, nil
		}
	}
	sharedOn := s.shared != nil && s.shared.Enabled()
	if sharedOn {
		var events []models.PromotionalEvent
		hit, err := s.shared.GetJSON(ctx, key, &events)
		if err != nil {
			logger.Warnw("pricing_events_cache_get_failed", "error", err)
		} else if hit {
			s.local.SetWithTTL(key, events, s.ttl)
			return events, nil
		}
	}

	value, err, _ := s.group.Do(key, func() (interface{}, error) {
		events, err := s.source.ListActive(ctx, now)
		if err != nil {
			return nil, err
		}
		s.local.SetWithTTL(key, events, s.ttl)
		if sharedOn {
			if err := s.shared.SetJSON(ctx, key, events, s.ttl); err != nil {
				logger.Warnw("pricing_events_cache_set_failed", "error", err)
			}
		}
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	return value.([]models.PromotionalEvent), nil
}
