package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/dokan-next/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	UserJWT     JWTConfig         `mapstructure:"user_jwt"`
	AdminJWT    JWTConfig         `mapstructure:"admin_jwt"`
	Security    SecurityConfig    `mapstructure:"security"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Queue       QueueConfig       `mapstructure:"queue"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Pricing     PricingConfig     `mapstructure:"pricing"`
	Reservation ReservationConfig `mapstructure:"reservation"`
	Cart        CartConfig        `mapstructure:"cart"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host                   string `mapstructure:"host"`
	Port                   string `mapstructure:"port"`
	Mode                   string `mapstructure:"mode"` // debug / release
	ReadTimeoutSeconds     int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds    int    `mapstructure:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
}

// Addr 监听地址
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// ShutdownTimeout 优雅停机超时
func (c ServerConfig) ShutdownTimeout() time.Duration {
	if c.ShutdownTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Stdout     bool   `mapstructure:"stdout"`
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.Level,
		Stdout:     c.Stdout,
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	PriceRateLimit RateLimitConfig `mapstructure:"price_rate_limit"`
	CartRateLimit  RateLimitConfig `mapstructure:"cart_rate_limit"`
}

// RateLimitConfig 频率限制配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	Prefix        string `mapstructure:"prefix"`
	DialTimeoutMS int    `mapstructure:"dial_timeout_ms"`
	ReadTimeoutMS int    `mapstructure:"read_timeout_ms"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// KafkaConfig 分析事件流配置
type KafkaConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Brokers        []string `mapstructure:"brokers"`
	Topic          string   `mapstructure:"topic"`
	BatchTimeoutMS int      `mapstructure:"batch_timeout_ms"`
	WriteTimeoutMS int      `mapstructure:"write_timeout_ms"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// PricingConfig 价格计算配置
type PricingConfig struct {
	Timezone          string             `mapstructure:"timezone"`
	UTCOffsetMinutes  int                `mapstructure:"utc_offset_minutes"`
	CurrencySymbol    string             `mapstructure:"currency_symbol"`
	ExpiringSoonHours int                `mapstructure:"expiring_soon_hours"`
	Cache             PricingCacheConfig `mapstructure:"cache"`
}

// PricingCacheConfig 价格缓存配置
type PricingCacheConfig struct {
	LocalTTLSeconds   int `mapstructure:"local_ttl_seconds"`
	PricingTTLSeconds int `mapstructure:"pricing_ttl_seconds"`
	EventsTTLSeconds  int `mapstructure:"events_ttl_seconds"`
}

// LocalTTL 本地缓存有效期
func (c PricingCacheConfig) LocalTTL() time.Duration {
	return secondsOr(c.LocalTTLSeconds, 60)
}

// PricingTTL 共享价格缓存有效期
func (c PricingCacheConfig) PricingTTL() time.Duration {
	return secondsOr(c.PricingTTLSeconds, 300)
}

// EventsTTL 活动列表缓存有效期
func (c PricingCacheConfig) EventsTTL() time.Duration {
	return secondsOr(c.EventsTTLSeconds, 120)
}

// ExpiringSoonWindow 即将结束提示阈值
func (c PricingConfig) ExpiringSoonWindow() time.Duration {
	if c.ExpiringSoonHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.ExpiringSoonHours) * time.Hour
}

// ReservationConfig 库存预占配置
type ReservationConfig struct {
	TTLMinutes           int `mapstructure:"ttl_minutes"`
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds"`
	SweepBatchSize       int `mapstructure:"sweep_batch_size"`
	MaxRetries           int `mapstructure:"max_retries"`
	RetryBackoffMS       int `mapstructure:"retry_backoff_ms"`
}

// TTL 预占有效期
func (c ReservationConfig) TTL() time.Duration {
	if c.TTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.TTLMinutes) * time.Minute
}

// SweepInterval 过期清理间隔
func (c ReservationConfig) SweepInterval() time.Duration {
	return secondsOr(c.SweepIntervalSeconds, 60)
}

// RetryBackoff CAS 冲突重试间隔
func (c ReservationConfig) RetryBackoff() time.Duration {
	if c.RetryBackoffMS <= 0 {
		return 5 * time.Millisecond
	}
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}

// CartConfig 购物车配置
type CartConfig struct {
	ShippingCost          string `mapstructure:"shipping_cost"`
	FreeShippingThreshold string `mapstructure:"free_shipping_threshold"`
	MaxQuantityPerLine    int    `mapstructure:"max_quantity_per_line"`
}

func secondsOr(seconds, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")     // 从当前目录查找
	viper.AddConfigPath("./")    // 备用路径
	viper.AddConfigPath("../")   // 如果从 cmd/server 运行
	viper.AddConfigPath("./etc") // etc 文件夹

	setDefaults()

	// 环境变量支持
	viper.AutomaticEnv()                                   // 自动读取环境变量
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 将 . 替换为 _ (例如 server.port -> SERVER_PORT)

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("server.read_timeout_seconds", 15)
	viper.SetDefault("server.write_timeout_seconds", 30)
	viper.SetDefault("server.shutdown_timeout_seconds", 10)
	viper.SetDefault("log.level", "")
	viper.SetDefault("log.stdout", false)
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "dokan.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/dokan.db")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("user_jwt.secret", "user-change-me-in-production")
	viper.SetDefault("user_jwt.expire_hours", 24)
	viper.SetDefault("admin_jwt.secret", "admin-change-me-in-production")
	viper.SetDefault("admin_jwt.expire_hours", 12)
	viper.SetDefault("security.price_rate_limit.window_seconds", 60)
	viper.SetDefault("security.price_rate_limit.max_requests", 300)
	viper.SetDefault("security.cart_rate_limit.window_seconds", 60)
	viper.SetDefault("security.cart_rate_limit.max_requests", 120)
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "dk")
	viper.SetDefault("redis.dial_timeout_ms", 500)
	viper.SetDefault("redis.read_timeout_ms", 300)
	viper.SetDefault("queue.enabled", true)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
		"low":      1,
	})
	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafka.brokers", []string{"127.0.0.1:9092"})
	viper.SetDefault("kafka.topic", "storefront.pricing-events")
	viper.SetDefault("kafka.batch_timeout_ms", 50)
	viper.SetDefault("kafka.write_timeout_ms", 2000)
	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
	})
	viper.SetDefault("cors.allow_credentials", true)
	viper.SetDefault("cors.max_age", 600)
	viper.SetDefault("pricing.timezone", "Asia/Kathmandu")
	viper.SetDefault("pricing.utc_offset_minutes", 345)
	viper.SetDefault("pricing.currency_symbol", "Rs.")
	viper.SetDefault("pricing.expiring_soon_hours", 24)
	viper.SetDefault("pricing.cache.local_ttl_seconds", 60)
	viper.SetDefault("pricing.cache.pricing_ttl_seconds", 300)
	viper.SetDefault("pricing.cache.events_ttl_seconds", 120)
	viper.SetDefault("reservation.ttl_minutes", 30)
	viper.SetDefault("reservation.sweep_interval_seconds", 60)
	viper.SetDefault("reservation.sweep_batch_size", 200)
	viper.SetDefault("reservation.max_retries", 5)
	viper.SetDefault("reservation.retry_backoff_ms", 5)
	viper.SetDefault("cart.shipping_cost", "100.00")
	viper.SetDefault("cart.free_shipping_threshold", "2000.00")
	viper.SetDefault("cart.max_quantity_per_line", 20)
}
