package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/arnegaenz/SIS-sub001/pkg/logging"
	"github.com/arnegaenz/SIS-sub001/pkg/metrics"
	"github.com/arnegaenz/SIS-sub001/shared/common"
)

// Config represents application configuration
type Config struct {
	Service   ServiceConfig   `mapstructure:"service"`
	Server    ServerConfig    `mapstructure:"server"`
	Data      DataConfig      `mapstructure:"data"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Reports   ReportsConfig   `mapstructure:"reports"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   logging.Config  `mapstructure:"logging"`
	Metrics   metrics.Config  `mapstructure:"metrics"`
}

// ServiceConfig contains service-specific configuration
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DataConfig locates the flat JSON files the service reads and writes
type DataConfig struct {
	PublicDir    string `mapstructure:"public_dir"`
	RegistryFile string `mapstructure:"registry_file"`
	DailyDir     string `mapstructure:"daily_dir"`
	RawDir       string `mapstructure:"raw_dir"`
}

// CacheConfig selects and configures the data cache backend
type CacheConfig struct {
	Backend       string      `mapstructure:"backend"`
	MaxEntryBytes int         `mapstructure:"max_entry_bytes"`
	QuotaBytes    int         `mapstructure:"quota_bytes"`
	Redis         RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	Password   string        `mapstructure:"password"`
	Database   int           `mapstructure:"database"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	TTL        time.Duration `mapstructure:"ttl"`
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// AnalyticsConfig configures the GA4 Data API fetch
type AnalyticsConfig struct {
	PropertyID string        `mapstructure:"property_id"`
	KeyFile    string        `mapstructure:"key_file"`
	Dimensions []string      `mapstructure:"dimensions"`
	Metrics    []string      `mapstructure:"metrics"`
	Limit      int64         `mapstructure:"limit"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether a property and credential are configured
func (a AnalyticsConfig) Enabled() bool {
	return a.PropertyID != "" && a.KeyFile != ""
}

// UpstreamConfig configures the troubleshoot API client
type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ReportsConfig holds report-level settings
type ReportsConfig struct {
	SSOFIKeys       []string `mapstructure:"sso_fi_keys"`
	MerchantTopN    int      `mapstructure:"merchant_top_n"`
	DailyBuildLimit int      `mapstructure:"daily_build_concurrency"`
}

// RateLimitConfig configures the per-client HTTP rate limit
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// DefaultSSOFIKeys lists the FIs whose sessions run through single sign-on.
var DefaultSSOFIKeys = []string{
	"advancial",
	"canvas",
	"elevationscu",
	"nasafcu",
	"inovafcu",
	"flcu",
	"americaneagle",
	"greylock",
	"msufcu",
}

// Load loads configuration from defaults, an optional config.yaml and SIS_* environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SIS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnvironmentVariables(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "insights-service")
	v.SetDefault("service.version", "1.0.0")
	v.SetDefault("service.environment", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8787)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("data.public_dir", "public")
	v.SetDefault("data.registry_file", "public/assets/data/fi_registry.json")
	v.SetDefault("data.daily_dir", "data/daily")
	v.SetDefault("data.raw_dir", "raw")

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_entry_bytes", 5*1024*1024)
	v.SetDefault("cache.quota_bytes", 0)
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.database", 0)
	v.SetDefault("cache.redis.max_retries", 3)
	v.SetDefault("cache.redis.pool_size", 10)
	v.SetDefault("cache.redis.ttl", "0s")

	v.SetDefault("analytics.dimensions", []string{"date", "hostName", "pagePath", "hour"})
	v.SetDefault("analytics.metrics", []string{"screenPageViews", "activeUsers"})
	v.SetDefault("analytics.limit", 100000)
	v.SetDefault("analytics.timeout", "60s")

	v.SetDefault("upstream.base_url", "http://localhost:8787")
	v.SetDefault("upstream.timeout", "120s")

	v.SetDefault("reports.sso_fi_keys", DefaultSSOFIKeys)
	v.SetDefault("reports.merchant_top_n", 20)
	v.SetDefault("reports.daily_build_concurrency", 4)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.rps", 20)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.service_name", "insights-service")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "sis")
}

// bindEnvironmentVariables binds the unprefixed variables the existing scripts already use
func bindEnvironmentVariables(v *viper.Viper) error {
	bindings := map[string][]string{
		"server.port":           {"SIS_SERVER_PORT", "PORT"},
		"analytics.property_id": {"SIS_ANALYTICS_PROPERTY_ID", "GA_PROPERTY_ID", "GOOGLE_ANALYTICS_PROPERTY_ID"},
		"analytics.key_file":    {"SIS_ANALYTICS_KEY_FILE", "GA_KEYFILE", "GOOGLE_APPLICATION_CREDENTIALS"},
		"upstream.base_url":     {"SIS_UPSTREAM_BASE_URL", "SIS_API_BASE"},
		"cache.redis.password":  {"SIS_CACHE_REDIS_PASSWORD", "REDIS_PASSWORD"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return err
		}
	}
	return nil
}

func validateConfig(config *Config) error {
	var errs common.ValidationErrors

	if config.Service.Name == "" {
		errs.Add("service.name", "is required", nil)
	}
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		errs.Add("server.port", "must be between 1 and 65535", config.Server.Port)
	}
	switch config.Cache.Backend {
	case "memory", "redis":
	default:
		errs.Add("cache.backend", "must be memory or redis", config.Cache.Backend)
	}
	if config.Cache.MaxEntryBytes <= 0 {
		errs.Add("cache.max_entry_bytes", "must be positive", config.Cache.MaxEntryBytes)
	}
	if config.Data.RegistryFile == "" {
		errs.Add("data.registry_file", "is required", nil)
	}
	if config.Data.DailyDir == "" {
		errs.Add("data.daily_dir", "is required", nil)
	}
	if config.Reports.DailyBuildLimit <= 0 {
		errs.Add("reports.daily_build_concurrency", "must be positive", config.Reports.DailyBuildLimit)
	}

	if errs.HasErrors() {
		return errs.ToAppError()
	}
	return nil
}
