// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cartwise/v3/internal/domain/catalog"
	"github.com/cartwise/v3/internal/domain/planning"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Admin      AdminConfig      `mapstructure:"admin"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	AWS        AWSConfig        `mapstructure:"aws"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Engine     EngineConfig     `mapstructure:"engine"`
	Brands     BrandsConfig     `mapstructure:"brands"`
	Plans      PlansConfig      `mapstructure:"plans"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// ServerConfig contains HTTP server configuration for the public API
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	EnableCORS        bool          `mapstructure:"enable_cors"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	EnableCompression bool          `mapstructure:"enable_compression"`
	EnablePprof       bool          `mapstructure:"enable_pprof"`
}

// AdminConfig contains the operator API server configuration
type AdminConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// DatabaseConfig contains facts store configuration
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig contains plan cache configuration
type RedisConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Password        string        `mapstructure:"password"`
	Database        int           `mapstructure:"database"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinIdleConns    int           `mapstructure:"min_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	DialTimeout     time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PoolSize        int           `mapstructure:"pool_size"`
}

// AuthConfig contains operator authentication configuration
type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	TokenTTL        time.Duration `mapstructure:"token_ttl"`
	OperatorKeyHash string        `mapstructure:"operator_key_hash"`
	BCryptCost      int           `mapstructure:"bcrypt_cost"`
}

// AWSConfig contains AWS client configuration for S3 catalog sources
type AWSConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	SessionToken    string `mapstructure:"session_token"`
	Endpoint        string `mapstructure:"endpoint"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
}

// CatalogConfig describes where the product catalog lives and how it
// is refreshed
type CatalogConfig struct {
	Source         string          `mapstructure:"source"`
	Path           string          `mapstructure:"path"`
	Bucket         string          `mapstructure:"bucket"`
	Key            string          `mapstructure:"key"`
	Stores         []StoreSettings `mapstructure:"stores"`
	Watch          bool            `mapstructure:"watch"`
	ReloadDebounce time.Duration   `mapstructure:"reload_debounce"`
}

// StoreSettings declares one store's metadata. Product rows referencing
// a store absent from this roster are skipped at load time.
type StoreSettings struct {
	ID           string `mapstructure:"id"`
	Name         string `mapstructure:"name"`
	Kind         string `mapstructure:"kind"`
	DeliveryDays int    `mapstructure:"delivery_days"`
}

// EngineConfig mirrors the planner's tunable weights so operators can
// adjust scoring without a rebuild
type EngineConfig struct {
	BaseScore                   float64 `mapstructure:"base_score"`
	EWGOrganicHighResidue       float64 `mapstructure:"ewg_organic_high_residue"`
	EWGConventionalHighResidue  float64 `mapstructure:"ewg_conventional_high_residue"`
	EWGOrganicLowResidue        float64 `mapstructure:"ewg_organic_low_residue"`
	FormFitExact                float64 `mapstructure:"form_fit_exact"`
	FormFitNear                 float64 `mapstructure:"form_fit_near"`
	FormFitNoInfo               float64 `mapstructure:"form_fit_no_info"`
	FormFitMismatch             float64 `mapstructure:"form_fit_mismatch"`
	PackagingGlassOrLoose       float64 `mapstructure:"packaging_glass_or_loose"`
	PackagingPaper              float64 `mapstructure:"packaging_paper"`
	PackagingRecyclable         float64 `mapstructure:"packaging_recyclable"`
	PackagingNonRecyclable      float64 `mapstructure:"packaging_non_recyclable"`
	DeliveryWeekPenalty         float64 `mapstructure:"delivery_week_penalty"`
	DeliveryMultiWeekPenalty    float64 `mapstructure:"delivery_multi_week_penalty"`
	UnitValueMax                float64 `mapstructure:"unit_value_max"`
	OutlierMultiplier           float64 `mapstructure:"outlier_multiplier"`
	OutlierPenalty              float64 `mapstructure:"outlier_penalty"`
	CheaperSwapDiscount         float64 `mapstructure:"cheaper_swap_discount"`
	SpecialtyMinIngredients     int     `mapstructure:"specialty_min_ingredients"`
	PrivateLabelRelianceMax     float64 `mapstructure:"private_label_reliance_max"`
	PrivateLabelReliancePenalty float64 `mapstructure:"private_label_reliance_penalty"`
	PremiumProteinBonus         float64 `mapstructure:"premium_protein_bonus"`
	PriceNoteThreshold          float64 `mapstructure:"price_note_threshold"`
	MaxDrivers                  int     `mapstructure:"max_drivers"`
}

// BrandsConfig declares private-label ownership and premium protein
// brands for the store planner
type BrandsConfig struct {
	PrivateLabels   map[string]string `mapstructure:"private_labels"`
	PremiumProteins []string          `mapstructure:"premium_proteins"`
}

// PlansConfig contains plan lifecycle configuration
type PlansConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// MonitoringConfig contains monitoring configuration
type MonitoringConfig struct {
	EnableMetrics   bool    `mapstructure:"enable_metrics"`
	MetricsPort     int     `mapstructure:"metrics_port"`
	EnableTracing   bool    `mapstructure:"enable_tracing"`
	JaegerEndpoint  string  `mapstructure:"jaeger_endpoint"`
	OTLPEndpoint    string  `mapstructure:"otlp_endpoint"`
	SamplingRate    float64 `mapstructure:"sampling_rate"`
	HealthCheckPath string  `mapstructure:"health_check_path"`
	ReadinessPath   string  `mapstructure:"readiness_path"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enable          bool          `mapstructure:"enable"`
	RequestsPerMin  int           `mapstructure:"requests_per_min"`
	BurstSize       int           `mapstructure:"burst_size"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/cartwise")
	}

	// Enable environment variable override
	v.SetEnvPrefix("CARTWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Unmarshal configuration
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Cartwise")
	v.SetDefault("app.version", "3.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.max_header_bytes", 1<<20) // 1MB
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.enable_cors", true)
	v.SetDefault("server.enable_compression", true)

	// Admin defaults
	v.SetDefault("admin.enabled", true)
	v.SetDefault("admin.host", "127.0.0.1")
	v.SetDefault("admin.port", 8081)

	// Database defaults
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.database", "cartwise.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("database.auto_migrate", true)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")

	// Auth defaults
	v.SetDefault("auth.token_ttl", "12h")
	v.SetDefault("auth.bcrypt_cost", 10)

	// Catalog defaults
	v.SetDefault("catalog.source", "file")
	v.SetDefault("catalog.path", "catalog.csv")
	v.SetDefault("catalog.watch", false)
	v.SetDefault("catalog.reload_debounce", "500ms")

	// Plans defaults
	v.SetDefault("plans.ttl", "1h")

	// Engine defaults mirror the tuned production weights
	defaults := planning.DefaultEngineConfig()
	v.SetDefault("engine.base_score", defaults.BaseScore)
	v.SetDefault("engine.ewg_organic_high_residue", defaults.EWGOrganicHighResidue)
	v.SetDefault("engine.ewg_conventional_high_residue", defaults.EWGConventionalHighResidue)
	v.SetDefault("engine.ewg_organic_low_residue", defaults.EWGOrganicLowResidue)
	v.SetDefault("engine.form_fit_exact", defaults.FormFitExact)
	v.SetDefault("engine.form_fit_near", defaults.FormFitNear)
	v.SetDefault("engine.form_fit_no_info", defaults.FormFitNoInfo)
	v.SetDefault("engine.form_fit_mismatch", defaults.FormFitMismatch)
	v.SetDefault("engine.packaging_glass_or_loose", defaults.PackagingGlassOrLoose)
	v.SetDefault("engine.packaging_paper", defaults.PackagingPaper)
	v.SetDefault("engine.packaging_recyclable", defaults.PackagingRecyclable)
	v.SetDefault("engine.packaging_non_recyclable", defaults.PackagingNonRecyclable)
	v.SetDefault("engine.delivery_week_penalty", defaults.DeliveryWeekPenalty)
	v.SetDefault("engine.delivery_multi_week_penalty", defaults.DeliveryMultiWeekPenalty)
	v.SetDefault("engine.unit_value_max", defaults.UnitValueMax)
	v.SetDefault("engine.outlier_multiplier", defaults.OutlierMultiplier)
	v.SetDefault("engine.outlier_penalty", defaults.OutlierPenalty)
	v.SetDefault("engine.cheaper_swap_discount", defaults.CheaperSwapDiscount)
	v.SetDefault("engine.specialty_min_ingredients", defaults.SpecialtyMinIngredients)
	v.SetDefault("engine.private_label_reliance_max", defaults.PrivateLabelRelianceMax)
	v.SetDefault("engine.private_label_reliance_penalty", defaults.PrivateLabelReliancePenalty)
	v.SetDefault("engine.premium_protein_bonus", defaults.PremiumProteinBonus)
	v.SetDefault("engine.price_note_threshold", defaults.PriceNoteThreshold)
	v.SetDefault("engine.max_drivers", defaults.MaxDrivers)

	// Monitoring defaults
	v.SetDefault("monitoring.metrics_port", 9090)
	v.SetDefault("monitoring.sampling_rate", 0.1)
	v.SetDefault("monitoring.health_check_path", "/health")
	v.SetDefault("monitoring.readiness_path", "/ready")

	// Rate limit defaults
	v.SetDefault("rate_limit.requests_per_min", 60)
	v.SetDefault("rate_limit.burst_size", 10)
	v.SetDefault("rate_limit.cleanup_interval", "1m")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate required fields
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	switch c.Catalog.Source {
	case "file":
		if c.Catalog.Path == "" {
			return fmt.Errorf("catalog.path is required for the file source")
		}
	case "s3":
		if c.Catalog.Bucket == "" || c.Catalog.Key == "" {
			return fmt.Errorf("catalog.bucket and catalog.key are required for the s3 source")
		}
	default:
		return fmt.Errorf("catalog.source must be file or s3, got %q", c.Catalog.Source)
	}

	if c.Database.Driver != "sqlite" && c.Database.Driver != "postgres" {
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database.database is required")
	}

	if c.Admin.Enabled && c.Auth.JWTSecret == "" && c.App.Environment == "production" {
		return fmt.Errorf("auth.jwt_secret is required in production")
	}

	// Validate port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// GetDSN returns the database connection string
func (c *Config) GetDSN() string {
	if c.Database.Driver == "sqlite" {
		return c.Database.Database
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.Username,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// RedisAddr returns the host:port address for the plan cache
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// PlannerConfig maps the engine section onto the domain config
func (c *Config) PlannerConfig() planning.EngineConfig {
	e := c.Engine
	return planning.EngineConfig{
		BaseScore:                   e.BaseScore,
		EWGOrganicHighResidue:       e.EWGOrganicHighResidue,
		EWGConventionalHighResidue:  e.EWGConventionalHighResidue,
		EWGOrganicLowResidue:        e.EWGOrganicLowResidue,
		FormFitExact:                e.FormFitExact,
		FormFitNear:                 e.FormFitNear,
		FormFitNoInfo:               e.FormFitNoInfo,
		FormFitMismatch:             e.FormFitMismatch,
		PackagingGlassOrLoose:       e.PackagingGlassOrLoose,
		PackagingPaper:              e.PackagingPaper,
		PackagingRecyclable:         e.PackagingRecyclable,
		PackagingNonRecyclable:      e.PackagingNonRecyclable,
		DeliveryWeekPenalty:         e.DeliveryWeekPenalty,
		DeliveryMultiWeekPenalty:    e.DeliveryMultiWeekPenalty,
		UnitValueMax:                e.UnitValueMax,
		OutlierMultiplier:           e.OutlierMultiplier,
		OutlierPenalty:              e.OutlierPenalty,
		CheaperSwapDiscount:         e.CheaperSwapDiscount,
		SpecialtyMinIngredients:     e.SpecialtyMinIngredients,
		PrivateLabelRelianceMax:     e.PrivateLabelRelianceMax,
		PrivateLabelReliancePenalty: e.PrivateLabelReliancePenalty,
		PremiumProteinBonus:         e.PremiumProteinBonus,
		PriceNoteThreshold:          e.PriceNoteThreshold,
		MaxDrivers:                  e.MaxDrivers,
	}
}

// BrandRegistry builds the domain registry from the brands section
func (c *Config) BrandRegistry() catalog.BrandRegistry {
	return catalog.NewBrandRegistry(c.Brands.PrivateLabels, c.Brands.PremiumProteins)
}

// StoreRoster maps the configured stores onto domain stores
func (c *Config) StoreRoster() []catalog.Store {
	stores := make([]catalog.Store, 0, len(c.Catalog.Stores))
	for _, s := range c.Catalog.Stores {
		stores = append(stores, catalog.Store{
			ID:           s.ID,
			Name:         s.Name,
			Kind:         catalog.StoreKind(s.Kind),
			DeliveryDays: s.DeliveryDays,
		})
	}
	return stores
}
