package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/timesheet-go/internal/domain/timesheet"
	"github.com/joho/godotenv"
)

// Cache backends
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Snapshot stores
const (
	SnapshotStorePostgres = "postgres"
	SnapshotStoreCache    = "cache"
	SnapshotStoreNone     = "none"
)

type Config struct {
	App       AppConfig
	JWT       JWTConfig
	CRM       CRMConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Snapshot  SnapshotConfig
	WorkRules timesheet.WorkRules
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	LogFile     string
	CORSOrigins []string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

// CRMConfig describes the data platform and its client-credentials login.
type CRMConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	Timeout      time.Duration
	PageSize     int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type CacheConfig struct {
	Backend      string
	KeyPrefix    string
	ReferenceTTL time.Duration
}

type SnapshotConfig struct {
	Store     string
	TTL       time.Duration
	Retention time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}

	// Application configuration
	appPort, err := getEnvInt("APP_PORT", 8080)
	if err != nil {
		return nil, err
	}

	config.App = AppConfig{
		Port:        appPort,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     getEnv("LOG_FILE", ""),
		CORSOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}

	// JWT configuration
	accessTTL, err := getEnvDuration("JWT_ACCESS_TOKEN_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	config.JWT = JWTConfig{
		Secret:         getEnv("JWT_SECRET_KEY", ""),
		AccessTokenTTL: accessTTL,
	}

	// CRM configuration
	crmTimeoutMS, err := getEnvInt("CRM_TIMEOUT_MS", 30000)
	if err != nil {
		return nil, err
	}
	crmPageSize, err := getEnvInt("CRM_PAGE_SIZE", 500)
	if err != nil {
		return nil, err
	}

	config.CRM = CRMConfig{
		BaseURL:      getEnv("CRM_BASE_URL", ""),
		TokenURL:     getEnv("CRM_TOKEN_URL", ""),
		ClientID:     getEnv("CRM_CLIENT_ID", ""),
		ClientSecret: getEnv("CRM_CLIENT_SECRET", ""),
		Scopes:       getEnvSlice("CRM_SCOPES"),
		Timeout:      time.Duration(crmTimeoutMS) * time.Millisecond,
		PageSize:     crmPageSize,
	}

	// Database configuration
	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	dbMaxConns, err := getEnvInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "timesheet"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: dbMaxConns,
	}

	// Redis configuration
	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	// Cache configuration
	referenceTTL, err := getEnvInt("REFERENCE_CACHE_TTL_MS", 300000)
	if err != nil {
		return nil, err
	}

	config.Cache = CacheConfig{
		Backend:      strings.ToLower(getEnv("CACHE_BACKEND", CacheBackendMemory)),
		KeyPrefix:    getEnv("CACHE_KEY_PREFIX", "timesheet:"),
		ReferenceTTL: time.Duration(referenceTTL) * time.Millisecond,
	}

	// Snapshot configuration
	snapshotTTL, err := getEnvDuration("SNAPSHOT_TTL", 0)
	if err != nil {
		return nil, err
	}
	snapshotRetention, err := getEnvDuration("SNAPSHOT_RETENTION", 90*24*time.Hour)
	if err != nil {
		return nil, err
	}

	config.Snapshot = SnapshotConfig{
		Store:     strings.ToLower(getEnv("SNAPSHOT_STORE", SnapshotStoreCache)),
		TTL:       snapshotTTL,
		Retention: snapshotRetention,
	}

	// Work rules
	defaults := timesheet.DefaultWorkRules()
	weekdayHours, err := getEnvFloat("WORK_WEEKDAY_HOURS", defaults.WeekdayHours)
	if err != nil {
		return nil, err
	}
	saturdayHours, err := getEnvFloat("WORK_SATURDAY_HOURS", defaults.SaturdayHours)
	if err != nil {
		return nil, err
	}
	registrationDayHours, err := getEnvFloat("WORK_REGISTRATION_DAY_HOURS", defaults.RegistrationDayHours)
	if err != nil {
		return nil, err
	}

	config.WorkRules = timesheet.WorkRules{
		WeekdayHours:         weekdayHours,
		SaturdayHours:        saturdayHours,
		RegistrationDayHours: registrationDayHours,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.CRM.BaseURL == "" {
		return fmt.Errorf("CRM_BASE_URL is required")
	}
	if c.CRM.TokenURL == "" {
		return fmt.Errorf("CRM_TOKEN_URL is required")
	}
	if c.CRM.ClientID == "" {
		return fmt.Errorf("CRM_CLIENT_ID is required")
	}
	if c.CRM.ClientSecret == "" {
		return fmt.Errorf("CRM_CLIENT_SECRET is required")
	}
	if len(c.CRM.Scopes) == 0 {
		return fmt.Errorf("CRM_SCOPES is required")
	}

	switch c.Cache.Backend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("CACHE_BACKEND must be %q or %q", CacheBackendMemory, CacheBackendRedis)
	}
	if c.Cache.ReferenceTTL <= 0 {
		return fmt.Errorf("REFERENCE_CACHE_TTL_MS must be positive")
	}

	switch c.Snapshot.Store {
	case SnapshotStorePostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required when SNAPSHOT_STORE=%s", SnapshotStorePostgres)
		}
	case SnapshotStoreCache, SnapshotStoreNone:
	default:
		return fmt.Errorf("SNAPSHOT_STORE must be one of %q, %q, %q", SnapshotStorePostgres, SnapshotStoreCache, SnapshotStoreNone)
	}

	if c.WorkRules.WeekdayHours <= 0 || c.WorkRules.SaturdayHours <= 0 || c.WorkRules.RegistrationDayHours <= 0 {
		return fmt.Errorf("WORK_*_HOURS must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// LogValue keeps secrets out of the startup log.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("env", c.App.Env),
		slog.Int("port", c.App.Port),
		slog.String("crm_base_url", c.CRM.BaseURL),
		slog.String("cache_backend", c.Cache.Backend),
		slog.Duration("reference_ttl", c.Cache.ReferenceTTL),
		slog.String("snapshot_store", c.Snapshot.Store),
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
