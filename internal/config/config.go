package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Payroll  PayrollConfig
	Tax      TaxConfig
	Kafka    KafkaConfig
	CORS     CORSConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
	MinConns int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port         int
	Env          string
	LogLevel     string
	Storage      string
	FixturesPath string
}

// PayrollConfig controls the batch runner and the scheduled auto-run
type PayrollConfig struct {
	Concurrency     int
	HoursPerDay     int
	AutoRunEnabled  bool
	AutoRunInterval time.Duration
}

// TaxConfig holds the statutory defaults applied when a company has not saved its own policy
type TaxConfig struct {
	PersonalIncomeTaxRate           decimal.Decimal
	MilitaryTaxRate                 decimal.Decimal
	EmployerPensionContributionRate decimal.Decimal
	EmployeePensionContributionRate decimal.Decimal
	MinimumWage                     decimal.Decimal
	TaxFreeMinimum                  decimal.Decimal
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configuration from the environment. A .env file is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	dbMaxConns, err := strconv.Atoi(getEnv("DB_MAX_CONNS", "25"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}
	dbMinConns, err := strconv.Atoi(getEnv("DB_MIN_CONNS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "payroll"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: dbMaxConns,
		MinConns: dbMinConns,
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:         appPort,
		Env:          getEnv("APP_ENV", "development"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Storage:      strings.ToLower(getEnv("APP_STORAGE", StoragePostgres)),
		FixturesPath: getEnv("FIXTURES_PATH", ""),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Payroll configuration
	concurrency, err := strconv.Atoi(getEnv("PAYROLL_CONCURRENCY", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_CONCURRENCY: %w", err)
	}
	hoursPerDay, err := strconv.Atoi(getEnv("PAYROLL_HOURS_PER_DAY", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_HOURS_PER_DAY: %w", err)
	}
	autoRunEnabled, err := strconv.ParseBool(getEnv("PAYROLL_AUTO_RUN_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_AUTO_RUN_ENABLED: %w", err)
	}
	autoRunInterval, err := time.ParseDuration(getEnv("PAYROLL_AUTO_RUN_INTERVAL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_AUTO_RUN_INTERVAL: %w", err)
	}

	config.Payroll = PayrollConfig{
		Concurrency:     concurrency,
		HoursPerDay:     hoursPerDay,
		AutoRunEnabled:  autoRunEnabled,
		AutoRunInterval: autoRunInterval,
	}

	// Tax defaults
	if config.Tax, err = loadTaxConfig(); err != nil {
		return nil, err
	}

	// Kafka configuration
	config.Kafka = KafkaConfig{
		Brokers: getEnvSlice("KAFKA_BROKERS"),
		Topic:   getEnv("KAFKA_RUN_TOPIC", "payroll.run.completed"),
	}

	// CORS configuration
	origins := getEnvSlice("CORS_ALLOWED_ORIGINS")
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	config.CORS = CORSConfig{AllowedOrigins: origins}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

type decimalKey struct {
	env      string
	fallback string
	dst      *decimal.Decimal
}

func loadTaxConfig() (TaxConfig, error) {
	var tax TaxConfig
	keys := []decimalKey{
		{"TAX_PIT_RATE", "0.18", &tax.PersonalIncomeTaxRate},
		{"TAX_MILITARY_RATE", "0.015", &tax.MilitaryTaxRate},
		{"TAX_EMPLOYER_PENSION_RATE", "0.22", &tax.EmployerPensionContributionRate},
		{"TAX_EMPLOYEE_PENSION_RATE", "0.0025", &tax.EmployeePensionContributionRate},
		{"TAX_MINIMUM_WAGE", "8000", &tax.MinimumWage},
		{"TAX_FREE_MINIMUM", "2690", &tax.TaxFreeMinimum},
	}

	for _, k := range keys {
		v, err := decimal.NewFromString(getEnv(k.env, k.fallback))
		if err != nil {
			return TaxConfig{}, fmt.Errorf("invalid %s: %w", k.env, err)
		}
		*k.dst = v
	}

	return tax, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error

	if c.App.Storage != StoragePostgres && c.App.Storage != StorageMemory {
		errs = append(errs, fmt.Errorf("APP_STORAGE must be %q or %q", StoragePostgres, StorageMemory))
	}
	if c.App.Storage == StoragePostgres && c.Database.Password == "" {
		errs = append(errs, fmt.Errorf("DB_PASSWORD is required"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, fmt.Errorf("JWT_SECRET_KEY is required"))
	}
	if c.Payroll.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("PAYROLL_CONCURRENCY must be positive"))
	}
	if c.Payroll.HoursPerDay <= 0 || c.Payroll.HoursPerDay > 24 {
		errs = append(errs, fmt.Errorf("PAYROLL_HOURS_PER_DAY must be between 1 and 24"))
	}
	if c.Payroll.AutoRunEnabled && c.Payroll.AutoRunInterval <= 0 {
		errs = append(errs, fmt.Errorf("PAYROLL_AUTO_RUN_INTERVAL must be positive"))
	}

	return errors.Join(errs...)
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

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
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
