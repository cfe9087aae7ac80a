package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/muhammed-shimlal/Kallayi-car-spa/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Env struct {
	AppAddr  string `mapstructure:"APP_ADDR"`
	GinMode  string `mapstructure:"GIN_MODE"`
	AppEnv   string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DatabaseDSN string `mapstructure:"DATABASE_DSN"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	JWTSecret          string `mapstructure:"JWT_SECRET"`
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	MaxRequestsPerMin  int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	BusinessOpen     string `mapstructure:"BUSINESS_OPEN"`
	BusinessClose    string `mapstructure:"BUSINESS_CLOSE"`
	SlotProbeMinutes int    `mapstructure:"SLOT_PROBE_MINUTES"`
	BusinessTimezone string `mapstructure:"BUSINESS_TIMEZONE"`
	SkillMatching    bool   `mapstructure:"SKILL_MATCHING"`

	LoyaltyPointsRate    string        `mapstructure:"LOYALTY_POINTS_RATE"`
	AvailabilityCacheTTL time.Duration `mapstructure:"AVAILABILITY_CACHE_TTL"`
	WorkerConcurrency    int           `mapstructure:"WORKER_CONCURRENCY"`
}

var defaults = map[string]any{
	"APP_ADDR":               ":8080",
	"GIN_MODE":               "",
	"ENV":                    "development",
	"LOG_LEVEL":              "info",
	"DATABASE_DSN":           "root:@tcp(127.0.0.1:3306)/car_spa?parseTime=true&loc=Local&charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s",
	"REDIS_ADDR":             "",
	"REDIS_PASSWORD":         "",
	"REDIS_CACHE_DB":         0,
	"REDIS_QUEUE_DB":         1,
	"JWT_SECRET":             "",
	"CORS_ALLOWED_ORIGINS":   "http://localhost:3000,http://127.0.0.1:3000,http://localhost:5173,http://127.0.0.1:5173",
	"MAX_REQUESTS_PER_MIN":   200,
	"BUSINESS_OPEN":          "09:00",
	"BUSINESS_CLOSE":         "17:00",
	"SLOT_PROBE_MINUTES":     30,
	"BUSINESS_TIMEZONE":      "Local",
	"SKILL_MATCHING":         false,
	"LOYALTY_POINTS_RATE":    "0.10",
	"AVAILABILITY_CACHE_TTL": "60s",
	"WORKER_CONCURRENCY":     10,
}

// LoadEnv reads config.yaml (if any) from . or ./config, then the environment.
func LoadEnv() (Env, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Env{}, fmt.Errorf("read config: %w", err)
		}
	}

	var env Env
	if err := v.Unmarshal(&env); err != nil {
		return Env{}, fmt.Errorf("decode config: %w", err)
	}
	if _, err := env.BusinessHours(); err != nil {
		return Env{}, err
	}
	if _, err := env.LoyaltyRate(); err != nil {
		return Env{}, err
	}
	return env, nil
}

func (e Env) IsProduction() bool {
	return strings.EqualFold(e.AppEnv, "production")
}

func (e Env) Location() (*time.Location, error) {
	name := strings.TrimSpace(e.BusinessTimezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("BUSINESS_TIMEZONE: %w", err)
	}
	return loc, nil
}

func (e Env) BusinessHours() (domain.BusinessHours, error) {
	loc, err := e.Location()
	if err != nil {
		return domain.BusinessHours{}, err
	}
	open, err := domain.ParseTimeOfDay(e.BusinessOpen)
	if err != nil {
		return domain.BusinessHours{}, fmt.Errorf("BUSINESS_OPEN: %w", err)
	}
	closing, err := domain.ParseTimeOfDay(e.BusinessClose)
	if err != nil {
		return domain.BusinessHours{}, fmt.Errorf("BUSINESS_CLOSE: %w", err)
	}
	if closing.Hour*60+closing.Minute <= open.Hour*60+open.Minute {
		return domain.BusinessHours{}, fmt.Errorf("BUSINESS_CLOSE %s must be after BUSINESS_OPEN %s", closing, open)
	}
	if e.SlotProbeMinutes <= 0 {
		return domain.BusinessHours{}, fmt.Errorf("SLOT_PROBE_MINUTES must be positive")
	}
	return domain.BusinessHours{
		Open:     open,
		Close:    closing,
		Step:     time.Duration(e.SlotProbeMinutes) * time.Minute,
		Location: loc,
	}, nil
}

func (e Env) LoyaltyRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(e.LoyaltyPointsRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("LOYALTY_POINTS_RATE: %w", err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("LOYALTY_POINTS_RATE must not be negative")
	}
	return rate, nil
}

func (e Env) AllowedOrigins() []string {
	out := []string{}
	for _, o := range strings.Split(e.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
