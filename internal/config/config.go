package config

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	PublicBaseURL   string
}

type RedisConfig struct {
	URL     string // empty disables the redis notification sink
	Channel string `validate:"required"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `validate:"gte=0"`
	Burst             int     `validate:"gte=0"`
}

// DriveConfig holds the defaults applied to newly created drives and the
// upload rules enforced by the core.
type DriveConfig struct {
	StorageLimit      int64         `validate:"gt=0"`
	BandwidthLimit    int64         `validate:"gt=0"`
	BandwidthWindow   time.Duration `validate:"gt=0"`
	WarnThresholds    []int         `validate:"dive,gt=0,lte=100"`
	MaxFileSize       int64         `validate:"gt=0"`
	BlockedExtensions []string
	PresignTTL        time.Duration `validate:"gt=0"`
	CopyPolicy        string        `validate:"oneof=ALLOW REQUEST DENY"`
	PrivateByDefault  bool
	PurgeAfter        time.Duration `validate:"gte=0"`
}

type Config struct {
	DB_URL      string
	Port        string `validate:"required"`
	JWTSecret   string `validate:"required"`
	Environment string `validate:"oneof=development production test"`
	LogLevel    string `validate:"oneof=debug info warn error"`
	BlobBackend string `validate:"oneof=r2 memory"`
	CorsConfig  cors.Options
	R2          R2Config
	Redis       RedisConfig
	RateLimit   RateLimitConfig
	Drive       DriveConfig
}

var Envs = initConfig()

var validate = validator.New()

func initConfig() Config {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Debug().Str("file", envFile).Msg("no env file found")
	}

	cfg, err := Load()
	if err != nil {
		log.Warn().Err(err).Msg("invalid configuration, continuing with values as loaded")
	}
	return cfg
}

// Load reads the configuration from the process environment and validates it.
func Load() (Config, error) {
	cfg := Config{
		DB_URL:      getEnv("DB_URL", ""),
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "not-so-secret-now-is-it?"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),
		BlobBackend: getEnv("BLOB_BACKEND", "r2"),
		CorsConfig:  CorsConfig(),
		R2: R2Config{
			AccountID:       getEnv("R2_ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			BucketName:      getEnv("R2_BUCKET_NAME", ""),
			Region:          getEnv("R2_REGION", "auto"),
			PublicBaseURL:   getEnv("R2_PUBLIC_BASE_URL", ""),
		},
		Redis: RedisConfig{
			URL:     getEnv("REDIS_URL", ""),
			Channel: getEnv("REDIS_NOTIFY_CHANNEL", "drive:notifications"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvFloat("RATE_LIMIT_RPS", 20),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 40),
		},
		Drive: DriveConfig{
			StorageLimit:      getEnvInt64("DRIVE_STORAGE_LIMIT", 5<<30),    // 5 GiB
			BandwidthLimit:    getEnvInt64("DRIVE_BANDWIDTH_LIMIT", 10<<30), // 10 GiB/day
			BandwidthWindow:   getEnvDuration("DRIVE_BANDWIDTH_WINDOW", 24*time.Hour),
			WarnThresholds:    getEnvInts("DRIVE_WARN_THRESHOLDS", []int{80, 90}),
			MaxFileSize:       getEnvInt64("DRIVE_MAX_FILE_SIZE", 500<<20), // 500 MiB
			BlockedExtensions: getEnvList("DRIVE_BLOCKED_EXTENSIONS", []string{".exe", ".bat", ".cmd", ".com", ".msi", ".scr", ".dll"}),
			PresignTTL:        getEnvDuration("DRIVE_PRESIGN_TTL", 15*time.Minute),
			CopyPolicy:        strings.ToUpper(getEnv("DRIVE_COPY_POLICY", "REQUEST")),
			PrivateByDefault:  getEnvBool("DRIVE_PRIVATE_BY_DEFAULT", true),
			PurgeAfter:        getEnvDuration("DRIVE_PURGE_AFTER", 30*24*time.Hour),
		},
	}
	return cfg, Validate(cfg)
}

// Validate checks struct tags and returns the first failure in a readable form.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			e := errs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
		}
		return err
	}
	return nil
}

// Gets the env by key or fallbacks
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n
		}
		log.Warn().Str("key", key).Str("value", v).Msg("ignoring malformed integer")
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	return int(getEnvInt64(key, int64(fallback)))
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
		log.Warn().Str("key", key).Str("value", v).Msg("ignoring malformed number")
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
		log.Warn().Str("key", key).Str("value", v).Msg("ignoring malformed duration")
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.ToLower(strings.TrimSpace(item)); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvInts(key string, fallback []int) []int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []int
	for _, item := range strings.Split(v, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(item))
		if err != nil {
			log.Warn().Str("key", key).Str("value", item).Msg("ignoring malformed threshold")
			continue
		}
		out = append(out, n)
	}
	return out
}

func CorsConfig() cors.Options {
	return cors.Options{
		AllowedOrigins:   getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
}
