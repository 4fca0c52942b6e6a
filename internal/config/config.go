package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server       ServerConfig
	Redis        RedisConfig
	JWT          JWTConfig
	RateLimit    RateLimitConfig
	ContentGen   ContentGenConfig
	RenderEngine RenderEngineConfig
	R2           R2Config
	Merge        MergeConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	IngestPerMin  int
	RenderPerHour int
	BatchPerHour  int
}

type ContentGenConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type RenderEngineConfig struct {
	BaseURL string
	APIKey  string
	Timeout int // seconds, caps a single render invocation
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type MergeConfig struct {
	OverlapThreshold float64
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("CONTENTGEN_API_KEY")
	readSecret("RENDER_ENGINE_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("contentgen.api_key", "CONTENTGEN_API_KEY")
	_ = viper.BindEnv("contentgen.base_url", "CONTENTGEN_BASE_URL")
	_ = viper.BindEnv("contentgen.model", "CONTENTGEN_MODEL")
	_ = viper.BindEnv("renderengine.base_url", "RENDER_ENGINE_URL")
	_ = viper.BindEnv("renderengine.api_key", "RENDER_ENGINE_API_KEY")
	_ = viper.BindEnv("renderengine.timeout", "RENDER_ENGINE_TIMEOUT")
	_ = viper.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = viper.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = viper.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = viper.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = viper.BindEnv("merge.overlap_threshold", "MERGE_OVERLAP_THRESHOLD")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.ingest_per_min", 30)
	viper.SetDefault("ratelimit.render_per_hour", 20)
	viper.SetDefault("ratelimit.batch_per_hour", 5)

	// Content generation defaults
	viper.SetDefault("contentgen.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("contentgen.model", "llama-3.3-70b-versatile")

	// Render engine defaults
	viper.SetDefault("renderengine.timeout", 600)

	// Merge defaults
	viper.SetDefault("merge.overlap_threshold", 0.5)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			IngestPerMin:  viper.GetInt("ratelimit.ingest_per_min"),
			RenderPerHour: viper.GetInt("ratelimit.render_per_hour"),
			BatchPerHour:  viper.GetInt("ratelimit.batch_per_hour"),
		},
		ContentGen: ContentGenConfig{
			APIKey:  viper.GetString("contentgen.api_key"),
			BaseURL: viper.GetString("contentgen.base_url"),
			Model:   viper.GetString("contentgen.model"),
		},
		RenderEngine: RenderEngineConfig{
			BaseURL: viper.GetString("renderengine.base_url"),
			APIKey:  viper.GetString("renderengine.api_key"),
			Timeout: viper.GetInt("renderengine.timeout"),
		},
		R2: R2Config{
			AccountID:       viper.GetString("r2.account_id"),
			AccessKeyID:     viper.GetString("r2.access_key_id"),
			SecretAccessKey: viper.GetString("r2.secret_access_key"),
			BucketName:      viper.GetString("r2.bucket_name"),
			PublicURL:       viper.GetString("r2.public_url"),
		},
		Merge: MergeConfig{
			OverlapThreshold: viper.GetFloat64("merge.overlap_threshold"),
		},
	}

	return cfg, nil
}
