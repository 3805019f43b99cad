package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service. Learning
// defaults are resolved once here and injected into services instead of being
// read ad hoc from global state.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	JWTSecret   string

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string

	// Learning defaults applied when an assignment does not set its own value.
	AllowResubmitDefault      bool
	LatePenaltyPercentDefault int
	QuestionBankCountDefault  int
	FileRetentionDays         int

	GradingQueueCacheTTL time.Duration
	JobWorkers           int
	JobBufferSize        int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GRADEFLOW")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Gradeflow API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("cloudinary.folder", "gradeflow/answers")
	v.SetDefault("learning.allow_resubmit", true)
	v.SetDefault("learning.late_penalty_percent", 0)
	v.SetDefault("learning.question_bank_count", 10)
	v.SetDefault("learning.file_retention_days", 180)
	v.SetDefault("grading.queue_cache_ttl", "2m")
	v.SetDefault("jobs.workers", 4)
	v.SetDefault("jobs.buffer_size", 64)

	ttlString := v.GetString("grading.queue_cache_ttl")
	if ttlString == "" {
		ttlString = "2m"
	}

	ttl, err := time.ParseDuration(ttlString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid grading queue cache ttl: %w", err)
	}

	cfg := Config{
		AppName:                   v.GetString("app.name"),
		AppEnv:                    v.GetString("app.env"),
		AppPort:                   v.GetString("app.port"),
		DatabaseURL:               v.GetString("database.url"),
		RedisURL:                  v.GetString("redis.url"),
		NATSURL:                   v.GetString("nats.url"),
		JWTSecret:                 v.GetString("jwt.secret"),
		CloudinaryCloudName:       v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:          v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:       v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder:    v.GetString("cloudinary.folder"),
		AllowResubmitDefault:      v.GetBool("learning.allow_resubmit"),
		LatePenaltyPercentDefault: v.GetInt("learning.late_penalty_percent"),
		QuestionBankCountDefault:  v.GetInt("learning.question_bank_count"),
		FileRetentionDays:         v.GetInt("learning.file_retention_days"),
		GradingQueueCacheTTL:      ttl,
		JobWorkers:                v.GetInt("jobs.workers"),
		JobBufferSize:             v.GetInt("jobs.buffer_size"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.LatePenaltyPercentDefault < 0 || cfg.LatePenaltyPercentDefault > 100 {
		return Config{}, fmt.Errorf("late penalty percent must be within [0, 100]")
	}

	if cfg.JobWorkers <= 0 {
		cfg.JobWorkers = 4
	}

	if cfg.JobBufferSize <= 0 {
		cfg.JobBufferSize = 64
	}

	return cfg, nil
}
