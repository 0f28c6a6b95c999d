package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	DatabaseURL         string
	RedisURL            string
	NATSURL             string
	JWTSecret           string
	S3Region            string
	S3Bucket            string
	S3Endpoint          string
	FFmpegPath          string
	FFprobePath         string
	MaxFileSizeMB       int64
	MessageThumbWidth   int
	AvatarThumbWidth    int
	TypingResetInterval time.Duration
	SummaryCacheTTL     time.Duration
	DatabaseVersion     string
	ClientCompatibility []string
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
	v.SetEnvPrefix("TIDE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Tide API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("ffmpeg.path", "ffmpeg")
	v.SetDefault("ffprobe.path", "ffprobe")
	v.SetDefault("media.max_file_size_mb", 300)
	v.SetDefault("media.message_thumb_width", 400)
	v.SetDefault("media.avatar_thumb_width", 60)
	v.SetDefault("typing.reset_interval", "30s")
	v.SetDefault("summary.cache_ttl", "30m")
	v.SetDefault("database.version", "1.0.0")
	v.SetDefault("client.compatibility", "1.0.0")

	resetInterval, err := time.ParseDuration(v.GetString("typing.reset_interval"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid typing reset interval: %w", err)
	}

	cacheTTL, err := time.ParseDuration(v.GetString("summary.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid summary cache ttl: %w", err)
	}

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		DatabaseURL:         v.GetString("database.url"),
		RedisURL:            v.GetString("redis.url"),
		NATSURL:             v.GetString("nats.url"),
		JWTSecret:           v.GetString("jwt.secret"),
		S3Region:            v.GetString("s3.region"),
		S3Bucket:            v.GetString("s3.bucket"),
		S3Endpoint:          v.GetString("s3.endpoint"),
		FFmpegPath:          v.GetString("ffmpeg.path"),
		FFprobePath:         v.GetString("ffprobe.path"),
		MaxFileSizeMB:       v.GetInt64("media.max_file_size_mb"),
		MessageThumbWidth:   v.GetInt("media.message_thumb_width"),
		AvatarThumbWidth:    v.GetInt("media.avatar_thumb_width"),
		TypingResetInterval: resetInterval,
		SummaryCacheTTL:     cacheTTL,
		DatabaseVersion:     v.GetString("database.version"),
		ClientCompatibility: splitVersions(v.GetString("client.compatibility")),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.MaxFileSizeMB <= 0 {
		cfg.MaxFileSizeMB = 300
	}

	if cfg.MessageThumbWidth <= 0 {
		cfg.MessageThumbWidth = 400
	}

	if cfg.AvatarThumbWidth <= 0 {
		cfg.AvatarThumbWidth = 60
	}

	return cfg, nil
}

func splitVersions(raw string) []string {
	parts := strings.Split(raw, ",")
	versions := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			versions = append(versions, trimmed)
		}
	}
	return versions
}
