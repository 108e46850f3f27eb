// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends.
const (
	StorageFS = "fs"
	StorageS3 = "s3"
)

// Config is the full service configuration.
type Config struct {
	Addr       string
	PGDSN      string
	AuthSecret string
	TokenTTL   time.Duration

	Storage   string
	UploadDir string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	// AllowedOrigins feeds both the CORS middleware and the unsigned
	// download referer policy.
	AllowedOrigins []string

	RateBurst  int
	RatePerSec int
}

// Load reads configuration from CAMPUSSHARE_* environment variables and
// validates it.
func Load() (Config, error) {
	cfg := Config{
		Addr:       envOr("CAMPUSSHARE_ADDR", ":8080"),
		PGDSN:      os.Getenv("CAMPUSSHARE_PG_DSN"),
		AuthSecret: os.Getenv("CAMPUSSHARE_AUTH_SECRET"),
		TokenTTL:   7 * 24 * time.Hour,
		Storage:    envOr("CAMPUSSHARE_STORAGE", StorageFS),
		UploadDir:  envOr("CAMPUSSHARE_UPLOAD_DIR", "uploads"),

		S3Bucket:    os.Getenv("CAMPUSSHARE_S3_BUCKET"),
		S3Region:    os.Getenv("CAMPUSSHARE_S3_REGION"),
		S3Endpoint:  os.Getenv("CAMPUSSHARE_S3_ENDPOINT"),
		S3AccessKey: os.Getenv("CAMPUSSHARE_S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("CAMPUSSHARE_S3_SECRET_KEY"),

		RateBurst:  20,
		RatePerSec: 10,
	}

	if raw := os.Getenv("CAMPUSSHARE_TOKEN_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			return Config{}, fmt.Errorf("invalid CAMPUSSHARE_TOKEN_TTL: %q", raw)
		}
		cfg.TokenTTL = ttl
	}
	if raw := os.Getenv("CAMPUSSHARE_ALLOWED_ORIGINS"); raw != "" {
		for _, origin := range strings.Split(raw, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}
	var err error
	if cfg.RateBurst, err = envIntOr("CAMPUSSHARE_RATE_BURST", cfg.RateBurst); err != nil {
		return Config{}, err
	}
	if cfg.RatePerSec, err = envIntOr("CAMPUSSHARE_RATE_PER_SEC", cfg.RatePerSec); err != nil {
		return Config{}, err
	}

	if cfg.AuthSecret == "" {
		return Config{}, fmt.Errorf("CAMPUSSHARE_AUTH_SECRET is required")
	}
	switch cfg.Storage {
	case StorageFS:
	case StorageS3:
		if cfg.S3Bucket == "" {
			return Config{}, fmt.Errorf("CAMPUSSHARE_S3_BUCKET is required when storage is %q", StorageS3)
		}
	default:
		return Config{}, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return v, nil
}
