package app

import (
	"time"

	"github.com/feralops/tnr-backend/internal/platform/envutil"
)

type Config struct {
	Port            string
	Environment     string
	Version         string
	MetricsAddr     string
	RedisAddr       string
	ArchiveBucket   string
	ShutdownTimeout time.Duration
}

func LoadConfig() Config {
	return Config{
		Port:            envutil.String("PORT", "8080"),
		Environment:     envutil.String("APP_ENV", "development"),
		Version:         envutil.String("APP_VERSION", ""),
		MetricsAddr:     envutil.String("METRICS_ADDR", ":9100"),
		RedisAddr:       envutil.String("REDIS_ADDR", ""),
		ArchiveBucket:   envutil.String("GCS_BUCKET_NAME", ""),
		ShutdownTimeout: time.Duration(envutil.Int("SHUTDOWN_TIMEOUT_SECONDS", 15)) * time.Second,
	}
}
