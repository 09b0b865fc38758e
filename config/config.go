package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	RoleUpload     = "upload"
	RoleProcessing = "processing"
	RoleEvents     = "events"
)

type Config struct {
	HttpPort string
	AppEnv   string
	Roles    []string

	// Redis
	RedisURL string

	// Event bus: "redis" or "nats"
	EventBus string
	NatsURL  string

	// Postgres
	Host     string
	User     string
	Password string
	DBName   string
	Port     string

	// Raw file storage: "local", "minio" or "s3"
	StorageType     string
	UploadDir       string
	BucketEndpoint  string
	BucketAccessID  string
	BucketAccessKey string
	BucketName      string
	BucketRegion    string
	UseSSL          bool // MinIO: false, S3: true

	// upload
	MaxFileSize      int64
	AllowedMimeTypes []string

	// cache
	CacheTTL   time.Duration
	CacheL1TTL time.Duration

	// processing / fan-out
	WorkerConcurrency int
	StreamBuffer      int
	// StreamHeartbeat is the ping interval on live streams; a client that went away
	// silently keeps its registration until the next ping fails.
	StreamHeartbeat   time.Duration

	AllowOrigins string
}

var defaultMimeTypes = []string{
	"text/csv",
	"application/json",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

func LoadConfig() *Config {
	return &Config{
		HttpPort:          getEnv("PORT", "3000"),
		AppEnv:            getEnv("APP_ENV", "dev"),
		Roles:             getList("SERVICE_ROLES", []string{RoleUpload, RoleProcessing, RoleEvents}),
		RedisURL:          os.Getenv("REDIS_URL"),
		EventBus:          getEnv("EVENT_BUS", "redis"),
		NatsURL:           getEnv("NATS_URL", "nats://127.0.0.1:4222"),
		Host:              os.Getenv("PG_HOST"),
		User:              os.Getenv("PG_USER"),
		Password:          os.Getenv("PG_PASSWORD"),
		DBName:            os.Getenv("PG_DB"),
		Port:              getEnv("PG_PORT", "5432"),
		StorageType:       getEnv("STORAGE_TYPE", "local"),
		UploadDir:         getEnv("UPLOAD_DIR", "./uploads"),
		BucketEndpoint:    os.Getenv("BUCKET_ENDPOINT"),
		BucketAccessID:    os.Getenv("BUCKET_ACCESS_ID"),
		BucketAccessKey:   os.Getenv("BUCKET_ACCESS_KEY"),
		BucketName:        os.Getenv("BUCKET_NAME"),
		BucketRegion:      os.Getenv("BUCKET_REGION"),
		UseSSL:            os.Getenv("BUCKET_USE_SSL") == "true",
		MaxFileSize:       getInt64("MAX_FILE_SIZE", 100*1024*1024),
		AllowedMimeTypes:  getList("ALLOWED_MIME_TYPES", defaultMimeTypes),
		CacheTTL:          getDuration("CACHE_TTL", time.Hour),
		CacheL1TTL:        getDuration("CACHE_L1_TTL", 2*time.Second),
		WorkerConcurrency: int(getInt64("WORKER_CONCURRENCY", 4)),
		StreamBuffer:      int(getInt64("STREAM_BUFFER", 64)),
		StreamHeartbeat:   getDuration("STREAM_HEARTBEAT", 15*time.Second),
		AllowOrigins:      getEnv("ALLOWORIGINS", "*"),
	}
}

// HasRole reports whether this process should run the given service role.
func (c *Config) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
