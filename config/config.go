package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the full runtime configuration for both binaries. Every field has
// an environment override and a default suitable for local development.
type Config struct {
	LogLevel string

	Worker WorkerConfig
	API    APIConfig

	Kafka     KafkaConfig
	Storage   StorageConfig
	Qdrant    QdrantConfig
	Redis     RedisConfig
	Clip      ClipConfig
	Anthropic AnthropicConfig
}

type WorkerConfig struct {
	Slots         int
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	StepTimeout   time.Duration
	PollTimeoutMs int
}

type APIConfig struct {
	Port         string
	MaxImageSize int64
}

type KafkaConfig struct {
	Brokers         string
	Topic           string
	DeadLetterTopic string
	GroupID         string
	ClientID        string
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type QdrantConfig struct {
	Addr       string
	Collection string
	Dimension  int
	Distance   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

type ClipConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int64
}

// Load reads configuration from the environment, after loading .env.local if
// one is present.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")

	v := viper.New()
	setDefaults(v)
	bindEnv(v)

	cfg := &Config{
		LogLevel: v.GetString("log.level"),
		Worker: WorkerConfig{
			Slots:         v.GetInt("worker.slots"),
			MaxAttempts:   v.GetInt("worker.max_attempts"),
			BaseDelay:     v.GetDuration("worker.base_delay"),
			MaxDelay:      v.GetDuration("worker.max_delay"),
			StepTimeout:   v.GetDuration("worker.step_timeout"),
			PollTimeoutMs: v.GetInt("worker.poll_timeout_ms"),
		},
		API: APIConfig{
			Port:         v.GetString("api.port"),
			MaxImageSize: v.GetInt64("api.max_image_size"),
		},
		Kafka: KafkaConfig{
			Brokers:         v.GetString("kafka.brokers"),
			Topic:           v.GetString("kafka.topic"),
			DeadLetterTopic: v.GetString("kafka.dead_letter_topic"),
			GroupID:         v.GetString("kafka.group_id"),
			ClientID:        v.GetString("kafka.client_id"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("storage.endpoint"),
			AccessKey: v.GetString("storage.access_key"),
			SecretKey: v.GetString("storage.secret_key"),
			Bucket:    v.GetString("storage.bucket"),
			UseSSL:    v.GetBool("storage.use_ssl"),
		},
		Qdrant: QdrantConfig{
			Addr:       v.GetString("qdrant.addr"),
			Collection: v.GetString("qdrant.collection"),
			Dimension:  v.GetInt("qdrant.dimension"),
			Distance:   v.GetString("qdrant.distance"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.status_ttl"),
		},
		Clip: ClipConfig{
			BaseURL: v.GetString("clip.base_url"),
			APIKey:  v.GetString("clip.api_key"),
			Model:   v.GetString("clip.model"),
			Timeout: v.GetDuration("clip.timeout"),
		},
		Anthropic: AnthropicConfig{
			APIKey:    v.GetString("anthropic.api_key"),
			Model:     v.GetString("anthropic.model"),
			MaxTokens: v.GetInt64("anthropic.max_tokens"),
		},
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("worker.slots", 4)
	v.SetDefault("worker.max_attempts", 5)
	v.SetDefault("worker.base_delay", 500*time.Millisecond)
	v.SetDefault("worker.max_delay", 30*time.Second)
	v.SetDefault("worker.step_timeout", 30*time.Second)
	v.SetDefault("worker.poll_timeout_ms", 1000)

	v.SetDefault("api.port", "8080")
	v.SetDefault("api.max_image_size", int64(20<<20))

	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "photo-ingestion")
	v.SetDefault("kafka.dead_letter_topic", "photo-ingestion-dlq")
	v.SetDefault("kafka.group_id", "photo-search-worker")
	v.SetDefault("kafka.client_id", "photo-search")

	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.access_key", "minioadmin")
	v.SetDefault("storage.secret_key", "minioadmin")
	v.SetDefault("storage.bucket", "photos")
	v.SetDefault("storage.use_ssl", false)

	v.SetDefault("qdrant.addr", "localhost:6334")
	v.SetDefault("qdrant.collection", "photos")
	v.SetDefault("qdrant.dimension", 512)
	v.SetDefault("qdrant.distance", "cosine")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.status_ttl", 24*time.Hour)

	v.SetDefault("clip.base_url", "http://localhost:8090/v1")
	v.SetDefault("clip.api_key", "")
	v.SetDefault("clip.model", "clip-vit-base-patch32")
	v.SetDefault("clip.timeout", 30*time.Second)

	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-3-7-sonnet-latest")
	v.SetDefault("anthropic.max_tokens", int64(1024))
}

func bindEnv(v *viper.Viper) {
	bindings := map[string]string{
		"log.level": "LOG_LEVEL",

		"worker.slots":           "WORKER_SLOTS",
		"worker.max_attempts":    "WORKER_MAX_ATTEMPTS",
		"worker.base_delay":      "WORKER_BASE_DELAY",
		"worker.max_delay":       "WORKER_MAX_DELAY",
		"worker.step_timeout":    "WORKER_STEP_TIMEOUT",
		"worker.poll_timeout_ms": "WORKER_POLL_TIMEOUT_MS",

		"api.port":           "API_PORT",
		"api.max_image_size": "API_MAX_IMAGE_SIZE",

		"kafka.brokers":           "KAFKA_BROKERS",
		"kafka.topic":             "KAFKA_TOPIC",
		"kafka.dead_letter_topic": "KAFKA_DEAD_LETTER_TOPIC",
		"kafka.group_id":          "KAFKA_GROUP_ID",
		"kafka.client_id":         "KAFKA_CLIENT_ID",

		"storage.endpoint":   "STORAGE_ENDPOINT",
		"storage.access_key": "STORAGE_ACCESS_KEY",
		"storage.secret_key": "STORAGE_SECRET_KEY",
		"storage.bucket":     "STORAGE_BUCKET",
		"storage.use_ssl":    "STORAGE_USE_SSL",

		"qdrant.addr":       "QDRANT_ADDR",
		"qdrant.collection": "QDRANT_COLLECTION",
		"qdrant.dimension":  "QDRANT_DIMENSION",
		"qdrant.distance":   "QDRANT_DISTANCE",

		"redis.addr":       "REDIS_ADDR",
		"redis.password":   "REDIS_PASSWORD",
		"redis.db":         "REDIS_DB",
		"redis.status_ttl": "REDIS_STATUS_TTL",

		"clip.base_url": "CLIP_BASE_URL",
		"clip.api_key":  "CLIP_API_KEY",
		"clip.model":    "CLIP_MODEL",
		"clip.timeout":  "CLIP_TIMEOUT",

		"anthropic.api_key":    "ANTHROPIC_API_KEY",
		"anthropic.model":      "ANTHROPIC_MODEL",
		"anthropic.max_tokens": "ANTHROPIC_MAX_TOKENS",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, env)
	}
}
