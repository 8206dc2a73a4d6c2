package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Event backends selectable through EVENTS_BACKEND.
const (
	EventsBackendNone     = "none"
	EventsBackendRabbitMQ = "rabbitmq"
	EventsBackendPubSub   = "pubsub"
)

// Object storage backends selectable through STORAGE_BACKEND.
const (
	StorageBackendNone  = "none"
	StorageBackendMinio = "minio"
	StorageBackendGCS   = "gcs"
)

type Config struct {
	ServerPort int    `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	Database   DatabaseConfig
	JWT        JWTConfig      `envPrefix:"JWT_"`
	Events     EventsConfig   `envPrefix:"EVENTS_"`
	RabbitMQ   RabbitMQConfig `envPrefix:"RABBITMQ_"`
	PubSub     PubSubConfig   `envPrefix:"PUBSUB_"`
	Storage    StorageConfig  `envPrefix:"STORAGE_"`
	Minio      MinioConfig    `envPrefix:"MINIO_"`
	GCS        GCSConfig      `envPrefix:"GCS_"`
}

type DatabaseConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"accountsvc"`
	Password string `env:"DB_PASSWORD" envDefault:"password"`
	DBName   string `env:"DB_NAME" envDefault:"accountsvc_db"`
	UseSSL   bool   `env:"DB_USE_SSL" envDefault:"false"`

	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"2m"`
}

type JWTConfig struct {
	Secret     string        `env:"SECRET"`
	AccessTTL  time.Duration `env:"ACCESS_TTL" envDefault:"5m"`
	RefreshTTL time.Duration `env:"REFRESH_TTL" envDefault:"24h"`
}

type EventsConfig struct {
	Backend string `env:"BACKEND" envDefault:"none"`
	Channel string `env:"CHANNEL" envDefault:"account-events"`
}

type RabbitMQConfig struct {
	URL             string `env:"URL"`
	QueueSuffix     string `env:"QUEUE_SUFFIX" envDefault:".subscriber"`
	QueueDurable    bool   `env:"QUEUE_DURABLE" envDefault:"true"`
	QueueAutoDelete bool   `env:"QUEUE_AUTO_DELETE" envDefault:"false"`
	PrefetchCount   int    `env:"PREFETCH_COUNT" envDefault:"10"`
}

type PubSubConfig struct {
	ProjectID          string `env:"PROJECT_ID"`
	CredentialsFile    string `env:"CREDENTIALS_FILE"`
	SubscriptionSuffix string `env:"SUBSCRIPTION_SUFFIX" envDefault:"-sub"`
}

// StorageConfig selects where account exports are written.
type StorageConfig struct {
	Backend string `env:"BACKEND" envDefault:"none"`
	Bucket  string `env:"BUCKET" envDefault:"accountsvc-exports"`
}

type MinioConfig struct {
	Endpoint  string `env:"ENDPOINT" envDefault:"localhost:9000"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
}

type GCSConfig struct {
	ProjectID       string `env:"PROJECT_ID"`
	CredentialsFile string `env:"CREDENTIALS_FILE"`
}

// LoadConfig reads configuration from the environment. In dev mode a local
// .env file is loaded first.
func LoadConfig() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
