package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Messaging implementations selectable with MESSAGING_IMPLEMENTATION.
const (
	ImplementationGoogle = "google"
	ImplementationKafka  = "kafka"
	ImplementationMemory = "memory"
)

// Config is the process configuration, read once at startup.
type Config struct {
	ModuleName        string `env:"APPLICATION_MODULE_NAME" envDefault:"Billing" validate:"required"`
	Implementation    string `env:"MESSAGING_IMPLEMENTATION" envDefault:"google" validate:"oneof=google kafka memory"`
	SubscriptionID    string `env:"PUBSUB_SUBSCRIPTION_ID" envDefault:"BillingGenericSub" validate:"required"`
	ForwardTopicID    string `env:"PUBSUB_FORWARD_TOPIC_ID" envDefault:"GenericTopic"`
	ForwardMode       string `env:"PUBSUB_FORWARD_MODE" envDefault:"fixed" validate:"oneof=fixed routed"`
	RoutingConfigPath string `env:"ROUTING_CONFIG_PATH" envDefault:"routing.yaml"`
	NumWorkers        int    `env:"DISPATCH_WORKERS" envDefault:"5" validate:"min=1"`
	ReceiveBuffer     int    `env:"RECEIVE_BUFFER" envDefault:"100" validate:"min=1"`
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat         string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json console"`

	Google  GoogleConfig
	Kafka   KafkaConfig   `envPrefix:"KAFKA_"`
	Dedup   DedupConfig   `envPrefix:"DEDUP_"`
	Redis   RedisConfig   `envPrefix:"REDIS_"`
	Tracing TracingConfig `envPrefix:"TRACING_"`
}

// GoogleConfig holds the Pub/Sub client settings.
type GoogleConfig struct {
	ProjectID              string `env:"GCP_PROJECT_ID"`
	CredentialsFile        string `env:"GCP_PUBSUB_CREDENTIALS_FILE"`
	EmulatorHost           string `env:"PUBSUB_EMULATOR_HOST"`
	MaxOutstandingMessages int    `env:"PUBSUB_MAX_OUTSTANDING" envDefault:"100" validate:"min=1"`
	NumGoroutines          int    `env:"PUBSUB_NUM_GOROUTINES" envDefault:"5" validate:"min=1"`
}

// KafkaConfig holds the Kafka transport settings.
type KafkaConfig struct {
	Brokers       []string `env:"BROKERS" envSeparator:","`
	ConsumerGroup string   `env:"CONSUMER_GROUP"`
	ClientID      string   `env:"CLIENT_ID" envDefault:"billing"`
}

// DedupConfig controls the idempotency guard in front of the processor.
type DedupConfig struct {
	Enabled bool          `env:"ENABLED" envDefault:"false"`
	Backend string        `env:"BACKEND" envDefault:"memory" validate:"oneof=memory redis"`
	TTL     time.Duration `env:"TTL" envDefault:"24h" validate:"gt=0"`
}

// RedisConfig holds configuration for the Redis client.
type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// TracingConfig selects the OpenTelemetry span exporter. Tracing is off unless enabled.
type TracingConfig struct {
	Enabled      bool    `env:"ENABLED" envDefault:"false"`
	Exporter     string  `env:"EXPORTER" envDefault:"otlp" validate:"oneof=otlp zipkin"`
	ServiceName  string  `env:"SERVICE_NAME" envDefault:"billing-messaging"`
	ServiceEnv   string  `env:"SERVICE_ENV" envDefault:"development"`
	OTLPEndpoint string  `env:"OTLP_ENDPOINT" envDefault:"localhost:4317"`
	ZipkinURL    string  `env:"ZIPKIN_URL" envDefault:"http://localhost:9411/api/v2/spans"`
	SampleRatio  float64 `env:"SAMPLE_RATIO" envDefault:"1" validate:"gte=0,lte=1"`
}

var validate = validator.New()

// ParseFromEnv reads the configuration from environment variables without validating it.
func ParseFromEnv() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}

// LoadConfigFromEnv reads and validates the configuration from environment variables.
func LoadConfigFromEnv() (*Config, error) {
	cfg, err := ParseFromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints and the settings each implementation needs.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.ForwardMode == "fixed" && c.ForwardTopicID == "" {
		return errors.New("PUBSUB_FORWARD_TOPIC_ID must be set when PUBSUB_FORWARD_MODE is fixed")
	}
	switch c.Implementation {
	case ImplementationGoogle:
		if c.Google.ProjectID == "" {
			return errors.New("GCP_PROJECT_ID environment variable not set for Pub/Sub")
		}
	case ImplementationKafka:
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("KAFKA_BROKERS environment variable not set for Kafka")
		}
	}
	return nil
}

// ConsumerGroup returns the Kafka consumer group, defaulting to the module name.
func (c *Config) ConsumerGroup() string {
	if c.Kafka.ConsumerGroup != "" {
		return c.Kafka.ConsumerGroup
	}
	return c.ModuleName
}
