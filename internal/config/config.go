// Package config loads the gateway configuration from defaults, an optional
// YAML file and GATEWAY_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Aidin1998/pincex_gateway/internal/gateway/adapter"
)

const envPrefix = "GATEWAY"

// Event bus kinds
const (
	EventBusMemory = "memory"
	EventBusKafka  = "kafka"
)

// Config is the gateway process configuration
type Config struct {
	Log      LogConfig           `mapstructure:"log"`
	Admin    AdminConfig         `mapstructure:"admin"`
	Kafka    KafkaConfig         `mapstructure:"kafka"`
	Fields   adapter.FieldPolicy `mapstructure:"fields"`
	EventBus EventBusConfig      `mapstructure:"event_bus"`
}

// LogConfig configures the zap logger
type LogConfig struct {
	Level    string `mapstructure:"level" validate:"oneof=debug info warn error dpanic panic fatal"`
	Encoding string `mapstructure:"encoding" validate:"oneof=json console"`
}

// AdminConfig configures the HTTP API
type AdminConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// KafkaConfig configures the bridge to the protocol engine and the event topic
type KafkaConfig struct {
	Brokers       []string      `mapstructure:"brokers" validate:"required,min=1,dive,required"`
	OutboundTopic string        `mapstructure:"outbound_topic" validate:"required"`
	InboundTopic  string        `mapstructure:"inbound_topic" validate:"required"`
	EventsTopic   string        `mapstructure:"events_topic"`
	GroupID       string        `mapstructure:"group_id" validate:"required"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
}

// EventBusConfig selects where lifecycle responses are published
type EventBusConfig struct {
	Kind string `mapstructure:"kind" validate:"oneof=memory kafka"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("admin.addr", ":8080")
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.outbound_topic", "gateway.requests")
	v.SetDefault("kafka.inbound_topic", "gateway.venue-events")
	v.SetDefault("kafka.events_topic", "gateway.order-events")
	v.SetDefault("kafka.group_id", "pincex-gateway")
	v.SetDefault("kafka.write_timeout", 2*time.Second)
	v.SetDefault("event_bus.kind", EventBusMemory)

	policy := adapter.DefaultFieldPolicy()
	for name, fs := range map[string]adapter.FieldSet{
		"new":     policy.New,
		"replace": policy.Replace,
		"cancel":  policy.Cancel,
	} {
		v.SetDefault("fields."+name+".price", fs.Price)
		v.SetDefault("fields."+name+".currency", fs.Currency)
		v.SetDefault("fields."+name+".order_type", fs.OrderType)
		v.SetDefault("fields."+name+".time_in_force", fs.TimeInForce)
	}
}

// Load reads the configuration. A missing file is not an error: defaults and
// the environment still apply.
func Load(configPath string, logger *zap.Logger) (*Config, error) {
	logger = logger.Named("config")

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("gateway")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/pincex")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound), errors.Is(err, os.ErrNotExist):
			logger.Warn("Configuration file not found, using defaults", zap.String("path", configPath))
		default:
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}
	} else {
		logger.Info("Configuration loaded", zap.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for missing or inconsistent values
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.EventBus.Kind == EventBusKafka && c.Kafka.EventsTopic == "" {
		return errors.New("invalid configuration: kafka.events_topic is required for the kafka event bus")
	}
	return nil
}
