package models

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Address   string `mapstructure:"address"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "postgres" or "sqlite"
	DSN    string `mapstructure:"dsn"`
}

type KafkaConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	BrokerList       string `mapstructure:"broker_list"`
	Topic            string `mapstructure:"topic"`
	SessionTimeoutMs int    `mapstructure:"session_timeout_ms"`
}

type SMSConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	GatewayURL string `mapstructure:"gateway_url"`
	APIKey     string `mapstructure:"api_key"`
	Sender     string `mapstructure:"sender"`
}

type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type DispatcherConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	Workers      int           `mapstructure:"workers"`
}

type ArchiveConfig struct {
	Destination string `mapstructure:"destination"` // "local" or "s3"
	Path        string `mapstructure:"path"`
	BucketName  string `mapstructure:"bucket_name"`
	Region      string `mapstructure:"region"`
}

type PricingConfig struct {
	TaxRate               float64 `mapstructure:"tax_rate"`
	ServiceFeePercentage  float64 `mapstructure:"service_fee_percentage"`
	DiscountPercentage    float64 `mapstructure:"discount_percentage"`
	MinOrderForDiscount   float64 `mapstructure:"min_order_for_discount"`
	MaxDiscountAmount     float64 `mapstructure:"max_discount_amount"`
	BaseDeliveryFee       float64 `mapstructure:"base_delivery_fee"`
	FreeDeliveryThreshold float64 `mapstructure:"free_delivery_threshold"`
	SmallOrderThreshold   float64 `mapstructure:"small_order_threshold"`
	SmallOrderFee         float64 `mapstructure:"small_order_fee"`
}

type SimulationConfig struct {
	Seed             int64         `mapstructure:"seed"`
	Orders           int           `mapstructure:"orders"`
	Drivers          int           `mapstructure:"drivers"`
	Restaurants      int           `mapstructure:"restaurants"`
	CityLat          float64       `mapstructure:"city_latitude"`
	CityLon          float64       `mapstructure:"city_longitude"`
	UrbanRadius      float64       `mapstructure:"urban_radius"`
	PartnerMoveSpeed float64       `mapstructure:"partner_move_speed"` // km per step
	MinPrepTime      int           `mapstructure:"min_prep_time"`
	MaxPrepTime      int           `mapstructure:"max_prep_time"`
	CancelRate       float64       `mapstructure:"cancel_rate"`
	StepInterval     time.Duration `mapstructure:"step_interval"`
}

type Config struct {
	LogLevel   string           `mapstructure:"log_level"`
	LogFormat  string           `mapstructure:"log_format"` // "text" or "json"
	Server     ServerConfig     `mapstructure:"server"`
	Store      StoreConfig      `mapstructure:"store"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	SMS        SMSConfig        `mapstructure:"sms"`
	Email      EmailConfig      `mapstructure:"email"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Pricing    PricingConfig    `mapstructure:"pricing"`
	Simulation SimulationConfig `mapstructure:"simulation"`
}

// SetDefaults registers the defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "file:foodatrack.db?_txlock=immediate")
	v.SetDefault("kafka.broker_list", "localhost:9092")
	v.SetDefault("kafka.topic", "order_status_events")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("dispatcher.max_attempts", 3)
	v.SetDefault("dispatcher.retry_backoff", "5s")
	v.SetDefault("dispatcher.workers", 2)
	v.SetDefault("archive.destination", "local")
	v.SetDefault("archive.path", "archive")
	v.SetDefault("pricing.tax_rate", 0.08)
	v.SetDefault("pricing.service_fee_percentage", 0.05)
	v.SetDefault("pricing.discount_percentage", 0.1)
	v.SetDefault("pricing.min_order_for_discount", 300)
	v.SetDefault("pricing.max_discount_amount", 50)
	v.SetDefault("pricing.base_delivery_fee", 20)
	v.SetDefault("pricing.free_delivery_threshold", 250)
	v.SetDefault("pricing.small_order_threshold", 80)
	v.SetDefault("pricing.small_order_fee", 10)
	v.SetDefault("simulation.seed", 42)
	v.SetDefault("simulation.orders", 100)
	v.SetDefault("simulation.drivers", 20)
	v.SetDefault("simulation.restaurants", 10)
	v.SetDefault("simulation.city_latitude", 41.0082)
	v.SetDefault("simulation.city_longitude", 28.9784)
	v.SetDefault("simulation.urban_radius", 8.0)
	v.SetDefault("simulation.partner_move_speed", 0.5)
	v.SetDefault("simulation.min_prep_time", 10)
	v.SetDefault("simulation.max_prep_time", 35)
	v.SetDefault("simulation.cancel_rate", 0.05)
	v.SetDefault("simulation.step_interval", "0s")
}

// LoadConfig initializes and reads the configuration using Viper.
// A .env file in the working directory is loaded first when present.
// Environment variables use the FOODATRACK_ prefix, e.g. FOODATRACK_STORE_DSN.
func LoadConfig(v *viper.Viper, cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("config")
		v.SetConfigName("foodatrack")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("foodatrack")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	decoderConfigOption := viper.DecoderConfigOption(func(config *mapstructure.DecoderConfig) {
		config.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			config.DecodeHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		)
	})
	if err := v.Unmarshal(&config, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	if c.Store.DSN == "" {
		return errors.New("store.dsn is required")
	}
	if c.Dispatcher.MaxAttempts < 1 {
		return fmt.Errorf("dispatcher.max_attempts must be >= 1, got %d", c.Dispatcher.MaxAttempts)
	}
	if c.SMS.Enabled && c.SMS.GatewayURL == "" {
		return errors.New("sms.gateway_url is required when sms is enabled")
	}
	if c.Email.Enabled && c.Email.SMTPHost == "" {
		return errors.New("email.smtp_host is required when email is enabled")
	}
	return nil
}

// String masks secrets.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Server: %s, Store: %s, Kafka: %t, SMS: %t, Email: %t, JWT: ***}",
		c.Server.Address, c.Store.Driver, c.Kafka.Enabled, c.SMS.Enabled, c.Email.Enabled)
}
