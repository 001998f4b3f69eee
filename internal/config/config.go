package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port      int    `envconfig:"PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	APIToken  string `envconfig:"API_TOKEN"`
	CORSHosts string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	// CDEK
	CDEKBaseURL      string  `envconfig:"CDEK_BASE_URL" default:"https://api.cdek.ru/v2"`
	CDEKClientID     string  `envconfig:"CDEK_CLIENT_ID"`
	CDEKClientSecret string  `envconfig:"CDEK_CLIENT_SECRET"`
	CDEKEnabled      bool    `envconfig:"CDEK_ENABLED" default:"true"`
	CDEKUseMock      bool    `envconfig:"CDEK_USE_MOCK" default:"false"`
	CDEKTariffCode   int     `envconfig:"CDEK_TARIFF_CODE" default:"136"`
	CDEKOrderType    int     `envconfig:"CDEK_ORDER_TYPE" default:"2"`
	CDEKAllowCOD     bool    `envconfig:"CDEK_ALLOW_COD" default:"false"`
	CDEKFreeShipFrom float64 `envconfig:"CDEK_FREE_SHIPPING_THRESHOLD" default:"0"`
	CDEKExtraDays    int     `envconfig:"CDEK_EXTRA_DAYS" default:"0"`
	CDEKShipPoint    string  `envconfig:"CDEK_SHIPMENT_POINT"`

	// Default parcel used when order lines carry no dimensions
	DefaultLengthCM int     `envconfig:"DEFAULT_LENGTH_CM" default:"30"`
	DefaultWidthCM  int     `envconfig:"DEFAULT_WIDTH_CM" default:"20"`
	DefaultHeightCM int     `envconfig:"DEFAULT_HEIGHT_CM" default:"10"`
	DefaultWeightKG float64 `envconfig:"DEFAULT_WEIGHT_KG" default:"0.5"`

	// Pickup-point sync
	SyncCountries []string      `envconfig:"SYNC_COUNTRY_CODES" default:"RU"`
	SyncCityCode  int           `envconfig:"SYNC_CITY_CODE" default:"0"`
	SyncInterval  time.Duration `envconfig:"SYNC_INTERVAL" default:"12h"`

	// Shipment status sync
	StatusSyncInterval time.Duration `envconfig:"STATUS_SYNC_INTERVAL" default:"30m"`

	// Postgres
	PostgresHost     string        `envconfig:"POSTGRES_HOST" default:"localhost"`
	PostgresPort     int           `envconfig:"POSTGRES_PORT" default:"5432"`
	PostgresUser     string        `envconfig:"POSTGRES_USER" default:"postgres"`
	PostgresPassword string        `envconfig:"POSTGRES_PASSWORD"`
	PostgresDB       string        `envconfig:"POSTGRES_DB" default:"cdek_bridge"`
	PostgresSSLMode  string        `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	PostgresMaxOpen  int           `envconfig:"POSTGRES_MAX_OPEN_CONNS" default:"25"`
	PostgresMaxIdle  int           `envconfig:"POSTGRES_MAX_IDLE_CONNS" default:"25"`
	PostgresLifetime time.Duration `envconfig:"POSTGRES_CONN_MAX_LIFETIME" default:"5m"`

	// Kafka
	KafkaEnabled bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"shipment-status"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"cdek-bridge"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// PostgresDSN assembles the lib/pq connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser,
		c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.version", c.Version),
		attribute.Bool("cdek.enabled", c.CDEKEnabled),
		attribute.Bool("kafka.enabled", c.KafkaEnabled),
	}
}
