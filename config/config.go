// Package config loads the service configuration: a YAML file for the
// infrastructure and application settings, plus environment variables
// (optionally from a .env file) for provider credentials.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	SPTMS    SPTMSConfig    `yaml:"sptms"`

	Providers ProvidersConfig `yaml:"-"`
}

type DatabaseConfig struct {
	// "pg" or "mongo".
	Type string `yaml:"type"`

	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`

	MongoURI string `yaml:"mongo_uri"`
}

func (d DatabaseConfig) PostgresDSN() string {
	ssl := d.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.DBName, ssl)
}

type KafkaConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func (k KafkaConfig) Addr() string {
	return fmt.Sprintf("%s:%d", k.Host, k.Port)
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type SPTMSConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	BillingCompanyName  string  `yaml:"billing_company_name"`
	QuickPayFeePercent  float64 `yaml:"quick_pay_fee_percent"`
	RateCacheTTLSeconds int     `yaml:"rate_cache_ttl_seconds"`

	PostingContactName  string `yaml:"posting_contact_name"`
	PostingContactPhone string `yaml:"posting_contact_phone"`
	PostingContactEmail string `yaml:"posting_contact_email"`

	WorkerHTTPAddr            string `yaml:"worker_http_addr"`
	WorkerPollIntervalSeconds int    `yaml:"worker_poll_interval_seconds"`
	WorkerStaleAfterSeconds   int    `yaml:"worker_stale_after_seconds"`
	WorkerBatchSize           int    `yaml:"worker_batch_size"`
	WorkerConcurrency         int    `yaml:"worker_concurrency"`
	WorkerRateLimitPerMinute  int    `yaml:"worker_rate_limit_per_minute"`
}

// ProvidersConfig carries external-provider credentials. These come
// from the environment, never from the YAML file.
type ProvidersConfig struct {
	DAT        DATConfig
	MacroPoint MacroPointConfig
	EPay       EPayConfig
	QuickBooks QuickBooksConfig
}

type DATConfig struct {
	APIURL       string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

type MacroPointConfig struct {
	BaseURL     string
	APIID       string
	APIPassword string
	WebhookURL  string
}

type EPayConfig struct {
	APIURL    string
	MemberID  string
	APIKey    string
	APISecret string
}

type QuickBooksConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Environment  string
	RealmID      string
	RefreshToken string
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	config.Providers = loadProviders()
	return &config, nil
}

// loadProviders reads credentials from the environment. A .env file in
// the working directory is merged in first; missing files are fine.
func loadProviders() ProvidersConfig {
	_ = godotenv.Load()

	return ProvidersConfig{
		DAT: DATConfig{
			APIURL:       envOr("DAT_API_URL", "https://api.dat.com"),
			ClientID:     os.Getenv("DAT_CLIENT_ID"),
			ClientSecret: os.Getenv("DAT_CLIENT_SECRET"),
			Username:     os.Getenv("DAT_USERNAME"),
			Password:     os.Getenv("DAT_PASSWORD"),
		},
		MacroPoint: MacroPointConfig{
			BaseURL:     envOr("MACROPOINT_BASE_URL", "https://api.macropoint.com"),
			APIID:       os.Getenv("MACROPOINT_API_ID"),
			APIPassword: os.Getenv("MACROPOINT_API_PASSWORD"),
			WebhookURL:  os.Getenv("MACROPOINT_WEBHOOK_URL"),
		},
		EPay: EPayConfig{
			APIURL:    envOr("EPAY_API_URL", "https://api.epaymanager.com"),
			MemberID:  os.Getenv("EPAY_MEMBER_ID"),
			APIKey:    os.Getenv("EPAY_API_KEY"),
			APISecret: os.Getenv("EPAY_API_SECRET"),
		},
		QuickBooks: QuickBooksConfig{
			ClientID:     os.Getenv("QUICKBOOKS_CLIENT_ID"),
			ClientSecret: os.Getenv("QUICKBOOKS_CLIENT_SECRET"),
			RedirectURI:  os.Getenv("QUICKBOOKS_REDIRECT_URI"),
			Environment:  envOr("QUICKBOOKS_ENVIRONMENT", "sandbox"),
			RealmID:      os.Getenv("QUICKBOOKS_REALM_ID"),
			RefreshToken: os.Getenv("QUICKBOOKS_REFRESH_TOKEN"),
		},
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
