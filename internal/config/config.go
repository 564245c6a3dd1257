/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the ledger-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`

	RabbitMQURL           string `mapstructure:"RABBITMQ_URL"`
	CustomerEventExchange string `mapstructure:"CUSTOMER_EVENT_EXCHANGE"`
	CustomerEventQueue    string `mapstructure:"CUSTOMER_EVENT_QUEUE"`
	LedgerEventExchange   string `mapstructure:"LEDGER_EVENT_EXCHANGE"`

	CustomerServiceURL            string `mapstructure:"CUSTOMER_SERVICE_URL"`
	CustomerServiceInternalAPIKey string `mapstructure:"CUSTOMER_SERVICE_INTERNAL_API_KEY"`
	CustomerLookupTimeoutSeconds  int    `mapstructure:"CUSTOMER_LOOKUP_TIMEOUT_SECONDS"`

	InternalAPIKey string `mapstructure:"INTERNAL_API_KEY"`
	JWKSURL        string `mapstructure:"JWKS_URL"`

	RedisURL                   string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix       string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	MovementRateLimitPerMinute int    `mapstructure:"MOVEMENT_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("CUSTOMER_EVENT_EXCHANGE", "customer.events")
	viper.SetDefault("CUSTOMER_EVENT_QUEUE", "ledger_service.customer_updates")
	viper.SetDefault("LEDGER_EVENT_EXCHANGE", "ledger.events")
	viper.SetDefault("CUSTOMER_LOOKUP_TIMEOUT_SECONDS", 5)
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "ledger:rate_limit")
	viper.SetDefault("MOVEMENT_RATE_LIMIT_PER_MINUTE", 120)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("CUSTOMER_EVENT_EXCHANGE")
	_ = viper.BindEnv("CUSTOMER_EVENT_QUEUE")
	_ = viper.BindEnv("LEDGER_EVENT_EXCHANGE")
	_ = viper.BindEnv("CUSTOMER_SERVICE_URL")
	_ = viper.BindEnv("CUSTOMER_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("CUSTOMER_LOOKUP_TIMEOUT_SECONDS")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "LEDGER_SERVICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("JWKS_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "LEDGER_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("MOVEMENT_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	if strings.TrimSpace(config.InternalAPIKey) == "" {
		config.InternalAPIKey = strings.TrimSpace(os.Getenv("LEDGER_SERVICE_INTERNAL_API_KEY"))
	}
	config.CustomerServiceInternalAPIKey = strings.TrimSpace(config.CustomerServiceInternalAPIKey)
	if config.CustomerServiceInternalAPIKey == "" {
		config.CustomerServiceInternalAPIKey = config.InternalAPIKey
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "ledger:rate_limit"
	}

	if config.CustomerLookupTimeoutSeconds <= 0 {
		config.CustomerLookupTimeoutSeconds = 5
	}
	if config.MovementRateLimitPerMinute < 0 {
		log.Printf("level=warn component=config msg=\"negative movement rate limit configured; disabling limiter\" limit=%d", config.MovementRateLimitPerMinute)
		config.MovementRateLimitPerMinute = 0
	}

	return
}
