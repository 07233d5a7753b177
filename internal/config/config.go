/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * The administrator identity is deliberately configuration, never a constant:
 * AdminUserID must be injected at startup for the admin top-up path to work.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the credit-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                   string `mapstructure:"SERVER_PORT"`
	DatabaseURL                  string `mapstructure:"DATABASE_URL"`
	RabbitMQURL                  string `mapstructure:"RABBITMQ_URL"`
	RedisURL                     string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix         string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	InternalAPIKey               string `mapstructure:"INTERNAL_API_KEY"`
	AdminUserID                  string `mapstructure:"ADMIN_USER_ID"`
	StartingCredits              int64  `mapstructure:"STARTING_CREDITS"`
	EvaluationCostCredits        int64  `mapstructure:"EVALUATION_COST_CREDITS"`
	EvaluationRateLimitPerMinute int    `mapstructure:"EVALUATION_RATE_LIMIT_PER_MINUTE"`
	EvaluatorAPIBaseURL          string `mapstructure:"EVALUATOR_API_BASE_URL"`
	EvaluatorAPIKey              string `mapstructure:"EVALUATOR_API_KEY"`
	EvaluatorTextModel           string `mapstructure:"EVALUATOR_TEXT_MODEL"`
	EvaluatorVisionModel         string `mapstructure:"EVALUATOR_VISION_MODEL"`
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
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "upscmentor:rate_limit")
	viper.SetDefault("STARTING_CREDITS", 3)
	viper.SetDefault("EVALUATION_COST_CREDITS", 1)
	viper.SetDefault("EVALUATION_RATE_LIMIT_PER_MINUTE", 6)
	viper.SetDefault("EVALUATOR_API_BASE_URL", "https://api.groq.com/openai/v1")
	viper.SetDefault("EVALUATOR_TEXT_MODEL", "llama-3.1-8b-instant")
	viper.SetDefault("EVALUATOR_VISION_MODEL", "llama-3.2-90b-vision-preview")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("INTERNAL_API_KEY")
	_ = viper.BindEnv("ADMIN_USER_ID", "ADMIN_USER_ID", "ADMIN_TELEGRAM_ID")
	_ = viper.BindEnv("STARTING_CREDITS")
	_ = viper.BindEnv("EVALUATION_COST_CREDITS")
	_ = viper.BindEnv("EVALUATION_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("EVALUATOR_API_BASE_URL")
	_ = viper.BindEnv("EVALUATOR_API_KEY", "EVALUATOR_API_KEY", "GROQ_API_KEY")
	_ = viper.BindEnv("EVALUATOR_TEXT_MODEL")
	_ = viper.BindEnv("EVALUATOR_VISION_MODEL")

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
	config.DatabaseURL = strings.TrimSpace(config.DatabaseURL)
	config.InternalAPIKey = strings.TrimSpace(config.InternalAPIKey)
	config.AdminUserID = strings.TrimSpace(config.AdminUserID)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "upscmentor:rate_limit"
	}

	if config.DatabaseURL == "" {
		return config, fmt.Errorf("DATABASE_URL must be configured")
	}
	if config.AdminUserID == "" {
		return config, fmt.Errorf("ADMIN_USER_ID must be configured for admin top-ups")
	}

	if config.StartingCredits < 0 {
		log.Printf("level=warn component=config msg=\"negative starting credits configured; coercing to zero\" starting_credits=%d", config.StartingCredits)
		config.StartingCredits = 0
	}
	if config.EvaluationCostCredits < 1 {
		log.Printf("level=warn component=config msg=\"evaluation cost below one credit; coercing to one\" cost=%d", config.EvaluationCostCredits)
		config.EvaluationCostCredits = 1
	}
	if config.EvaluationRateLimitPerMinute < 0 {
		config.EvaluationRateLimitPerMinute = 0
	}

	return
}
