package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Model    ModelConfig    `yaml:"model" envconfig:"MODEL"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	TrainingTimeout time.Duration `yaml:"training_timeout" envconfig:"TRAINING_TIMEOUT" default:"30m"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"http://localhost:8080"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format      string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output      string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT" default:"false"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	BaseDir      string `yaml:"base_dir" envconfig:"BASE_DIR"`
	DataDir      string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	ReportsDir   string `yaml:"reports_dir" envconfig:"REPORTS_DIR" default:"reports"`
	LogsDir      string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
	WebDir       string `yaml:"web_dir" envconfig:"WEB_DIR" default:"web"`
	TrainCSV     string `yaml:"train_csv" envconfig:"TRAIN_CSV" default:"raw/train.csv"`
	InheritedCSV string `yaml:"inherited_csv" envconfig:"INHERITED_CSV" default:"raw/inherited_houses.csv"`
}

// ModelConfig contains training hyperparameters for the price model
type ModelConfig struct {
	TargetColumn string  `yaml:"target_column" envconfig:"TARGET_COLUMN" default:"SalePrice"`
	LearningRate float64 `yaml:"learning_rate" envconfig:"LEARNING_RATE" default:"0.01"`
	Epochs       int     `yaml:"epochs" envconfig:"EPOCHS" default:"200"`
	BatchSize    int     `yaml:"batch_size" envconfig:"BATCH_SIZE" default:"64"`
	TestFraction float64 `yaml:"test_fraction" envconfig:"TEST_FRACTION" default:"0.2"`
	SplitSeed    int64   `yaml:"split_seed" envconfig:"SPLIT_SEED" default:"42"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Environment variables take precedence over the file
	if err := envconfig.Process("HOUSELYTICS", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := getConfigFilePath()
	if _, err := os.Stat(configFile); err == nil {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// getConfigFilePath returns the config file location, overridable via env
func getConfigFilePath() string {
	if path := os.Getenv("HOUSELYTICS_CONFIG_FILE"); path != "" {
		return path
	}
	return "houselytics.yaml"
}

// mergeConfigs merges file config with env config (env takes precedence)
func mergeConfigs(fileConfig, envConfig Config) Config {
	if envConfig.Server.Port == 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if envConfig.Server.ReadTimeout == 0 {
		envConfig.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if envConfig.Server.WriteTimeout == 0 {
		envConfig.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if envConfig.Server.IdleTimeout == 0 {
		envConfig.Server.IdleTimeout = fileConfig.Server.IdleTimeout
	}
	if envConfig.Server.ShutdownTimeout == 0 {
		envConfig.Server.ShutdownTimeout = fileConfig.Server.ShutdownTimeout
	}
	if envConfig.Server.TrainingTimeout == 0 {
		envConfig.Server.TrainingTimeout = fileConfig.Server.TrainingTimeout
	}
	if envConfig.Logging.Level == "" {
		envConfig.Logging.Level = fileConfig.Logging.Level
	}
	if envConfig.Logging.Format == "" {
		envConfig.Logging.Format = fileConfig.Logging.Format
	}
	if envConfig.Logging.Output == "" {
		envConfig.Logging.Output = fileConfig.Logging.Output
	}
	if envConfig.Logging.FilePath == "" {
		envConfig.Logging.FilePath = fileConfig.Logging.FilePath
	}
	if envConfig.Paths.BaseDir == "" {
		envConfig.Paths.BaseDir = fileConfig.Paths.BaseDir
	}
	if envConfig.Paths.DataDir == "" {
		envConfig.Paths.DataDir = fileConfig.Paths.DataDir
	}
	if envConfig.Paths.ReportsDir == "" {
		envConfig.Paths.ReportsDir = fileConfig.Paths.ReportsDir
	}
	if envConfig.Paths.TrainCSV == "" {
		envConfig.Paths.TrainCSV = fileConfig.Paths.TrainCSV
	}
	if envConfig.Paths.InheritedCSV == "" {
		envConfig.Paths.InheritedCSV = fileConfig.Paths.InheritedCSV
	}
	if envConfig.Model.TargetColumn == "" {
		envConfig.Model.TargetColumn = fileConfig.Model.TargetColumn
	}
	if envConfig.Model.LearningRate == 0 {
		envConfig.Model.LearningRate = fileConfig.Model.LearningRate
	}
	if envConfig.Model.Epochs == 0 {
		envConfig.Model.Epochs = fileConfig.Model.Epochs
	}
	if envConfig.Model.BatchSize == 0 {
		envConfig.Model.BatchSize = fileConfig.Model.BatchSize
	}
	if envConfig.Model.TestFraction == 0 {
		envConfig.Model.TestFraction = fileConfig.Model.TestFraction
	}

	return envConfig
}

// validate checks configuration values for correctness
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Model.TestFraction <= 0 || c.Model.TestFraction >= 1 {
		return fmt.Errorf("test fraction must be in (0, 1), got %f", c.Model.TestFraction)
	}
	if c.Model.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, got %f", c.Model.LearningRate)
	}
	if c.Model.Epochs < 1 {
		return fmt.Errorf("epochs must be at least 1, got %d", c.Model.Epochs)
	}
	if c.Model.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1, got %d", c.Model.BatchSize)
	}

	if c.Security.RateLimit.Enabled {
		if c.Security.RateLimit.RPS <= 0 {
			return fmt.Errorf("rate limit RPS must be positive, got %f", c.Security.RateLimit.RPS)
		}
		if c.Security.RateLimit.Burst < 1 {
			return fmt.Errorf("rate limit burst must be at least 1, got %d", c.Security.RateLimit.Burst)
		}
	}

	return nil
}
