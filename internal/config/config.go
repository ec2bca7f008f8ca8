package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/insightloop/dataqual/pkg/constants"
)

// Config is the full server configuration
type Config struct {
	Server      ServerConfig   `mapstructure:"server"`
	Log         LogConfig      `mapstructure:"log"`
	Auth        AuthConfig     `mapstructure:"auth"`
	Storage     StorageConfig  `mapstructure:"storage"`
	Profiler    ProfilerConfig `mapstructure:"profiler"`
	Insight     InsightConfig  `mapstructure:"insight"`
	Upload      UploadConfig   `mapstructure:"upload"`
	Environment string         `mapstructure:"environment"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	MetricsPort     int           `mapstructure:"metrics_port"`
	EnableMetrics   bool          `mapstructure:"enable_metrics"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig contains authentication settings
type AuthConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	JWTSecret     string        `mapstructure:"jwt_secret"`
	JWTExpiration time.Duration `mapstructure:"jwt_expiration"`
}

// StorageConfig selects and configures the persistence backends.
// Backend "memory" keeps everything in process; "aws" uses DynamoDB for
// metadata and S3 for blobs.
type StorageConfig struct {
	Backend string      `mapstructure:"backend"`
	AWS     AWSConfig   `mapstructure:"aws"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// AWSConfig contains shared AWS settings for DynamoDB and S3
type AWSConfig struct {
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	DatasetTable    string `mapstructure:"dataset_table"`
	AnalysisTable   string `mapstructure:"analysis_table"`
}

// RedisConfig contains the optional analysis record cache settings
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ProfilerConfig selects the profiling implementation. Mode "local" runs
// in process; "http" calls the external profiling service.
type ProfilerConfig struct {
	Mode    string        `mapstructure:"mode"`
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// InsightConfig contains AI insight generation settings. Disabled means
// every analysis gets the deterministic fallback insight.
type InsightConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Region      string        `mapstructure:"region"`
	ModelID     string        `mapstructure:"model_id"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// UploadConfig contains dataset upload settings
type UploadConfig struct {
	MaxBytes  int64         `mapstructure:"max_bytes"`
	ReportTTL time.Duration `mapstructure:"report_ttl"`
}

// Load reads configuration from the given file (optional) with env
// overrides under the DATAQUAL prefix
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/dataqual")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("DATAQUAL")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory":
	case "aws":
		if c.Storage.AWS.Bucket == "" {
			return fmt.Errorf("storage.aws.bucket is required for the aws backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Profiler.Mode {
	case "local":
	case "http":
		if c.Profiler.BaseURL == "" {
			return fmt.Errorf("profiler.base_url is required for http mode")
		}
	default:
		return fmt.Errorf("unknown profiler mode %q", c.Profiler.Mode)
	}

	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth is enabled")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.host", constants.DefaultHost)
	v.SetDefault("server.port", constants.DefaultPort)
	v.SetDefault("server.metrics_port", constants.DefaultMetricsPort)
	v.SetDefault("server.enable_metrics", true)
	v.SetDefault("server.read_timeout", constants.DefaultReadTimeout)
	v.SetDefault("server.write_timeout", constants.DefaultWriteTimeout)
	v.SetDefault("server.idle_timeout", constants.DefaultIdleTimeout)
	v.SetDefault("server.shutdown_timeout", constants.DefaultShutdownTimeout)

	v.SetDefault("log.level", constants.DefaultLogLevel)
	v.SetDefault("log.format", constants.DefaultLogFormat)

	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwt_expiration", constants.DefaultTokenExpiration)

	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.aws.region", "us-east-1")
	v.SetDefault("storage.aws.dataset_table", constants.DefaultDatasetTable)
	v.SetDefault("storage.aws.analysis_table", constants.DefaultAnalysisTable)
	v.SetDefault("storage.redis.enabled", false)
	v.SetDefault("storage.redis.address", "localhost:6379")
	v.SetDefault("storage.redis.ttl", constants.DefaultCacheTTL)

	v.SetDefault("profiler.mode", "local")
	v.SetDefault("profiler.timeout", constants.DefaultProfilerTimeout)

	v.SetDefault("insight.enabled", false)
	v.SetDefault("insight.region", "us-east-1")
	v.SetDefault("insight.model_id", constants.DefaultInsightModelID)
	v.SetDefault("insight.max_tokens", constants.DefaultInsightMaxTokens)
	v.SetDefault("insight.temperature", constants.DefaultInsightTemperature)
	v.SetDefault("insight.timeout", constants.DefaultInsightTimeout)

	v.SetDefault("upload.max_bytes", constants.DefaultMaxUploadBytes)
	v.SetDefault("upload.report_ttl", constants.DefaultCacheTTL)
}
