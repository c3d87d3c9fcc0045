// Package config loads settings for the eislager binaries from an optional
// .env file, an optional YAML file and EISLAGER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/eislager/eislager-pro/sdk"
)

// EnvPrefix prefixes every environment variable, e.g. EISLAGER_GATEWAY_PORT.
const EnvPrefix = "EISLAGER"

// TokenStoreKind selects where session tokens are persisted.
type TokenStoreKind string

const (
	TokenStoreMemory TokenStoreKind = "memory"
	TokenStoreFile   TokenStoreKind = "file"
	TokenStoreRedis  TokenStoreKind = "redis"
)

// Config is the full configuration of the gateway and the CLI.
type Config struct {
	// Services maps a service name to its base URL.
	Services   map[string]string `mapstructure:"services" validate:"required,dive,keys,oneof=auth sales inventory admin communications analytics,endkeys,required,url"`
	Client     ClientConfig      `mapstructure:"client"`
	TokenStore TokenStoreConfig  `mapstructure:"token_store"`
	Redis      RedisConfig       `mapstructure:"redis"`
	Gateway    GatewayConfig     `mapstructure:"gateway"`
	Telemetry  TelemetryConfig   `mapstructure:"telemetry"`
}

// ClientConfig tunes the six SDK clients.
type ClientConfig struct {
	Timeout        time.Duration     `mapstructure:"timeout" validate:"gt=0"`
	MaxRetries     int               `mapstructure:"max_retries" validate:"min=0,max=10"`
	RetryInterval  time.Duration     `mapstructure:"retry_interval" validate:"gte=0"`
	Fallback       bool              `mapstructure:"fallback"`
	CircuitBreaker bool              `mapstructure:"circuit_breaker"`
	Headers        map[string]string `mapstructure:"headers"`
}

// TokenStoreConfig selects and configures the session token store.
type TokenStoreConfig struct {
	Kind    TokenStoreKind `mapstructure:"kind" validate:"oneof=memory file redis"`
	File    string         `mapstructure:"file" validate:"required_if=Kind file"`
	Session string         `mapstructure:"session"`
}

// RedisConfig is used when TokenStore.Kind is redis.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" validate:"hostname_port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"min=0,max=15"`
	TTL      time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// GatewayConfig configures the HTTP gateway.
type GatewayConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     []string      `mapstructure:"cors_origins" validate:"min=1"`
}

// TelemetryConfig configures logs, traces and metrics.
type TelemetryConfig struct {
	LogLevel     string  `mapstructure:"log_level" validate:"oneof=trace debug info warn warning error fatal panic"`
	ServiceName  string  `mapstructure:"service_name" validate:"required"`
	Environment  string  `mapstructure:"environment"`
	Tracing      bool    `mapstructure:"tracing"`
	Metrics      bool    `mapstructure:"metrics"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ExportToFile bool    `mapstructure:"export_to_file"`
	TracesFile   string  `mapstructure:"traces_file"`
	LogsFile     string  `mapstructure:"logs_file"`
	SamplingRate float64 `mapstructure:"sampling_rate" validate:"gte=0,lte=1"`
}

// LoadOptions points Load at optional files.
type LoadOptions struct {
	// ConfigFile is a YAML file. Empty means none.
	ConfigFile string
	// EnvFile is a dotenv file. Empty tries ".env" and ignores a missing one.
	EnvFile string
	// Defaults replaces built-in defaults, keyed like the YAML file
	// ("token_store.kind"). The file and the environment still win.
	Defaults map[string]interface{}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func setDefaults(v *viper.Viper) {
	defaults := sdk.DefaultServicesConfig()
	for name, url := range defaults.BaseURLs {
		v.SetDefault("services."+name, url)
	}

	tmpl := defaults.Template
	v.SetDefault("client.timeout", tmpl.Timeout)
	v.SetDefault("client.max_retries", tmpl.RetryConfig.MaxRetries)
	v.SetDefault("client.retry_interval", tmpl.RetryConfig.Interval)
	v.SetDefault("client.fallback", true)
	v.SetDefault("client.circuit_breaker", false)

	v.SetDefault("token_store.kind", string(TokenStoreMemory))
	v.SetDefault("token_store.file", defaultTokenFile())
	v.SetDefault("token_store.session", "default")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 30*24*time.Hour)

	v.SetDefault("gateway.host", "0.0.0.0")
	v.SetDefault("gateway.port", 8080)
	v.SetDefault("gateway.read_timeout", 30*time.Second)
	v.SetDefault("gateway.write_timeout", 30*time.Second)
	v.SetDefault("gateway.shutdown_timeout", 15*time.Second)
	v.SetDefault("gateway.cors_origins", []string{"*"})

	v.SetDefault("telemetry.log_level", "info")
	v.SetDefault("telemetry.service_name", "eislager-gateway")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.tracing", false)
	v.SetDefault("telemetry.metrics", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.export_to_file", false)
	v.SetDefault("telemetry.traces_file", "/tmp/otel/traces.json")
	v.SetDefault("telemetry.logs_file", "/tmp/otel/logs.json")
	v.SetDefault("telemetry.sampling_rate", 1.0)
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".eislager-session.json"
	}
	return filepath.Join(dir, "eislager", "session.json")
}

// tokenStoreKindHook normalizes case and rejects unknown kinds while decoding.
func tokenStoreKindHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(TokenStoreKind("")) {
			return data, nil
		}
		kind := TokenStoreKind(strings.ToLower(strings.TrimSpace(data.(string))))
		switch kind {
		case TokenStoreMemory, TokenStoreFile, TokenStoreRedis:
			return kind, nil
		}
		return nil, fmt.Errorf("invalid token store kind %q", data)
	}
}

// Load reads the configuration. Precedence, highest first: environment,
// config file, defaults. Variables from the dotenv file never override the
// real environment.
func Load(opts LoadOptions) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", opts.EnvFile, err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	for key, value := range opts.Defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigFile, err)
		}
	}

	var cfg Config
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		tokenStoreKindHook(),
	)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Per-service URLs only reach the map through their explicit keys.
	if cfg.Services == nil {
		cfg.Services = make(map[string]string, len(sdk.AllServices))
	}
	for _, name := range sdk.AllServices {
		cfg.Services[name] = v.GetString("services." + name)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
