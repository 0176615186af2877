package config

import (
	"errors"
	"log/slog"
	"net"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug    = "debug"
	LogLevelInfo     = "info"
	LogLevelWarn     = "warn"
	LogLevelWarning  = "warning"
	LogLevelError    = "error"
	LogLevelCritical = "critical"
)

var imageMIME = regexp.MustCompile(`^image/[a-z0-9.+-]+$`)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type RotationConfig struct {
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
	MaxBackups   int   `mapstructure:"max_backups"`
}

type LoggingConfig struct {
	Name         string         `mapstructure:"name"`
	Dir          string         `mapstructure:"dir"`
	ConsoleLevel string         `mapstructure:"console_level"`
	General      RotationConfig `mapstructure:"general"`
	Errors       RotationConfig `mapstructure:"errors"`
}

type PredictConfig struct {
	Label          string   `mapstructure:"label"`
	MaxUploadBytes int64    `mapstructure:"max_upload_bytes"`
	AllowedTypes   []string `mapstructure:"allowed_types"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type MetricsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
}

type HealthConfig struct {
	Service        string `mapstructure:"service"`
	SampleInterval string `mapstructure:"sample_interval"`
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Predict PredictConfig `mapstructure:"predict"`
	CORS    CORSConfig    `mapstructure:"cors"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Health  HealthConfig  `mapstructure:"health"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.environment", EnvDev)
	v.SetDefault("server.address", ":5000")

	v.SetDefault("logging.name", "flavorsnap")
	v.SetDefault("logging.dir", "logs")
	v.SetDefault("logging.console_level", LogLevelInfo)
	v.SetDefault("logging.general.max_size_bytes", 10*1024*1024)
	v.SetDefault("logging.general.max_backups", 5)
	v.SetDefault("logging.errors.max_size_bytes", 5*1024*1024)
	v.SetDefault("logging.errors.max_backups", 3)

	v.SetDefault("predict.label", "Moi Moi")
	v.SetDefault("predict.max_upload_bytes", 10*1024*1024)
	v.SetDefault("predict.allowed_types", []string{"image/jpeg", "image/png", "image/gif", "image/webp", "image/bmp"})

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("metrics.buffer_size", 1000)

	v.SetDefault("health.service", "flavorsnap-ml-api")
	v.SetDefault("health.sample_interval", "15s")
}

// Load reads config.yaml from ./config or the working directory, applies
// environment overrides (logging.dir -> LOGGING_DIR) and validates the result.
// A missing file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

// SampleInterval returns the parsed health sampling interval. Validate has
// already rejected unparsable values.
func (c *Config) SampleInterval() time.Duration {
	d, _ := time.ParseDuration(c.Health.SampleInterval)
	return d
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Name,
						validation.Required,
						validation.By(validateFileName),
					),
					validation.Field(&lc.Dir, validation.Required),
					validation.Field(&lc.ConsoleLevel,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelWarning, LogLevelError, LogLevelCritical),
					),
					validation.Field(&lc.General, validation.By(validateRotation)),
					validation.Field(&lc.Errors, validation.By(validateRotation)),
				)
			}),
		),
		validation.Field(&c.Predict,
			validation.Required,
			validation.By(func(value interface{}) error {
				pc, ok := value.(PredictConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a PredictConfig")
				}
				return validation.ValidateStruct(&pc,
					validation.Field(&pc.Label, validation.Required),
					validation.Field(&pc.MaxUploadBytes, validation.Required, validation.Min(int64(1))),
					validation.Field(&pc.AllowedTypes,
						validation.Required,
						validation.Each(validation.Match(imageMIME)),
					),
				)
			}),
		),
		validation.Field(&c.CORS,
			validation.By(func(value interface{}) error {
				cc, ok := value.(CORSConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a CORSConfig")
				}
				return validation.ValidateStruct(&cc,
					validation.Field(&cc.AllowedOrigins, validation.Each(validation.By(validateOrigin))),
				)
			}),
		),
		validation.Field(&c.Metrics,
			validation.By(func(value interface{}) error {
				mc, ok := value.(MetricsConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a MetricsConfig")
				}
				return validation.ValidateStruct(&mc,
					validation.Field(&mc.BufferSize, validation.Required, validation.Min(1)),
				)
			}),
		),
		validation.Field(&c.Health,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Service, validation.Required),
					validation.Field(&hc.SampleInterval,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	d, err := time.ParseDuration(durationStr)
	if err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	if d <= 0 {
		return validation.NewError("validation_invalid_duration", "must be positive")
	}

	return nil
}

func validateFileName(value interface{}) error {
	name, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return validation.NewError("validation_invalid_name", "must be a plain file name")
	}

	return nil
}

func validateRotation(value interface{}) error {
	rc, ok := value.(RotationConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a RotationConfig")
	}

	return validation.ValidateStruct(&rc,
		validation.Field(&rc.MaxSizeBytes, validation.Required, validation.Min(int64(1))),
		validation.Field(&rc.MaxBackups, validation.Min(0)),
	)
}

func validateOrigin(value interface{}) error {
	origin, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if origin == "*" {
		return nil
	}

	if err := is.URL.Validate(origin); err != nil {
		return validation.NewError("validation_invalid_origin", "must be * or an origin URL")
	}

	return nil
}
