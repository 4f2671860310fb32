package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/code-payments/billing-bridge/billing"
)

var ErrMissingCredentials = errors.New("missing billing credentials")

// Config holds the settings shared by the billing CLI and the channel server.
// Values come from the process environment, falling back to optional .env
// files and then to defaults.
type Config struct {
	Site            string `mapstructure:"BILLING_SITE"`
	APIKey          string `mapstructure:"BILLING_API_KEY"`
	IOSSDKKey       string `mapstructure:"BILLING_IOS_SDK_KEY"`
	AndroidSDKKey   string `mapstructure:"BILLING_ANDROID_SDK_KEY"`
	Platform        string `mapstructure:"BILLING_PLATFORM"`
	ChannelAddr     string `mapstructure:"BILLING_CHANNEL_ADDR"`
	ListenAddr      string `mapstructure:"BILLING_LISTEN_ADDR"`
	MetricsAddr     string `mapstructure:"BILLING_METRICS_ADDR"`
	StrictPurchases bool   `mapstructure:"BILLING_STRICT_PURCHASES"`
	LogLevel        string `mapstructure:"BILLING_LOG_LEVEL"`
}

var defaults = map[string]any{
	"BILLING_SITE":             "",
	"BILLING_API_KEY":          "",
	"BILLING_IOS_SDK_KEY":      "",
	"BILLING_ANDROID_SDK_KEY":  "",
	"BILLING_PLATFORM":         "ios",
	"BILLING_CHANNEL_ADDR":     "localhost:8085",
	"BILLING_LISTEN_ADDR":      ":8085",
	"BILLING_METRICS_ADDR":     "",
	"BILLING_STRICT_PURCHASES": false,
	"BILLING_LOG_LEVEL":        "info",
}

// Load reads the configuration. Missing env files are skipped; when several
// are given, later files override earlier ones.
func Load(envFiles ...string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	for _, file := range envFiles {
		values, err := godotenv.Read(file)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		} else if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}

		settings := make(map[string]any, len(values))
		for k, val := range values {
			settings[k] = val
		}
		if err := v.MergeConfigMap(settings); err != nil {
			return nil, fmt.Errorf("failed to merge %s: %w", file, err)
		}
	}

	v.AutomaticEnv()
	for key := range defaults {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Credentials() billing.Credentials {
	return billing.Credentials{
		Site:              c.Site,
		PublishableAPIKey: c.APIKey,
		IOSSDKKey:         c.IOSSDKKey,
		AndroidSDKKey:     c.AndroidSDKKey,
	}
}

// RequireCredentials reports which credentials needed by platform are unset.
func (c *Config) RequireCredentials(platform billing.Platform) error {
	var missing []string
	if c.Site == "" {
		missing = append(missing, "BILLING_SITE")
	}
	if c.APIKey == "" {
		missing = append(missing, "BILLING_API_KEY")
	}
	switch platform {
	case billing.PlatformIOS:
		if c.IOSSDKKey == "" {
			missing = append(missing, "BILLING_IOS_SDK_KEY")
		}
	case billing.PlatformAndroid:
		if c.AndroidSDKKey == "" {
			missing = append(missing, "BILLING_ANDROID_SDK_KEY")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) ParsedPlatform() (billing.Platform, error) {
	return billing.ParsePlatform(c.Platform)
}

func (c *Config) ClientOptions() []billing.Option {
	var opts []billing.Option
	if c.StrictPurchases {
		opts = append(opts, billing.WithStrictPurchases())
	}
	return opts
}

// NewLogger builds a production zap logger at the configured level.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	zc.Level = level
	return zc.Build()
}
