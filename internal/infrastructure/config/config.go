package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	sharedConfig "github.com/shoozy-shop/storefront/internal/shared/config"
)

type Config struct {
	API     sharedConfig.APIConfig     `mapstructure:"api"`
	Broker  sharedConfig.BrokerConfig  `mapstructure:"broker"`
	Session sharedConfig.SessionConfig `mapstructure:"session"`
	Redis   sharedConfig.RedisConfig   `mapstructure:"redis"`
	Logger  sharedConfig.LoggerConfig  `mapstructure:"logger"`
	Routes  sharedConfig.RoutesConfig  `mapstructure:"routes"`
	Payment sharedConfig.PaymentConfig `mapstructure:"payment"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load reads configs/config.yaml (or the explicit file when path is set),
// overlays STOREFRONT_* environment variables and applies defaults.
// A missing config file is not an error; defaults and env are enough to run.
func Load(path, env string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if env == "production" {
		v.Set("logger.debug", false)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	appConfigMu.Lock()
	appConfig = &cfg
	appConfigMu.Unlock()

	return &cfg, nil
}

// Get returns the last loaded configuration.
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "http://localhost:8080/api/v1")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.logout_cooldown", time.Second)

	v.SetDefault("broker.url", "ws://localhost:8080/ws/websocket")
	v.SetDefault("broker.reconnect_delay", 5*time.Second)
	v.SetDefault("broker.handshake_wait", 10*time.Second)

	v.SetDefault("session.store", "file")
	v.SetDefault("session.file_path", ".storefront/session.json")
	v.SetDefault("session.key_prefix", "storefront:session:")
	v.SetDefault("session.expiry_skew", 5*time.Second)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stderr")
	v.SetDefault("logger.debug", false)

	v.SetDefault("routes.file", "")

	v.SetDefault("payment.default_bank", "mbbank")
	v.SetDefault("payment.account_no", "")
	v.SetDefault("payment.account_name", "")
	v.SetDefault("payment.vietqr.api_base_url", "https://api.vietqr.io/v1")
	v.SetDefault("payment.vietqr.api_key", "")
	v.SetDefault("payment.vietqr.timeout", 10*time.Second)
}
