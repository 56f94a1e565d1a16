package config

import (
	"fmt"
	"time"
)

type APIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	LogoutCooldown time.Duration `mapstructure:"logout_cooldown"`
}

type BrokerConfig struct {
	URL            string        `mapstructure:"url"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	HandshakeWait  time.Duration `mapstructure:"handshake_wait"`
}

// SessionConfig selects where the session is persisted between runs.
// Store is one of "memory", "file" or "redis".
type SessionConfig struct {
	Store      string        `mapstructure:"store"`
	FilePath   string        `mapstructure:"file_path"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
	ExpirySkew time.Duration `mapstructure:"expiry_skew"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
	Debug      bool   `mapstructure:"debug"`
}

type RoutesConfig struct {
	File string `mapstructure:"file"`
}

type VietQRConfig struct {
	APIBaseURL string        `mapstructure:"api_base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type PaymentConfig struct {
	DefaultBank string       `mapstructure:"default_bank"`
	AccountNo   string       `mapstructure:"account_no"`
	AccountName string       `mapstructure:"account_name"`
	VietQR      VietQRConfig `mapstructure:"vietqr"`
}
