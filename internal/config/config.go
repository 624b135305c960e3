package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DEFAULT_CONFIG_PATH = "app_config.json"
	ENV_PREFIX          = "AVALON"

	DRIVER_MEMORY   = "memory"
	DRIVER_SQLITE   = "sqlite"
	DRIVER_POSTGRES = "postgres"
)

type AppConfig struct {
	Host      string          `mapstructure:"host"`
	Port      int             `mapstructure:"port"`
	LogLevel  string          `mapstructure:"log_level"`
	LogFormat string          `mapstructure:"log_format"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Game      GameConfig      `mapstructure:"game"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type StorageConfig struct {
	// memory | sqlite | postgres
	Driver string `mapstructure:"driver"`
	// sqlite 为文件路径，postgres 为连接串
	DSN string `mapstructure:"dsn"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type RateLimitConfig struct {
	PerSecond float64 `mapstructure:"per_second"`
	Burst     int     `mapstructure:"burst"`
	// 超过该时长没有请求的身份会被清出限流表与昵称表
	IdleTTL time.Duration `mapstructure:"idle_ttl"`
}

type GameConfig struct {
	PendingProposalTTL time.Duration `mapstructure:"pending_proposal_ttl"`
	SweepInterval      time.Duration `mapstructure:"sweep_interval"`
	// 已结束或已中止的对局保留多久，0 表示永久保留
	FinishedSessionTTL time.Duration `mapstructure:"finished_session_ttl"`
}

type TelemetryConfig struct {
	// 为空时不导出链路追踪
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

// InitConfig 读取 AVALON_CONFIG 指定的配置文件（默认 app_config.json），失败时直接 panic
func InitConfig() *AppConfig {
	path := os.Getenv(ENV_PREFIX + "_CONFIG")
	if path == "" {
		path = DEFAULT_CONFIG_PATH
	}

	config, err := LoadConfig(path)
	if err != nil {
		panic(err)
	}

	return config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("storage.driver", DRIVER_MEMORY)
	v.SetDefault("storage.dsn", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("rate_limit.per_second", 5.0)
	v.SetDefault("rate_limit.burst", 10)
	v.SetDefault("rate_limit.idle_ttl", "30m")
	v.SetDefault("game.pending_proposal_ttl", "2m")
	v.SetDefault("game.sweep_interval", "1m")
	v.SetDefault("game.finished_session_ttl", "1h")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.service_name", "avalon-be")
}

// LoadConfig 读取 JSON 配置文件，文件不存在时只使用默认值与环境变量
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetEnvPrefix(ENV_PREFIX)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	var config AppConfig

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *AppConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("端口号无效: %d", c.Port)
	}

	switch c.Storage.Driver {
	case DRIVER_MEMORY:
	case DRIVER_SQLITE, DRIVER_POSTGRES:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return fmt.Errorf("存储驱动 %s 需要配置 storage.dsn", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("未知的存储驱动: %s", c.Storage.Driver)
	}

	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("必须配置 auth.jwt_secret")
	}

	if c.Game.PendingProposalTTL <= 0 {
		return errors.New("game.pending_proposal_ttl 必须大于 0")
	}

	if c.Game.FinishedSessionTTL < 0 {
		return errors.New("game.finished_session_ttl 不能为负数")
	}

	if c.RateLimit.IdleTTL <= 0 {
		return errors.New("rate_limit.idle_ttl 必须大于 0")
	}

	return nil
}
