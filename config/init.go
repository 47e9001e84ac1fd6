package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// envPrefix 环境变量前缀，例如 APP_DATABASE_HOST
const envPrefix = "APP"

var current atomic.Pointer[Config]

// Default 返回未加载任何配置文件时使用的默认值
func Default() *Config {
	return &Config{
		Host:   "0.0.0.0",
		Port:   "8080",
		Prefix: "api",
		Mode:   ModeDebug,
		Database: Database{
			Driver: DriverMysql,
			Port:   "3306",
		},
		JWT: JWT{
			AccessExpire: 7 * 24 * 3600,
		},
		Auth: Auth{
			Provider: AuthProviderLocal,
		},
		Log: Log{
			Level:      "info",
			MaxSize:    100,
			MaxBackups: 7,
			MaxAge:     30,
		},
		Redis: Redis{
			Port: "6379",
		},
		S3: S3{
			Region: "us-east-1",
			Prefix: "avatars",
		},
		RateLimit: RateLimit{
			PerMinute: 30,
			Burst:     10,
		},
		Activity: Activity{
			DefaultRadiusKm: 50,
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Cors: Cors{
			AllowOrigins: []string{"*"},
		},
	}
}

// Init 依次读取 .env、配置文件与环境变量，后者覆盖前者
func Init() {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		panic(err)
	}
	Set(cfg)
}

// Load 读取配置但不替换全局配置
func Load(path string) (*Config, error) {
	// .env 不存在时忽略
	_ = godotenv.Load()

	cfg := Default()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("读取环境变量失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查枚举类配置项
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeDebug, ModeRelease:
	default:
		return fmt.Errorf("未知的运行模式: %q", c.Mode)
	}
	switch Driver(strings.ToLower(string(c.Database.Driver))) {
	case DriverMysql, DriverPostgres, DriverSqlite:
		c.Database.Driver = Driver(strings.ToLower(string(c.Database.Driver)))
	default:
		return fmt.Errorf("未知的数据库驱动: %q", c.Database.Driver)
	}
	switch c.Auth.Provider {
	case AuthProviderLocal:
		if c.JWT.AccessSecret == "" && c.Mode == ModeRelease {
			return fmt.Errorf("release 模式下必须配置 jwt.access_secret")
		}
	case AuthProviderRemote:
		if c.Auth.RemoteURL == "" {
			return fmt.Errorf("auth.provider 为 remote 时必须配置 auth.remote_url")
		}
	default:
		return fmt.Errorf("未知的身份认证方式: %q", c.Auth.Provider)
	}
	return nil
}

// Get 获取全局配置，未初始化时返回默认配置
func Get() *Config {
	if cfg := current.Load(); cfg != nil {
		return cfg
	}
	current.CompareAndSwap(nil, Default())
	return current.Load()
}

// Set 替换全局配置，测试中也用它注入配置
func Set(cfg *Config) {
	current.Store(cfg)
}
