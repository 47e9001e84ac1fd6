package config

type Mode string

const (
	ModeDebug   Mode = "debug"
	ModeRelease Mode = "release"
)

type Driver string

const (
	DriverMysql    Driver = "mysql"
	DriverPostgres Driver = "postgres"
	DriverSqlite   Driver = "sqlite"
)

type Config struct {
	Host      string    `envconfig:"HOST" mapstructure:"host"`
	Port      string    `envconfig:"PORT" mapstructure:"port"`
	Prefix    string    `envconfig:"PREFIX" mapstructure:"prefix"`
	Mode      Mode      `envconfig:"MODE" mapstructure:"mode"`
	Database  Database  `mapstructure:"database"`
	Redis     Redis     `mapstructure:"redis"`
	JWT       JWT       `mapstructure:"jwt"`
	Auth      Auth      `mapstructure:"auth"`
	Log       Log       `mapstructure:"log"`
	Sentry    Sentry    `mapstructure:"sentry"`
	S3        S3        `mapstructure:"s3"`
	RateLimit RateLimit `mapstructure:"rate_limit" envconfig:"RATE_LIMIT"`
	Activity  Activity  `mapstructure:"activity"`
	Cors      Cors      `mapstructure:"cors"`
}

type Database struct {
	Driver   Driver `envconfig:"DRIVER" mapstructure:"driver"`
	Host     string `envconfig:"HOST" mapstructure:"host"`
	Port     string `envconfig:"PORT" mapstructure:"port"`
	Username string `envconfig:"USERNAME" mapstructure:"username"`
	Password string `envconfig:"PASSWORD" mapstructure:"password"`
	DBName   string `envconfig:"DB_NAME" mapstructure:"db_name"`
	SSLMode  string `envconfig:"SSL_MODE" mapstructure:"ssl_mode"`
	// DSN 非空时直接使用，忽略上面的分项配置
	DSN string `envconfig:"DSN" mapstructure:"dsn"`
}

type Redis struct {
	Host     string `envconfig:"HOST" mapstructure:"host"`
	Port     string `envconfig:"PORT" mapstructure:"port"`
	Password string `envconfig:"PASSWORD" mapstructure:"password"`
	DB       int    `envconfig:"DB" mapstructure:"db"`
}

// Enabled 未配置 host 时不连接 Redis，实时推送随之关闭
func (r Redis) Enabled() bool {
	return r.Host != ""
}

type JWT struct {
	AccessSecret string `envconfig:"ACCESS_SECRET" mapstructure:"access_secret"`
	AccessExpire int64  `envconfig:"ACCESS_EXPIRE" mapstructure:"access_expire"` // 秒
}

type AuthProvider string

const (
	AuthProviderLocal  AuthProvider = "local"
	AuthProviderRemote AuthProvider = "remote"
)

type Auth struct {
	Provider  AuthProvider `envconfig:"PROVIDER" mapstructure:"provider"`
	RemoteURL string       `envconfig:"REMOTE_URL" mapstructure:"remote_url"` // 身份服务地址，例如 https://xxx.supabase.co/auth/v1
	APIKey    string       `envconfig:"API_KEY" mapstructure:"api_key"`
}

type Log struct {
	FilePath   string `envconfig:"FILE_PATH" mapstructure:"file_path"`     // 日志文件路径
	Level      string `envconfig:"LEVEL" mapstructure:"level"`             // 日志级别：debug, info, warn, error
	MaxSize    int    `envconfig:"MAX_SIZE" mapstructure:"max_size"`       // 日志文件最大大小（MB）
	MaxBackups int    `envconfig:"MAX_BACKUPS" mapstructure:"max_backups"` // 保留的旧日志文件数
	MaxAge     int    `envconfig:"MAX_AGE" mapstructure:"max_age"`         // 日志文件保留天数
	Compress   bool   `envconfig:"COMPRESS" mapstructure:"compress"`       // 是否压缩旧日志文件
}

type Sentry struct {
	Dsn         string        `envconfig:"DSN" mapstructure:"dsn"`
	Environment string        `envconfig:"ENVIRONMENT" mapstructure:"environment"`
	SampleRate  float64       `envconfig:"SAMPLE_RATE" mapstructure:"sample_rate"`
	Tracing     SentryTracing `mapstructure:"tracing"`
}

type SentryTracing struct {
	DBSlowThresholdMs    int  `envconfig:"DB_SLOW_THRESHOLD_MS" mapstructure:"db_slow_threshold_ms"`
	RedisSlowThresholdMs int  `envconfig:"REDIS_SLOW_THRESHOLD_MS" mapstructure:"redis_slow_threshold_ms"`
	TraceHTTPCalls       bool `envconfig:"TRACE_HTTP_CALLS" mapstructure:"trace_http_calls"`
}

type S3 struct {
	Endpoint        string `envconfig:"ENDPOINT" mapstructure:"endpoint"`
	BaseURL         string `envconfig:"BASE_URL" mapstructure:"base_url"`
	Bucket          string `envconfig:"BUCKET" mapstructure:"bucket"`
	Region          string `envconfig:"REGION" mapstructure:"region"`
	AccessKey       string `envconfig:"ACCESS_KEY" mapstructure:"access_key"`
	SecretAccessKey string `envconfig:"SECRET_KEY" mapstructure:"secret_key"`
	Prefix          string `envconfig:"PREFIX" mapstructure:"prefix"`
	UsePathStyle    bool   `envconfig:"PATH_STYLE" mapstructure:"path_style"`
}

type RateLimit struct {
	PerMinute int `envconfig:"PER_MINUTE" mapstructure:"per_minute"` // 0 表示不限流
	Burst     int `envconfig:"BURST" mapstructure:"burst"`
}

type Activity struct {
	DefaultRadiusKm float64 `envconfig:"DEFAULT_RADIUS_KM" mapstructure:"default_radius_km"`
	DefaultPageSize int     `envconfig:"DEFAULT_PAGE_SIZE" mapstructure:"default_page_size"`
	MaxPageSize     int     `envconfig:"MAX_PAGE_SIZE" mapstructure:"max_page_size"`
}

type Cors struct {
	AllowOrigins []string `envconfig:"ALLOW_ORIGINS" mapstructure:"allow_origins"`
}
