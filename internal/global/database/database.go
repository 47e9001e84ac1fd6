package database

import (
	"fmt"
	"net"
	"time"

	"meetup-backend/config"
	"meetup-backend/internal/global/sentry/tracing"
	"meetup-backend/internal/model"
	"meetup-backend/tools"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var DB *gorm.DB

// autoMigrateModels 定义需要自动迁移的模型列表
var autoMigrateModels = []any{
	&model.User{},
	&model.Profile{},
	&model.Activity{},
	&model.ActivityParticipant{},
	&model.Conversation{},
	&model.ConversationParticipant{},
	&model.Notification{},
}

func Init() {
	db, err := Open(config.Get())
	tools.PanicOnErr(err)
	tools.PanicOnErr(Migrate(db))
	DB = db
}

// Open 按配置的驱动建立连接，不做迁移
func Open(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := newDialector(cfg.Database)
	if err != nil {
		return nil, err
	}

	gormConfig := &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: true}, // 还是单数表名好
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
	switch cfg.Mode {
	case config.ModeDebug:
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	case config.ModeRelease:
		gormConfig.Logger = logger.Discard
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}
	if tracing.IsEnabled() {
		if err := db.Use(tracing.NewGormTracingPlugin()); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Migrate 迁移表结构并建立地理列
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(autoMigrateModels...); err != nil {
		return fmt.Errorf("自动迁移失败: %w", err)
	}
	return GeoFor(db).Migrate(db)
}

func newDialector(cfg config.Database) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverMysql:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = mysqlDSN(cfg)
		}
		return mysql.Open(dsn), nil
	case config.DriverPostgres:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = postgresDSN(cfg)
		}
		return postgres.Open(dsn), nil
	case config.DriverSqlite:
		registerSqliteGeo()
		dsn := cfg.DSN
		if dsn == "" {
			dsn = cfg.DBName
		}
		if dsn == "" {
			dsn = "meetup.db"
		}
		return sqlite.New(sqlite.Config{DriverName: sqliteGeoDriver, DSN: dsn}), nil
	default:
		return nil, fmt.Errorf("未知的数据库驱动: %q", cfg.Driver)
	}
}

func mysqlDSN(cfg config.Database) string {
	c := mysqldriver.NewConfig()
	c.User = cfg.Username
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	c.DBName = cfg.DBName
	c.ParseTime = true
	c.Loc = time.UTC
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c.FormatDSN()
}

func postgresDSN(cfg config.Database) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	port := cfg.Port
	// 默认配置里的端口是 mysql 的
	if port == "" || port == "3306" {
		port = "5432"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.Host, port, cfg.Username, cfg.Password, cfg.DBName, sslMode)
}
