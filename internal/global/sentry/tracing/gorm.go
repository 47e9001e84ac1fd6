package tracing

import (
	"errors"

	"meetup-backend/config"

	"gorm.io/gorm"
)

const (
	gormSpanKey    = "tracing:span"
	callbackPrefix = "tracing"
)

// GormTracingPlugin 为每条语句创建 db.sql.* span，描述只含操作与表名
type GormTracingPlugin struct {
	cfg config.SentryTracing
}

func NewGormTracingPlugin() *GormTracingPlugin {
	return &GormTracingPlugin{cfg: config.Get().Sentry.Tracing}
}

func (p *GormTracingPlugin) Name() string {
	return "meetup:tracing"
}

// register 对应 gorm 回调链上的 Register
type register func(name string, fn func(*gorm.DB)) error

func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op            string
		before, after register
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		if err := h.before(callbackPrefix+":before_"+h.op, p.before(h.op)); err != nil {
			return err
		}
		if err := h.after(callbackPrefix+":after_"+h.op, p.after); err != nil {
			return err
		}
	}
	return nil
}

func (p *GormTracingPlugin) before(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		if db.Statement == nil {
			return
		}
		span := startTimed(db.Statement.Context, "db.sql."+op, statementDescription(op, db.Statement.Table),
			thresholdMs(p.cfg.DBSlowThresholdMs))
		if span == nil {
			return
		}
		span.SetData("db.system", db.Dialector.Name())
		db.InstanceSet(gormSpanKey, span)
		db.Statement.Context = span.Context()
	}
}

func (p *GormTracingPlugin) after(db *gorm.DB) {
	v, ok := db.InstanceGet(gormSpanKey)
	if !ok {
		return
	}
	span, ok := v.(*timedSpan)
	if !ok {
		return
	}
	span.SetData("db.rows_affected", db.RowsAffected)
	// 记录不存在是正常分支
	failed := db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound)
	span.finish("db.error", db.Error, failed)
}

// statementDescription 只记录表名，完整 SQL 可能带用户数据
func statementDescription(op, table string) string {
	if table == "" {
		table = "unknown"
	}
	return op + " " + table
}
