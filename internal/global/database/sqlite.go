package database

import (
	"database/sql"
	"fmt"
	"math"
	"sync"

	"github.com/mattn/go-sqlite3"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

const sqliteGeoDriver = "sqlite3_geo"

const earthRadiusKm = 6371.0088

var registerOnce sync.Once

// registerSqliteGeo 注册带 distance_km 函数的 sqlite 驱动
func registerSqliteGeo() {
	registerOnce.Do(func() {
		sql.Register(sqliteGeoDriver, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("distance_km", distanceKm, true)
			},
		})
	})
}

func distanceKm(lat1, lng1, lat2, lng2 any) (float64, error) {
	var v [4]float64
	for i, arg := range []any{lat1, lng1, lat2, lng2} {
		switch n := arg.(type) {
		case float64:
			v[i] = n
		case int64:
			v[i] = float64(n)
		default:
			return 0, fmt.Errorf("distance_km: 非数值参数 %T", arg)
		}
	}
	return HaversineKm(v[0], v[1], v[2], v[3]), nil
}

// HaversineKm 球面距离
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

// OpenSqliteMemory 打开以 name 区分的内存库并完成迁移，供测试与本地调试使用
func OpenSqliteMemory(name string) (*gorm.DB, error) {
	registerSqliteGeo()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: sqliteGeoDriver, DSN: dsn}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: true},
		Logger:         logger.Discard,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// 内存库在最后一个连接关闭时销毁，单连接同时避免写锁冲突
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
