package database

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Geo 屏蔽不同数据库的地理计算差异，距离单位均为公里
type Geo interface {
	Migrate(db *gorm.DB) error
	// SetPoint 写入活动的地理列，不需要地理列的方言为空操作
	SetPoint(db *gorm.DB, id uint, lat, lng float64) error
	DistanceKm(alias string, lat, lng float64) clause.Expr
	Within(alias string, lat, lng, radiusKm float64) clause.Expr
}

func GeoFor(db *gorm.DB) Geo {
	switch db.Dialector.Name() {
	case "postgres":
		return postgisGeo{}
	case "mysql":
		return mysqlGeo{}
	default:
		return sqliteGeo{}
	}
}

// postgisGeo 使用 geography 列与 GIST 索引
type postgisGeo struct{}

func (postgisGeo) Migrate(db *gorm.DB) error {
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS postgis",
		"ALTER TABLE activity ADD COLUMN IF NOT EXISTS location geography(Point, 4326)",
		"CREATE INDEX IF NOT EXISTS idx_activity_location ON activity USING GIST (location)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("迁移地理列失败: %w", err)
		}
	}
	return nil
}

func (postgisGeo) SetPoint(db *gorm.DB, id uint, lat, lng float64) error {
	return db.Exec("UPDATE activity SET location = ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography WHERE id = ?",
		lng, lat, id).Error
}

func (postgisGeo) DistanceKm(alias string, lat, lng float64) clause.Expr {
	return gorm.Expr(fmt.Sprintf("ST_Distance(%s.location, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography) / 1000", alias),
		lng, lat)
}

func (postgisGeo) Within(alias string, lat, lng, radiusKm float64) clause.Expr {
	return gorm.Expr(fmt.Sprintf("ST_DWithin(%s.location, ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography, ?)", alias),
		lng, lat, radiusKm*1000)
}

// mysqlGeo 直接基于经纬度列计算球面距离
type mysqlGeo struct{}

func (mysqlGeo) Migrate(*gorm.DB) error { return nil }

func (mysqlGeo) SetPoint(*gorm.DB, uint, float64, float64) error { return nil }

func (mysqlGeo) DistanceKm(alias string, lat, lng float64) clause.Expr {
	return gorm.Expr(fmt.Sprintf("ST_Distance_Sphere(POINT(%[1]s.longitude, %[1]s.latitude), POINT(?, ?)) / 1000", alias),
		lng, lat)
}

func (mysqlGeo) Within(alias string, lat, lng, radiusKm float64) clause.Expr {
	return gorm.Expr(fmt.Sprintf("ST_Distance_Sphere(POINT(%[1]s.longitude, %[1]s.latitude), POINT(?, ?)) <= ?", alias),
		lng, lat, radiusKm*1000)
}

// sqliteGeo 依赖连接上注册的 distance_km 函数
type sqliteGeo struct{}

func (sqliteGeo) Migrate(*gorm.DB) error { return nil }

func (sqliteGeo) SetPoint(*gorm.DB, uint, float64, float64) error { return nil }

func (sqliteGeo) DistanceKm(alias string, lat, lng float64) clause.Expr {
	return gorm.Expr(fmt.Sprintf("distance_km(%[1]s.latitude, %[1]s.longitude, ?, ?)", alias), lat, lng)
}

func (sqliteGeo) Within(alias string, lat, lng, radiusKm float64) clause.Expr {
	return gorm.Expr(fmt.Sprintf("distance_km(%[1]s.latitude, %[1]s.longitude, ?, ?) <= ?", alias), lat, lng, radiusKm)
}
