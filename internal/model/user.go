package model

import "time"

type User struct {
	Model
	// ExternalID 外部身份服务中的用户标识，本地注册的用户为空
	ExternalID *string  `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	Email      string   `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password   string   `gorm:"type:varchar(255)" json:"-"`
	Profile    *Profile `gorm:"foreignKey:UserID" json:"profile,omitempty"`
}

// Profile 与 User 一对一，活动的性别与年龄限制依赖这里的数据
type Profile struct {
	UserID      uint       `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	DisplayName string     `gorm:"type:varchar(50);not null" json:"display_name"`
	AvatarURL   string     `gorm:"type:varchar(512)" json:"avatar_url"`
	Gender      string     `gorm:"type:varchar(32)" json:"gender"`
	BirthDate   *time.Time `json:"birth_date"`
	Bio         string     `gorm:"type:varchar(500)" json:"bio"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
