package model

import "time"

type TimeKind string

const (
	TimeKindAllDay   TimeKind = "all_day"
	TimeKindSpecific TimeKind = "specific"
)

type Privacy string

const (
	PrivacyOpen    Privacy = "open"
	PrivacyPrivate Privacy = "private"
)

type ActivityStatus string

const (
	ActivityActive    ActivityStatus = "active"
	ActivityClosed    ActivityStatus = "closed"
	ActivityCancelled ActivityStatus = "cancelled"
)

type Activity struct {
	Model
	CreatorID    uint           `gorm:"not null;index" json:"creator_id"`
	Description  string         `gorm:"type:varchar(1000);not null" json:"description"`
	Emoji        string         `gorm:"type:varchar(16)" json:"emoji"`
	Date         time.Time      `gorm:"not null;index" json:"date"` // UTC 零点
	TimeKind     TimeKind       `gorm:"type:varchar(16);not null" json:"time_kind"`
	SpecificTime *time.Time     `json:"specific_time"`
	LocationText string         `gorm:"type:varchar(255)" json:"location_text"`
	Latitude     float64        `gorm:"not null" json:"latitude"`
	Longitude    float64        `gorm:"not null" json:"longitude"`
	Privacy      Privacy        `gorm:"type:varchar(16);not null;index" json:"privacy"`
	WomenOnly    bool           `gorm:"not null;default:false" json:"women_only"`
	AgeMin       int            `gorm:"not null;default:0" json:"age_min"`
	AgeMax       int            `gorm:"not null;default:150" json:"age_max"`
	Status       ActivityStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	// ConversationID 活动群聊，首次需要时创建
	ConversationID *uint `gorm:"index" json:"conversation_id"`
}

type ParticipantRole string

const (
	RoleHost  ParticipantRole = "host"
	RoleGuest ParticipantRole = "guest"
)

type ParticipantStatus string

const (
	StatusPending ParticipantStatus = "pending"
	StatusJoined  ParticipantStatus = "joined"
)

// ActivityParticipant 每个 (活动, 用户) 至多一条，退出与拒绝直接删除
type ActivityParticipant struct {
	ActivityID uint              `gorm:"primaryKey;autoIncrement:false" json:"activity_id"`
	UserID     uint              `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	Role       ParticipantRole   `gorm:"type:varchar(16);not null" json:"role"`
	Status     ParticipantStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	JoinedAt   time.Time         `gorm:"not null;index" json:"joined_at"`
}
