package model

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotifyJoinRequest  NotificationType = "activity_join_request"
	NotifyJoinApproved NotificationType = "activity_join_approved"
	NotifyJoinDeclined NotificationType = "activity_join_declined"
)

type Notification struct {
	Model
	UserID uint              `gorm:"not null;index" json:"user_id"`
	Type   NotificationType  `gorm:"type:varchar(64);not null" json:"type"`
	Title  string            `gorm:"type:varchar(255);not null" json:"title"`
	Body   string            `gorm:"type:varchar(1000)" json:"body"`
	Data   datatypes.JSONMap `json:"data"`
	ReadAt *time.Time        `json:"read_at"`
}
