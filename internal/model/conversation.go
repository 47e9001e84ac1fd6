package model

import (
	"time"

	"gorm.io/datatypes"
)

type ConversationKind string

const (
	ConversationGroup  ConversationKind = "group"
	ConversationDirect ConversationKind = "direct"
)

type Conversation struct {
	Model
	OwnerID uint             `gorm:"not null;index" json:"owner_id"`
	Kind    ConversationKind `gorm:"type:varchar(16);not null" json:"kind"`
	Title   string           `gorm:"type:varchar(255)" json:"title"`
	// Metadata 供客户端展示，例如 {"activity_id": 1}
	Metadata datatypes.JSONMap `json:"metadata"`
}

type ConversationRole string

const (
	ConversationOwner  ConversationRole = "owner"
	ConversationMember ConversationRole = "member"
)

type ConversationParticipant struct {
	ConversationID uint             `gorm:"primaryKey;autoIncrement:false" json:"conversation_id"`
	UserID         uint             `gorm:"primaryKey;autoIncrement:false;index" json:"user_id"`
	Role           ConversationRole `gorm:"type:varchar(16);not null" json:"role"`
	JoinedAt       time.Time        `gorm:"not null" json:"joined_at"`
}
