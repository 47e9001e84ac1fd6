package chat

import (
	"context"
	"time"

	"meetup-backend/internal/global/database"
	"meetup-backend/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Registry 会话的创建与成员管理，所有方法都会加入 ctx 中的事务
type Registry struct {
	db *gorm.DB
}

func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{db: db}
}

// Create 创建会话，owner 自动成为成员
func (r *Registry) Create(ctx context.Context, ownerID uint, memberIDs []uint, kind model.ConversationKind, title string, metadata map[string]any) (*model.Conversation, error) {
	conv := &model.Conversation{
		OwnerID:  ownerID,
		Kind:     kind,
		Title:    title,
		Metadata: datatypes.JSONMap(metadata),
	}
	err := database.Transaction(ctx, r.db, func(ctx context.Context) error {
		if err := database.Conn(ctx, r.db).Create(conv).Error; err != nil {
			return err
		}
		if err := r.AddParticipant(ctx, conv.ID, ownerID, model.ConversationOwner); err != nil {
			return err
		}
		for _, id := range memberIDs {
			if id == ownerID {
				continue
			}
			if err := r.AddParticipant(ctx, conv.ID, id, model.ConversationMember); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// AddParticipant 已是成员时不做任何事
func (r *Registry) AddParticipant(ctx context.Context, conversationID, userID uint, role model.ConversationRole) error {
	return database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.ConversationParticipant{
			ConversationID: conversationID,
			UserID:         userID,
			Role:           role,
			JoinedAt:       time.Now().UTC(),
		}).Error
}

func (r *Registry) RemoveParticipant(ctx context.Context, conversationID, userID uint) error {
	return database.Conn(ctx, r.db).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Delete(&model.ConversationParticipant{}).Error
}

// Delete 删除会话及其成员
func (r *Registry) Delete(ctx context.Context, id uint) error {
	return database.Transaction(ctx, r.db, func(ctx context.Context) error {
		tx := database.Conn(ctx, r.db)
		if err := tx.Where("conversation_id = ?", id).Delete(&model.ConversationParticipant{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&model.Conversation{}, id).Error
	})
}

func (r *Registry) Get(ctx context.Context, id uint) (*model.Conversation, error) {
	var conv model.Conversation
	if err := database.Conn(ctx, r.db).First(&conv, id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *Registry) IsMember(ctx context.Context, conversationID, userID uint) (bool, error) {
	var count int64
	err := database.Conn(ctx, r.db).Model(&model.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	return count > 0, err
}

type ConversationView struct {
	ID        uint                   `json:"id"`
	OwnerID   uint                   `json:"owner_id"`
	Kind      model.ConversationKind `json:"kind"`
	Title     string                 `json:"title"`
	Metadata  datatypes.JSONMap      `json:"metadata"`
	Role      model.ConversationRole `json:"role"`
	JoinedAt  time.Time              `json:"joined_at"`
	CreatedAt time.Time              `json:"created_at"`
}

// ListForUser 用户所在的会话，最近加入的在前
func (r *Registry) ListForUser(ctx context.Context, userID uint, limit, offset int) ([]ConversationView, error) {
	var views []ConversationView
	err := database.Conn(ctx, r.db).
		Table("conversation AS c").
		Select("c.id, c.owner_id, c.kind, c.title, c.metadata, c.created_at, cp.role, cp.joined_at").
		Joins("JOIN conversation_participant cp ON cp.conversation_id = c.id AND cp.user_id = ?", userID).
		Where("c.deleted_at IS NULL").
		Order("cp.joined_at DESC, c.id DESC").
		Limit(limit).
		Offset(offset).
		Scan(&views).Error
	return views, err
}

type MemberView struct {
	UserID      uint                   `json:"user_id"`
	Role        model.ConversationRole `json:"role"`
	JoinedAt    time.Time              `json:"joined_at"`
	DisplayName string                 `json:"display_name"`
	AvatarURL   string                 `json:"avatar_url"`
}

func (r *Registry) Participants(ctx context.Context, conversationID uint) ([]MemberView, error) {
	var views []MemberView
	err := database.Conn(ctx, r.db).
		Table("conversation_participant AS cp").
		Select("cp.user_id, cp.role, cp.joined_at, pr.display_name, pr.avatar_url").
		Joins("LEFT JOIN profile pr ON pr.user_id = cp.user_id").
		Where("cp.conversation_id = ?", conversationID).
		Order("cp.joined_at ASC, cp.user_id ASC").
		Scan(&views).Error
	return views, err
}
