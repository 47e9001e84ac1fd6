package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"meetup-backend/internal/model"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Channel 用户通知的 Redis 频道
func Channel(userID uint) string {
	return fmt.Sprintf("notification:%d", userID)
}

// Dispatcher 持久化通知并在配置了 Redis 时实时推送
type Dispatcher struct {
	db  *gorm.DB
	rdb *redis.Client
	log *slog.Logger
}

// NewDispatcher rdb 可以为 nil，此时只落库
func NewDispatcher(db *gorm.DB, rdb *redis.Client, log *slog.Logger) *Dispatcher {
	return &Dispatcher{db: db, rdb: rdb, log: log}
}

// Message 推送给客户端的消息
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

func (d *Dispatcher) Notify(ctx context.Context, userID uint, typ model.NotificationType, title, body string, data map[string]any) error {
	n := &model.Notification{
		UserID: userID,
		Type:   typ,
		Title:  title,
		Body:   body,
		Data:   datatypes.JSONMap(data),
	}
	if err := d.db.WithContext(ctx).Create(n).Error; err != nil {
		return err
	}

	if d.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(Message{Type: "notification", Data: n})
	if err != nil {
		return err
	}
	// 推送失败不影响通知本身，客户端重连后可通过列表接口补齐
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := d.rdb.Publish(pubCtx, Channel(userID), payload).Err(); err != nil {
		d.log.Warn("推送通知失败", "error", err, "user_id", userID, "notification_id", n.ID)
	}
	return nil
}

func (d *Dispatcher) List(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]model.Notification, int64, error) {
	query := d.db.WithContext(ctx).Model(&model.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []model.Notification
	err := query.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, total, err
}

// MarkRead 返回是否找到属于该用户的通知
func (d *Dispatcher) MarkRead(ctx context.Context, userID, id uint) (bool, error) {
	var n model.Notification
	err := d.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if n.ReadAt != nil {
		return true, nil
	}
	return true, d.db.WithContext(ctx).Model(&n).Update("read_at", time.Now().UTC()).Error
}

func (d *Dispatcher) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	result := d.db.WithContext(ctx).Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", time.Now().UTC())
	return result.RowsAffected, result.Error
}
