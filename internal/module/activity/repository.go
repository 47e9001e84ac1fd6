package activity

import (
	"context"

	"meetup-backend/internal/global/database"
	"meetup-backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 基于 gorm 的 Store 实现
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, r.db)
}

func (r *Repository) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return database.Transaction(ctx, r.db, fn)
}

// CreateActivity 写入活动行并同步地理列
func (r *Repository) CreateActivity(ctx context.Context, a *model.Activity) error {
	return r.Transaction(ctx, func(ctx context.Context) error {
		conn := r.conn(ctx)
		if err := conn.Create(a).Error; err != nil {
			return err
		}
		return database.GeoFor(conn).SetPoint(conn, a.ID, a.Latitude, a.Longitude)
	})
}

func (r *Repository) FindActivity(ctx context.Context, id uint) (*model.Activity, error) {
	var a model.Activity
	if err := r.conn(ctx).First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repository) LockActivity(ctx context.Context, id uint) (*model.Activity, error) {
	var a model.Activity
	err := r.conn(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&a, id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *Repository) LinkConversation(ctx context.Context, activityID, conversationID uint) (bool, error) {
	result := r.conn(ctx).Model(&model.Activity{}).
		Where("id = ? AND conversation_id IS NULL", activityID).
		Update("conversation_id", conversationID)
	return result.RowsAffected == 1, result.Error
}

func (r *Repository) UpdateStatus(ctx context.Context, id uint, from, to model.ActivityStatus) (bool, error) {
	result := r.conn(ctx).Model(&model.Activity{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return result.RowsAffected == 1, result.Error
}

func (r *Repository) InsertParticipant(ctx context.Context, p *model.ActivityParticipant) (bool, error) {
	result := r.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(p)
	return result.RowsAffected == 1, result.Error
}

func (r *Repository) FindParticipant(ctx context.Context, activityID, userID uint) (*model.ActivityParticipant, error) {
	var p model.ActivityParticipant
	err := r.conn(ctx).
		Where("activity_id = ? AND user_id = ?", activityID, userID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) ApproveParticipant(ctx context.Context, activityID, userID uint) (bool, error) {
	result := r.conn(ctx).Model(&model.ActivityParticipant{}).
		Where("activity_id = ? AND user_id = ? AND status = ?", activityID, userID, model.StatusPending).
		Update("status", model.StatusJoined)
	return result.RowsAffected == 1, result.Error
}

func (r *Repository) DeleteParticipant(ctx context.Context, activityID, userID uint, status model.ParticipantStatus) (bool, error) {
	query := r.conn(ctx).Where("activity_id = ? AND user_id = ?", activityID, userID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	result := query.Delete(&model.ActivityParticipant{})
	return result.RowsAffected == 1, result.Error
}

// joinedCountSQL 详情与列表共用的人数口径：已加入的参与者，含发起人
const joinedCountSQL = "(SELECT COUNT(*) FROM activity_participant p WHERE p.activity_id = a.id AND p.status = ?)"

func (r *Repository) CountJoined(ctx context.Context, activityID uint) (int64, error) {
	var count int64
	err := r.conn(ctx).
		Table("activity AS a").
		Select(joinedCountSQL, model.StatusJoined).
		Where("a.id = ?", activityID).
		Scan(&count).Error
	return count, err
}

func (r *Repository) ListParticipants(ctx context.Context, activityID uint, status model.ParticipantStatus, limit int) ([]ParticipantView, error) {
	query := r.conn(ctx).
		Table("activity_participant AS ap").
		Select("ap.activity_id, ap.user_id, ap.role, ap.status, ap.joined_at, pr.display_name, pr.avatar_url").
		Joins("LEFT JOIN profile pr ON pr.user_id = ap.user_id").
		Where("ap.activity_id = ?", activityID)
	if status != "" {
		query = query.Where("ap.status = ?", status)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var views []ParticipantView
	err := query.Order("ap.joined_at ASC, ap.user_id ASC").Scan(&views).Error
	return views, err
}

func (r *Repository) FindProfile(ctx context.Context, userID uint) (*model.Profile, error) {
	var profile model.Profile
	if err := r.conn(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

type nearbyRow struct {
	model.Activity
	DistanceKm       float64
	ParticipantCount int64
	MyStatus         *string
	MyRole           *string
}

func (r *Repository) ListNearby(ctx context.Context, requesterID uint, q NearbyQuery) ([]ActivityView, error) {
	conn := r.conn(ctx)
	geo := database.GeoFor(conn)

	query := conn.
		Table("activity AS a").
		Select("a.*, ? AS distance_km, "+joinedCountSQL+" AS participant_count, me.status AS my_status, me.role AS my_role",
			geo.DistanceKm("a", q.Latitude, q.Longitude), model.StatusJoined).
		Joins("LEFT JOIN activity_participant me ON me.activity_id = a.id AND me.user_id = ?", requesterID).
		Where("a.deleted_at IS NULL AND a.status = ?", model.ActivityActive).
		Where("(a.privacy = ? OR me.user_id IS NOT NULL)", model.PrivacyOpen).
		Where(geo.Within("a", q.Latitude, q.Longitude, q.RadiusKm))
	if q.Date != nil {
		query = query.Where("a.date = ?", *q.Date)
	}

	var rows []nearbyRow
	err := query.
		Order("distance_km ASC, a.id ASC").
		Limit(q.Limit).
		Offset(q.Offset).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	views := make([]ActivityView, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		view := ActivityView{
			Activity:         row.Activity,
			DistanceKm:       &row.DistanceKm,
			ParticipantCount: row.ParticipantCount,
		}
		if row.MyStatus != nil {
			status := model.ParticipantStatus(*row.MyStatus)
			view.MyStatus = &status
		}
		if row.MyRole != nil {
			role := model.ParticipantRole(*row.MyRole)
			view.MyRole = &role
		}
		views = append(views, view)
	}
	return views, nil
}
