package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"meetup-backend/config"
	"meetup-backend/internal/global/response"
	"meetup-backend/internal/global/sentry/tracing"
	"meetup-backend/internal/model"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Store 活动与参与记录的持久化，查询不到时返回 gorm.ErrRecordNotFound
type Store interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error

	CreateActivity(ctx context.Context, a *model.Activity) error
	FindActivity(ctx context.Context, id uint) (*model.Activity, error)
	// LockActivity 加行锁读取，读到的是已提交的最新数据
	LockActivity(ctx context.Context, id uint) (*model.Activity, error)
	// LinkConversation 仅在活动还没有会话时写入，返回是否写入成功
	LinkConversation(ctx context.Context, activityID, conversationID uint) (bool, error)
	UpdateStatus(ctx context.Context, id uint, from, to model.ActivityStatus) (bool, error)

	// InsertParticipant 已存在时不插入并返回 false
	InsertParticipant(ctx context.Context, p *model.ActivityParticipant) (bool, error)
	FindParticipant(ctx context.Context, activityID, userID uint) (*model.ActivityParticipant, error)
	// ApproveParticipant 只把 pending 改为 joined
	ApproveParticipant(ctx context.Context, activityID, userID uint) (bool, error)
	// DeleteParticipant status 为空时不限状态
	DeleteParticipant(ctx context.Context, activityID, userID uint, status model.ParticipantStatus) (bool, error)
	CountJoined(ctx context.Context, activityID uint) (int64, error)
	// ListParticipants 按加入顺序，status 为空时不限状态，limit 为 0 时不限数量
	ListParticipants(ctx context.Context, activityID uint, status model.ParticipantStatus, limit int) ([]ParticipantView, error)

	FindProfile(ctx context.Context, userID uint) (*model.Profile, error)
	ListNearby(ctx context.Context, requesterID uint, q NearbyQuery) ([]ActivityView, error)
}

// Conversations 活动群聊
type Conversations interface {
	Create(ctx context.Context, ownerID uint, memberIDs []uint, kind model.ConversationKind, title string, metadata map[string]any) (*model.Conversation, error)
	AddParticipant(ctx context.Context, conversationID, userID uint, role model.ConversationRole) error
	RemoveParticipant(ctx context.Context, conversationID, userID uint) error
	Delete(ctx context.Context, id uint) error
}

type Notifier interface {
	Notify(ctx context.Context, userID uint, typ model.NotificationType, title, body string, data map[string]any) error
}

type ParticipantView struct {
	ActivityID  uint                    `json:"activity_id" excel:"-"`
	UserID      uint                    `json:"user_id" excel:"用户ID"`
	DisplayName string                  `json:"display_name" excel:"昵称"`
	AvatarURL   string                  `json:"avatar_url" excel:"-"`
	Role        model.ParticipantRole   `json:"role" excel:"角色"`
	Status      model.ParticipantStatus `json:"status" excel:"状态"`
	JoinedAt    time.Time               `json:"joined_at" excel:"申请时间"`
}

type ActivityView struct {
	model.Activity
	DistanceKm       *float64                 `json:"distance_km,omitempty"`
	ParticipantCount int64                    `json:"participant_count"`
	Preview          []ParticipantView        `json:"participants_preview,omitempty"`
	MyStatus         *model.ParticipantStatus `json:"my_status"`
	MyRole           *model.ParticipantRole   `json:"my_role"`
}

type NearbyQuery struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
	Date      *time.Time
	Limit     int
	Offset    int
}

type CreateRequest struct {
	Description  string         `json:"description" binding:"required,max=1000"`
	Emoji        string         `json:"emoji" binding:"max=16"`
	Date         string         `json:"date" binding:"required"`
	TimeKind     model.TimeKind `json:"time_kind" binding:"required"`
	SpecificTime string         `json:"specific_time"`
	LocationText string         `json:"location_text" binding:"max=255"`
	Latitude     *float64       `json:"latitude" binding:"required"`
	Longitude    *float64       `json:"longitude" binding:"required"`
	Privacy      model.Privacy  `json:"privacy" binding:"required"`
	WomenOnly    bool           `json:"women_only"`
	AgeMin       *int           `json:"age_min"`
	AgeMax       *int           `json:"age_max"`
}

type JoinResult struct {
	model.ActivityParticipant
	ConversationID *uint  `json:"conversation_id"`
	ActivityTitle  string `json:"activity_title"`
}

type ApproveResult struct {
	model.ActivityParticipant
	ConversationID uint `json:"conversation_id"`
}

type Service struct {
	store         Store
	conversations Conversations
	notifier      Notifier
	log           *slog.Logger
	now           func() time.Time
	limits        config.Activity
}

func NewService(store Store, conversations Conversations, notifier Notifier, log *slog.Logger) *Service {
	return &Service{
		store:         store,
		conversations: conversations,
		notifier:      notifier,
		log:           log,
		now:           time.Now,
		limits:        config.Get().Activity,
	}
}

// Create 创建活动，活动、坐标、发起人参与记录与群聊在同一事务中写入
func (s *Service) Create(ctx context.Context, creatorID uint, req CreateRequest) (*ActivityView, error) {
	ctx, finish := tracing.StartSpan(ctx, "activity.create", "创建活动")
	defer finish()

	a, err := s.buildActivity(creatorID, req)
	if err != nil {
		return nil, err
	}

	err = s.store.Transaction(ctx, func(ctx context.Context) error {
		if err := s.store.CreateActivity(ctx, a); err != nil {
			return err
		}
		host := &model.ActivityParticipant{
			ActivityID: a.ID,
			UserID:     creatorID,
			Role:       model.RoleHost,
			Status:     model.StatusJoined,
			JoinedAt:   s.now().UTC(),
		}
		if _, err := s.store.InsertParticipant(ctx, host); err != nil {
			return err
		}
		_, err := s.ensureConversation(ctx, a)
		return err
	})
	if err != nil {
		return nil, s.storeErr("创建活动失败", err, "creator_id", creatorID)
	}

	s.log.Info("活动创建成功", "activity_id", a.ID, "creator_id", creatorID, "privacy", a.Privacy)
	return s.Get(ctx, creatorID, a.ID)
}

func (s *Service) buildActivity(creatorID uint, req CreateRequest) (*model.Activity, error) {
	ageMin, ageMax, err := resolveAgeRange(req.AgeMin, req.AgeMax)
	if err != nil {
		return nil, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, err
	}

	var specificTime *time.Time
	switch req.TimeKind {
	case model.TimeKindSpecific:
		if strings.TrimSpace(req.SpecificTime) == "" {
			return nil, response.ErrInvalidTimeFormat.WithTips("time_kind 为 specific 时必须提供 specific_time")
		}
		t, err := parseSpecificTime(req.SpecificTime)
		if err != nil {
			return nil, err
		}
		specificTime = &t
	case model.TimeKindAllDay:
		if strings.TrimSpace(req.SpecificTime) != "" {
			return nil, response.ErrInvalidRequest.WithTips("全天活动不能指定 specific_time")
		}
	default:
		return nil, response.ErrInvalidRequest.WithTipsf("未知的 time_kind %q", req.TimeKind)
	}

	switch req.Privacy {
	case model.PrivacyOpen, model.PrivacyPrivate:
	default:
		return nil, response.ErrInvalidRequest.WithTipsf("未知的 privacy %q", req.Privacy)
	}

	if req.Latitude == nil || req.Longitude == nil {
		return nil, response.ErrInvalidRequest.WithTips("缺少活动坐标")
	}
	if *req.Latitude < -90 || *req.Latitude > 90 || *req.Longitude < -180 || *req.Longitude > 180 {
		return nil, response.ErrInvalidRequest.WithTips("坐标超出范围")
	}

	return &model.Activity{
		CreatorID:    creatorID,
		Description:  strings.TrimSpace(req.Description),
		Emoji:        req.Emoji,
		Date:         date,
		TimeKind:     req.TimeKind,
		SpecificTime: specificTime,
		LocationText: req.LocationText,
		Latitude:     *req.Latitude,
		Longitude:    *req.Longitude,
		Privacy:      req.Privacy,
		WomenOnly:    req.WomenOnly,
		AgeMin:       ageMin,
		AgeMax:       ageMax,
		Status:       model.ActivityActive,
	}, nil
}

// Get 活动详情，私密活动只对发起人和有参与记录的用户可见
func (s *Service) Get(ctx context.Context, requesterID, activityID uint) (*ActivityView, error) {
	a, err := s.findActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	mine, err := s.findMembership(ctx, activityID, requesterID)
	if err != nil {
		return nil, err
	}
	if err := checkVisible(a, requesterID, mine); err != nil {
		return nil, err
	}

	view := &ActivityView{Activity: *a}
	if mine != nil {
		view.MyStatus = &mine.Status
		view.MyRole = &mine.Role
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		count, err := s.store.CountJoined(gctx, a.ID)
		view.ParticipantCount = count
		return err
	})
	g.Go(func() error {
		preview, err := s.store.ListParticipants(gctx, a.ID, model.StatusJoined, previewSize)
		view.Preview = preview
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.storeErr("查询活动详情失败", err, "activity_id", activityID)
	}
	return view, nil
}

// ListNearby 附近的进行中活动，按距离升序
func (s *Service) ListNearby(ctx context.Context, requesterID uint, q NearbyQuery) ([]ActivityView, error) {
	if q.RadiusKm <= 0 {
		q.RadiusKm = s.limits.DefaultRadiusKm
	}
	if q.Limit <= 0 {
		q.Limit = s.limits.DefaultPageSize
	}
	if s.limits.MaxPageSize > 0 && q.Limit > s.limits.MaxPageSize {
		q.Limit = s.limits.MaxPageSize
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	views, err := s.store.ListNearby(ctx, requesterID, q)
	if err != nil {
		return nil, s.storeErr("查询附近活动失败", err, "user_id", requesterID)
	}
	if views == nil {
		views = []ActivityView{}
	}
	return views, nil
}

// Join 申请加入活动，公开活动直接加入，私密活动等待发起人审核
func (s *Service) Join(ctx context.Context, userID, activityID uint) (*JoinResult, error) {
	ctx, finish := tracing.StartSpan(ctx, "activity.join", "加入活动")
	defer finish()

	var (
		result    *JoinResult
		activity  *model.Activity
		requester *model.Profile
	)
	err := s.store.Transaction(ctx, func(ctx context.Context) error {
		// 行锁与 Close 互斥，关闭后不会再有人加入
		a, err := s.lockActivity(ctx, activityID)
		if err != nil {
			return err
		}
		if a.Status != model.ActivityActive {
			return response.ErrActivityInactive
		}

		profile, err := s.store.FindProfile(ctx, userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := s.checkEligible(a, profile); err != nil {
			return err
		}

		status := model.StatusPending
		if a.Privacy == model.PrivacyOpen {
			status = model.StatusJoined
		}
		p := &model.ActivityParticipant{
			ActivityID: a.ID,
			UserID:     userID,
			Role:       model.RoleGuest,
			Status:     status,
			JoinedAt:   s.now().UTC(),
		}
		inserted, err := s.store.InsertParticipant(ctx, p)
		if err != nil {
			return err
		}
		if !inserted {
			return response.ErrAlreadyRequested
		}

		result = &JoinResult{ActivityParticipant: *p, ActivityTitle: a.Description}
		if status == model.StatusJoined {
			conversationID, err := s.ensureConversation(ctx, a)
			if err != nil {
				return err
			}
			if err := s.conversations.AddParticipant(ctx, conversationID, userID, model.ConversationMember); err != nil {
				return err
			}
			result.ConversationID = &conversationID
		}
		activity, requester = a, profile
		return nil
	})
	if err != nil {
		return nil, s.storeErr("加入活动失败", err, "activity_id", activityID, "user_id", userID)
	}

	s.log.Info("用户加入活动", "activity_id", activityID, "user_id", userID, "status", result.Status)
	if result.Status == model.StatusPending {
		s.notifyJoinRequest(ctx, activity, userID, requester)
	}
	return result, nil
}

// checkEligible 校验性别与年龄限制，没有资料时只能参加不限性别的活动
func (s *Service) checkEligible(a *model.Activity, profile *model.Profile) error {
	if a.WomenOnly && (profile == nil || !genderAllowed(profile.Gender)) {
		return response.ErrWomenOnly
	}
	if profile != nil && profile.BirthDate != nil {
		age := ageOn(*profile.BirthDate, s.now())
		if age < a.AgeMin || age > a.AgeMax {
			return response.ErrAgeRestricted.WithTipsf("允许年龄 %d-%d 岁", a.AgeMin, a.AgeMax)
		}
	}
	return nil
}

// Leave 退出活动并返回被删除的记录，发起人不能退出
func (s *Service) Leave(ctx context.Context, userID, activityID uint) (*model.ActivityParticipant, error) {
	var removed *model.ActivityParticipant
	err := s.store.Transaction(ctx, func(ctx context.Context) error {
		a, err := s.findActivity(ctx, activityID)
		if err != nil {
			return err
		}
		p, err := s.findParticipant(ctx, activityID, userID)
		if err != nil {
			return err
		}
		if p.Role == model.RoleHost {
			return response.ErrHostCannotLeave
		}

		deleted, err := s.store.DeleteParticipant(ctx, activityID, userID, "")
		if err != nil {
			return err
		}
		if !deleted {
			return response.ErrParticipantNotFound
		}
		if p.Status == model.StatusJoined && a.ConversationID != nil {
			if err := s.conversations.RemoveParticipant(ctx, *a.ConversationID, userID); err != nil {
				return err
			}
		}
		removed = p
		return nil
	})
	if err != nil {
		return nil, s.storeErr("退出活动失败", err, "activity_id", activityID, "user_id", userID)
	}

	s.log.Info("用户退出活动", "activity_id", activityID, "user_id", userID)
	return removed, nil
}

// Approve 发起人通过待审核的申请并把对方加入群聊
func (s *Service) Approve(ctx context.Context, hostID, activityID, targetID uint) (*ApproveResult, error) {
	var (
		result   *ApproveResult
		activity *model.Activity
	)
	err := s.store.Transaction(ctx, func(ctx context.Context) error {
		a, p, err := s.pendingRequest(ctx, hostID, activityID, targetID)
		if err != nil {
			return err
		}
		approved, err := s.store.ApproveParticipant(ctx, activityID, targetID)
		if err != nil {
			return err
		}
		if !approved {
			return response.ErrNotPending
		}
		p.Status = model.StatusJoined

		conversationID, err := s.ensureConversation(ctx, a)
		if err != nil {
			return err
		}
		if err := s.conversations.AddParticipant(ctx, conversationID, targetID, model.ConversationMember); err != nil {
			return err
		}
		result = &ApproveResult{ActivityParticipant: *p, ConversationID: conversationID}
		activity = a
		return nil
	})
	if err != nil {
		return nil, s.storeErr("通过申请失败", err, "activity_id", activityID, "target_id", targetID)
	}

	s.log.Info("加入申请已通过", "activity_id", activityID, "target_id", targetID)
	s.notify(ctx, targetID, model.NotifyJoinApproved, "加入申请已通过",
		fmt.Sprintf("你已加入活动「%s」", activityTitle(activity)),
		map[string]any{"activity_id": activityID, "conversation_id": result.ConversationID})
	return result, nil
}

// Reject 发起人拒绝申请，直接删除参与记录
func (s *Service) Reject(ctx context.Context, hostID, activityID, targetID uint) error {
	var activity *model.Activity
	err := s.store.Transaction(ctx, func(ctx context.Context) error {
		a, _, err := s.pendingRequest(ctx, hostID, activityID, targetID)
		if err != nil {
			return err
		}
		deleted, err := s.store.DeleteParticipant(ctx, activityID, targetID, model.StatusPending)
		if err != nil {
			return err
		}
		if !deleted {
			return response.ErrNotPending
		}
		activity = a
		return nil
	})
	if err != nil {
		return s.storeErr("拒绝申请失败", err, "activity_id", activityID, "target_id", targetID)
	}

	s.log.Info("加入申请已拒绝", "activity_id", activityID, "target_id", targetID)
	s.notify(ctx, targetID, model.NotifyJoinDeclined, "加入申请未通过",
		fmt.Sprintf("你加入活动「%s」的申请未被通过", activityTitle(activity)),
		map[string]any{"activity_id": activityID})
	return nil
}

// pendingRequest 审核前的公共校验：调用者是发起人且目标申请处于待审核
func (s *Service) pendingRequest(ctx context.Context, hostID, activityID, targetID uint) (*model.Activity, *model.ActivityParticipant, error) {
	a, err := s.findActivity(ctx, activityID)
	if err != nil {
		return nil, nil, err
	}
	if a.CreatorID != hostID {
		return nil, nil, response.ErrNotHost
	}
	p, err := s.findParticipant(ctx, activityID, targetID)
	if err != nil {
		return nil, nil, err
	}
	if p.Status != model.StatusPending {
		return nil, nil, response.ErrNotPending
	}
	return a, p, nil
}

// Close 发起人关闭活动，关闭后不再出现在附近列表中
func (s *Service) Close(ctx context.Context, hostID, activityID uint) (*model.Activity, error) {
	a, err := s.findActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if a.CreatorID != hostID {
		return nil, response.ErrNotHost
	}
	if a.Status != model.ActivityActive {
		return nil, response.ErrActivityInactive
	}
	updated, err := s.store.UpdateStatus(ctx, activityID, model.ActivityActive, model.ActivityClosed)
	if err != nil {
		return nil, s.storeErr("关闭活动失败", err, "activity_id", activityID)
	}
	if !updated {
		return nil, response.ErrActivityInactive
	}
	a.Status = model.ActivityClosed
	s.log.Info("活动已关闭", "activity_id", activityID)
	return a, nil
}

// Pending 待审核申请，仅发起人可见，先申请的在前
func (s *Service) Pending(ctx context.Context, hostID, activityID uint) ([]ParticipantView, error) {
	a, err := s.findActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if a.CreatorID != hostID {
		return nil, response.ErrNotHost
	}
	return s.listParticipants(ctx, activityID, model.StatusPending)
}

// Participants 全部参与者，可见性与活动详情一致
func (s *Service) Participants(ctx context.Context, requesterID, activityID uint) ([]ParticipantView, error) {
	a, err := s.findActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	mine, err := s.findMembership(ctx, activityID, requesterID)
	if err != nil {
		return nil, err
	}
	if err := checkVisible(a, requesterID, mine); err != nil {
		return nil, err
	}
	return s.listParticipants(ctx, activityID, "")
}

// ExportParticipants 导出用的参与者列表，仅发起人可用
func (s *Service) ExportParticipants(ctx context.Context, hostID, activityID uint) (*model.Activity, []ParticipantView, error) {
	a, err := s.findActivity(ctx, activityID)
	if err != nil {
		return nil, nil, err
	}
	if a.CreatorID != hostID {
		return nil, nil, response.ErrNotHost
	}
	list, err := s.listParticipants(ctx, activityID, "")
	if err != nil {
		return nil, nil, err
	}
	return a, list, nil
}

func (s *Service) listParticipants(ctx context.Context, activityID uint, status model.ParticipantStatus) ([]ParticipantView, error) {
	list, err := s.store.ListParticipants(ctx, activityID, status, 0)
	if err != nil {
		return nil, s.storeErr("查询参与者失败", err, "activity_id", activityID)
	}
	if list == nil {
		list = []ParticipantView{}
	}
	return list, nil
}

// ensureConversation 返回活动群聊，不存在时创建
// 并发创建时只有一个能写入活动，其余删除自己创建的会话并使用已写入的
func (s *Service) ensureConversation(ctx context.Context, a *model.Activity) (uint, error) {
	if a.ConversationID != nil {
		return *a.ConversationID, nil
	}

	conv, err := s.conversations.Create(ctx, a.CreatorID, nil, model.ConversationGroup, activityTitle(a),
		map[string]any{"activity_id": a.ID})
	if err != nil {
		return 0, err
	}
	linked, err := s.store.LinkConversation(ctx, a.ID, conv.ID)
	if err != nil {
		return 0, err
	}
	if linked {
		a.ConversationID = &conv.ID
		return conv.ID, nil
	}

	if err := s.conversations.Delete(ctx, conv.ID); err != nil {
		return 0, err
	}
	latest, err := s.store.LockActivity(ctx, a.ID)
	if err != nil {
		return 0, err
	}
	if latest.ConversationID == nil {
		return 0, fmt.Errorf("活动 %d 的会话关联丢失", a.ID)
	}
	a.ConversationID = latest.ConversationID
	return *latest.ConversationID, nil
}

func (s *Service) notifyJoinRequest(ctx context.Context, a *model.Activity, userID uint, requester *model.Profile) {
	name, avatar := "有人", ""
	if requester != nil {
		name, avatar = requester.DisplayName, requester.AvatarURL
	}
	s.notify(ctx, a.CreatorID, model.NotifyJoinRequest, "新的加入申请",
		fmt.Sprintf("%s 申请加入你的活动「%s」", name, activityTitle(a)),
		map[string]any{
			"activity_id":  a.ID,
			"user_id":      userID,
			"display_name": name,
			"avatar_url":   avatar,
		})
}

// notify 通知在事务提交后发送，失败只记录日志
func (s *Service) notify(ctx context.Context, userID uint, typ model.NotificationType, title, body string, data map[string]any) {
	if err := s.notifier.Notify(ctx, userID, typ, title, body, data); err != nil {
		s.log.Error("发送通知失败", "error", err, "user_id", userID, "type", typ)
	}
}

func (s *Service) findActivity(ctx context.Context, id uint) (*model.Activity, error) {
	a, err := s.store.FindActivity(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.ErrActivityNotFound
	}
	if err != nil {
		return nil, s.storeErr("查询活动失败", err, "activity_id", id)
	}
	return a, nil
}

func (s *Service) lockActivity(ctx context.Context, id uint) (*model.Activity, error) {
	a, err := s.store.LockActivity(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.ErrActivityNotFound
	}
	if err != nil {
		return nil, s.storeErr("锁定活动失败", err, "activity_id", id)
	}
	return a, nil
}

func (s *Service) findParticipant(ctx context.Context, activityID, userID uint) (*model.ActivityParticipant, error) {
	p, err := s.store.FindParticipant(ctx, activityID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.ErrParticipantNotFound
	}
	if err != nil {
		return nil, s.storeErr("查询参与记录失败", err, "activity_id", activityID, "user_id", userID)
	}
	return p, nil
}

// findMembership 没有参与记录时返回 nil
func (s *Service) findMembership(ctx context.Context, activityID, userID uint) (*model.ActivityParticipant, error) {
	p, err := s.findParticipant(ctx, activityID, userID)
	if errors.Is(err, response.ErrParticipantNotFound) {
		return nil, nil
	}
	return p, err
}

// storeErr 业务错误原样返回，其余视为数据库错误
func (s *Service) storeErr(msg string, err error, attrs ...any) error {
	var e *response.Error
	if errors.As(err, &e) {
		return e
	}
	s.log.Error(msg, append([]any{"error", err}, attrs...)...)
	return response.ErrDatabase.WithOrigin(err)
}

func checkVisible(a *model.Activity, requesterID uint, mine *model.ActivityParticipant) error {
	if a.Privacy == model.PrivacyOpen || a.CreatorID == requesterID || mine != nil {
		return nil
	}
	return response.ErrPrivateActivity
}

// activityTitle 活动没有标题字段，用描述的前 60 个字符代替
func activityTitle(a *model.Activity) string {
	title := []rune(a.Description)
	if len(title) > 60 {
		title = append(title[:60], '…')
	}
	if a.Emoji != "" {
		return a.Emoji + " " + string(title)
	}
	return string(title)
}
