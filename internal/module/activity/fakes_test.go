package activity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"meetup-backend/config"
	"meetup-backend/internal/model"

	"gorm.io/gorm"
)

// fakeStore 内存实现，Get 会并发读取，所有方法加锁
type fakeStore struct {
	mu           sync.Mutex
	nextID       uint
	activities   map[uint]*model.Activity
	participants map[[2]uint]*model.ActivityParticipant
	profiles     map[uint]*model.Profile
	lastQuery    NearbyQuery
	locked       []uint

	// concurrentConversation 非零时模拟另一个请求抢先关联了会话
	concurrentConversation uint
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		activities:   make(map[uint]*model.Activity),
		participants: make(map[[2]uint]*model.ActivityParticipant),
		profiles:     make(map[uint]*model.Profile),
	}
}

func (f *fakeStore) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeStore) CreateActivity(_ context.Context, a *model.Activity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	a.ID = f.nextID
	cp := *a
	f.activities[a.ID] = &cp
	return nil
}

func (f *fakeStore) FindActivity(_ context.Context, id uint) (*model.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.activities[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) LockActivity(ctx context.Context, id uint) (*model.Activity, error) {
	f.mu.Lock()
	f.locked = append(f.locked, id)
	f.mu.Unlock()
	return f.FindActivity(ctx, id)
}

func (f *fakeStore) LinkConversation(_ context.Context, activityID, conversationID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.activities[activityID]
	if !ok {
		return false, nil
	}
	if f.concurrentConversation != 0 && a.ConversationID == nil {
		winner := f.concurrentConversation
		a.ConversationID = &winner
	}
	if a.ConversationID != nil {
		return false, nil
	}
	a.ConversationID = &conversationID
	return true, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id uint, from, to model.ActivityStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.activities[id]
	if !ok || a.Status != from {
		return false, nil
	}
	a.Status = to
	return true, nil
}

func (f *fakeStore) InsertParticipant(_ context.Context, p *model.ActivityParticipant) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]uint{p.ActivityID, p.UserID}
	if _, exists := f.participants[key]; exists {
		return false, nil
	}
	cp := *p
	f.participants[key] = &cp
	return true, nil
}

func (f *fakeStore) FindParticipant(_ context.Context, activityID, userID uint) (*model.ActivityParticipant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[[2]uint{activityID, userID}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) ApproveParticipant(_ context.Context, activityID, userID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.participants[[2]uint{activityID, userID}]
	if !ok || p.Status != model.StatusPending {
		return false, nil
	}
	p.Status = model.StatusJoined
	return true, nil
}

func (f *fakeStore) DeleteParticipant(_ context.Context, activityID, userID uint, status model.ParticipantStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]uint{activityID, userID}
	p, ok := f.participants[key]
	if !ok || (status != "" && p.Status != status) {
		return false, nil
	}
	delete(f.participants, key)
	return true, nil
}

func (f *fakeStore) CountJoined(_ context.Context, activityID uint) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for key, p := range f.participants {
		if key[0] == activityID && p.Status == model.StatusJoined {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ListParticipants(_ context.Context, activityID uint, status model.ParticipantStatus, limit int) ([]ParticipantView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var views []ParticipantView
	for key, p := range f.participants {
		if key[0] != activityID || (status != "" && p.Status != status) {
			continue
		}
		view := ParticipantView{
			ActivityID: p.ActivityID,
			UserID:     p.UserID,
			Role:       p.Role,
			Status:     p.Status,
			JoinedAt:   p.JoinedAt,
		}
		if profile, ok := f.profiles[p.UserID]; ok {
			view.DisplayName = profile.DisplayName
			view.AvatarURL = profile.AvatarURL
		}
		views = append(views, view)
	}
	sort.Slice(views, func(i, j int) bool {
		if !views[i].JoinedAt.Equal(views[j].JoinedAt) {
			return views[i].JoinedAt.Before(views[j].JoinedAt)
		}
		return views[i].UserID < views[j].UserID
	})
	if limit > 0 && len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

func (f *fakeStore) FindProfile(_ context.Context, userID uint) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) ListNearby(_ context.Context, _ uint, q NearbyQuery) ([]ActivityView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q
	return nil, nil
}

func (f *fakeStore) setProfile(userID uint, gender string, birth *time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[userID] = &model.Profile{
		UserID:      userID,
		DisplayName: "user" + string(rune('A'+userID%26)),
		Gender:      gender,
		BirthDate:   birth,
	}
}

type fakeConversations struct {
	mu      sync.Mutex
	nextID  uint
	members map[uint]map[uint]model.ConversationRole
	deleted []uint
	err     error
}

func newFakeConversations() *fakeConversations {
	return &fakeConversations{nextID: 100, members: make(map[uint]map[uint]model.ConversationRole)}
}

func (f *fakeConversations) Create(_ context.Context, ownerID uint, memberIDs []uint, kind model.ConversationKind, title string, metadata map[string]any) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.nextID++
	m := map[uint]model.ConversationRole{ownerID: model.ConversationOwner}
	for _, id := range memberIDs {
		m[id] = model.ConversationMember
	}
	f.members[f.nextID] = m
	conv := &model.Conversation{OwnerID: ownerID, Kind: kind, Title: title, Metadata: metadata}
	conv.ID = f.nextID
	return conv, nil
}

func (f *fakeConversations) AddParticipant(_ context.Context, conversationID, userID uint, role model.ConversationRole) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.members[conversationID] == nil {
		f.members[conversationID] = make(map[uint]model.ConversationRole)
	}
	if _, ok := f.members[conversationID][userID]; !ok {
		f.members[conversationID][userID] = role
	}
	return nil
}

func (f *fakeConversations) RemoveParticipant(_ context.Context, conversationID, userID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members[conversationID], userID)
	return nil
}

func (f *fakeConversations) Delete(_ context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.members, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeConversations) isMember(conversationID, userID uint) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.members[conversationID][userID]
	return ok
}

type sentNotification struct {
	UserID uint
	Type   model.NotificationType
	Title  string
	Body   string
	Data   map[string]any
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, userID uint, typ model.NotificationType, title, body string, data map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentNotification{UserID: userID, Type: typ, Title: title, Body: body, Data: data})
	return nil
}

func (f *fakeNotifier) all() []sentNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentNotification(nil), f.sent...)
}

var errProviderDown = errors.New("provider down")

// testNow 固定的“今天”，年龄计算都以此为准
var testNow = time.Date(2026, time.June, 15, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	store    *fakeStore
	convs    *fakeConversations
	notifier *fakeNotifier
}

func newFixture() *fixture {
	f := &fixture{
		store:    newFakeStore(),
		convs:    newFakeConversations(),
		notifier: &fakeNotifier{},
	}
	f.svc = NewService(f.store, f.convs, f.notifier, slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.svc.now = func() time.Time { return testNow }
	f.svc.limits = config.Default().Activity
	return f
}

func birthday(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}
