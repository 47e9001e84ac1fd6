package activity

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"meetup-backend/config"
	"meetup-backend/internal/global/database"
	"meetup-backend/internal/global/response"
	"meetup-backend/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenSqliteMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name, gender string) uint {
	t.Helper()
	u := &model.User{Email: fmt.Sprintf("%s@example.com", name)}
	require.NoError(t, db.Create(u).Error)
	require.NoError(t, db.Create(&model.Profile{UserID: u.ID, DisplayName: name, Gender: gender}).Error)
	return u.ID
}

func seedActivity(t *testing.T, repo *Repository, creatorID uint, lat, lng float64, privacy model.Privacy, date time.Time) *model.Activity {
	t.Helper()
	a := &model.Activity{
		CreatorID:   creatorID,
		Description: fmt.Sprintf("activity at %.2f,%.2f", lat, lng),
		Date:        date,
		TimeKind:    model.TimeKindAllDay,
		Latitude:    lat,
		Longitude:   lng,
		Privacy:     privacy,
		AgeMax:      150,
		Status:      model.ActivityActive,
	}
	ctx := context.Background()
	require.NoError(t, repo.CreateActivity(ctx, a))
	inserted, err := repo.InsertParticipant(ctx, &model.ActivityParticipant{
		ActivityID: a.ID, UserID: creatorID, Role: model.RoleHost, Status: model.StatusJoined, JoinedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.True(t, inserted)
	return a
}

var (
	day1 = time.Date(2026, time.June, 20, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2026, time.June, 21, 0, 0, 0, 0, time.UTC)
)

func TestRepositoryInsertParticipantIfAbsent(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	host := seedUser(t, db, "host", "female")
	a := seedActivity(t, repo, host, 48.8566, 2.3522, model.PrivacyOpen, day1)

	p := &model.ActivityParticipant{ActivityID: a.ID, UserID: 42, Role: model.RoleGuest, Status: model.StatusPending, JoinedAt: time.Now().UTC()}
	inserted, err := repo.InsertParticipant(ctx, p)
	require.NoError(t, err)
	require.True(t, inserted)

	dup := *p
	dup.Status = model.StatusJoined
	inserted, err = repo.InsertParticipant(ctx, &dup)
	require.NoError(t, err)
	require.False(t, inserted)

	got, err := repo.FindParticipant(ctx, a.ID, 42)
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, got.Status)

	approved, err := repo.ApproveParticipant(ctx, a.ID, 42)
	require.NoError(t, err)
	require.True(t, approved)
	approved, err = repo.ApproveParticipant(ctx, a.ID, 42)
	require.NoError(t, err)
	require.False(t, approved)

	deleted, err := repo.DeleteParticipant(ctx, a.ID, 42, model.StatusPending)
	require.NoError(t, err)
	require.False(t, deleted)
	deleted, err = repo.DeleteParticipant(ctx, a.ID, 42, "")
	require.NoError(t, err)
	require.True(t, deleted)

	_, err = repo.FindParticipant(ctx, a.ID, 42)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryLinkConversationOnce(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	a := seedActivity(t, repo, seedUser(t, db, "host", ""), 0, 0, model.PrivacyOpen, day1)

	linked, err := repo.LinkConversation(ctx, a.ID, 7)
	require.NoError(t, err)
	require.True(t, linked)

	linked, err = repo.LinkConversation(ctx, a.ID, 8)
	require.NoError(t, err)
	require.False(t, linked)

	locked, err := repo.LockActivity(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, uint(7), *locked.ConversationID)
}

func TestRepositoryUpdateStatus(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	a := seedActivity(t, repo, seedUser(t, db, "host", ""), 0, 0, model.PrivacyOpen, day1)

	ok, err := repo.UpdateStatus(ctx, a.ID, model.ActivityActive, model.ActivityClosed)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = repo.UpdateStatus(ctx, a.ID, model.ActivityActive, model.ActivityClosed)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRepositoryListParticipantsOrderAndCount(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	host := seedUser(t, db, "host", "")
	a := seedActivity(t, repo, host, 0, 0, model.PrivacyOpen, day1)

	base := time.Now().UTC().Add(time.Hour)
	alice := seedUser(t, db, "alice", "female")
	bob := seedUser(t, db, "bob", "male")
	for i, uid := range []uint{bob, alice} {
		_, err := repo.InsertParticipant(ctx, &model.ActivityParticipant{
			ActivityID: a.ID, UserID: uid, Role: model.RoleGuest, Status: model.StatusJoined,
			JoinedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	_, err := repo.InsertParticipant(ctx, &model.ActivityParticipant{
		ActivityID: a.ID, UserID: 99, Role: model.RoleGuest, Status: model.StatusPending, JoinedAt: base.Add(time.Hour),
	})
	require.NoError(t, err)

	count, err := repo.CountJoined(ctx, a.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, count)

	all, err := repo.ListParticipants(ctx, a.ID, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	require.Equal(t, []uint{host, bob, alice, 99}, []uint{all[0].UserID, all[1].UserID, all[2].UserID, all[3].UserID})
	require.Equal(t, "bob", all[1].DisplayName)
	require.Empty(t, all[3].DisplayName, "没有资料的用户")

	pending, err := repo.ListParticipants(ctx, a.ID, model.StatusPending, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	preview, err := repo.ListParticipants(ctx, a.ID, model.StatusJoined, 2)
	require.NoError(t, err)
	require.Len(t, preview, 2)
}

func TestRepositoryListNearby(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	host := seedUser(t, db, "host", "")
	viewer := seedUser(t, db, "viewer", "")

	// 以巴黎市中心为圆心
	const lat, lng = 48.8566, 2.3522
	far := seedActivity(t, repo, host, 48.8049, 2.1204, model.PrivacyOpen, day1)      // 凡尔赛，约 17 km
	near := seedActivity(t, repo, host, 48.8584, 2.2945, model.PrivacyOpen, day1)     // 埃菲尔铁塔，约 4 km
	other := seedActivity(t, repo, host, 48.8606, 2.3376, model.PrivacyOpen, day2)    // 卢浮宫，另一天
	hidden := seedActivity(t, repo, host, 48.8530, 2.3499, model.PrivacyPrivate, day1) // 私密
	seedActivity(t, repo, host, 51.5074, -0.1278, model.PrivacyOpen, day1)            // 伦敦，范围外
	closed := seedActivity(t, repo, host, 48.8570, 2.3520, model.PrivacyOpen, day1)
	_, err := repo.UpdateStatus(ctx, closed.ID, model.ActivityActive, model.ActivityClosed)
	require.NoError(t, err)

	views, err := repo.ListNearby(ctx, viewer, NearbyQuery{Latitude: lat, Longitude: lng, RadiusKm: 50, Limit: 20})
	require.NoError(t, err)
	require.Equal(t, []uint{other.ID, near.ID, far.ID}, activityIDs(views))
	for i := 1; i < len(views); i++ {
		require.LessOrEqual(t, *views[i-1].DistanceKm, *views[i].DistanceKm)
	}
	require.InDelta(t, 17, *views[2].DistanceKm, 2)
	require.EqualValues(t, 1, views[0].ParticipantCount)
	require.Nil(t, views[0].MyStatus)

	// 有参与记录后私密活动可见，待审核状态也算
	_, err = repo.InsertParticipant(ctx, &model.ActivityParticipant{
		ActivityID: hidden.ID, UserID: viewer, Role: model.RoleGuest, Status: model.StatusPending, JoinedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	date := day1
	views, err = repo.ListNearby(ctx, viewer, NearbyQuery{Latitude: lat, Longitude: lng, RadiusKm: 50, Date: &date, Limit: 20})
	require.NoError(t, err)
	require.Equal(t, []uint{hidden.ID, near.ID, far.ID}, activityIDs(views))
	require.Equal(t, model.StatusPending, *views[0].MyStatus)
	require.Equal(t, model.RoleGuest, *views[0].MyRole)
	require.EqualValues(t, 1, views[0].ParticipantCount, "待审核不计入人数")

	views, err = repo.ListNearby(ctx, viewer, NearbyQuery{Latitude: lat, Longitude: lng, RadiusKm: 10, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Equal(t, []uint{other.ID}, activityIDs(views))

	views, err = repo.ListNearby(ctx, viewer, NearbyQuery{Latitude: lat, Longitude: lng, RadiusKm: 1000, Limit: 20})
	require.NoError(t, err)
	require.Len(t, views, 5)
}

func activityIDs(views []ActivityView) []uint {
	ids := make([]uint, 0, len(views))
	for _, v := range views {
		ids = append(ids, v.ID)
	}
	return ids
}

// brokenConversations 在 failAdd 打开后拒绝添加成员
type brokenConversations struct {
	*fakeConversations
	failAdd bool
}

func (b *brokenConversations) AddParticipant(ctx context.Context, conversationID, userID uint, role model.ConversationRole) error {
	if b.failAdd {
		return errProviderDown
	}
	return b.fakeConversations.AddParticipant(ctx, conversationID, userID, role)
}

func newSqliteService(t *testing.T) (*Service, *Repository, *brokenConversations, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	repo := NewRepository(db)
	convs := &brokenConversations{fakeConversations: newFakeConversations()}
	svc := NewService(repo, convs, &fakeNotifier{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return testNow }
	svc.limits = config.Default().Activity
	return svc, repo, convs, db
}

func countRows(t *testing.T, db *gorm.DB, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Unscoped().Model(m).Count(&n).Error)
	return n
}

func TestCreateRollsBackWhenConversationFails(t *testing.T) {
	svc, _, convs, db := newSqliteService(t)
	host := seedUser(t, db, "host", "female")
	convs.err = errProviderDown

	_, err := svc.Create(context.Background(), host, openRequest())
	require.ErrorIs(t, err, response.ErrDatabase)
	require.Zero(t, countRows(t, db, &model.Activity{}))
	require.Zero(t, countRows(t, db, &model.ActivityParticipant{}))
}

func TestOpenJoinRollsBackWhenMembershipFails(t *testing.T) {
	svc, repo, convs, db := newSqliteService(t)
	ctx := context.Background()
	host := seedUser(t, db, "host", "female")
	guest := seedUser(t, db, "guest", "male")

	created, err := svc.Create(ctx, host, openRequest())
	require.NoError(t, err)

	convs.failAdd = true
	_, err = svc.Join(ctx, guest, created.ID)
	require.ErrorIs(t, err, response.ErrDatabase)

	_, err = repo.FindParticipant(ctx, created.ID, guest)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	require.EqualValues(t, 1, countRows(t, db, &model.ActivityParticipant{}))
}

func TestApproveRollsBackWhenMembershipFails(t *testing.T) {
	svc, repo, convs, db := newSqliteService(t)
	ctx := context.Background()
	host := seedUser(t, db, "host", "female")
	guest := seedUser(t, db, "guest", "male")

	req := openRequest()
	req.Privacy = model.PrivacyPrivate
	created, err := svc.Create(ctx, host, req)
	require.NoError(t, err)

	joined, err := svc.Join(ctx, guest, created.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, joined.Status)

	convs.failAdd = true
	_, err = svc.Approve(ctx, host, created.ID, guest)
	require.ErrorIs(t, err, response.ErrDatabase)

	p, err := repo.FindParticipant(ctx, created.ID, guest)
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, p.Status)
	require.False(t, convs.isMember(*created.ConversationID, guest))
}

func TestJoinAfterCloseIsRejected(t *testing.T) {
	svc, repo, _, db := newSqliteService(t)
	ctx := context.Background()
	host := seedUser(t, db, "host", "female")
	guest := seedUser(t, db, "guest", "male")

	created, err := svc.Create(ctx, host, openRequest())
	require.NoError(t, err)
	_, err = svc.Close(ctx, host, created.ID)
	require.NoError(t, err)

	_, err = svc.Join(ctx, guest, created.ID)
	require.ErrorIs(t, err, response.ErrActivityInactive)
	_, err = repo.FindParticipant(ctx, created.ID, guest)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
