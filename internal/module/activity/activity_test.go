package activity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"meetup-backend/internal/global/jwt"
	"meetup-backend/internal/global/response"
	"meetup-backend/internal/model"
	"meetup-backend/internal/module/chat"
	"meetup-backend/internal/module/notification"
	"meetup-backend/tools"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type apiClient struct {
	t  *testing.T
	r  *gin.Engine
	db *gorm.DB
}

func newAPIClient(t *testing.T) *apiClient {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)

	log = slog.New(slog.NewTextHandler(io.Discard, nil))
	service = NewService(NewRepository(db), chat.NewRegistry(db), notification.NewDispatcher(db, nil, log), log)

	r := gin.New()
	(&ModuleActivity{}).InitRouter(r.Group("/api"))
	return &apiClient{t: t, r: r, db: db}
}

func (c *apiClient) token(userID uint) string {
	token, err := jwt.CreateToken(jwt.Payload{UserID: userID, Email: fmt.Sprintf("u%d@example.com", userID)})
	require.NoError(c.t, err)
	return token
}

func (c *apiClient) do(method, path string, userID uint, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("Authorization", "Bearer "+c.token(userID))
	}
	w := httptest.NewRecorder()
	c.r.ServeHTTP(w, req)
	return w
}

// call 发送请求并把 data 解码到 out，返回响应体
func (c *apiClient) call(method, path string, userID uint, body, out any) response.ResponseBody {
	w := c.do(method, path, userID, body)
	var resp struct {
		response.ResponseBody
		Data json.RawMessage `json:"data"`
	}
	require.NoError(c.t, json.NewDecoder(w.Body).Decode(&resp))
	if out != nil && resp.Code == 200 {
		require.NoError(c.t, json.Unmarshal(resp.Data, out))
	}
	return resp.ResponseBody
}

func createBody(privacy model.Privacy) gin.H {
	return gin.H{
		"description":   "周日下午桌游",
		"emoji":         "🎲",
		"date":          "2026-06-21",
		"time_kind":     "specific",
		"specific_time": "14:00",
		"location_text": "五道口",
		"latitude":      39.9929,
		"longitude":     116.3376,
		"privacy":       privacy,
		"age_min":       18,
		"age_max":       40,
	}
}

func requireOK(t *testing.T, resp response.ResponseBody) {
	t.Helper()
	require.Equal(t, int32(200), resp.Code, resp.Msg)
}

func requireErr(t *testing.T, expected *response.Error, resp response.ResponseBody) {
	t.Helper()
	require.Equal(t, expected.Code, resp.Code, resp.Msg)
}

func TestHandlerPrivateFlow(t *testing.T) {
	api := newAPIClient(t)
	host := seedUser(t, api.db, "host", "female")
	guest := seedUser(t, api.db, "guest", "male")

	var created ActivityView
	requireOK(t, api.call(http.MethodPost, "/api/activities", host, createBody(model.PrivacyPrivate), &created))
	require.NotZero(t, created.ID)
	require.NotNil(t, created.ConversationID)
	base := fmt.Sprintf("/api/activities/%d", created.ID)

	requireErr(t, response.ErrPrivateActivity, api.call(http.MethodGet, base, guest, nil, nil))

	var joined JoinResult
	requireOK(t, api.call(http.MethodPost, base+"/join", guest, nil, &joined))
	require.Equal(t, model.StatusPending, joined.Status)
	require.Equal(t, "周日下午桌游", joined.ActivityTitle)
	require.Nil(t, joined.ConversationID)

	requireErr(t, response.ErrAlreadyRequested, api.call(http.MethodPost, base+"/join", guest, nil, nil))
	requireErr(t, response.ErrNotHost, api.call(http.MethodGet, base+"/pending", guest, nil, nil))

	var pending []ParticipantView
	requireOK(t, api.call(http.MethodGet, base+"/pending", host, nil, &pending))
	require.Len(t, pending, 1)
	require.Equal(t, guest, pending[0].UserID)
	require.Equal(t, "guest", pending[0].DisplayName)

	requireErr(t, response.ErrInvalidRequest, api.call(http.MethodPost, base+"/approve", host, gin.H{}, nil))

	var approved ApproveResult
	requireOK(t, api.call(http.MethodPost, base+"/approve", host, gin.H{"user_id": guest}, &approved))
	require.Equal(t, model.StatusJoined, approved.Status)
	require.Equal(t, *created.ConversationID, approved.ConversationID)

	member, err := chat.NewRegistry(api.db).IsMember(t.Context(), approved.ConversationID, guest)
	require.NoError(t, err)
	require.True(t, member)

	var detail ActivityView
	requireOK(t, api.call(http.MethodGet, base, guest, nil, &detail))
	require.EqualValues(t, 2, detail.ParticipantCount)
	require.Equal(t, model.StatusJoined, *detail.MyStatus)
	require.Len(t, detail.Preview, 2)

	var notes []model.Notification
	require.NoError(t, api.db.Order("id").Find(&notes).Error)
	require.Len(t, notes, 2)
	require.Equal(t, host, notes[0].UserID)
	require.Equal(t, model.NotifyJoinRequest, notes[0].Type)
	require.Equal(t, guest, notes[1].UserID)
	require.Equal(t, model.NotifyJoinApproved, notes[1].Type)
}

func TestHandlerRejectAndLeave(t *testing.T) {
	api := newAPIClient(t)
	host := seedUser(t, api.db, "host", "")
	guest := seedUser(t, api.db, "guest", "")

	var created ActivityView
	requireOK(t, api.call(http.MethodPost, "/api/activities", host, createBody(model.PrivacyPrivate), &created))
	base := fmt.Sprintf("/api/activities/%d", created.ID)

	requireOK(t, api.call(http.MethodPost, base+"/join", guest, nil, nil))
	requireOK(t, api.call(http.MethodPost, base+"/reject", host, gin.H{"user_id": guest}, nil))
	requireErr(t, response.ErrParticipantNotFound, api.call(http.MethodPost, base+"/reject", host, gin.H{"user_id": guest}, nil))

	var count int64
	require.NoError(t, api.db.Model(&model.ActivityParticipant{}).Where("user_id = ?", guest).Count(&count).Error)
	require.Zero(t, count)

	requireErr(t, response.ErrParticipantNotFound, api.call(http.MethodPost, base+"/leave", guest, nil, nil))
	requireErr(t, response.ErrHostCannotLeave, api.call(http.MethodPost, base+"/leave", host, nil, nil))
}

func TestHandlerOpenJoinLeave(t *testing.T) {
	api := newAPIClient(t)
	host := seedUser(t, api.db, "host", "")
	guest := seedUser(t, api.db, "guest", "")

	var created ActivityView
	requireOK(t, api.call(http.MethodPost, "/api/activities", host, createBody(model.PrivacyOpen), &created))
	base := fmt.Sprintf("/api/activities/%d", created.ID)

	var joined JoinResult
	requireOK(t, api.call(http.MethodPost, base+"/join", guest, nil, &joined))
	require.Equal(t, model.StatusJoined, joined.Status)
	require.Equal(t, *created.ConversationID, *joined.ConversationID)

	var removed model.ActivityParticipant
	requireOK(t, api.call(http.MethodPost, base+"/leave", guest, nil, &removed))
	require.Equal(t, guest, removed.UserID)
	requireErr(t, response.ErrParticipantNotFound, api.call(http.MethodPost, base+"/leave", guest, nil, nil))

	member, err := chat.NewRegistry(api.db).IsMember(t.Context(), *created.ConversationID, guest)
	require.NoError(t, err)
	require.False(t, member)

	var closed model.Activity
	requireErr(t, response.ErrNotHost, api.call(http.MethodPost, base+"/close", guest, nil, nil))
	requireOK(t, api.call(http.MethodPost, base+"/close", host, nil, &closed))
	require.Equal(t, model.ActivityClosed, closed.Status)
	requireErr(t, response.ErrActivityInactive, api.call(http.MethodPost, base+"/join", guest, nil, nil))
}

func TestHandlerList(t *testing.T) {
	api := newAPIClient(t)
	host := seedUser(t, api.db, "host", "")
	viewer := seedUser(t, api.db, "viewer", "")

	requireOK(t, api.call(http.MethodPost, "/api/activities", host, createBody(model.PrivacyOpen), nil))
	requireOK(t, api.call(http.MethodPost, "/api/activities", host, createBody(model.PrivacyPrivate), nil))

	var views []ActivityView
	requireOK(t, api.call(http.MethodGet, "/api/activities?lat=39.99&lng=116.33&date=2026-06-21", viewer, nil, &views))
	require.Len(t, views, 1)
	require.Equal(t, model.PrivacyOpen, views[0].Privacy)
	require.NotNil(t, views[0].DistanceKm)
	require.Less(t, *views[0].DistanceKm, 1.0)

	requireOK(t, api.call(http.MethodGet, "/api/activities?lat=39.99&lng=116.33&date=2026-06-22", viewer, nil, &views))
	require.Empty(t, views)

	requireErr(t, response.ErrInvalidRequest, api.call(http.MethodGet, "/api/activities?lng=116.33", viewer, nil, nil))
	requireErr(t, response.ErrInvalidRequest, api.call(http.MethodGet, "/api/activities?lat=95&lng=116.33", viewer, nil, nil))
	requireErr(t, response.ErrInvalidTimeFormat, api.call(http.MethodGet, "/api/activities?lat=39.99&lng=116.33&date=tomorrow", viewer, nil, nil))
}

func TestHandlerCreateValidation(t *testing.T) {
	api := newAPIClient(t)
	host := seedUser(t, api.db, "host", "")

	body := createBody(model.PrivacyOpen)
	body["age_min"], body["age_max"] = 50, 20
	requireErr(t, response.ErrInvalidAgeRange, api.call(http.MethodPost, "/api/activities", host, body, nil))

	body = createBody(model.PrivacyOpen)
	body["specific_time"] = "two pm"
	resp := api.call(http.MethodPost, "/api/activities", host, body, nil)
	requireErr(t, response.ErrInvalidTimeFormat, resp)
	require.Contains(t, resp.Msg, "two pm")

	body = createBody(model.PrivacyOpen)
	delete(body, "latitude")
	requireErr(t, response.ErrInvalidRequest, api.call(http.MethodPost, "/api/activities", host, body, nil))

	var count int64
	require.NoError(t, api.db.Model(&model.Activity{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestHandlerAuthAndParams(t *testing.T) {
	api := newAPIClient(t)

	requireErr(t, response.ErrUnauthorized, api.call(http.MethodGet, "/api/activities/1", 0, nil, nil))
	requireErr(t, response.ErrInvalidRequest, api.call(http.MethodGet, "/api/activities/abc", 1, nil, nil))
	requireErr(t, response.ErrActivityNotFound, api.call(http.MethodGet, "/api/activities/12345", 1, nil, nil))

	w := api.do(http.MethodGet, "/api/activities/1", 0, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandlerExportParticipants(t *testing.T) {
	api := newAPIClient(t)
	host := seedUser(t, api.db, "host", "")
	guest := seedUser(t, api.db, "guest", "")

	var created ActivityView
	requireOK(t, api.call(http.MethodPost, "/api/activities", host, createBody(model.PrivacyOpen), &created))
	path := fmt.Sprintf("/api/activities/%d/participants/export", created.ID)
	requireOK(t, api.call(http.MethodPost, fmt.Sprintf("/api/activities/%d/join", created.ID), guest, nil, nil))

	requireErr(t, response.ErrNotHost, api.call(http.MethodGet, path, guest, nil, nil))

	w := api.do(http.MethodGet, path, host, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, tools.ExcelContentType, w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	require.NotEmpty(t, w.Body.Bytes())

	var list []ParticipantView
	requireOK(t, api.call(http.MethodGet, fmt.Sprintf("/api/activities/%d/participants", created.ID), guest, nil, &list))
	require.Len(t, list, 2)
}
