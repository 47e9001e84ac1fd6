package activity

import (
	"strconv"

	"meetup-backend/internal/global/jwt"
	"meetup-backend/internal/global/response"

	"github.com/gin-gonic/gin"
)

// currentUser 读取 Auth 中间件写入的用户，失败时已写回响应
func currentUser(c *gin.Context) (uint, bool) {
	payload, ok := jwt.GetUserPayload(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return 0, false
	}
	return payload.UserID, true
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.Fail(c, response.ErrInvalidRequest.WithTips(name+" 不合法"))
		return 0, false
	}
	return uint(id), true
}

// CreateActivity 处理创建活动请求
func CreateActivity(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("绑定创建活动请求失败", "error", err, "user_id", userID)
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}

	view, err := service.Create(c.Request.Context(), userID, req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, view)
}

type listReq struct {
	Latitude  *float64 `form:"lat" binding:"required,gte=-90,lte=90"`
	Longitude *float64 `form:"lng" binding:"required,gte=-180,lte=180"`
	RadiusKm  float64  `form:"radius_km" binding:"omitempty,gt=0,lte=20000"`
	Date      string   `form:"date"`
	Limit     int      `form:"limit" binding:"omitempty,min=1"`
	Offset    int      `form:"offset" binding:"omitempty,min=0"`
}

// ListActivities 附近的活动列表
func ListActivities(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req listReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}

	q := NearbyQuery{
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		RadiusKm:  req.RadiusKm,
		Limit:     req.Limit,
		Offset:    req.Offset,
	}
	if req.Date != "" {
		date, err := parseDate(req.Date)
		if err != nil {
			response.Fail(c, err)
			return
		}
		q.Date = &date
	}

	views, err := service.ListNearby(c.Request.Context(), userID, q)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, views)
}

// GetActivity 活动详情
func GetActivity(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	view, err := service.Get(c.Request.Context(), userID, id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, view)
}

func JoinActivity(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	result, err := service.Join(c.Request.Context(), userID, id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, result)
}

func LeaveActivity(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	removed, err := service.Leave(c.Request.Context(), userID, id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, removed)
}

func CloseActivity(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	a, err := service.Close(c.Request.Context(), userID, id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, a)
}

func ListParticipants(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	list, err := service.Participants(c.Request.Context(), userID, id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, list)
}

func ListPending(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	list, err := service.Pending(c.Request.Context(), userID, id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, list)
}

type reviewReq struct {
	UserID uint `json:"user_id" binding:"required"`
}

func ApproveRequest(c *gin.Context) {
	hostID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req reviewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}

	result, err := service.Approve(c.Request.Context(), hostID, id, req.UserID)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, result)
}

func RejectRequest(c *gin.Context) {
	hostID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req reviewReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}

	if err := service.Reject(c.Request.Context(), hostID, id, req.UserID); err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, gin.H{"message": "已拒绝该申请"})
}
