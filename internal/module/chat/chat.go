package chat

import (
	"errors"
	"strconv"

	"meetup-backend/internal/global/jwt"
	"meetup-backend/internal/global/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type listReq struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ListConversations 当前用户的会话列表
func ListConversations(c *gin.Context) {
	payload, ok := jwt.GetUserPayload(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return
	}
	var req listReq
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	views, err := registry.ListForUser(c.Request.Context(), payload.UserID, req.PageSize, (req.Page-1)*req.PageSize)
	if err != nil {
		log.Error("查询会话列表失败", "error", err, "user_id", payload.UserID)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	response.Success(c, views)
}

// ListParticipants 会话成员，仅成员可见
func ListParticipants(c *gin.Context) {
	payload, ok := jwt.GetUserPayload(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Fail(c, response.ErrInvalidRequest.WithOrigin(err))
		return
	}
	ctx := c.Request.Context()

	if _, err := registry.Get(ctx, uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.Fail(c, response.ErrNotFound.WithTips("会话不存在"))
			return
		}
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	member, err := registry.IsMember(ctx, uint(id), payload.UserID)
	if err != nil {
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	if !member {
		response.Fail(c, response.ErrNotMember)
		return
	}

	views, err := registry.Participants(ctx, uint(id))
	if err != nil {
		log.Error("查询会话成员失败", "error", err, "conversation_id", id)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	response.Success(c, views)
}
