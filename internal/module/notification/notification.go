package notification

import (
	"strconv"

	"meetup-backend/internal/global/jwt"
	"meetup-backend/internal/global/response"

	"github.com/gin-gonic/gin"
)

type listReq struct {
	Page       int  `form:"page" binding:"omitempty,min=1"`
	PageSize   int  `form:"page_size" binding:"omitempty,min=1,max=100"`
	UnreadOnly bool `form:"unread_only"`
}

func List(c *gin.Context) {
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

	list, total, err := dispatcher.List(c.Request.Context(), payload.UserID, req.UnreadOnly, req.PageSize, (req.Page-1)*req.PageSize)
	if err != nil {
		log.Error("查询通知失败", "error", err, "user_id", payload.UserID)
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	response.Success(c, gin.H{
		"list":      list,
		"total":     total,
		"page":      req.Page,
		"page_size": req.PageSize,
	})
}

func MarkRead(c *gin.Context) {
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

	found, err := dispatcher.MarkRead(c.Request.Context(), payload.UserID, uint(id))
	if err != nil {
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	if !found {
		response.Fail(c, response.ErrNotFound.WithTips("通知不存在"))
		return
	}
	response.Success(c)
}

func MarkAllRead(c *gin.Context) {
	payload, ok := jwt.GetUserPayload(c)
	if !ok {
		response.Fail(c, response.ErrUnauthorized)
		return
	}
	updated, err := dispatcher.MarkAllRead(c.Request.Context(), payload.UserID)
	if err != nil {
		response.Fail(c, response.ErrDatabase.WithOrigin(err))
		return
	}
	response.Success(c, gin.H{"updated": updated})
}
