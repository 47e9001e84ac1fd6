package response

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"meetup-backend/config"
	"meetup-backend/internal/global/logger"
	"meetup-backend/internal/global/sentry"

	"github.com/gin-gonic/gin"
)

const successCode int32 = 200

type ResponseBody struct {
	Code   int32  `json:"code"`
	Msg    string `json:"msg"`
	Data   any    `json:"data"`
	Origin string `json:"origin,omitempty"`
}

// Success 返回成功响应，data 可省略
func Success(c *gin.Context, data ...any) {
	body := ResponseBody{Code: successCode, Msg: "success"}
	if len(data) == 1 {
		body.Data = data[0]
	} else if len(data) > 1 {
		body.Data = data
	}
	c.Set(ResponseContextKey, body)
	c.JSON(http.StatusOK, body)
}

// Fail 返回错误响应，非 *Error 的错误统一视为服务器内部错误
func Fail(c *gin.Context, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = ErrServerInternal.WithOrigin(err)
	}

	body := ResponseBody{Code: e.Code, Msg: e.Message}
	if config.Get().Mode == config.ModeDebug {
		body.Origin = e.Origin
	}
	if e.IsServerError() {
		logger.Get().Error("服务器错误",
			"code", e.Code,
			"path", c.Request.URL.Path,
			"error", e.Origin,
		)
		sentry.CaptureException(c, e)
	}

	c.Set(ErrorContextKey, e)
	c.Set(ResponseContextKey, body)
	c.AbortWithStatusJSON(e.HTTPStatus(), body)
}

// Recovery 捕获 panic 并返回 500，需配合 defer 使用
func Recovery(c *gin.Context) {
	if r := recover(); r != nil {
		logger.Get().Error("panic recovered",
			"panic", fmt.Sprint(r),
			"stack", string(debug.Stack()),
			"path", c.Request.URL.Path,
		)
		var err error
		if e, ok := r.(error); ok {
			err = e
		} else {
			err = fmt.Errorf("%v", r)
		}
		Fail(c, ErrServerInternal.WithOrigin(err))
	}
}
