package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// ErrorContextKey 是用于在 gin.Context 中存储错误对象的键
const ErrorContextKey = "error"

// ResponseContextKey 是用于在 gin.Context 中存储响应体的键，供 Sentry 上报使用
const ResponseContextKey = "response_body"

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// Error 业务错误，Code 为五位数，前三位即 HTTP 状态码
type Error struct {
	Code    int32  `json:"code"`
	Message string `json:"msg"`
	Origin  string `json:"origin"`
	// cause 保存原始错误，用于 Unwrap() 方法和 Sentry 堆栈提取
	cause error
	stack pkgerrors.StackTrace
}

func newError(code int32, msg string) *Error {
	return &Error{
		Code:    code,
		Message: msg,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("code:%d, msg:%s", e.Code, e.Message)
}

// GetCode 返回错误码，实现 sentry.CodedError 接口
func (e *Error) GetCode() int32 {
	return e.Code
}

// HTTPStatus 由错误码推导 HTTP 状态码
func (e *Error) HTTPStatus() int {
	status := int(e.Code / 100)
	if status < 400 || status > 599 {
		return http.StatusInternalServerError
	}
	return status
}

// IsServerError 5xx 错误不向客户端暴露细节
func (e *Error) IsServerError() bool {
	return e.HTTPStatus() >= 500
}

func (e *Error) Unwrap() error {
	return e.cause
}

// StackTrace 实现 pkg/errors 的 stackTracer 接口，供 Sentry 提取堆栈
func (e *Error) StackTrace() pkgerrors.StackTrace {
	if e.stack != nil {
		return e.stack
	}
	if st, ok := e.cause.(stackTracer); ok {
		return st.StackTrace()
	}
	return nil
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithOrigin 附带原始错误，Origin 仅在 debug 模式下返回给前端
func (e *Error) WithOrigin(err error) *Error {
	if err == nil {
		return e
	}

	wrappedErr := ensureStack(err)
	newErr := &Error{
		Code:    e.Code,
		Message: e.Message,
		Origin:  fmt.Sprintf("%+v", wrappedErr),
		cause:   wrappedErr,
	}
	if st, ok := wrappedErr.(stackTracer); ok {
		newErr.stack = st.StackTrace()
	}
	return newErr
}

// WithTips 向前端返回额外的提示信息（release 模式也可见）
func (e *Error) WithTips(details ...string) *Error {
	msg := e.Message
	if len(details) > 0 {
		msg = msg + "：" + strings.Join(details, "，")
	}
	return &Error{
		Code:    e.Code,
		Message: msg,
		Origin:  e.Origin,
		cause:   e.cause,
		stack:   e.stack,
	}
}

// WithTipsf 同 WithTips，支持格式化
func (e *Error) WithTipsf(format string, args ...any) *Error {
	return e.WithTips(fmt.Sprintf(format, args...))
}

// ensureStack 确保错误带有堆栈信息
func ensureStack(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(stackTracer); ok {
		return err
	}
	return pkgerrors.WithStack(err)
}
