// Package test 处理器测试的公共工具
package test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"meetup-backend/internal/global/response"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

// DoRequest 以 POST JSON 直接调用处理器，setup 可用于写入 payload 等上下文
func DoRequest(t *testing.T, handlerFunc gin.HandlerFunc, request any, setup ...func(c *gin.Context)) (resp response.ResponseBody) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	requestBytes, err := json.Marshal(request)
	require.NoError(t, err)
	c.Request = httptest.NewRequest(http.MethodPost, "/test", bytes.NewReader(requestBytes))
	c.Request.Header.Set("Content-Type", "application/json")
	for _, fn := range setup {
		fn(c)
	}
	handlerFunc(c)
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return
}
