package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sshcollectorpro/netconfig/addone/device"
	"github.com/sshcollectorpro/netconfig/internal/inventory"
	"github.com/sshcollectorpro/netconfig/internal/session"
	"github.com/sshcollectorpro/netconfig/pkg/logger"
	"github.com/sshcollectorpro/netconfig/pkg/ssh"
)

// IdentityKey gin 上下文中操作员身份的键，由 router.IdentityMiddleware 设置
const IdentityKey = "identity"

// ErrorResponse 错误响应
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SuccessResponse 成功响应
type SuccessResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func ok(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{Code: "SUCCESS", Message: message, Data: data})
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Code: code, Message: message})
}

// errorStatus 将领域错误映射为 HTTP 状态与错误码
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		return http.StatusNotFound, "DEVICE_NOT_FOUND"
	case errors.Is(err, device.ErrUnsupportedVariant):
		return http.StatusInternalServerError, "UNSUPPORTED_VARIANT"
	case errors.Is(err, session.ErrNoCredentials):
		return http.StatusUnauthorized, "NO_CREDENTIALS"
	case errors.Is(err, ssh.ErrTimeout):
		return http.StatusGatewayTimeout, "DEVICE_TIMEOUT"
	case errors.Is(err, session.ErrUnreachable):
		return http.StatusBadGateway, "DEVICE_UNREACHABLE"
	case errors.Is(err, session.ErrReleased):
		return http.StatusConflict, "SESSION_RELEASED"
	case errors.Is(err, session.ErrTransport):
		return http.StatusBadGateway, "TRANSPORT_ERROR"
	case errors.Is(err, device.ErrInvalidInput):
		return http.StatusUnprocessableEntity, "INVALID_INPUT"
	case errors.Is(err, device.ErrUnsupported):
		return http.StatusBadRequest, "UNSUPPORTED_OPERATION"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func fail(c *gin.Context, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "path", c.FullPath(), "code", code, "error", err)
	}
	c.JSON(status, ErrorResponse{Code: code, Message: err.Error()})
}

func identity(c *gin.Context) string {
	return c.GetString(IdentityKey)
}

// deviceID 解析路径参数 :id
func deviceID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		badRequest(c, "INVALID_DEVICE_ID", "设备ID必须为正整数")
		return 0, false
	}
	return uint(id), true
}
