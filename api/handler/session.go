package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sshcollectorpro/netconfig/internal/credential"
	"github.com/sshcollectorpro/netconfig/internal/session"
	"github.com/sshcollectorpro/netconfig/pkg/logger"
)

// CredentialStore 可写的凭据存储，由 credential.RedisResolver 实现
type CredentialStore interface {
	Store(ctx context.Context, identity string, deviceID uint, cred credential.Credential) error
	Touch(ctx context.Context, identity string) error
	Delete(ctx context.Context, identity string) error
}

// SessionHandler 登录、注销与会话管理
type SessionHandler struct {
	registry *session.Registry
	creds    CredentialStore
}

// NewSessionHandler creds 为 nil 时登录接口返回 501（静态凭据模式）
func NewSessionHandler(registry *session.Registry, creds CredentialStore) *SessionHandler {
	return &SessionHandler{registry: registry, creds: creds}
}

// LoginRequest 登录参数；DeviceID 非 0 时保存为该设备的本地账号
type LoginRequest struct {
	Username   string `json:"username" binding:"required"`
	Password   string `json:"password" binding:"required"`
	Privileged string `json:"privileged"`
	DeviceID   uint   `json:"device_id"`
}

// SessionView 会话概要
type SessionView struct {
	DeviceID     uint   `json:"device_id"`
	Hostname     string `json:"hostname"`
	OSVariant    string `json:"os_variant"`
	InConfigMode bool   `json:"in_config_mode"`
	CreatedAt    string `json:"created_at"`
	LastUsed     string `json:"last_used"`
}

// Login POST /api/v1/sessions/login
func (h *SessionHandler) Login(c *gin.Context) {
	if h.creds == nil {
		c.JSON(http.StatusNotImplemented, ErrorResponse{Code: "STATIC_CREDENTIALS", Message: "当前使用静态凭据，无需登录"})
		return
	}
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_PARAMS", "参数解析失败: "+err.Error())
		return
	}
	cred := credential.Credential{
		Username:   strings.TrimSpace(req.Username),
		Password:   req.Password,
		Privileged: req.Privileged,
	}
	defer cred.Scrub()

	id := identity(c)
	if err := h.creds.Store(c.Request.Context(), id, req.DeviceID, cred); err != nil {
		logger.Error("Failed to store credentials", "identity", id, "error", err)
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Code: "CREDENTIAL_STORE_UNAVAILABLE", Message: err.Error()})
		return
	}
	logger.Info("Credentials stored", "identity", id, "device_id", req.DeviceID)
	ok(c, "登录成功", gin.H{"session_id": id})
}

// Logout DELETE /api/v1/sessions，断开全部会话并删除凭据
func (h *SessionHandler) Logout(c *gin.Context) {
	id := identity(c)
	n := h.registry.ReleaseAll(id)
	if h.creds != nil {
		if err := h.creds.Delete(c.Request.Context(), id); err != nil {
			logger.Warn("Failed to delete credentials", "identity", id, "error", err)
		}
	}
	ok(c, "已注销", gin.H{"released": n})
}

// List GET /api/v1/sessions
func (h *SessionHandler) List(c *gin.Context) {
	devices, err := h.registry.ListDevices(c.Request.Context(), identity(c))
	if err != nil {
		fail(c, err)
		return
	}
	byID := make(map[uint]*session.Session)
	for _, s := range h.registry.Sessions(identity(c)) {
		byID[s.Key.DeviceID] = s
	}
	views := make([]SessionView, 0, len(devices))
	for _, d := range devices {
		v := SessionView{DeviceID: d.ID, Hostname: d.Hostname, OSVariant: d.OSVariant}
		if s, found := byID[d.ID]; found {
			v.InConfigMode = s.InConfigMode()
			v.CreatedAt = s.CreatedAt().Format("2006-01-02 15:04:05")
			v.LastUsed = s.LastUsed().Format("2006-01-02 15:04:05")
		}
		views = append(views, v)
	}
	ok(c, "获取会话成功", views)
}

// Count GET /api/v1/sessions/count
func (h *SessionHandler) Count(c *gin.Context) {
	ok(c, "获取会话数成功", gin.H{"count": h.registry.Count(identity(c))})
}

// Disconnect DELETE /api/v1/sessions/devices/:id 断开当前身份在该设备上的会话
func (h *SessionHandler) Disconnect(c *gin.Context) {
	id, valid := deviceID(c)
	if !valid {
		return
	}
	h.registry.Release(id, identity(c))
	ok(c, "会话已断开", nil)
}

// DisconnectAll DELETE /api/v1/sessions/all 断开当前身份的全部会话，保留凭据
func (h *SessionHandler) DisconnectAll(c *gin.Context) {
	ok(c, "会话已断开", gin.H{"released": h.registry.ReleaseAll(identity(c))})
}

// DisconnectDevice DELETE /api/v1/devices/:id/sessions 断开所有身份在该设备上的会话
func (h *SessionHandler) DisconnectDevice(c *gin.Context) {
	id, valid := deviceID(c)
	if !valid {
		return
	}
	ok(c, "会话已断开", gin.H{"released": h.registry.ReleaseDevice(id)})
}

// Touch 续期凭据，供身份中间件调用
func (h *SessionHandler) Touch(ctx context.Context, identity string) {
	if h.creds == nil {
		return
	}
	if err := h.creds.Touch(ctx, identity); err != nil {
		logger.Debug("Credential touch failed", "identity", identity, "error", err)
	}
}
