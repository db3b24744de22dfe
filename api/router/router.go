package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sshcollectorpro/netconfig/api/handler"
	"github.com/sshcollectorpro/netconfig/internal/metrics"
	"github.com/sshcollectorpro/netconfig/pkg/logger"
)

// IdentityHeader 操作员身份，首次请求时由服务端签发
const IdentityHeader = "X-Session-ID"

// Handlers 路由依赖
type Handlers struct {
	Devices  *handler.DeviceHandler
	Sessions *handler.SessionHandler
	// Health 返回 nil 表示依赖正常
	Health func() error
	Mode   string
}

// SetupRouter 设置路由
func SetupRouter(h Handlers) *gin.Engine {
	if h.Mode != "" {
		gin.SetMode(h.Mode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(CORSMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"name": "netconfig", "status": "running"})
	})
	r.GET("/health", func(c *gin.Context) {
		if h.Health != nil {
			if err := h.Health(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().Unix()})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/api/v1")
	v1.Use(IdentityMiddleware(h.Sessions.Touch))
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("/login", h.Sessions.Login)
			sessions.DELETE("", h.Sessions.Logout)
			sessions.GET("", h.Sessions.List)
			sessions.GET("/count", h.Sessions.Count)
			sessions.DELETE("/all", h.Sessions.DisconnectAll)
			sessions.DELETE("/devices/:id", h.Sessions.Disconnect)
		}

		devices := v1.Group("/devices")
		{
			devices.GET("", h.Devices.ListDevices)
			devices.GET("/:id", h.Devices.GetDevice)
			devices.DELETE("/:id/sessions", h.Sessions.DisconnectDevice)

			devices.GET("/:id/interfaces", h.Devices.Interfaces)
			devices.GET("/:id/interfaces/:iface", h.Devices.InterfaceInfo)
			devices.POST("/:id/interfaces/:iface/enable", h.Devices.EnableInterfaces)
			devices.POST("/:id/interfaces/:iface/disable", h.Devices.DisableInterfaces)
			devices.POST("/:id/interfaces/:iface/edit", h.Devices.EditInterface)

			devices.GET("/:id/mac", h.Devices.MacTable)
			devices.GET("/:id/neighbors", h.Devices.Neighbors)
			devices.GET("/:id/uptime", h.Devices.Uptime)
			devices.GET("/:id/poe", h.Devices.PoE)
			devices.GET("/:id/version", h.Devices.Version)
			devices.GET("/:id/inventory", h.Devices.Inventory)
			devices.GET("/:id/running-config", h.Devices.RunningConfig)
			devices.GET("/:id/startup-config", h.Devices.StartupConfig)

			devices.POST("/:id/commands", h.Devices.Commands)
			devices.POST("/:id/config", h.Devices.ConfigCommands)
			devices.POST("/:id/save", h.Devices.SaveConfig)
			devices.POST("/:id/backup", h.Devices.Backup)
			devices.GET("/:id/backups", h.Devices.Backups)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
			"path":    c.Request.URL.Path,
		})
	})

	return r
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID, "+IdentityHeader)
		c.Header("Access-Control-Expose-Headers", "X-Request-ID, "+IdentityHeader)
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestIDMiddleware 请求ID中间件
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

// IdentityMiddleware 读取 X-Session-ID 作为操作员身份，缺失时签发新的 UUID；
// 已有身份时调用 touch 续期凭据
func IdentityMiddleware(touch func(ctx context.Context, identity string)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(IdentityHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		} else if touch != nil {
			touch(c.Request.Context(), id)
		}
		c.Header(IdentityHeader, id)
		c.Set(handler.IdentityKey, id)
		c.Next()
	}
}

// LoggingMiddleware 日志中间件
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		requestID := c.GetString("request_id")
		statusCode := c.Writer.Status()
		logger.Info("HTTP Request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", statusCode,
			"duration", duration,
			"client_ip", c.ClientIP(),
			"identity", c.GetString(handler.IdentityKey),
		)
		if statusCode >= 400 {
			logger.Error("HTTP Error",
				"request_id", requestID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"status", statusCode,
				"duration", duration,
			)
		}
	}
}
