package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sshcollectorpro/netconfig/addone/device"
	"github.com/sshcollectorpro/netconfig/internal/service"
	"github.com/sshcollectorpro/netconfig/internal/session"
)

// DeviceHandler 设备查询与操作
type DeviceHandler struct {
	devices *service.DeviceService
	backups *service.BackupService
}

// NewDeviceHandler 创建设备处理器；backups 可为 nil
func NewDeviceHandler(devices *service.DeviceService, backups *service.BackupService) *DeviceHandler {
	return &DeviceHandler{devices: devices, backups: backups}
}

// EditInterfaceRequest 接口编辑参数；LegacyExtra 为旧表单 '+'/'&' 编码
type EditInterfaceRequest struct {
	DataVLAN    string   `json:"data_vlan"`
	VoiceVLAN   string   `json:"voice_vlan"`
	Extra       []string `json:"extra"`
	LegacyExtra string   `json:"other"`
	Save        bool     `json:"save"`
}

// CommandsRequest 操作命令
type CommandsRequest struct {
	Commands []string `json:"commands" binding:"required"`
	// OneOff 使用一次性会话，不进入注册表
	OneOff bool `json:"one_off"`
}

// ConfigRequest 配置行
type ConfigRequest struct {
	Lines []string `json:"lines" binding:"required"`
	Save  bool     `json:"save"`
}

// BackupRequest 备份参数
type BackupRequest struct {
	Source  string `json:"source"`
	Backend string `json:"backend"`
}

// ListDevices GET /api/v1/devices
func (h *DeviceHandler) ListDevices(c *gin.Context) {
	devices, err := h.devices.Devices(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "获取设备列表成功", gin.H{"devices": devices, "total": len(devices)})
}

// GetDevice GET /api/v1/devices/:id
func (h *DeviceHandler) GetDevice(c *gin.Context) {
	id, valid := deviceID(c)
	if !valid {
		return
	}
	d, err := h.devices.Device(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "获取设备信息成功", d)
}

// Interfaces GET /api/v1/devices/:id/interfaces
func (h *DeviceHandler) Interfaces(c *gin.Context) {
	id, valid := deviceID(c)
	if !valid {
		return
	}
	table, err := h.devices.Interfaces(c.Request.Context(), id, identity(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "获取接口成功", table)
}

// MacTable GET /api/v1/devices/:id/mac?interface=Gi1/0/1
func (h *DeviceHandler) MacTable(c *gin.Context) {
	id, valid := deviceID(c)
	if !valid {
		return
	}
	iface := DecodeInterfaceName(c.Query("interface"))
	if iface == "" {
		badRequest(c, "MISSING_INTERFACE", "interface 参数不能为空")
		return
	}
	entries, err := h.devices.MacTable(c.Request.Context(), id, identity(c), iface)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "获取MAC地址表成功", entries)
}

// Neighbors GET /api/v1/devices/:id/neighbors
func (h *DeviceHandler) Neighbors(c *gin.Context) {
	id, valid := deviceID(c)
	if !valid {
		return
	}
	entries, err := h.devices.Neighbors(c.Request.Context(), id, identity(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "获取邻居成功", entries)
}

// Uptime GET /api/v1/devices/:id/uptime
func (h *DeviceHandler) Uptime(c *gin.Context) {
	id, valid := deviceID(c)
	if !valid {
		return
	}
	uptime, err := h.devices.Uptime(c.Request.Context(), id, identity(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "获取运行时长成功", gin.H{"uptime": uptime})
}

// PoE GET /api/v1/devices/:id/poe
func (h *DeviceHandler) PoE(c *gin.Context) {
	id, valid := deviceID(c)
	if !valid {
		return
	}
	status, err := h.devices.PoEStatus(c.Request.Context(), id, identity(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "获取PoE状态成功", status)
}

// Version GET /api/v1/devices/:id/version
func (h *DeviceHandler) Version(c *gin.Context) {
	h.lines(c, h.devices.Version)
}

// Inventory GET /api/v1/devices/:id/inventory
func (h *DeviceHandler) Inventory(c *gin.Context) {
	h.lines(c, h.devices.Inventory)
}

// RunningConfig GET /api/v1/devices/:id/running-config
func (h *DeviceHandler) RunningConfig(c *gin.Context) {
	h.text(c, h.devices.RunningConfig)
}

// StartupConfig GET /api/v1/devices/:id/startup-config
func (h *DeviceHandler) StartupConfig(c *gin.Context) {
	h.text(c, h.devices.StartupConfig)
}

func (h *DeviceHandler) lines(c *gin.Context, fn func(ctx context.Context, id uint, identity string) ([]string, error)) {
	id, valid := deviceID(c)
	if !valid {
		return
	}
	lines, err := fn(c.Request.Context(), id, identity(c))
	if err != nil {
		fail(c, err)
		return
	}
	if lines == nil {
		lines = []string{}
	}
	ok(c, "执行成功", lines)
}

func (h *DeviceHandler) text(c *gin.Context, fn func(ctx context.Context, id uint, identity string) (string, error)) {
	id, valid := deviceID(c)
	if !valid {
		return
	}
	out, err := fn(c.Request.Context(), id, identity(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "执行成功", gin.H{"output": out})
}

// InterfaceInfo GET /api/v1/devices/:id/interfaces/:iface
func (h *DeviceHandler) InterfaceInfo(c *gin.Context) {
	id, valid := deviceID(c)
	if !valid {
		return
	}
	info, err := h.devices.InterfaceInfo(c.Request.Context(), id, identity(c), DecodeInterfaceName(c.Param("iface")))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "获取接口信息成功", info)
}

// EnableInterfaces POST /api/v1/devices/:id/interfaces/:iface/enable，:iface 可用 '&' 分隔多个
func (h *DeviceHandler) EnableInterfaces(c *gin.Context) {
	h.toggle(c, h.devices.EnableInterface)
}

// DisableInterfaces POST /api/v1/devices/:id/interfaces/:iface/disable
func (h *DeviceHandler) DisableInterfaces(c *gin.Context) {
	h.toggle(c, h.devices.DisableInterface)
}

func (h *DeviceHandler) toggle(c *gin.Context, fn func(ctx context.Context, id uint, identity, iface string, save bool) ([]session.CommandResult, error)) {
	id, valid := deviceID(c)
	if !valid {
		return
	}
	ifaces := DecodeInterfaceList(c.Param("iface"))
	if len(ifaces) == 0 {
		badRequest(c, "MISSING_INTERFACE", "接口名不能为空")
		return
	}
	save, _ := strconv.ParseBool(c.Query("save"))

	results := make(map[string][]session.CommandResult, len(ifaces))
	for _, iface := range ifaces {
		res, err := fn(c.Request.Context(), id, identity(c), iface, save)
		if err != nil {
			fail(c, err)
			return
		}
		results[iface] = res
	}
	ok(c, "接口配置已下发", results)
}

// EditInterface POST /api/v1/devices/:id/interfaces/:iface/edit
func (h *DeviceHandler) EditInterface(c *gin.Context) {
	id, valid := deviceID(c)
	if !valid {
		return
	}
	var req EditInterfaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_PARAMS", "参数解析失败: "+err.Error())
		return
	}
	edit := device.InterfaceEdit{DataVLAN: req.DataVLAN, VoiceVLAN: req.VoiceVLAN, Extra: req.Extra}
	edit.Extra = append(edit.Extra, DecodeLegacyLines(req.LegacyExtra)...)

	results, err := h.devices.EditInterface(c.Request.Context(), id, identity(c), DecodeInterfaceName(c.Param("iface")), edit, req.Save)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "接口配置已下发", results)
}

// Commands POST /api/v1/devices/:id/commands
func (h *DeviceHandler) Commands(c *gin.Context) {
	id, valid := deviceID(c)
	if !valid {
		return
	}
	var req CommandsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_PARAMS", "参数解析失败: "+err.Error())
		return
	}
	cmds := nonEmpty(req.Commands)
	if len(cmds) == 0 {
		badRequest(c, "MISSING_COMMANDS", "命令不能为空")
		return
	}
	run := h.devices.RunCommands
	if req.OneOff {
		run = h.devices.RunCommandsOnce
	}
	out, err := run(c.Request.Context(), id, identity(c), cmds)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "命令执行完成", out)
}

// ConfigCommands POST /api/v1/devices/:id/config
func (h *DeviceHandler) ConfigCommands(c *gin.Context) {
	id, valid := deviceID(c)
	if !valid {
		return
	}
	var req ConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_PARAMS", "参数解析失败: "+err.Error())
		return
	}
	lines := nonEmpty(req.Lines)
	if len(lines) == 0 {
		badRequest(c, "MISSING_LINES", "配置行不能为空")
		return
	}
	results, err := h.devices.RunConfigCommands(c.Request.Context(), id, identity(c), lines, req.Save)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "配置已下发", results)
}

// SaveConfig POST /api/v1/devices/:id/save
func (h *DeviceHandler) SaveConfig(c *gin.Context) {
	id, valid := deviceID(c)
	if !valid {
		return
	}
	res, err := h.devices.SaveConfig(c.Request.Context(), id, identity(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "配置已保存", res)
}

// Backup POST /api/v1/devices/:id/backup
func (h *DeviceHandler) Backup(c *gin.Context) {
	id, valid := deviceID(c)
	if !valid {
		return
	}
	if h.backups == nil {
		c.JSON(http.StatusNotImplemented, ErrorResponse{Code: "BACKUP_DISABLED", Message: "备份未启用"})
		return
	}
	var req BackupRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "INVALID_PARAMS", "参数解析失败: "+err.Error())
			return
		}
	}
	rec, err := h.backups.Backup(c.Request.Context(), id, identity(c), req.Source, req.Backend)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "备份完成", rec)
}

// Backups GET /api/v1/devices/:id/backups?limit=20
func (h *DeviceHandler) Backups(c *gin.Context) {
	id, valid := deviceID(c)
	if !valid {
		return
	}
	if h.backups == nil {
		ok(c, "备份未启用", []struct{}{})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	records, err := h.backups.Records(c.Request.Context(), id, limit)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "获取备份记录成功", records)
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
