package model

import "time"

// 设备类别
const (
	CategorySwitch   = "switch"
	CategoryRouter   = "router"
	CategoryFirewall = "firewall"
)

// Device 清单中的一台网络设备；会话期间视为只读
// - os_variant: cisco_ios/cisco_iosxe/cisco_nxos/cisco_asa，决定驱动
// - local_credentials: 为 true 时按 "设备ID--身份" 查找本地账号

type Device struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Hostname         string    `gorm:"index;not null" json:"hostname"`
	IPv4             string    `gorm:"column:ipv4;not null" json:"ipv4"`
	Port             int       `gorm:"not null;default:22" json:"port"`
	Category         string    `gorm:"not null;default:switch" json:"category"`
	OSVariant        string    `gorm:"column:os_variant;not null" json:"os_variant"`
	LocalCredentials bool      `gorm:"not null;default:false" json:"local_credentials"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (Device) TableName() string { return "devices" }

// SSHPort 未配置端口时使用 22
func (d *Device) SSHPort() int {
	if d.Port <= 0 {
		return 22
	}
	return d.Port
}
