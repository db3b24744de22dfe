package device

// 接口管理状态
const (
	StatusUp        = "up"
	StatusDown      = "down"
	StatusAdminDown = "admin-down"
	StatusUnknown   = "unknown"
)

// InterfaceRecord 接口表中的一行
type InterfaceRecord struct {
	Name        string `json:"name"`
	Address     string `json:"address"`
	Description string `json:"description"`
	// Status 归一化后的管理状态：up/down/admin-down
	Status string `json:"status"`
	// Protocol 协议状态：up/down，NX-OS 未知状态为 unknown
	Protocol string `json:"protocol"`
	// RawStatus 设备原始状态文本，计数规则依赖它
	RawStatus string `json:"raw_status"`
	Speed     string `json:"speed,omitempty"`
}

// MacEntry MAC 地址表条目
type MacEntry struct {
	VLAN    string `json:"vlan"`
	Address string `json:"mac_address"`
	Port    string `json:"port"`
}

// NeighborEntry CDP 邻居
type NeighborEntry struct {
	DeviceID       string `json:"device_id"`
	Address        string `json:"remote_ip"`
	Platform       string `json:"platform"`
	LocalInterface string `json:"local_iface"`
	PortID         string `json:"port_id"`
}

// InterfaceCounts 接口状态统计
type InterfaceCounts struct {
	Up       int `json:"up"`
	Down     int `json:"down"`
	Disabled int `json:"disabled"`
	Total    int `json:"total"`
}
