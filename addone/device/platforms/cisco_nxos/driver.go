package cisco_nxos

import (
	"context"
	"errors"
	"strings"

	"github.com/sshcollectorpro/netconfig/addone/device"
)

// Driver 为 cisco_nxos 平台驱动
type Driver struct {
	device.CiscoBase
}

func (d *Driver) Name() string { return device.VariantNXOS }

func (d *Driver) RunningConfigCommand() string { return "show running-config | exclude !" }

func (d *Driver) StartupConfigCommand() string { return "show startup-config | exclude !" }

func (d *Driver) NeighborDiscoveryCommand() string { return "show cdp entry all" }

func (d *Driver) InterfaceBriefCommand() string { return "show interface status | xml" }

func (d *Driver) InterfaceConfigCommand(iface string) string {
	return "show run interface " + iface + " | exclude version | exclude Command | exclude !"
}

// MacTableCommand VLAN 接口需要在 "Vlan" 与编号之间插入空格
func (d *Driver) MacTableCommand(iface string) string {
	if strings.Contains(iface, "Vlan") {
		return "show mac address-table " + strings.Replace(iface, "Vlan", "Vlan ", 1) + " | xml"
	}
	return "show mac address-table interface " + iface + " | xml"
}

func (d *Driver) SaveConfigCommand() string { return "copy running-config startup-config" }

// PullNeighbors show cdp entry all
func (d *Driver) PullNeighbors(ctx context.Context, r device.Runner) ([]device.NeighborEntry, error) {
	out, err := r.Run(ctx, d.NeighborDiscoveryCommand())
	if err != nil {
		if errors.Is(err, device.ErrInvalidInput) {
			return []device.NeighborEntry{}, nil
		}
		return nil, err
	}
	return device.ParseCDPEntries(out), nil
}

// CountInterfaces NX-OS 以原始状态 disabled 判定管理关闭，其余按协议状态统计
func (d *Driver) CountInterfaces(records []device.InterfaceRecord) device.InterfaceCounts {
	var c device.InterfaceCounts
	for _, r := range records {
		switch {
		case strings.Contains(r.RawStatus, "disabled"):
			c.Disabled++
		case strings.Contains(r.Protocol, "down"):
			c.Down++
		case strings.Contains(r.Protocol, "up"):
			c.Up++
		}
		c.Total++
	}
	return c
}

func init() {
	device.Register(device.VariantNXOS, func() device.Driver { return &Driver{} })
}
