package cisco_ios

import (
	"context"
	"errors"

	"github.com/sshcollectorpro/netconfig/addone/device"
)

// Driver 为 cisco_ios / cisco_iosxe 平台驱动，两者只在 MAC 表端口列位置上不同
type Driver struct {
	device.CiscoBase
	variant string
}

func (d *Driver) Name() string { return d.variant }

func (d *Driver) NeighborDiscoveryCommand() string { return "show cdp entry *" }

func (d *Driver) InterfaceBriefCommand() string { return "show ip interface brief" }

func (d *Driver) MacTableCommand(iface string) string {
	return "show mac address-table interface " + iface
}

// PullInterfaces show ip interface brief + show interface description 按行序合并；
// 设备拒绝 brief 命令时返回空表
func (d *Driver) PullInterfaces(ctx context.Context, r device.Runner) ([]device.InterfaceRecord, error) {
	brief, err := r.Run(ctx, d.InterfaceBriefCommand())
	if err != nil {
		if errors.Is(err, device.ErrInvalidInput) {
			return []device.InterfaceRecord{}, nil
		}
		return nil, err
	}
	desc, err := r.Run(ctx, "show interface description")
	if err != nil && !errors.Is(err, device.ErrInvalidInput) {
		return nil, err
	}
	return device.ParseBriefTable(brief, desc), nil
}

// PullNeighbors show cdp entry *
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

func init() {
	device.Register(device.VariantIOS, func() device.Driver { return &Driver{variant: device.VariantIOS} })
	device.Register(device.VariantIOSXE, func() device.Driver { return &Driver{variant: device.VariantIOSXE} })
}
