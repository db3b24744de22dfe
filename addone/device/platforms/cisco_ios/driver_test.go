package cisco_ios

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshcollectorpro/netconfig/addone/device"
)

// fakeRunner 按命令返回预置回显；未预置的命令视为设备拒绝
type fakeRunner struct {
	outputs map[string]string
	errs    map[string]error
	calls   []string
}

func (f *fakeRunner) Run(_ context.Context, cmd string) (string, error) {
	f.calls = append(f.calls, cmd)
	if err, ok := f.errs[cmd]; ok {
		return "", err
	}
	out, ok := f.outputs[cmd]
	if !ok {
		return "% Invalid input detected at '^' marker.", device.ErrInvalidInput
	}
	return out, nil
}

const iosMacTable = `
          Mac Address Table
-------------------------------------------

Vlan    Mac Address       Type        Ports
----    -----------       --------    -----
   1    1234.5678.90ab    DYNAMIC     Po1
  10    90ab.1234.5678    DYNAMIC     Gi1/0/1
 100    5678.90ab.1234    DYNAMIC     Po100
        `

const iosxeMacTable = `
Unicast Entries
 vlan     mac address     type        protocols               port
---------+---------------+--------+---------------------+-------------------------
   1      1234.5678.90ab   dynamic ip,ipx,assigned,other Port-channel1
  10      90ab.1234.5678   dynamic ip,ipx,assigned,other TenGigabitEthernet1/0/1
 100      5678.90ab.1234   dynamic ip,ipx,assigned,other Port-channel100

Multicast Entries
 vlan     mac address     type    ports
---------+---------------+-------+--------------------------------------------
   1      aaaa.bbbb.cccc   system Te1/1/1,Te1/1/2,Te1/1/3,Te1/1/4,Te1/1/5
                                  Po1,Po10,Po100
        `

func newDriver(t *testing.T, variant string) device.Driver {
	t.Helper()
	d, err := device.New(variant)
	require.NoError(t, err)
	return d
}

func TestRegisteredVariants(t *testing.T) {
	assert.Equal(t, device.VariantIOS, newDriver(t, device.VariantIOS).Name())
	assert.Equal(t, device.VariantIOSXE, newDriver(t, device.VariantIOSXE).Name())
}

func TestCommandStrings(t *testing.T) {
	d := newDriver(t, device.VariantIOS)
	assert.Equal(t, "show running-config", d.RunningConfigCommand())
	assert.Equal(t, "show startup-config", d.StartupConfigCommand())
	assert.Equal(t, "show cdp entry *", d.NeighborDiscoveryCommand())
	assert.Equal(t, "show ip interface brief", d.InterfaceBriefCommand())
	assert.Equal(t, "show run interface Gi1/0/1 | exclude configuration|!", d.InterfaceConfigCommand("Gi1/0/1"))
	assert.Equal(t, "show interface Gi1/0/1", d.InterfaceStatsCommand("Gi1/0/1"))
	assert.Equal(t, "show mac address-table interface Gi1/0/1", d.MacTableCommand("Gi1/0/1"))
	assert.Equal(t, "write memory", d.SaveConfigCommand())
	assert.Equal(t, "configure terminal", d.EnterConfig())
	assert.Equal(t, "end", d.ExitConfig())
}

func TestPullMacTableIOS(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{
		"show mac address-table interface Po1": iosMacTable,
	}}
	got, err := newDriver(t, device.VariantIOS).PullMacTable(context.Background(), r, "Po1")
	require.NoError(t, err)
	assert.Equal(t, []device.MacEntry{
		{VLAN: "1", Address: "1234.5678.90ab", Port: "Po1"},
		{VLAN: "10", Address: "90ab.1234.5678", Port: "Gi1/0/1"},
		{VLAN: "100", Address: "5678.90ab.1234", Port: "Po100"},
	}, got)
}

func TestPullMacTableIOSXE(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{
		"show mac address-table interface Po1": iosxeMacTable,
	}}
	got, err := newDriver(t, device.VariantIOSXE).PullMacTable(context.Background(), r, "Po1")
	require.NoError(t, err)
	assert.Equal(t, []device.MacEntry{
		{VLAN: "1", Address: "1234.5678.90ab", Port: "Port-channel1"},
		{VLAN: "10", Address: "90ab.1234.5678", Port: "TenGigabitEthernet1/0/1"},
		{VLAN: "100", Address: "5678.90ab.1234", Port: "Port-channel100"},
	}, got)
}

func TestPullMacTableFallback(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{
		"show mac-address-table interface Gi1/0/1": iosMacTable,
	}}
	got, err := newDriver(t, device.VariantIOS).PullMacTable(context.Background(), r, "Gi1/0/1")
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, []string{
		"show mac address-table interface Gi1/0/1",
		"show mac-address-table interface Gi1/0/1",
	}, r.calls)
}

func TestPullMacTableDoubleFailure(t *testing.T) {
	r := &fakeRunner{}
	got, err := newDriver(t, device.VariantIOS).PullMacTable(context.Background(), r, "Gi1/0/1")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Len(t, r.calls, 2)
}

func TestPullMacTableTransportError(t *testing.T) {
	boom := errors.New("connection reset")
	r := &fakeRunner{errs: map[string]error{"show mac address-table interface Gi1/0/1": boom}}
	_, err := newDriver(t, device.VariantIOS).PullMacTable(context.Background(), r, "Gi1/0/1")
	assert.ErrorIs(t, err, boom)
}

func TestPullInterfaces(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{
		"show ip interface brief": `
Interface              IP-Address      OK? Method Status                Protocol
Vlan1                  192.168.0.1     YES DHCP   up                    up
FastEthernet1/0/1      unassigned      YES NVRAM  up                    down
FastEthernet1/0/2      unassigned      YES unset  down                  down
FastEthernet1/0/3      unassigned      YES unset  administratively down down
`,
	}}
	d := newDriver(t, device.VariantIOS)
	records, err := d.PullInterfaces(context.Background(), r)
	require.NoError(t, err)
	require.Len(t, records, 4)
	for _, rec := range records {
		assert.Equal(t, "--", rec.Description)
	}
	assert.Equal(t, device.InterfaceCounts{Up: 1, Down: 2, Disabled: 1, Total: 4}, d.CountInterfaces(records))
}

func TestPullInterfacesRejected(t *testing.T) {
	for _, variant := range []string{device.VariantIOS, device.VariantIOSXE} {
		r := &fakeRunner{}
		records, err := newDriver(t, variant).PullInterfaces(context.Background(), r)
		require.NoError(t, err, variant)
		assert.Equal(t, []device.InterfaceRecord{}, records, variant)
		assert.Equal(t, []string{"show ip interface brief"}, r.calls, variant)
	}
}

func TestPullInterfacesTransportError(t *testing.T) {
	boom := errors.New("eof")
	r := &fakeRunner{errs: map[string]error{"show ip interface brief": boom}}
	_, err := newDriver(t, device.VariantIOS).PullInterfaces(context.Background(), r)
	assert.ErrorIs(t, err, boom)
}

func TestPullNeighborsRejected(t *testing.T) {
	got, err := newDriver(t, device.VariantIOS).PullNeighbors(context.Background(), &fakeRunner{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPullUptime(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{
		"show version | include uptime": "access-sw3 uptime is 1 year, 2 weeks, 6 days, 20 hours, 1 minute\n",
	}}
	got, err := newDriver(t, device.VariantIOS).PullUptime(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "1 year, 2 weeks, 6 days, 20 hours, 1 minute", got)
}

func TestPullPoEStatus(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{
		"show power inline | begin Interface": `Interface Admin  Oper       Power   Device              Class Max
                            (Watts)
--------- ------ ---------- ------- ------------------- ----- ----
Gi1/0/1   auto   on         15.4    Ieee PD             4     30.0
Gi1/0/2   auto   off        0.0     n/a                 n/a   30.0
Fa2/0/3   auto   on         6.3     IP Phone 7940       n/a   15.4
`,
	}}
	got, err := newDriver(t, device.VariantIOS).PullPoEStatus(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"GigabitEthernet1/0/1": "on",
		"GigabitEthernet1/0/2": "off",
		"FastEthernet2/0/3":    "on",
	}, got)
}
