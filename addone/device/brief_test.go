package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const iosBrief = `
Interface              IP-Address      OK? Method Status                Protocol
Vlan1                  192.168.0.1     YES DHCP   up                    up
FastEthernet1/0/1      unassigned      YES NVRAM  up                    down
FastEthernet1/0/2      unassigned      YES unset  down                  down
FastEthernet1/0/3      unassigned      YES unset  administratively down down
`

const iosDescriptions = `
Interface                      Status         Protocol Description
Vl1                            up             up       Management VLAN for the access layer
Fa1/0/1                        up             down     Printer
Fa1/0/2                        down           down
Fa1/0/3                        admin down     down     Spare
`

func TestParseBriefTable(t *testing.T) {
	records := ParseBriefTable(iosBrief, "")
	require.Len(t, records, 4)

	assert.Equal(t, InterfaceRecord{
		Name: "Vlan1", Address: "192.168.0.1", Description: "--",
		Status: StatusUp, Protocol: StatusUp, RawStatus: "up",
	}, records[0])
	assert.Equal(t, "FastEthernet1/0/1", records[1].Name)
	assert.Equal(t, "unassigned", records[1].Address)
	assert.Equal(t, StatusUp, records[1].Status)
	assert.Equal(t, StatusDown, records[1].Protocol)
	assert.Equal(t, StatusDown, records[2].Status)
	assert.Equal(t, StatusAdminDown, records[3].Status)
	assert.Equal(t, "administratively down", records[3].RawStatus)
	assert.Equal(t, StatusDown, records[3].Protocol)
}

func TestParseBriefTableWithDescriptions(t *testing.T) {
	records := ParseBriefTable(iosBrief, iosDescriptions)
	require.Len(t, records, 4)
	assert.Equal(t, "Management VLAN for the a..", records[0].Description)
	assert.Equal(t, "Printer", records[1].Description)
	assert.Equal(t, "--", records[2].Description)
	assert.Equal(t, "Spare", records[3].Description)
}

func TestCountIOSFamily(t *testing.T) {
	counts := CountIOSFamily(ParseBriefTable(iosBrief, ""))
	assert.Equal(t, InterfaceCounts{Up: 1, Down: 2, Disabled: 1, Total: 4}, counts)
}

func TestParseBriefTableSingleSpaced(t *testing.T) {
	out := "GigabitEthernet1/0/10 10.0.0.1 YES manual up up\nLoopback9 unassigned YES manual deleted down\n"
	records := ParseBriefTable(out, "")
	require.Len(t, records, 2)
	assert.Equal(t, "GigabitEthernet1/0/10", records[0].Name)
	assert.Equal(t, "10.0.0.1", records[0].Address)
	assert.Equal(t, StatusUp, records[0].Status)
	assert.Equal(t, "deleted", records[1].RawStatus)
	assert.Equal(t, StatusDown, records[1].Protocol)
}

func TestParseBriefTableSkipsGarbage(t *testing.T) {
	assert.Empty(t, ParseBriefTable("", ""))
	assert.Empty(t, ParseBriefTable("% Invalid input detected at '^' marker.\n", ""))
}
