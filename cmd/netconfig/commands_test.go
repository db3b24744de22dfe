package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshcollectorpro/netconfig/addone/device"
	"github.com/sshcollectorpro/netconfig/internal/model"
	"github.com/sshcollectorpro/netconfig/internal/service"
)

func TestParseDeviceID(t *testing.T) {
	id, err := parseDeviceID("42")
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)

	_, err = parseDeviceID("core-sw1")
	assert.ErrorContains(t, err, `invalid device id "core-sw1"`)
}

func TestPrintInterfaces(t *testing.T) {
	var buf bytes.Buffer
	table := &service.InterfaceTable{
		Device: model.Device{Hostname: "lab-sw1"},
		Interfaces: []device.InterfaceRecord{
			{Name: "Vlan1", Status: device.StatusUp, Protocol: "up", Address: "10.0.0.2", Description: "Management"},
		},
		Counts: device.InterfaceCounts{Up: 1, Total: 1},
	}
	require.NoError(t, printInterfaces(&buf, table))
	assert.Contains(t, buf.String(), "Vlan1")
	assert.Contains(t, buf.String(), "lab-sw1: 1 up, 0 down, 0 disabled, 1 total")
}

func TestPrintDevices(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printDevices(&buf, []model.Device{{ID: 3, Hostname: "edge-fw", IPv4: "10.0.0.9", OSVariant: device.VariantASA}}))
	assert.Contains(t, buf.String(), "10.0.0.9:22")
	assert.Contains(t, buf.String(), "cisco_asa")
}

func TestRootCommandsRegistered(t *testing.T) {
	for _, name := range []string{"devices", "add-device", "interfaces", "exec", "backup"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}
