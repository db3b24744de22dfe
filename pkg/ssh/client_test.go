package ssh

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshcollectorpro/netconfig/simulate"
)

func startSim(t *testing.T, p simulate.Profile) *simulate.Server {
	t.Helper()
	srv, err := simulate.Start(simulate.Config{Devices: []simulate.Profile{p}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func labSwitch() simulate.Profile {
	return simulate.Profile{
		Hostname:       "lab-sw1",
		Variant:        "cisco_ios",
		Username:       "admin",
		Password:       "cisco",
		EnablePassword: "s3cret",
		Outputs: map[string]string{
			"show clock": "*10:00:00.000 UTC Mon Oct 12 2026",
			"show users": "    Line       User       Host(s)              Idle       Location\n*  1 vty 0     admin      idle                 00:00:00 10.0.0.5\n",
		},
	}
}

func dialSim(t *testing.T, srv *simulate.Server, info ConnectionInfo) *Client {
	t.Helper()
	info.Host = "127.0.0.1"
	info.Port = srv.Addr().Port
	c, err := Dial(context.Background(), info, Config{
		ConnectTimeout: 5 * time.Second,
		CommandTimeout: 5 * time.Second,
		DisablePaging:  []string{"terminal length 0", "terminal width 511"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestDialEntersPrivilegedMode(t *testing.T) {
	srv := startSim(t, labSwitch())
	c := dialSim(t, srv, ConnectionInfo{Username: "admin", Password: "cisco", EnablePassword: "s3cret"})
	assert.Equal(t, "lab-sw1#", c.Prompt())
}

func TestDialWithoutEnablePasswordStaysInExec(t *testing.T) {
	srv := startSim(t, labSwitch())
	c := dialSim(t, srv, ConnectionInfo{Username: "admin", Password: "cisco"})
	assert.Equal(t, "lab-sw1>", c.Prompt())
}

func TestDialWrongEnablePassword(t *testing.T) {
	srv := startSim(t, labSwitch())
	_, err := Dial(context.Background(), ConnectionInfo{
		Host: "127.0.0.1", Port: srv.Addr().Port,
		Username: "admin", Password: "cisco", EnablePassword: "nope",
	}, Config{ConnectTimeout: 5 * time.Second, CommandTimeout: 5 * time.Second})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEnable))
}

func TestDialBadPassword(t *testing.T) {
	srv := startSim(t, labSwitch())
	_, err := Dial(context.Background(), ConnectionInfo{
		Host: "127.0.0.1", Port: srv.Addr().Port, Username: "admin", Password: "wrong",
	}, Config{ConnectTimeout: 5 * time.Second})
	assert.Error(t, err)
}

func TestSendStripsEchoAndPrompt(t *testing.T) {
	srv := startSim(t, labSwitch())
	c := dialSim(t, srv, ConnectionInfo{Username: "admin", Password: "cisco", EnablePassword: "s3cret"})

	out, err := c.Send(context.Background(), "show clock")
	require.NoError(t, err)
	assert.Equal(t, "*10:00:00.000 UTC Mon Oct 12 2026", out)

	out, err = c.Send(context.Background(), "show users")
	require.NoError(t, err)
	assert.Contains(t, out, "*  1 vty 0     admin")
	assert.NotContains(t, out, "lab-sw1#")
}

func TestSendInvalidInputIsReturnedAsText(t *testing.T) {
	srv := startSim(t, labSwitch())
	c := dialSim(t, srv, ConnectionInfo{Username: "admin", Password: "cisco", EnablePassword: "s3cret"})

	out, err := c.Send(context.Background(), "show bogus")
	require.NoError(t, err)
	assert.Contains(t, out, "% Invalid input detected")
}

func TestSendBatchTracksConfigPrompt(t *testing.T) {
	srv := startSim(t, labSwitch())
	c := dialSim(t, srv, ConnectionInfo{Username: "admin", Password: "cisco", EnablePassword: "s3cret"})

	outs, err := c.SendBatch(context.Background(), []string{
		"configure terminal",
		"interface GigabitEthernet1/0/5",
		"shutdown",
	})
	require.NoError(t, err)
	require.Len(t, outs, 3)
	assert.Equal(t, "lab-sw1(config-if)#", c.Prompt())

	_, err = c.Send(context.Background(), "end")
	require.NoError(t, err)
	assert.Equal(t, "lab-sw1#", c.Prompt())
	assert.Equal(t, []string{"interface GigabitEthernet1/0/5", "shutdown"}, srv.Applied("admin"))
}

func TestProbe(t *testing.T) {
	srv := startSim(t, labSwitch())
	c := dialSim(t, srv, ConnectionInfo{Username: "admin", Password: "cisco"})

	require.NoError(t, c.Probe(2*time.Second))

	srv.DropConnections()
	assert.Eventually(t, func() bool {
		return c.Probe(500*time.Millisecond) != nil
	}, 5*time.Second, 50*time.Millisecond)
}

func TestProbeDoesNotWaitForRunningCommand(t *testing.T) {
	srv := startSim(t, labSwitch())
	c := dialSim(t, srv, ConnectionInfo{Username: "admin", Password: "cisco"})

	// 模拟命令执行中占用通道
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	err := c.Probe(200 * time.Millisecond)
	assert.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClosedClient(t *testing.T) {
	srv := startSim(t, labSwitch())
	c := dialSim(t, srv, ConnectionInfo{Username: "admin", Password: "cisco"})

	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())

	_, err := c.Send(context.Background(), "show clock")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.Probe(time.Second), ErrClosed)
}

func TestReadUntil(t *testing.T) {
	c := &Client{cfg: Config{}.withDefaults(), chunks: make(chan []byte, 4), closed: make(chan struct{})}

	_, err := c.readUntil(context.Background(), 20*time.Millisecond, c.atPrompt)
	assert.ErrorIs(t, err, ErrTimeout)

	c.chunks <- []byte("line one\r\nsw")
	c.chunks <- []byte("1#")
	out, err := c.readUntil(context.Background(), time.Second, c.atPrompt)
	require.NoError(t, err)
	assert.Equal(t, "line one\r\nsw1#", out)

	close(c.chunks)
	_, err = c.readUntil(context.Background(), time.Second, c.atPrompt)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestAtPromptRequiresHostname(t *testing.T) {
	c := &Client{cfg: Config{}.withDefaults()}
	c.setPrompt("core-sw#")
	assert.Equal(t, "core-sw", c.hostname)

	assert.True(t, c.atPrompt("output\r\ncore-sw(config)#"))
	assert.False(t, c.atPrompt("Building configuration... 50% #"))
	assert.False(t, c.atPrompt("core-sw#show run\r\n"))
}

func TestAfterEcho(t *testing.T) {
	rest, ok := afterEcho("\r\nsw1#show clock\r\n10:00\r\nsw1#", "show clock")
	assert.True(t, ok)
	assert.Equal(t, "10:00\r\nsw1#", rest)

	_, ok = afterEcho("\r\nsw1#", "show clock")
	assert.False(t, ok)
	_, ok = afterEcho("\r\nsw1#show cl", "show clock")
	assert.False(t, ok)
}

func TestCleanOutput(t *testing.T) {
	assert.Equal(t, "a\n  b", cleanOutput("a  \r\n  b\r\nsw1#"))
	assert.Equal(t, "", cleanOutput("sw1#"))
	assert.Equal(t, "red", cleanOutput("\x1b[31mred\x1b[0m\r\nsw1#"))
}

func TestHostnameOf(t *testing.T) {
	suffixes := []string{"#", ">"}
	assert.Equal(t, "sw1", hostnameOf("sw1(config-if)#", suffixes))
	assert.Equal(t, "fw01/pri/act", hostnameOf("fw01/pri/act>", suffixes))
}
