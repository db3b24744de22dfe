package session

import (
	"context"
	"time"

	"github.com/sshcollectorpro/netconfig/internal/config"
	"github.com/sshcollectorpro/netconfig/internal/credential"
	"github.com/sshcollectorpro/netconfig/internal/model"
	"github.com/sshcollectorpro/netconfig/pkg/ssh"
)

// SSHDialer 通过 pkg/ssh 建立 PTY 会话，按 OS 变体套用 device_defaults
type SSHDialer struct {
	Base      ssh.Config
	Platforms func(variant string) config.PlatformDefaultsConfig
}

// NewSSHDialer 从应用配置构造
func NewSSHDialer(cfg *config.Config) *SSHDialer {
	return &SSHDialer{
		Base: ssh.Config{
			ConnectTimeout: cfg.SSH.ConnectTimeout,
			CommandTimeout: cfg.SSH.CommandTimeout,
		},
		Platforms: cfg.Platform,
	}
}

func (d *SSHDialer) Open(ctx context.Context, dev *model.Device, cred *credential.Credential, timeout time.Duration) (Transport, error) {
	sc := d.Base
	sc.ConnectTimeout = timeout
	info := ssh.ConnectionInfo{
		Host:           dev.IPv4,
		Port:           dev.SSHPort(),
		Username:       cred.Username,
		Password:       cred.Password,
		EnablePassword: cred.Privileged,
	}
	if d.Platforms != nil {
		p := d.Platforms(dev.OSVariant)
		if len(p.PromptSuffixes) > 0 {
			sc.PromptSuffixes = p.PromptSuffixes
		}
		sc.DisablePaging = p.DisablePagingCmds
		// 未单独配置 enable 密码时沿用登录密码
		if p.EnableRequired && info.EnablePassword == "" {
			info.EnablePassword = cred.Password
		}
	}
	c, err := ssh.Dial(ctx, info, sc)
	if err != nil {
		return nil, err
	}
	return c, nil
}
