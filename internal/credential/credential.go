package credential

import (
	"context"
	"errors"

	"github.com/sshcollectorpro/netconfig/internal/model"
)

// ErrNotFound 找不到该身份（或该设备本地账号）的凭据
var ErrNotFound = errors.New("credentials not found")

// Credential 登录设备所用的账号。核心层从不持久化它
type Credential struct {
	Username string
	Password string
	// Privileged enable 密码，可为空
	Privileged string
}

// Scrub 尽力清空字段。Go 字符串不可变，原值在被回收前仍可能留在内存中，不保证安全擦除
func (c *Credential) Scrub() {
	if c == nil {
		return
	}
	c.Username = ""
	c.Password = ""
	c.Privileged = ""
}

// Resolver 按身份与设备解析凭据；device 为 nil 时返回该身份的通用凭据
type Resolver interface {
	Resolve(ctx context.Context, identity string, device *model.Device) (*Credential, error)
}
