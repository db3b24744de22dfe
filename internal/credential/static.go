package credential

import (
	"context"
	"fmt"

	"github.com/sshcollectorpro/netconfig/internal/config"
	"github.com/sshcollectorpro/netconfig/internal/model"
)

// StaticResolver 配置文件中的固定凭据，供 CLI 与测试使用
type StaticResolver struct {
	creds map[string]config.StaticCredential
}

// NewStaticResolver 键为身份标识，"default" 作为兜底
func NewStaticResolver(creds map[string]config.StaticCredential) *StaticResolver {
	return &StaticResolver{creds: creds}
}

func (r *StaticResolver) Resolve(_ context.Context, identity string, _ *model.Device) (*Credential, error) {
	c, ok := r.creds[identity]
	if !ok {
		c, ok = r.creds["default"]
	}
	if !ok || c.Username == "" {
		return nil, fmt.Errorf("%w: identity %q", ErrNotFound, identity)
	}
	return &Credential{Username: c.Username, Password: c.Password, Privileged: c.Privileged}, nil
}
