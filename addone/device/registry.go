package device

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory 构造某个 OS 变体的驱动
type Factory func() Driver

// 注册中心，按 OS 变体获取驱动
var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register 注册一个平台驱动，通常在平台包的 init() 中调用
func Register(variant string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[variant] = f
}

// Supported 已注册的 OS 变体（已排序）
func Supported() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New 按 OS 变体构造驱动；未知变体返回 ErrUnsupportedVariant 并列出支持的集合
func New(variant string) (Driver, error) {
	registryMu.RLock()
	f, ok := registry[variant]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q: supported variants are %s",
			ErrUnsupportedVariant, variant, strings.Join(Supported(), ", "))
	}
	return f(), nil
}
