package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/sshcollectorpro/netconfig/internal/util"
	"github.com/sshcollectorpro/netconfig/pkg/logger"
)

var (
	// ErrClosed 交互通道已关闭
	ErrClosed = errors.New("ssh shell closed")
	// ErrTimeout 等待提示符超时
	ErrTimeout = errors.New("timed out waiting for prompt")
	// ErrEnable 进入特权模式失败
	ErrEnable = errors.New("enable failed")
)

// Config SSH配置
type Config struct {
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	// PromptSuffixes 提示符后缀，默认 ">" 与 "#"
	PromptSuffixes []string `mapstructure:"prompt_suffixes"`
	// DisablePaging 登录后执行的关闭分页命令，设备拒绝时忽略
	DisablePaging []string `mapstructure:"disable_paging"`
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 15 * time.Second
	}
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = 30 * time.Second
	}
	if len(c.PromptSuffixes) == 0 {
		c.PromptSuffixes = []string{"#", ">"}
	}
	return c
}

// ConnectionInfo SSH连接信息
type ConnectionInfo struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	Username       string `json:"username"`
	Password       string `json:"-"`
	EnablePassword string `json:"-"`
}

func (i ConnectionInfo) address() string {
	port := i.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(i.Host, fmt.Sprint(port))
}

// Client 基于 PTY Shell 的持久交互通道，同一时刻只执行一条命令
type Client struct {
	cfg  Config
	info ConnectionInfo

	conn    *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	chunks  chan []byte

	mu       sync.Mutex
	prompt   string
	hostname string

	closeOnce sync.Once
	closed    chan struct{}
}

func clientConfig(info ConnectionInfo, timeout time.Duration) *ssh.ClientConfig {
	cfg := &ssh.ClientConfig{
		User:            info.Username,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
		Config: ssh.Config{
			// 支持旧版本的密钥交换算法
			KeyExchanges: []string{
				"curve25519-sha256",
				"curve25519-sha256@libssh.org",
				"diffie-hellman-group14-sha256",
				"diffie-hellman-group14-sha1",
				"diffie-hellman-group1-sha1",
				"diffie-hellman-group-exchange-sha256",
				"diffie-hellman-group-exchange-sha1",
				"ecdh-sha2-nistp256",
				"ecdh-sha2-nistp384",
				"ecdh-sha2-nistp521",
			},
			Ciphers: []string{
				"aes128-ctr",
				"aes192-ctr",
				"aes256-ctr",
				"aes128-gcm@openssh.com",
				"aes256-gcm@openssh.com",
				"aes128-cbc",
				"aes192-cbc",
				"aes256-cbc",
				"3des-cbc",
			},
			MACs: []string{
				"hmac-sha2-256-etm@openssh.com",
				"hmac-sha2-256",
				"hmac-sha1",
				"hmac-sha1-96",
			},
		},
		HostKeyAlgorithms: []string{
			"ssh-ed25519",
			"ssh-rsa",
			"rsa-sha2-256",
			"rsa-sha2-512",
			"ecdsa-sha2-nistp256",
			"ecdsa-sha2-nistp384",
			"ecdsa-sha2-nistp521",
		},
	}
	// 同时尝试 password 与 keyboard-interactive，Cisco 设备两种都常见
	cfg.Auth = []ssh.AuthMethod{
		ssh.Password(info.Password),
		ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range questions {
				answers[i] = info.Password
			}
			return answers, nil
		}),
	}
	return cfg
}

// Dial 建立连接并打开 PTY Shell：等待首个提示符、关闭分页，必要时进入特权模式
func Dial(ctx context.Context, info ConnectionInfo, cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	addr := info.address()
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	raw, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = raw.SetDeadline(deadline)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(raw, addr, clientConfig(info, cfg.ConnectTimeout))
	if err != nil {
		raw.Close()
		return nil, fmt.Errorf("failed to create SSH connection: %w", err)
	}
	_ = raw.SetDeadline(time.Time{})

	c := &Client{
		cfg:    cfg,
		info:   info,
		conn:   ssh.NewClient(sshConn, chans, reqs),
		chunks: make(chan []byte, 256),
		closed: make(chan struct{}),
	}
	if err := c.openShell(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.login(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) openShell() error {
	session, err := c.conn.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	// 终端类型回退，优先 vt100
	var ptyErr error
	for _, term := range []string{"vt100", "xterm", "ansi", "dumb"} {
		if ptyErr = session.RequestPty(term, 24, 511, modes); ptyErr == nil {
			break
		}
	}
	if ptyErr != nil {
		session.Close()
		return fmt.Errorf("failed to request pty: %w", ptyErr)
	}
	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		return fmt.Errorf("failed to get stdin: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		return fmt.Errorf("failed to get stdout: %w", err)
	}
	if err := session.Shell(); err != nil {
		session.Close()
		return fmt.Errorf("failed to start shell: %w", err)
	}
	c.session = session
	c.stdin = stdin
	go c.readLoop(stdout)
	return nil
}

// readLoop 将回显按块推送到通道，读到 EOF 后关闭通道
func (c *Client) readLoop(r io.Reader) {
	defer close(c.chunks)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case c.chunks <- chunk:
			case <-c.closed:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func (c *Client) login(ctx context.Context) error {
	if _, err := c.stdin.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to trigger prompt: %w", err)
	}
	banner, err := c.readUntil(ctx, c.cfg.ConnectTimeout, c.atPrompt)
	if err != nil {
		return fmt.Errorf("waiting for initial prompt: %w", err)
	}
	c.setPrompt(lastLine(banner))

	for _, cmd := range c.cfg.DisablePaging {
		if _, err := c.send(ctx, cmd); err != nil {
			return err
		}
	}

	if strings.HasSuffix(c.prompt, ">") && c.info.EnablePassword != "" {
		if err := c.enable(ctx); err != nil {
			return err
		}
	}
	logger.Debug("SSH shell ready", "host", c.info.Host, "prompt", c.prompt)
	return nil
}

// enable 发送 enable，遇到密码提示时输入特权密码
func (c *Client) enable(ctx context.Context) error {
	c.drain()
	if _, err := c.stdin.Write([]byte("enable\n")); err != nil {
		return err
	}
	out, err := c.readUntil(ctx, c.cfg.CommandTimeout, func(buf string) bool {
		rest, ok := afterEcho(buf, "enable")
		return ok && (strings.Contains(strings.ToLower(lastLine(rest)), "password") || c.atPrompt(rest))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEnable, err)
	}
	if rest, _ := afterEcho(out, "enable"); !c.atPrompt(rest) {
		if _, err := c.stdin.Write([]byte(c.info.EnablePassword + "\n")); err != nil {
			return err
		}
		if out, err = c.readUntil(ctx, c.cfg.CommandTimeout, c.atPrompt); err != nil {
			return fmt.Errorf("%w: %v", ErrEnable, err)
		}
	}
	c.setPrompt(lastLine(out))
	if !strings.HasSuffix(c.prompt, "#") {
		return fmt.Errorf("%w: still at %q", ErrEnable, c.prompt)
	}
	return nil
}

// Send 发送一条命令并返回到下一个提示符之前的回显（去掉命令回显与提示符）
func (c *Client) Send(ctx context.Context, command string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send(ctx, command)
}

// SendBatch 依次发送多条命令，遇到错误时返回已完成的部分
func (c *Client) SendBatch(ctx context.Context, commands []string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	outs := make([]string, 0, len(commands))
	for _, cmd := range commands {
		out, err := c.send(ctx, cmd)
		if err != nil {
			return outs, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}

func (c *Client) send(ctx context.Context, command string) (string, error) {
	if c.isClosed() {
		return "", ErrClosed
	}
	c.drain()
	if _, err := c.stdin.Write([]byte(command + "\n")); err != nil {
		return "", fmt.Errorf("failed to write command: %w", err)
	}
	// 先看到命令回显，再以提示符判定结束，避免残留提示符提前截断
	raw, err := c.readUntil(ctx, c.cfg.CommandTimeout, func(buf string) bool {
		rest, ok := afterEcho(buf, command)
		return ok && c.atPrompt(rest)
	})
	rest, _ := afterEcho(raw, command)
	if err != nil {
		return cleanOutput(rest), err
	}
	c.setPrompt(lastLine(rest))
	return cleanOutput(rest), nil
}

// afterEcho 返回命令回显所在行之后的内容；尚未看到完整回显行时 ok 为 false
func afterEcho(buf, command string) (string, bool) {
	i := strings.Index(buf, strings.TrimSpace(command))
	if i < 0 {
		return "", false
	}
	rest := buf[i:]
	j := strings.IndexByte(rest, '\n')
	if j < 0 {
		return "", false
	}
	return rest[j+1:], true
}

// Probe 写入一个 NUL 字节并发送 keepalive 请求，超时或失败说明连接已失效
func (c *Client) Probe(timeout time.Duration) error {
	if c.isClosed() {
		return ErrClosed
	}
	// 命令执行中时通道显然在用，跳过写入，只做有界的 keepalive
	if c.mu.TryLock() {
		_, err := c.stdin.Write([]byte{0})
		c.mu.Unlock()
		if err != nil {
			return err
		}
	}
	done := make(chan error, 1)
	go func() {
		_, _, err := c.conn.SendRequest("keepalive@openssh.com", true, nil)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return ErrTimeout
	}
}

// Prompt 最近一次看到的提示符
func (c *Client) Prompt() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prompt
}

// Close 关闭会话与连接，可重复调用
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		if c.session != nil {
			_ = c.session.Close()
		}
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}

func (c *Client) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// drain 丢弃上一条命令之后残留的输出
func (c *Client) drain() {
	for {
		select {
		case _, ok := <-c.chunks:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// readUntil 累积回显直到 done 返回 true；超时返回 ErrTimeout，通道关闭返回 ErrClosed。
// 返回原始字节构成的字符串，编码转换留给调用方，避免多字节字符被分块截断
func (c *Client) readUntil(ctx context.Context, timeout time.Duration, done func(string) bool) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	var buf bytes.Buffer
	for {
		select {
		case <-ctx.Done():
			return buf.String(), ctx.Err()
		case <-timer.C:
			return buf.String(), ErrTimeout
		case chunk, ok := <-c.chunks:
			if !ok {
				return buf.String(), ErrClosed
			}
			buf.Write(chunk)
			if s := buf.String(); done(s) {
				return s, nil
			}
		}
	}
}

// atPrompt 回显的最后一行是否为提示符；已知主机名时要求以主机名开头
func (c *Client) atPrompt(buf string) bool {
	line := lastLine(buf)
	if line == "" {
		return false
	}
	if c.hostname != "" && !strings.HasPrefix(line, c.hostname) {
		return false
	}
	for _, suf := range c.cfg.PromptSuffixes {
		if strings.HasSuffix(line, suf) {
			return true
		}
	}
	return false
}

func (c *Client) setPrompt(p string) {
	c.prompt = p
	if c.hostname == "" {
		c.hostname = hostnameOf(p, c.cfg.PromptSuffixes)
	}
}

// hostnameOf 去掉模式后缀，例如 "sw1(config-if)#" -> "sw1"
func hostnameOf(prompt string, suffixes []string) string {
	for _, suf := range suffixes {
		prompt = strings.TrimSuffix(prompt, suf)
	}
	if i := strings.Index(prompt, "("); i > 0 {
		prompt = prompt[:i]
	}
	return strings.TrimSpace(prompt)
}

// lastLine 返回清洗后的最后一行（不以换行结尾的部分）
func lastLine(buf string) string {
	buf = strings.ReplaceAll(buf, "\r\n", "\n")
	if i := strings.LastIndexAny(buf, "\r\n"); i >= 0 {
		buf = buf[i+1:]
	}
	return strings.TrimSpace(sanitize(buf))
}

// cleanOutput 去掉末行提示符，清除 ANSI 控制序列并统一为 UTF-8
func cleanOutput(raw string) string {
	raw = util.EnsureUTF8(raw)
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "")
	lines := strings.Split(raw, "\n")
	if len(lines) > 0 {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimRight(sanitize(l), " ")
	}
	return strings.Join(lines, "\n")
}

// sanitize 移除 ANSI 转义序列与不可见控制符
func sanitize(s string) string {
	b := make([]byte, 0, len(s))
	skip := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if skip {
			// CSI 序列以字母结尾
			if (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z') {
				skip = false
			}
			continue
		}
		if ch == 0x1b {
			skip = true
			continue
		}
		if ch < 0x20 && ch != '\t' {
			continue
		}
		b = append(b, ch)
	}
	return string(b)
}
