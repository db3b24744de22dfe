package simulate

import (
	"bufio"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
	"gopkg.in/yaml.v3"

	"github.com/sshcollectorpro/netconfig/pkg/logger"
)

// Config simulate.yaml 配置结构
type Config struct {
	Listen      string    `yaml:"listen"`
	HostKeyFile string    `yaml:"host_key_file"`
	Devices     []Profile `yaml:"devices"`
}

// Profile 一台模拟设备；登录用户名选择设备
type Profile struct {
	Hostname        string `yaml:"hostname"`
	Variant         string `yaml:"variant"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	EnablePassword  string `yaml:"enable_password"`
	StartPrivileged bool   `yaml:"start_privileged"`
	// OutputsDir 命令回显目录，文件名为命令本身或空格替换为下划线，后缀 .txt
	OutputsDir string            `yaml:"outputs_dir"`
	Outputs    map[string]string `yaml:"outputs"`
}

const invalidInput = "% Invalid input detected at '^' marker.\r\n"

// LoadConfig 读取模拟器 YAML 配置
func LoadConfig(path string) (*Config, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read simulate config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(bs, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal simulate config: %w", err)
	}
	return &cfg, nil
}

// Server 模拟 Cisco 设备的 SSH 服务
type Server struct {
	cfg      Config
	profiles map[string]*Profile
	hostKey  ssh.Signer
	listener net.Listener

	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	applied map[string][]string
	wg      sync.WaitGroup
}

// Start 监听 cfg.Listen（为空时使用 127.0.0.1:0）并开始接受连接
func Start(cfg Config) (*Server, error) {
	signer, err := loadOrCreateHostKey(cfg.HostKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to init host key: %w", err)
	}
	s := &Server{
		cfg:      cfg,
		profiles: make(map[string]*Profile, len(cfg.Devices)),
		hostKey:  signer,
		conns:    make(map[net.Conn]struct{}),
		applied:  make(map[string][]string),
	}
	for i := range cfg.Devices {
		p := &cfg.Devices[i]
		s.profiles[p.Username] = p
	}
	addr := cfg.Listen
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s.listener = ln
	logger.Info("Simulate: listener started", "addr", ln.Addr().String(), "devices", len(s.profiles))
	go s.acceptLoop()
	return s, nil
}

// Addr 实际监听地址
func (s *Server) Addr() *net.TCPAddr {
	return s.listener.Addr().(*net.TCPAddr)
}

// Applied 某台设备在配置模式下收到的配置行
func (s *Server) Applied(username string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.applied[username]...)
}

// ActiveConnections 当前 TCP 连接数
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// DropConnections 强制断开所有连接，用于模拟设备侧断线
func (s *Server) DropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
}

// Close 停止监听并断开全部连接
func (s *Server) Close() error {
	err := s.listener.Close()
	s.DropConnections()
	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			logger.Warn("Simulate: accept error", "error", err)
			time.Sleep(200 * time.Millisecond)
			continue
		}
		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			s.handleConn(c)
			s.mu.Lock()
			delete(s.conns, c)
			s.mu.Unlock()
		}(conn)
	}
}

func (s *Server) authenticate(user string, password []byte) (*ssh.Permissions, error) {
	p, ok := s.profiles[user]
	if !ok || p.Password != string(password) {
		logger.Debug("Simulate: auth failed", "user", user)
		return nil, fmt.Errorf("access denied")
	}
	return nil, nil
}

func (s *Server) handleConn(nc net.Conn) {
	defer nc.Close()
	srvCfg := &ssh.ServerConfig{
		PasswordCallback: func(md ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			return s.authenticate(md.User(), password)
		},
		KeyboardInteractiveCallback: func(md ssh.ConnMetadata, challenge ssh.KeyboardInteractiveChallenge) (*ssh.Permissions, error) {
			answers, err := challenge(md.User(), "Authentication", []string{"Password:"}, []bool{false})
			if err != nil {
				return nil, err
			}
			if len(answers) == 0 {
				return nil, fmt.Errorf("access denied")
			}
			return s.authenticate(md.User(), []byte(answers[0]))
		},
	}
	srvCfg.AddHostKey(s.hostKey)

	conn, chans, reqs, err := ssh.NewServerConn(nc, srvCfg)
	if err != nil {
		logger.Debug("Simulate: SSH handshake failed", "remote", nc.RemoteAddr().String(), "error", err)
		return
	}
	defer conn.Close()
	// keepalive@openssh.com 等全局请求统一回复失败，客户端只关心连接是否仍可用
	go ssh.DiscardRequests(reqs)

	profile := s.profiles[conn.User()]
	for ch := range chans {
		if ch.ChannelType() != "session" {
			_ = ch.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}
		channel, requests, err := ch.Accept()
		if err != nil {
			logger.Error("Simulate: channel accept failed", "error", err)
			continue
		}
		go s.handleSession(channel, requests, profile)
	}
}

func (s *Server) handleSession(channel ssh.Channel, requests <-chan *ssh.Request, p *Profile) {
	defer channel.Close()
	for req := range requests {
		switch req.Type {
		case "pty-req":
			_ = req.Reply(true, nil)
		case "shell":
			_ = req.Reply(true, nil)
			s.runShell(channel, p)
			return
		default:
			_ = req.Reply(false, nil)
		}
	}
}

// cli 模拟 Cisco CLI 的模式状态
type cli struct {
	p          *Profile
	privileged bool
	mode       string // "", "config", "config-if"
}

func (c *cli) prompt() string {
	switch {
	case c.mode != "":
		return fmt.Sprintf("%s(%s)#", c.p.Hostname, c.mode)
	case c.privileged:
		return c.p.Hostname + "#"
	default:
		return c.p.Hostname + ">"
	}
}

func (s *Server) runShell(channel ssh.Channel, p *Profile) {
	c := &cli{p: p, privileged: p.StartPrivileged}
	r := bufio.NewReader(channel)
	write := func(out string) { _, _ = channel.Write([]byte(out)) }

	write("\r\n" + c.prompt())
	for {
		line, err := readLine(r)
		if err != nil {
			return
		}
		cmd := strings.TrimSpace(line)
		write(line + "\r\n")
		if cmd == "" {
			write(c.prompt())
			continue
		}

		switch {
		case cmd == "enable":
			if !c.privileged {
				write("Password: ")
				pwd, err := readLine(r)
				if err != nil {
					return
				}
				write("\r\n")
				if pwd == p.EnablePassword {
					c.privileged = true
				} else {
					write("% Access denied\r\n")
				}
			}
		case cmd == "exit" || cmd == "quit":
			switch c.mode {
			case "config-if":
				c.mode = "config"
			case "config":
				c.mode = ""
			default:
				return
			}
		case cmd == "end":
			if c.mode == "" {
				write(invalidInput)
			}
			c.mode = ""
		case c.mode != "":
			s.configLine(c, cmd)
		case cmd == "configure terminal" || cmd == "conf t":
			if !c.privileged {
				write(invalidInput)
				break
			}
			write("Enter configuration commands, one per line.  End with CNTL/Z.\r\n")
			c.mode = "config"
		case strings.HasPrefix(cmd, "terminal "):
		case cmd == "write memory":
			write("Building configuration...\r\n[OK]\r\n")
		case cmd == "copy running-config startup-config":
			write("[########################################] 100%\r\nCopy complete.\r\n")
		default:
			if out, ok := s.output(p, cmd); ok {
				write(out)
			} else {
				write(invalidInput)
			}
		}
		write(c.prompt())
	}
}

// configLine 记录配置行；interface 进入接口子模式
func (s *Server) configLine(c *cli, cmd string) {
	if strings.HasPrefix(cmd, "interface ") {
		c.mode = "config-if"
	}
	s.mu.Lock()
	s.applied[c.p.Username] = append(s.applied[c.p.Username], cmd)
	s.mu.Unlock()
}

func (s *Server) output(p *Profile, cmd string) (string, bool) {
	if out, ok := p.Outputs[cmd]; ok {
		return ensureCRLF(out), true
	}
	if p.OutputsDir == "" {
		return "", false
	}
	for _, name := range []string{cmd, strings.ReplaceAll(cmd, " ", "_")} {
		if bs, err := os.ReadFile(filepath.Join(p.OutputsDir, name+".txt")); err == nil {
			return ensureCRLF(string(bs)), true
		}
	}
	return "", false
}

// readLine 读取一行输入，CR 或 LF 均视为行结束，NUL 字节忽略
func readLine(r *bufio.Reader) (string, error) {
	var b strings.Builder
	for {
		ch, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		switch ch {
		case 0:
			continue
		case '\r', '\n':
			// CRLF 作为一个行结束；只在已缓冲时查看下一个字节，避免阻塞
			if ch == '\r' && r.Buffered() > 0 {
				if next, err := r.Peek(1); err == nil && next[0] == '\n' {
					_, _ = r.ReadByte()
				}
			}
			return b.String(), nil
		default:
			b.WriteByte(ch)
		}
	}
}

func ensureCRLF(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", "\r\n")
	if !strings.HasSuffix(s, "\r\n") {
		s += "\r\n"
	}
	return s
}

// loadOrCreateHostKey path 为空时生成临时密钥，否则持久化到文件以保持指纹稳定
func loadOrCreateHostKey(path string) (ssh.Signer, error) {
	if path != "" {
		if bs, err := os.ReadFile(path); err == nil {
			if signer, err := ssh.ParsePrivateKey(bs); err == nil {
				return signer, nil
			}
			logger.Warn("Simulate: host key parse failed, regenerating", "file", path)
		}
	}
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate host key: %w", err)
	}
	if path != "" {
		blk, err := ssh.MarshalPrivateKey(key, "netconfig simulate")
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, pem.EncodeToMemory(blk), 0o600); err != nil {
			return nil, fmt.Errorf("failed to write host key: %w", err)
		}
	}
	return ssh.NewSignerFromKey(key)
}
