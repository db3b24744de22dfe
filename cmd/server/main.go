package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sshcollectorpro/netconfig/api/handler"
	"github.com/sshcollectorpro/netconfig/api/router"
	"github.com/sshcollectorpro/netconfig/internal/app"
	"github.com/sshcollectorpro/netconfig/internal/config"
	"github.com/sshcollectorpro/netconfig/pkg/logger"
	"github.com/sshcollectorpro/netconfig/simulate"
)

const simulatePath = "simulate/simulate.yaml"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "config file path")
	flag.Parse()

	// 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := logger.Init(cfg.Log); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info("Starting netconfig server", "version", "1.0.0")

	// 模拟设备需先于会话注册表启动，便于清单直接指向本地端口
	sim := &simulator{}
	if cfg.Server.SimulateEnable {
		sim.start()
	}
	defer sim.stop()

	ctx := context.Background()
	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize application", "error", err)
	}
	defer a.Close()

	// 静态凭据模式下不提供登录接口
	var creds handler.CredentialStore
	if a.CredStore != nil {
		creds = a.CredStore
	}

	// 设置路由
	r := router.SetupRouter(router.Handlers{
		Devices:  handler.NewDeviceHandler(a.Devices, a.Backups),
		Sessions: handler.NewSessionHandler(a.Registry, creds),
		Health:   a.Health,
		Mode:     cfg.Server.Mode,
	})

	// 创建HTTP服务器
	server := &http.Server{
		Addr:           cfg.GetServerAddr(),
		Handler:        r,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	// 启动服务器
	go func() {
		logger.Info("Server starting", "addr", server.Addr, "mode", cfg.Server.Mode)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// 配置文件热更新：日志级别与模拟开关；SSH 超时需重启生效
	go watchFile(*configPath, "Config", func() {
		newCfg, err := config.Load(*configPath)
		if err != nil {
			logger.Warn("Config reload failed", "error", err)
			return
		}
		if err := logger.Init(newCfg.Log); err != nil {
			logger.Warn("Logger reinit failed", "error", err)
		}
		logger.Info("Config reloaded")
		switch {
		case newCfg.Server.SimulateEnable && !sim.running():
			sim.start()
		case !newCfg.Server.SimulateEnable && sim.running():
			sim.stop()
		}
	})

	// simulate.yaml 变化时重启模拟设备
	go watchFile(simulatePath, "Simulate", func() {
		if !sim.running() {
			logger.Info("Simulate: reload ignored, simulate disabled")
			return
		}
		sim.stop()
		sim.start()
	})

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server shutting down...")

	// 优雅关闭服务器
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	} else {
		logger.Info("Server shutdown complete")
	}
}

// watchFile 监听文件变化，300ms 去抖后调用 reload
func watchFile(path, name string, reload func()) {
	if _, err := os.Stat(path); err != nil {
		logger.Warn(name+": file not found, skip watch", "path", path, "error", err)
		return
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn(name+" watch init failed", "error", err)
		return
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		logger.Warn(name+" watch add failed", "error", err)
		return
	}

	var debounce *time.Timer
	debounceInterval := 300 * time.Millisecond
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceInterval, reload)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn(name+" watch error", "error", err)
		}
	}
}

// simulator 可启停的模拟设备
type simulator struct {
	mu  sync.Mutex
	srv *simulate.Server
}

func (s *simulator) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.srv != nil
}

func (s *simulator) start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return
	}
	sc, err := simulate.LoadConfig(simulatePath)
	if err != nil {
		logger.Warn("Simulate: failed to load simulate.yaml", "path", simulatePath, "error", err)
		return
	}
	srv, err := simulate.Start(*sc)
	if err != nil {
		logger.Warn("Simulate: failed to start", "error", err)
		return
	}
	s.srv = srv
	logger.Info("Simulate: started", "addr", srv.Addr().String(), "devices", len(sc.Devices))
}

func (s *simulator) stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv == nil {
		return
	}
	if err := s.srv.Close(); err != nil {
		logger.Warn("Simulate: close failed", "error", err)
	}
	s.srv = nil
	logger.Info("Simulate: stopped")
}
