package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	log   *logrus.Logger
	logMu sync.RWMutex
)

// Config 日志配置
type Config struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// Init 初始化日志，可重复调用（配置热更新时刷新）
func Init(config Config) error {
	l := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if config.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:   "2006-01-02 15:04:05",
			DisableHTMLEscape: true, // 设备输出中含 <> 等字符
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	var writers []io.Writer
	if config.Output == "" || config.Output == "console" || config.Output == "both" {
		writers = append(writers, os.Stdout)
	}
	if config.Output == "file" || config.Output == "both" {
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
			return err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		})
	}
	if len(writers) > 0 {
		l.SetOutput(io.MultiWriter(writers...))
	}

	logMu.Lock()
	log = l
	logMu.Unlock()
	return nil
}

// GetLogger 获取日志实例
func GetLogger() *logrus.Logger {
	logMu.RLock()
	l := log
	logMu.RUnlock()
	if l != nil {
		return l
	}

	logMu.Lock()
	defer logMu.Unlock()
	if log == nil {
		log = logrus.New()
	}
	return log
}

// fields 将 "key", value 成对参数转换为 logrus 字段；落单的参数记到 extra
func fields(kv []interface{}) logrus.Fields {
	if len(kv) == 0 {
		return nil
	}
	f := make(logrus.Fields, len(kv)/2+1)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		if i+1 >= len(kv) {
			f["extra"] = key
			break
		}
		if err, isErr := kv[i+1].(error); isErr {
			f[key] = err.Error()
			continue
		}
		f[key] = kv[i+1]
	}
	return f
}

func entry(kv []interface{}) *logrus.Entry {
	return GetLogger().WithFields(fields(kv))
}

// Debug 调试日志
func Debug(msg string, kv ...interface{}) {
	entry(kv).Debug(msg)
}

// Debugf 格式化调试日志
func Debugf(format string, args ...interface{}) {
	GetLogger().Debugf(format, args...)
}

// Info 信息日志
func Info(msg string, kv ...interface{}) {
	entry(kv).Info(msg)
}

// Infof 格式化信息日志
func Infof(format string, args ...interface{}) {
	GetLogger().Infof(format, args...)
}

// Warn 警告日志
func Warn(msg string, kv ...interface{}) {
	entry(kv).Warn(msg)
}

// Warnf 格式化警告日志
func Warnf(format string, args ...interface{}) {
	GetLogger().Warnf(format, args...)
}

// Error 错误日志
func Error(msg string, kv ...interface{}) {
	entry(kv).Error(msg)
}

// Errorf 格式化错误日志
func Errorf(format string, args ...interface{}) {
	GetLogger().Errorf(format, args...)
}

// Fatal 致命错误日志
func Fatal(msg string, kv ...interface{}) {
	entry(kv).Fatal(msg)
}

// Fatalf 格式化致命错误日志
func Fatalf(format string, args ...interface{}) {
	GetLogger().Fatalf(format, args...)
}

// WithField 添加字段
func WithField(key string, value interface{}) *logrus.Entry {
	return GetLogger().WithField(key, value)
}

// WithFields 添加多个字段
func WithFields(f logrus.Fields) *logrus.Entry {
	return GetLogger().WithFields(f)
}

// WithDevice 带设备与会话标识的日志入口
func WithDevice(deviceID, hostname, identity string) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"device_id": deviceID,
		"hostname":  hostname,
		"identity":  identity,
	})
}
