package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sshcollectorpro/netconfig/internal/config"
	"github.com/sshcollectorpro/netconfig/pkg/logger"
)

// ErrFallbackToLocal MinIO 不可用，内容已写入本地
var ErrFallbackToLocal = errors.New("minio unavailable, stored locally")

// StorageWriter 抽象存储写入器
type StorageWriter interface {
	Write(ctx context.Context, meta StorageMeta, content string) (StoredObject, error)
}

// StorageMeta 写入元数据
type StorageMeta struct {
	DeviceName string
	DeviceIP   string
	// Kind 内容类别，作为文件名，例如 running-config
	Kind      string
	Timestamp time.Time
	Backend   string // local|minio
}

// StoredObject 存储的对象信息
type StoredObject struct {
	URI         string `json:"uri"`
	Backend     string `json:"backend"`
	Size        int64  `json:"size"`
	Checksum    string `json:"checksum"`
	ContentType string `json:"content_type"`
}

// NewStorageWriter 根据配置创建写入器（委派到本地或 MinIO）
func NewStorageWriter(cfg config.BackupConfig) StorageWriter {
	return &DelegatingStorageWriter{
		local: &LocalStorageWriter{cfg: cfg},
		minio: initMinioWriter(cfg),
	}
}

// DelegatingStorageWriter 按后端路由写入，MinIO 失败时回退本地
type DelegatingStorageWriter struct {
	local *LocalStorageWriter
	minio *MinioStorageWriter
}

func (w *DelegatingStorageWriter) Write(ctx context.Context, meta StorageMeta, content string) (StoredObject, error) {
	if strings.ToLower(strings.TrimSpace(meta.Backend)) != "minio" {
		return w.local.Write(ctx, meta, content)
	}
	if w.minio == nil {
		logger.Warn("MinIO backend selected but client not initialized; falling back to local")
		obj, err := w.local.Write(ctx, meta, content)
		if err != nil {
			return StoredObject{}, fmt.Errorf("minio client not initialized; local fallback failed: %w", err)
		}
		return obj, fmt.Errorf("%w: client not initialized", ErrFallbackToLocal)
	}
	obj, err := w.minio.Write(ctx, meta, content)
	if err == nil {
		return obj, nil
	}
	logger.Warn("MinIO write failed; falling back to local", "error", err)
	local, lerr := w.local.Write(ctx, meta, content)
	if lerr != nil {
		return StoredObject{}, fmt.Errorf("minio write failed: %v; local fallback failed: %w", err, lerr)
	}
	return local, fmt.Errorf("%w: %v", ErrFallbackToLocal, err)
}

// objectParts 本地与 MinIO 共用的层级：prefix / 设备 / 日期_时间 / 类别.txt
func objectParts(prefix string, meta StorageMeta) ([]string, string) {
	var parts []string
	if p := strings.TrimSpace(prefix); p != "" {
		parts = append(parts, p)
	}
	label := strings.TrimSpace(meta.DeviceName)
	if label == "" {
		label = strings.TrimSpace(meta.DeviceIP)
	}
	ts := meta.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	parts = append(parts, slug(label), ts.Format("20060102_150405"))

	filename := slug(meta.Kind)
	if !strings.Contains(filename, ".") {
		filename += ".txt"
	}
	return parts, filename
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

const textContentType = "text/plain; charset=utf-8"

// LocalStorageWriter 本地文件写入
type LocalStorageWriter struct {
	cfg config.BackupConfig
}

func (w *LocalStorageWriter) Write(_ context.Context, meta StorageMeta, content string) (StoredObject, error) {
	baseDir := strings.TrimSpace(w.cfg.Local.BaseDir)
	if baseDir == "" {
		baseDir = "./data/backups"
	}
	parts, filename := objectParts(w.cfg.Prefix, meta)
	dirPath := filepath.Join(append([]string{baseDir}, parts...)...)

	if w.cfg.Local.MkdirIfMissing {
		if err := os.MkdirAll(dirPath, 0o755); err != nil {
			return StoredObject{}, fmt.Errorf("failed to create dir: %w", err)
		}
	}

	fullPath := filepath.Join(dirPath, filename)
	data := []byte(content)
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return StoredObject{}, fmt.Errorf("failed to write file: %w", err)
	}
	return StoredObject{
		URI:         "file://" + fullPath,
		Backend:     "local",
		Size:        int64(len(data)),
		Checksum:    checksum(data),
		ContentType: textContentType,
	}, nil
}

// MinioStorageWriter MinIO 对象存储写入
type MinioStorageWriter struct {
	cfg           config.BackupConfig
	client        *minio.Client
	endpoint      string
	bucketEnsured bool
}

// initMinioWriter 尝试初始化 MinIO 写入器；未配置或失败时返回 nil
func initMinioWriter(cfg config.BackupConfig) *MinioStorageWriter {
	host := strings.TrimSpace(cfg.Minio.Host)
	port := cfg.Minio.Port
	if host == "" || port <= 0 {
		if strings.EqualFold(cfg.StorageBackend, "minio") {
			logger.Warn("MinIO configuration incomplete; host/port missing")
		}
		return nil
	}
	endpoint := fmt.Sprintf("%s:%d", host, port)

	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 5 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.Minio.AccessKey, cfg.Minio.SecretKey, ""),
		Secure:    cfg.Minio.Secure,
		Transport: transport,
	})
	if err != nil {
		logger.Error("MinIO client initialization failed", "error", err)
		return nil
	}

	w := &MinioStorageWriter{cfg: cfg, client: client, endpoint: endpoint}
	bucket := strings.TrimSpace(cfg.Minio.Bucket)
	if bucket == "" {
		logger.Warn("MinIO bucket not configured")
		return w
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.ensureBucket(ctx, bucket, 1); err != nil {
		logger.Warn("MinIO bucket ensure at init failed", "error", err)
	} else {
		w.bucketEnsured = true
	}
	return w
}

// Write 将内容写入 MinIO
func (w *MinioStorageWriter) Write(ctx context.Context, meta StorageMeta, content string) (StoredObject, error) {
	if w == nil || w.client == nil {
		return StoredObject{}, fmt.Errorf("minio client not initialized")
	}
	bucket := strings.TrimSpace(w.cfg.Minio.Bucket)
	if bucket == "" {
		return StoredObject{}, fmt.Errorf("minio bucket not configured")
	}

	parts, filename := objectParts(w.cfg.Prefix, meta)
	objectName := path.Join(append(parts, filename)...)
	data := []byte(content)

	if err := w.fastConnectivityCheck(ctx); err != nil {
		return StoredObject{}, fmt.Errorf("minio connectivity failed to %s: %w", w.endpoint, err)
	}
	if !w.bucketEnsured {
		if err := w.ensureBucket(ctx, bucket, 3); err != nil {
			return StoredObject{}, fmt.Errorf("minio ensure bucket failed: %w", err)
		}
		w.bucketEnsured = true
	}

	// 指数退避重试，单次尝试受请求上下文剩余时间约束
	var lastErr error
	for _, backoff := range []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second} {
		attemptCtx, cancel := attemptContext(ctx, backoff)
		_, err := w.client.PutObject(attemptCtx, bucket, objectName, bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: textContentType})
		cancel()
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return StoredObject{}, ctx.Err()
		case <-time.After(backoff):
		}
	}
	if lastErr != nil {
		return StoredObject{}, fmt.Errorf("minio put object failed after retries: %w", lastErr)
	}

	return StoredObject{
		URI:         "minio://" + path.Join(bucket, objectName),
		Backend:     "minio",
		Size:        int64(len(data)),
		Checksum:    checksum(data),
		ContentType: textContentType,
	}, nil
}

// fastConnectivityCheck TCP 直连快速探测
func (w *MinioStorageWriter) fastConnectivityCheck(parent context.Context) error {
	d := &net.Dialer{Timeout: 3 * time.Second}
	conn, err := d.DialContext(parent, "tcp", w.endpoint)
	if err != nil {
		return err
	}
	return conn.Close()
}

// ensureBucket 校验并创建 bucket，支持有限重试
func (w *MinioStorageWriter) ensureBucket(parent context.Context, bucket string, retries int) error {
	var lastErr error
	for i := 0; i <= retries; i++ {
		ctx, cancel := attemptContext(parent, 10*time.Second)
		exists, err := w.client.BucketExists(ctx, bucket)
		if err == nil && !exists {
			err = w.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
		}
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	return lastErr
}

// attemptContext 构造限时上下文，尊重父上下文的剩余截止时间
func attemptContext(parent context.Context, prefer time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := parent.Deadline(); ok {
		remain := time.Until(deadline)
		switch {
		case remain > time.Second && prefer < remain:
			return context.WithTimeout(parent, prefer)
		case remain > time.Second:
			return context.WithTimeout(parent, remain-time.Second)
		default:
			return context.WithTimeout(parent, time.Second)
		}
	}
	return context.WithTimeout(parent, prefer)
}

var slugRe = regexp.MustCompile(`[^a-z0-9._-]+`)

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "/", "_", "\\", "_").Replace(s)
	s = slugRe.ReplaceAllString(s, "")
	if s == "" {
		s = "unknown"
	}
	return s
}
