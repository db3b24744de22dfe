package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sshcollectorpro/netconfig/internal/database"
	"github.com/sshcollectorpro/netconfig/internal/model"
	"github.com/sshcollectorpro/netconfig/pkg/logger"
)

// 备份来源
const (
	BackupSourceRunning = "running"
	BackupSourceStartup = "startup"
)

// BackupService 拉取设备配置并写入本地或 MinIO，结果记入 backup_records
type BackupService struct {
	devices        *DeviceService
	storage        StorageWriter
	db             *gorm.DB
	defaultBackend string
}

// NewBackupService 创建备份服务；defaultBackend 为空时使用 local
func NewBackupService(devices *DeviceService, storage StorageWriter, db *gorm.DB, defaultBackend string) *BackupService {
	if strings.TrimSpace(defaultBackend) == "" {
		defaultBackend = "local"
	}
	return &BackupService{devices: devices, storage: storage, db: db, defaultBackend: defaultBackend}
}

// Backup 备份一台设备的运行或启动配置；失败同样落库
func (s *BackupService) Backup(ctx context.Context, id uint, identity, source, backend string) (*model.BackupRecord, error) {
	if source == "" {
		source = BackupSourceRunning
	}
	if backend == "" {
		backend = s.defaultBackend
	}
	start := time.Now()
	rec := &model.BackupRecord{
		ID:       uuid.NewString(),
		DeviceID: id,
		Identity: identity,
		Source:   source,
		Backend:  backend,
	}

	obj, err := s.run(ctx, rec, start)
	rec.Duration = time.Since(start).Milliseconds()
	if obj.URI != "" {
		rec.URI, rec.Size, rec.Checksum, rec.Backend = obj.URI, obj.Size, obj.Checksum, obj.Backend
	}
	switch {
	case err == nil:
		rec.Status = model.BackupStatusSuccess
	case errors.Is(err, ErrFallbackToLocal):
		// 已落本地，记录告警但视为成功
		rec.Status = model.BackupStatusSuccess
		rec.ErrorMsg = err.Error()
		err = nil
	default:
		rec.Status = model.BackupStatusFailed
		rec.ErrorMsg = err.Error()
	}

	if serr := s.saveRecord(ctx, rec); serr != nil {
		logger.Error("Failed to save backup record", "id", rec.ID, "error", serr)
		if err == nil {
			err = serr
		}
	}
	logger.Info("Backup finished",
		"device_id", id, "hostname", rec.Hostname, "status", rec.Status, "uri", rec.URI, "duration_ms", rec.Duration)
	return rec, err
}

func (s *BackupService) run(ctx context.Context, rec *model.BackupRecord, start time.Time) (StoredObject, error) {
	dev, err := s.devices.Device(ctx, rec.DeviceID)
	if err != nil {
		return StoredObject{}, err
	}
	rec.Hostname = dev.Hostname

	var content string
	switch rec.Source {
	case BackupSourceRunning:
		content, err = s.devices.RunningConfig(ctx, rec.DeviceID, rec.Identity)
	case BackupSourceStartup:
		content, err = s.devices.StartupConfig(ctx, rec.DeviceID, rec.Identity)
	default:
		return StoredObject{}, fmt.Errorf("unknown backup source %q", rec.Source)
	}
	if err != nil {
		return StoredObject{}, err
	}

	return s.storage.Write(ctx, StorageMeta{
		DeviceName: dev.Hostname,
		DeviceIP:   dev.IPv4,
		Kind:       rec.Source + "-config",
		Timestamp:  start,
		Backend:    rec.Backend,
	}, content)
}

func (s *BackupService) saveRecord(ctx context.Context, rec *model.BackupRecord) error {
	if s.db == nil {
		return nil
	}
	return database.WithRetry(s.db, func(tx *gorm.DB) error {
		return tx.WithContext(ctx).Create(rec).Error
	}, 3, 50*time.Millisecond)
}

// Records 某设备最近的备份记录，limit <= 0 时返回 20 条
func (s *BackupService) Records(ctx context.Context, deviceID uint, limit int) ([]model.BackupRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []model.BackupRecord
	if s.db == nil {
		return out, nil
	}
	err := s.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("created_at desc").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list backup records: %w", err)
	}
	return out, nil
}
