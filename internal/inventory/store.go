package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sshcollectorpro/netconfig/internal/database"
	"github.com/sshcollectorpro/netconfig/internal/model"
)

// ErrNotFound 清单中不存在该设备
var ErrNotFound = errors.New("device not found")

// Store 设备清单的只读视图
type Store interface {
	Get(ctx context.Context, id uint) (*model.Device, error)
	List(ctx context.Context) ([]model.Device, error)
}

// GormStore 基于 gorm + SQLite 的清单
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建清单存储
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Get 按 ID 查询设备
func (s *GormStore) Get(ctx context.Context, id uint) (*model.Device, error) {
	var d model.Device
	err := s.db.WithContext(ctx).First(&d, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load device %d: %w", id, err)
	}
	return &d, nil
}

// List 按主机名排序返回全部设备
func (s *GormStore) List(ctx context.Context) ([]model.Device, error) {
	var devices []model.Device
	if err := s.db.WithContext(ctx).Order("hostname, id").Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

// Save 新增或更新设备，遇到 SQLite 锁冲突时重试
func (s *GormStore) Save(ctx context.Context, d *model.Device) error {
	if d.Port <= 0 {
		d.Port = 22
	}
	return database.WithRetry(s.db, func(tx *gorm.DB) error {
		return tx.WithContext(ctx).Save(d).Error
	}, 3, 50*time.Millisecond)
}

// Delete 删除设备
func (s *GormStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&model.Device{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete device %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}
