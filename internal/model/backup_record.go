package model

import (
	"time"
)

// BackupRecord 一次配置备份的结果
type BackupRecord struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	DeviceID  uint      `json:"device_id" gorm:"not null;index"`
	Hostname  string    `json:"hostname" gorm:"type:varchar(128)"`
	Identity  string    `json:"identity" gorm:"type:varchar(64);index"`
	Source    string    `json:"source" gorm:"type:varchar(16);not null"` // running | startup
	Backend   string    `json:"backend" gorm:"type:varchar(16)"`
	URI       string    `json:"uri" gorm:"type:text"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum" gorm:"type:varchar(80)"`
	Status    string    `json:"status" gorm:"type:varchar(16);not null;default:'pending'"`
	ErrorMsg  string    `json:"error_msg" gorm:"type:text"`
	Duration  int64     `json:"duration"` // 执行时长，毫秒
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 表名
func (BackupRecord) TableName() string {
	return "backup_records"
}

// 备份状态
const (
	BackupStatusSuccess = "success"
	BackupStatusFailed  = "failed"
)
