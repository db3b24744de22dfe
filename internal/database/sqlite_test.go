package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sshcollectorpro/netconfig/internal/config"
	"github.com/sshcollectorpro/netconfig/internal/model"
)

func TestOpenMigrates(t *testing.T) {
	conn, err := Open(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "db", "netconfig.db"), LogLevel: "silent"})
	require.NoError(t, err)

	assert.True(t, conn.Migrator().HasTable(&model.Device{}))
	assert.True(t, conn.Migrator().HasTable(&model.BackupRecord{}))

	d := model.Device{Hostname: "core-sw1", IPv4: "10.0.0.1", OSVariant: "cisco_ios"}
	require.NoError(t, conn.Create(&d).Error)
	var got model.Device
	require.NoError(t, conn.First(&got, d.ID).Error)
	assert.Equal(t, 22, got.Port)
	assert.Equal(t, model.CategorySwitch, got.Category)
}

func TestInitSQLiteAndHealth(t *testing.T) {
	require.NoError(t, InitSQLite(config.SQLiteConfig{Path: ":memory:", LogLevel: "silent"}))
	defer Close()
	assert.NotNil(t, GetDB())
	assert.NoError(t, Health())
}

func TestWithRetry(t *testing.T) {
	calls := 0
	err := WithRetry(nil, func(*gorm.DB) error {
		calls++
		if calls < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	}, 5, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = WithRetry(nil, func(*gorm.DB) error {
		calls++
		return errors.New("constraint failed")
	}, 5, time.Millisecond)
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
