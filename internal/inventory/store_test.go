package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshcollectorpro/netconfig/internal/config"
	"github.com/sshcollectorpro/netconfig/internal/database"
	"github.com/sshcollectorpro/netconfig/internal/model"
)

func newStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := database.Open(config.SQLiteConfig{Path: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewGormStore(db)
}

func TestSaveGetList(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	devices := []*model.Device{
		{Hostname: "edge-fw1", IPv4: "10.0.0.3", OSVariant: "cisco_asa", Category: model.CategoryFirewall},
		{Hostname: "core-sw1", IPv4: "10.0.0.1", OSVariant: "cisco_nxos"},
		{Hostname: "access-sw7", IPv4: "10.0.0.2", Port: 2222, OSVariant: "cisco_ios", LocalCredentials: true},
	}
	for _, d := range devices {
		require.NoError(t, s.Save(ctx, d))
		assert.NotZero(t, d.ID)
	}
	assert.Equal(t, 22, devices[0].Port)

	got, err := s.Get(ctx, devices[2].ID)
	require.NoError(t, err)
	assert.Equal(t, "access-sw7", got.Hostname)
	assert.Equal(t, 2222, got.SSHPort())
	assert.True(t, got.LocalCredentials)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"access-sw7", "core-sw1", "edge-fw1"},
		[]string{list[0].Hostname, list[1].Hostname, list[2].Hostname})
}

func TestGetMissing(t *testing.T) {
	s := newStore(t)
	_, err := s.Get(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(context.Background(), 404), ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	d := &model.Device{Hostname: "lab", IPv4: "192.0.2.1", OSVariant: "cisco_ios"}
	require.NoError(t, s.Save(ctx, d))
	require.NoError(t, s.Delete(ctx, d.ID))
	_, err := s.Get(ctx, d.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
