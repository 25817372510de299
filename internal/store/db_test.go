package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"communitycentre/internal/config"
)

func TestMigrations_Sorted(t *testing.T) {
	files, err := Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, "001_init.sql", files[0])
	for i := 1; i < len(files); i++ {
		assert.Less(t, files[i-1], files[i])
	}
}

func TestNilHandlesAreSafe(t *testing.T) {
	var db *DB
	assert.NoError(t, db.Close())
	assert.False(t, db.Healthy(context.Background()))

	var r *Redis
	assert.False(t, r.Healthy(context.Background()))

	var m *Mongo
	assert.False(t, m.Healthy(context.Background()))
	assert.NoError(t, m.Close(context.Background()))
}

func TestOpenBackend_Memory(t *testing.T) {
	cfg := config.Defaults()
	cfg.StoreBackend = "memory"
	b, err := OpenBackend(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "memory", b.Kind)
	assert.True(t, b.Healthy(context.Background()))
	ran, err := b.Migrate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ran)
	assert.NoError(t, b.Close(context.Background()))
}

func TestOpenBackend_Unknown(t *testing.T) {
	cfg := config.Defaults()
	cfg.StoreBackend = "sheets"
	_, err := OpenBackend(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
