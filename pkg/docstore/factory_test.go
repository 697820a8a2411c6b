package docstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lemansstrat/pkg/config"
)

func TestNewFromConfig(t *testing.T) {
	s, err := NewFromConfig(config.StoreConfig{Type: config.StoreMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	s.Close()

	s, err = NewFromConfig(config.StoreConfig{Type: config.StoreSQLite, SQLitePath: filepath.Join(t.TempDir(), "x.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	s.Close()

	_, err = NewFromConfig(config.StoreConfig{Type: config.StoreWebSocket})
	assert.Error(t, err)

	_, err = NewFromConfig(config.StoreConfig{Type: "redis"})
	assert.Error(t, err)
}
