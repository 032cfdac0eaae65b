package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryService(t *testing.T) {
	m := NewMemoryService()

	_, err := m.Get("missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, m.Set("key", []byte("value"), time.Minute))
	value, err := m.Get("key")
	require.NoError(t, err)
	assert.Equal(t, "value", string(value))

	require.NoError(t, m.Delete("key"))
	_, err = m.Get("key")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryServiceExpiration(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemoryService()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set("block", []byte("500"), 10*time.Second))
	require.NoError(t, m.Set("forever", []byte("x"), 0))

	now = now.Add(9 * time.Second)
	_, err := m.Get("block")
	assert.NoError(t, err)

	now = now.Add(time.Second)
	_, err = m.Get("block")
	assert.ErrorIs(t, err, ErrCacheMiss)

	_, err = m.Get("forever")
	assert.NoError(t, err)
}

func TestNewPicksBackend(t *testing.T) {
	assert.IsType(t, &MemoryService{}, New(""))
	assert.IsType(t, &MemcacheService{}, New("localhost:11211"))
}
