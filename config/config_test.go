package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	v := New()
	v.Set("store.path", "/tmp/lsup-test.db")
	v.Set("term.hash_seed_hex", "0123456789abcdef0123456789abcdef")

	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, "/tmp/lsup-test.db", cfg.StorePath)
	require.Equal(t, int64(1)<<30, cfg.MapSize)
	require.Equal(t, 126, cfg.ReadersMax)
	require.False(t, cfg.NoSync)
}

func TestLoadMissingStorePath(t *testing.T) {
	v := New()
	v.Set("term.hash_seed_hex", "0123456789abcdef0123456789abcdef")
	_, err := Load(v)
	require.Error(t, err)
}

func TestLoadInvalidMapSize(t *testing.T) {
	v := New()
	v.Set("store.path", "/tmp/lsup-test.db")
	v.Set("term.hash_seed_hex", "0123456789abcdef0123456789abcdef")
	v.Set("store.map_size", -1)
	_, err := Load(v)
	require.Error(t, err)
}

func TestLoadInvalidHashSeed(t *testing.T) {
	v := New()
	v.Set("store.path", "/tmp/lsup-test.db")
	v.Set("term.hash_seed_hex", "not-hex")
	_, err := Load(v)
	require.Error(t, err)
}

func TestLoadOverridesDefaults(t *testing.T) {
	v := New()
	v.Set("store.path", "/tmp/lsup-test.db")
	v.Set("term.hash_seed_hex", "0123456789abcdef0123456789abcdef")
	v.Set("store.readers_max", 16)
	v.Set("store.no_sync", true)

	cfg, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, 16, cfg.ReadersMax)
	require.True(t, cfg.NoSync)
}
