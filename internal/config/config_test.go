package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/levelkv/pkg/kv"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "~/.levelkv/data", cfg.DB.Path)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Empty(t, cfg.Options)
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
[db]
path = "/tmp/levelkv-test"

[options]
create_if_missing = true
write_buffer_size = 8388608
block_cache_size = 0
compression = 0
engine = "goleveldb"

[read]
fill_cache = false

[write]
sync = true

[log]
level = "debug"
format = "json"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/levelkv-test", cfg.DB.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	opts, err := kv.ParseOptions(cfg.Options)
	require.NoError(t, err)
	assert.True(t, opts.CreateIfMissing())
	assert.Equal(t, uint64(8<<20), opts.WriteBufferSize())
	size, set := opts.BlockCacheSize()
	assert.True(t, set)
	assert.Zero(t, size)
	assert.Equal(t, kv.NoCompression, opts.Compression())
	assert.Equal(t, kv.EngineGoLevelDB, opts.Engine())

	ro, err := kv.ParseReadOptions(cfg.Read)
	require.NoError(t, err)
	assert.False(t, ro.FillCache)

	wo, err := kv.ParseWriteOptions(cfg.Write)
	require.NoError(t, err)
	assert.True(t, wo.Sync)
}

func TestLoadOptionTypesReachValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[options]\nwrite_buffer_size = \"1234\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	_, err = kv.ParseOptions(cfg.Options)
	assert.EqualError(t, err, "invalid type for write_buffer_size")
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.toml"))
	assert.ErrorContains(t, err, "reading config")

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[db\npath = "), 0o644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "parsing config")

	unknown := filepath.Join(dir, "unknown.toml")
	require.NoError(t, os.WriteFile(unknown, []byte("[db]\ndir = \"/tmp\"\n"), 0o644))
	_, err = Load(unknown)
	assert.ErrorContains(t, err, `unknown key "db.dir"`)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "data"), ExpandHome("~/data"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	assert.Equal(t, "rel", ExpandHome("rel"))
}
