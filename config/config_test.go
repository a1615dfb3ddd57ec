package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gtprovider/gtp/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.EqualValues(t, 6969, d.UDPPort)
	assert.False(t, d.ReceiveUDP)
}

func TestLoadOverridesOnlyGivenFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "GTPConfig.txt")
	require.NoError(t, os.WriteFile(path, []byte(`{"receiveUDP": true}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.ReceiveUDP)
	assert.EqualValues(t, 6969, cfg.UDPPort, "fields absent from the file keep their default")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestLoadFilterTuning(t *testing.T) {
	schema := record.DefaultSchema()
	dir := t.TempDir()
	path := filepath.Join(dir, "gtp-filters.yaml")
	yamlBody := `
groups:
  - channels: [speed, local_velocity_x, local_velocity_y, local_velocity_z]
    stages: 3
    alpha: 0.25
  - channels: [gear]
    stages: 1
    alpha: 1.0
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	groups, err := LoadFilterTuning(path, schema)
	require.NoError(t, err)
	assert.Equal(t, 3, groups[record.KeySpeed].Stages)
	assert.InDelta(t, 0.25, groups[record.KeySpeed].Alpha, 1e-9)
	assert.Equal(t, 1, groups[record.KeyGear].Stages)
}

func TestLoadFilterTuningUnknownChannel(t *testing.T) {
	schema := record.DefaultSchema()
	dir := t.TempDir()
	path := filepath.Join(dir, "gtp-filters.yaml")
	require.NoError(t, os.WriteFile(path, []byte("groups:\n  - channels: [not_a_real_channel]\n    stages: 1\n    alpha: 0.5\n"), 0o644))

	_, err := LoadFilterTuning(path, schema)
	assert.Error(t, err)
}
