package vklife_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vk "github.com/NOT-REAL-GAMES/vklife"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "vklife.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    vk.Config
		wantErr string
	}{
		{
			name:    "empty file keeps defaults",
			content: "",
			want:    vk.DefaultConfig(),
		},
		{
			name: "all keys",
			content: `
finalizers = false
release_children = false
log_level = "warn"
`,
			want: vk.Config{Finalizers: false, ReleaseChildren: false, LogLevel: "warn"},
		},
		{
			name:    "partial file",
			content: `release_children = false`,
			want:    vk.Config{Finalizers: true, ReleaseChildren: false},
		},
		{
			name:    "bad level",
			content: `log_level = "loud"`,
			wantErr: "log_level",
		},
		{
			name:    "bad syntax",
			content: `finalizers = `,
			wantErr: "parse config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := vk.LoadConfig(writeConfig(t, tt.content))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := vk.LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInstanceUsesConfig(t *testing.T) {
	cfg := vk.Config{Finalizers: false, ReleaseChildren: true, LogLevel: "error"}
	_, instance := newInstance(t, vk.WithConfig(cfg))
	assert.Equal(t, cfg, instance.Config())

	drv, _ := newInstance(t)
	_, err := vk.CreateInstance(drv, &vk.InstanceCreateInfo{}, vk.WithConfig(vk.Config{LogLevel: "loud"}))
	var invalid *vk.InvalidArgumentError
	assert.ErrorAs(t, err, &invalid)
	assert.Equal(t, 1, drv.Calls("CreateInstance"), "rejected before the driver")
}
