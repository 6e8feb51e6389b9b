package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"opushelper/internal/config"
	"opushelper/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewConfig_Defaults 默认配置应通过校验且延时符合预期
func TestNewConfig_Defaults(t *testing.T) {
	cfg := config.NewConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 500*time.Millisecond, cfg.Sweep.TabDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.Images.DownloadDelay)
	assert.Len(t, cfg.Site.PostPatterns, 2)
}

// TestLoad_OverridesDefaults YAML 中出现的字段覆盖默认值，其余保持默认
func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
log:
  level: debug
  writer: [console]
sweep:
  tab_delay: 1s
browser:
  devtools_url: http://127.0.0.1:9333
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"console"}, cfg.Log.Writer)
	assert.Equal(t, time.Second, cfg.Sweep.TabDelay)
	assert.Equal(t, "http://127.0.0.1:9333", cfg.Browser.DevToolsURL)
	assert.Equal(t, 100*time.Millisecond, cfg.Images.DownloadDelay)
}

// TestLoad_Invalid 非法取值返回 ErrInvalidConfig
func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: verbose\n"), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
}

// TestLoad_Missing 文件不存在返回 ErrInvalidConfig
func TestLoad_Missing(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
