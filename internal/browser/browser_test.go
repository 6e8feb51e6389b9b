package browser

import (
	"fmt"
	"net"
	"path/filepath"
	"testing"

	"opushelper/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.BrowserConfig{DevToolsURL: "http://127.0.0.1:9333", Headless: true})
	assert.Equal(t, 9333, opts.Port)
	assert.True(t, opts.Headless)

	opts = OptionsFromConfig(config.BrowserConfig{DevToolsURL: "http://localhost"})
	assert.Equal(t, DefaultPort, opts.Port)
}

func TestBuildLaunchArgs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "profile")

	args := buildLaunchArgs(9333, Options{UserDataDir: dir, Headless: true, Args: []string{"--window-size=800,600"}})

	assert.Equal(t, "--remote-debugging-port=9333", args[0])
	assert.Contains(t, args, "--user-data-dir="+dir)
	assert.Contains(t, args, "--headless=new")
	assert.Equal(t, "--window-size=800,600", args[len(args)-1])
	assert.DirExists(t, dir)
}

func TestPickPort(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	busy := l.Addr().(*net.TCPAddr).Port

	port, err := pickPort(busy)
	require.NoError(t, err)
	assert.NotEqual(t, busy, port, fmt.Sprintf("端口 %d 已被占用", busy))
	assert.Positive(t, port)
}
