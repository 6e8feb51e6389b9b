// Package browser 启动带远程调试端口的本地 Chrome
package browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"opushelper/internal/config"
	"opushelper/internal/logger"

	"github.com/mafredri/cdp/devtool"
)

// DefaultPort 默认远程调试端口
const DefaultPort = 9222

// Options 浏览器启动选项
type Options struct {
	ExecPath    string
	UserDataDir string
	// Port 远程调试端口，被占用时改用随机空闲端口
	Port     int
	Headless bool
	Args     []string
}

// OptionsFromConfig 由配置得到启动选项，端口取自 devtools_url
func OptionsFromConfig(cfg config.BrowserConfig) Options {
	opts := Options{
		ExecPath:    cfg.ExecPath,
		UserDataDir: cfg.UserDataDir,
		Port:        DefaultPort,
		Headless:    cfg.Headless,
		Args:        cfg.Args,
	}
	if u, err := url.Parse(cfg.DevToolsURL); err == nil {
		if p, err := strconv.Atoi(u.Port()); err == nil && p > 0 {
			opts.Port = p
		}
	}
	return opts
}

// Browser 已启动的浏览器进程
type Browser struct {
	cmd         *exec.Cmd
	DevToolsURL string
	log         logger.Logger
}

// Start 启动浏览器并等待 DevTools 就绪
func Start(ctx context.Context, opts Options, log logger.Logger) (*Browser, error) {
	if log == nil {
		log = logger.NewNop()
	}
	exe := opts.ExecPath
	if exe == "" {
		exe = findChrome()
	}
	if exe == "" {
		return nil, errors.New("chrome executable not found")
	}

	port, err := pickPort(opts.Port)
	if err != nil {
		return nil, fmt.Errorf("pick port: %w", err)
	}
	if port != opts.Port {
		log.Warn("调试端口被占用，改用空闲端口", "preferred", opts.Port, "port", port)
	}

	cmd := exec.CommandContext(ctx, exe, buildLaunchArgs(port, opts)...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}

	b := &Browser{cmd: cmd, DevToolsURL: fmt.Sprintf("http://127.0.0.1:%d", port), log: log}
	log.Info("浏览器已启动", "exe", exe, "pid", cmd.Process.Pid, "devtools", b.DevToolsURL)

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := waitReady(waitCtx, b.DevToolsURL); err != nil {
		_ = b.Stop(2 * time.Second)
		return nil, fmt.Errorf("devtools not ready: %w", err)
	}
	return b, nil
}

// Stop 结束浏览器进程
func (b *Browser) Stop(timeout time.Duration) error {
	if b == nil || b.cmd == nil || b.cmd.Process == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- b.cmd.Wait() }()
	_ = b.cmd.Process.Kill()
	select {
	case <-time.After(timeout):
		return errors.New("browser stop timeout")
	case err := <-done:
		b.log.Info("浏览器已退出")
		return err
	}
}

// findChrome 在常见安装位置与 PATH 中查找 Chrome
func findChrome() string {
	for _, p := range chromeCandidates() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "chrome"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}

func chromeCandidates() []string {
	switch runtime.GOOS {
	case "windows":
		return []string{
			filepath.Join(os.Getenv("ProgramFiles"), "Google", "Chrome", "Application", "chrome.exe"),
			filepath.Join(os.Getenv("ProgramFiles(x86)"), "Google", "Chrome", "Application", "chrome.exe"),
			filepath.Join(os.Getenv("LOCALAPPDATA"), "Google", "Chrome", "Application", "chrome.exe"),
		}
	case "darwin":
		return []string{"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"}
	case "linux":
		return []string{"/usr/bin/google-chrome", "/usr/bin/chromium", "/snap/bin/chromium"}
	}
	return nil
}

// pickPort 优先使用 preferred，不可用时返回随机空闲端口
func pickPort(preferred int) (int, error) {
	if preferred > 0 {
		if l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", preferred)); err == nil {
			_ = l.Close()
			return preferred, nil
		}
	}
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// buildLaunchArgs 构建启动参数。
// 未指定用户数据目录时使用临时目录，需要登录态时应配置 user_data_dir。
func buildLaunchArgs(port int, opts Options) []string {
	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", port),
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-background-timer-throttling",
		"--disable-renderer-backgrounding",
		"--disable-backgrounding-occluded-windows",
	}
	if runtime.GOOS == "linux" {
		args = append(args, "--disable-dev-shm-usage")
	}

	dir := opts.UserDataDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), fmt.Sprintf("opushelper-chrome-%d", time.Now().Unix()))
	}
	_ = os.MkdirAll(dir, 0o755)
	args = append(args, "--user-data-dir="+dir)

	if opts.Headless {
		args = append(args, "--headless=new", "--disable-gpu")
	}
	return append(args, opts.Args...)
}

// waitReady 轮询 /json/version 直到 DevTools 可用
func waitReady(ctx context.Context, devtoolsURL string) error {
	dt := devtool.New(devtoolsURL)
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
			_, err := dt.Version(pingCtx)
			cancel()
			if err == nil {
				return nil
			}
		}
	}
}
