// Package download 将图片保存到本地目录
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"opushelper/internal/logger"
	"opushelper/pkg/errx"
)

// Folder 图片保存的子目录
const Folder = "bilibili-opus-images"

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Options 下载选项
type Options struct {
	// Dir 保存根目录，为空时使用用户下载目录
	Dir string
	// Referer 请求图床时附带的来源页
	Referer string
	// Client 为空时使用带超时的默认客户端
	Client *http.Client
}

// Manager 主下载通道：带来源页请求头，文件名由时间戳与随机串生成
type Manager struct {
	dir     string
	referer string
	client  *http.Client
	log     logger.Logger
	now     func() time.Time
}

// NewManager 创建主下载通道
func NewManager(opts Options, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{
		dir:     resolveDir(opts.Dir),
		referer: opts.Referer,
		client:  clientOrDefault(opts.Client),
		log:     log,
		now:     time.Now,
	}
}

// Dir 返回保存根目录
func (m *Manager) Dir() string { return m.dir }

// SuggestedName 生成 <毫秒时间戳>_<9位随机串>.jpg 形式的相对路径
func (m *Manager) SuggestedName() string {
	return path.Join(Folder, strconv.FormatInt(m.now().UnixMilli(), 10)+"_"+randomSuffix(9)+".jpg")
}

// Download 下载到 rel 指定的相对路径，返回本地完整路径
func (m *Manager) Download(ctx context.Context, rawURL, rel string) (string, error) {
	headers := http.Header{}
	headers.Set("User-Agent", userAgent)
	if m.referer != "" {
		headers.Set("Referer", m.referer)
	}
	dst := filepath.Join(m.dir, filepath.FromSlash(rel))
	if err := fetch(ctx, m.client, rawURL, headers, dst); err != nil {
		return "", errx.Wrap(errx.CodeDownloadFailed, err, rawURL)
	}
	m.log.Debug("图片已下载", "url", rawURL, "path", dst)
	return dst, nil
}

// DirectFetcher 备用通道：直接请求原始地址，文件名取地址最后一段
type DirectFetcher struct {
	dir    string
	client *http.Client
	log    logger.Logger
}

// NewDirectFetcher 创建备用通道
func NewDirectFetcher(opts Options, log logger.Logger) *DirectFetcher {
	if log == nil {
		log = logger.NewNop()
	}
	return &DirectFetcher{dir: resolveDir(opts.Dir), client: clientOrDefault(opts.Client), log: log}
}

// Fetch 下载图片，返回本地完整路径
func (f *DirectFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	name := FileNameFromURL(rawURL)
	dst := filepath.Join(f.dir, Folder, name)
	if err := fetch(ctx, f.client, rawURL, nil, dst); err != nil {
		return "", errx.Wrap(errx.CodeDownloadFailed, err, rawURL)
	}
	f.log.Debug("图片已通过直链下载", "url", rawURL, "path", dst)
	return dst, nil
}

// FileNameFromURL 取地址路径的最后一段作为文件名
func FileNameFromURL(rawURL string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	name := path.Base(p)
	if name == "" || name == "." || name == "/" {
		return "image.jpg"
	}
	return name
}

// fetch 请求地址并原子写入 dst
func fetch(ctx context.Context, client *http.Client, rawURL string, headers http.Header, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") && !strings.HasPrefix(ct, "application/octet-stream") {
		return fmt.Errorf("unexpected content type %q", ct)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".part-*")
	if err != nil {
		return err
	}
	_, copyErr := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

func resolveDir(dir string) string {
	if dir != "" {
		return dir
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "Downloads")
	}
	return os.TempDir()
}

func clientOrDefault(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 30 * time.Second}
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomSuffix(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = base36[rand.IntN(len(base36))]
	}
	return string(b)
}
