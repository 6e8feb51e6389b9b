package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"opushelper/pkg/domain"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// SqliteConfig 数据库配置
type SqliteConfig struct {
	Db     string `yaml:"db" validate:"required"`
	Prefix string `yaml:"prefix"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string   `yaml:"level" validate:"oneof=debug info warn error"`
	Writer []string `yaml:"writer" validate:"dive,oneof=console file"`
}

// BrowserConfig 浏览器连接与启动配置
type BrowserConfig struct {
	DevToolsURL string   `yaml:"devtools_url" validate:"required,url"`
	ExecPath    string   `yaml:"exec_path"`
	UserDataDir string   `yaml:"user_data_dir"`
	Headless    bool     `yaml:"headless"`
	Args        []string `yaml:"args"`
}

// HTTPConfig 本地消息端点配置
type HTTPConfig struct {
	Listen string `yaml:"listen" validate:"required,hostname_port"`
}

// SweepConfig 全标签执行配置
type SweepConfig struct {
	TabDelay time.Duration `yaml:"tab_delay" validate:"gte=0"`
}

// ImagesConfig 图片处理配置
type ImagesConfig struct {
	DownloadDir   string        `yaml:"download_dir"`
	DownloadDelay time.Duration `yaml:"download_delay" validate:"gte=0"`
	Referer       string        `yaml:"referer"`
}

// SiteConfig 目标站点配置
type SiteConfig struct {
	// PostPatterns 可执行快捷操作的页面，语法同浏览器扩展 match pattern
	PostPatterns []string `yaml:"post_patterns" validate:"required,min=1,dive,required"`
	// MenuPatterns 右键菜单可见的页面
	MenuPatterns []string `yaml:"menu_patterns" validate:"required,min=1,dive,required"`
}

// Config 配置文件结构体
type Config struct {
	Version string        `yaml:"version"`
	Sqlite  SqliteConfig  `yaml:"sqlite"`
	Log     LogConfig     `yaml:"log"`
	Browser BrowserConfig `yaml:"browser"`
	HTTP    HTTPConfig    `yaml:"http"`
	Sweep   SweepConfig   `yaml:"sweep"`
	Images  ImagesConfig  `yaml:"images"`
	Site    SiteConfig    `yaml:"site"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Version: "1.0.0",
		Sqlite: SqliteConfig{
			Db:     "data.db",
			Prefix: "opushelper_",
		},
		Log: LogConfig{
			Level:  "info",
			Writer: []string{"file", "console"},
		},
		Browser: BrowserConfig{
			DevToolsURL: "http://127.0.0.1:9222",
		},
		HTTP: HTTPConfig{
			Listen: "127.0.0.1:17321",
		},
		Sweep: SweepConfig{
			TabDelay: 500 * time.Millisecond,
		},
		Images: ImagesConfig{
			DownloadDelay: 100 * time.Millisecond,
			Referer:       "https://www.bilibili.com/",
		},
		Site: SiteConfig{
			PostPatterns: []string{
				"*://*.bilibili.com/opus/*",
				"*://*.bilibili.com/read/*",
			},
			MenuPatterns: []string{
				"https://www.bilibili.com/opus/*",
				"https://www.bilibili.com/read/*",
			},
		},
	}
}

// Load 读取 YAML 配置文件并覆盖默认值，path 为空时仅返回默认值
func Load(path string) (*Config, error) {
	cfg := NewConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not found", domain.ErrInvalidConfig, path)
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置字段
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", domain.ErrInvalidConfig)
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	return nil
}

var validate = validator.New()
