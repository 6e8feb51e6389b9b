package main

import (
	"context"
	"encoding/json"
	"time"

	"opushelper/internal/cdp"
	"opushelper/internal/config"
	"opushelper/internal/dispatcher"
	"opushelper/internal/download"
	"opushelper/internal/httpapi"
	"opushelper/internal/images"
	"opushelper/internal/logger"
	"opushelper/internal/manager"
	"opushelper/internal/menu"
	"opushelper/internal/orchestrator"
	"opushelper/internal/popup"
	"opushelper/internal/settings"
	"opushelper/internal/storage/db"
	"opushelper/internal/storage/model"
	"opushelper/internal/storage/repo"
	"opushelper/pkg/api"
	"opushelper/pkg/domain"

	"gorm.io/gorm"
)

// app 进程内组装好的后台组件
type app struct {
	cfg  *config.Config
	log  logger.Logger
	db   *gorm.DB
	mgr  *manager.Manager
	host *cdp.Host
	orc  *orchestrator.Orchestrator
}

// newApp 按配置组装后台：存储、浏览器连接、图片处理与控制器
func newApp(cfg *config.Config, log logger.Logger) (*app, error) {
	gdb, err := db.New(db.Options{
		Name:   cfg.Sqlite.Db,
		Prefix: cfg.Sqlite.Prefix,
		Logger: db.NewLogger(log),
	})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb, model.All()...); err != nil {
		return nil, err
	}

	store := settings.NewStore(repo.NewSettingsRepo(gdb), log)
	mgr := manager.New(cfg.Browser.DevToolsURL, log)
	host := cdp.NewHost(mgr, dispatcher.New(log), log)

	dlOpts := download.Options{Dir: cfg.Images.DownloadDir, Referer: cfg.Images.Referer}
	img := images.NewHandler(
		download.NewManager(dlOpts, log),
		download.NewDirectFetcher(dlOpts, log),
		host,
		cfg.Images.DownloadDelay,
		log,
	)

	orc := orchestrator.New(store, host, host, img, menu.NewRegistry(), orchestrator.Options{
		TabDelay:     cfg.Sweep.TabDelay,
		PostPatterns: cfg.Site.PostPatterns,
		MenuPatterns: cfg.Site.MenuPatterns,
		BridgeName:   cdp.BridgeName,
		ImageQueue:   64,
	}, log)
	if err := orc.RegisterMenus(); err != nil {
		return nil, err
	}

	return &app{cfg: cfg, log: log, db: gdb, mgr: mgr, host: host, orc: orc}, nil
}

// Close 等待图片任务结束并释放连接
func (a *app) Close() {
	a.orc.Close()
	a.host.Close()
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// status 采集 /status 数据
func (a *app) status(ctx context.Context) api.Status {
	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	q := a.orc.QueueStats()
	return api.Status{
		Version:     version,
		DevToolsURL: a.mgr.DevToolsURL(),
		Browser:     a.mgr.Ping(pingCtx) == nil,
		Attached:    a.mgr.Attached(),
		Menus:       len(a.orc.Menus().List()),
		ImageQueue: api.Queue{
			Queued:    q.Queued,
			Capacity:  q.Capacity,
			Submitted: q.Submitted,
			Dropped:   q.Dropped,
		},
	}
}

// backend 命令行使用的后台能力，进程内与远程两种实现
type backend interface {
	popup.Controller
	RunOnTab(ctx context.Context, id domain.TabID) (domain.ActionResult, error)
	ListMenus(ctx context.Context, url string) ([]menu.Entry, error)
	MenuClick(ctx context.Context, itemID string, id domain.TabID) (domain.ActionResult, error)
	SaveSettingsRaw(ctx context.Context, raw json.RawMessage) error
	ResetSettings(ctx context.Context) (domain.Settings, error)
}

// localBackend 直接使用进程内控制器
type localBackend struct {
	*orchestrator.Orchestrator
}

func (b localBackend) ListMenus(ctx context.Context, url string) ([]menu.Entry, error) {
	if url == "" {
		return b.Menus().List(), nil
	}
	return b.Menus().ForURL(url), nil
}

func (b localBackend) MenuClick(ctx context.Context, itemID string, id domain.TabID) (domain.ActionResult, error) {
	return b.RunMenuCommand(ctx, itemID, id)
}

func (b localBackend) SaveSettingsRaw(ctx context.Context, raw json.RawMessage) error {
	cur, err := b.GetSettings(ctx)
	if err != nil {
		return err
	}
	return b.SaveSettings(ctx, settings.Apply(cur, string(raw)))
}

// openBackend 按 --remote 选择后台，返回的 close 必须调用
func (f *rootFlags) openBackend(prepare ...func(*config.Config)) (backend, func(), error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	for _, p := range prepare {
		p(cfg)
	}
	if f.remote {
		return httpapi.NewClient(cfg.HTTP.Listen, nil), func() {}, nil
	}

	a, err := newApp(cfg, logger.NewZeroLogger(cfg))
	if err != nil {
		return nil, nil, err
	}
	return localBackend{a.orc}, a.Close, nil
}
