// Package orchestrator 后台控制器：读取偏好、向标签页注入并执行动作、汇总结果
package orchestrator

import (
	"context"
	"time"

	"opushelper/internal/images"
	"opushelper/internal/logger"
	"opushelper/internal/menu"
	"opushelper/internal/pool"
	"opushelper/internal/site"
	"opushelper/pkg/domain"
	"opushelper/pkg/errx"
)

// SettingsStore 偏好存储
type SettingsStore interface {
	Load(ctx context.Context) (domain.Settings, error)
	Save(ctx context.Context, s domain.Settings) error
	Reset(ctx context.Context) error
}

// TabHost 标签页枚举与创建
type TabHost interface {
	QueryTabs(ctx context.Context) ([]domain.Tab, error)
	GetTab(ctx context.Context, id domain.TabID) (domain.Tab, error)
	ActiveTab(ctx context.Context) (domain.Tab, error)
	OpenTab(ctx context.Context, url string) error
}

// Injector 页面脚本探测、注入与调用
type Injector interface {
	Probe(ctx context.Context, id domain.TabID, name string) (bool, error)
	Inject(ctx context.Context, id domain.TabID) error
	Invoke(ctx context.Context, id domain.TabID, cfg domain.ExecutionConfig) (domain.ActionResult, error)
}

// ImageHandler 图片处理
type ImageHandler interface {
	Handle(ctx context.Context, urls []string, action domain.ImageAction) images.Report
}

// Options 控制器选项
type Options struct {
	// TabDelay 全标签执行时相邻标签页之间的间隔
	TabDelay time.Duration
	// PostPatterns 可执行快捷操作的页面
	PostPatterns []string
	// MenuPatterns 右键菜单可见的页面
	MenuPatterns []string
	// BridgeName 页面桥接对象名，用于探测是否已注入
	BridgeName string
	// ImageQueue 后台图片任务队列容量
	ImageQueue int
}

// Orchestrator 后台控制器
type Orchestrator struct {
	store    SettingsStore
	host     TabHost
	inj      Injector
	img      ImageHandler
	menus    *menu.Registry
	posts    *site.Matcher
	menuPats []string
	tabDelay time.Duration
	bridge   string
	log      logger.Logger

	jobs *pool.Pool
}

// New 创建控制器
func New(store SettingsStore, host TabHost, inj Injector, img ImageHandler, menus *menu.Registry, opts Options, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.NewNop()
	}
	if menus == nil {
		menus = menu.NewRegistry()
	}
	// 单个 worker 保证不同标签页的图片任务依次执行，沿用下载间隔
	jobs := pool.New(1, opts.ImageQueue, log.With("component", "image-queue"))
	jobs.Start(context.Background())

	return &Orchestrator{
		store:    store,
		host:     host,
		inj:      inj,
		img:      img,
		menus:    menus,
		posts:    site.NewMatcher(opts.PostPatterns),
		menuPats: opts.MenuPatterns,
		tabDelay: opts.TabDelay,
		bridge:   opts.BridgeName,
		log:      log,
		jobs:     jobs,
	}
}

// Menus 返回菜单注册表
func (o *Orchestrator) Menus() *menu.Registry { return o.menus }

// IsPostPage url 是否为可执行快捷操作的页面
func (o *Orchestrator) IsPostPage(url string) bool { return o.posts.Match(url) }

// RegisterMenus 清空并重新注册右键菜单
func (o *Orchestrator) RegisterMenus() error {
	if err := menu.Register(o.menus, o.menuPats); err != nil {
		return err
	}
	o.log.Info("右键菜单已注册", "count", len(o.menus.List()))
	return nil
}

// GetSettings 读取当前偏好
func (o *Orchestrator) GetSettings(ctx context.Context) (domain.Settings, error) {
	s, err := o.store.Load(ctx)
	if err != nil {
		o.log.Err(err, "读取偏好失败")
		return s, err
	}
	o.log.Debug("读取偏好", "like", s.LikeEnabled, "favorite", s.FavoriteEnabled,
		"image", s.ImageEnabled, "imageAction", string(s.ImageAction))
	return s, nil
}

// SaveSettings 保存偏好
func (o *Orchestrator) SaveSettings(ctx context.Context, s domain.Settings) error {
	if err := o.store.Save(ctx, s); err != nil {
		o.log.Err(err, "保存偏好失败")
		return err
	}
	return nil
}

// ResetSettings 恢复默认偏好并返回恢复后的值
func (o *Orchestrator) ResetSettings(ctx context.Context) (domain.Settings, error) {
	if err := o.store.Reset(ctx); err != nil {
		o.log.Err(err, "恢复默认偏好失败")
		return domain.Settings{}, err
	}
	return o.GetSettings(ctx)
}

// BuildExecutionConfig 由偏好推导执行配置
func BuildExecutionConfig(s domain.Settings) domain.ExecutionConfig {
	return domain.NewExecutionConfig(s)
}

// HandleImages 同步处理图片
func (o *Orchestrator) HandleImages(ctx context.Context, urls []string, action domain.ImageAction) images.Report {
	if len(urls) == 0 {
		o.log.Debug("没有图片需要处理")
		return images.Report{}
	}
	rep := o.img.Handle(ctx, urls, action)
	o.log.Info("图片处理完成", "action", string(action), "downloaded", rep.Downloaded,
		"fallback", rep.Fallback, "opened", rep.Opened, "failed", rep.Failed)
	return rep
}

// HandleImagesAsync 将图片处理放入后台队列，调用方不等待结果。
// 队列已满时返回 false。
func (o *Orchestrator) HandleImagesAsync(ctx context.Context, urls []string, action domain.ImageAction) bool {
	if len(urls) == 0 {
		return true
	}
	return o.jobs.Submit(func(jobCtx context.Context) {
		o.HandleImages(jobCtx, urls, action)
	})
}

// Wait 等待所有后台图片任务结束
func (o *Orchestrator) Wait() {
	o.jobs.Wait()
}

// QueueStats 返回后台图片队列的统计
func (o *Orchestrator) QueueStats() pool.Stats {
	return o.jobs.Stats()
}

// Close 等待后台任务结束并停止队列
func (o *Orchestrator) Close() {
	o.jobs.Wait()
	o.jobs.Stop()
}

// sleep 等待 d，context 取消时返回 false
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// notPostPage 页面不在可执行范围内
func notPostPage(url string) error {
	return errx.New(errx.CodeNotPostPage, "not a post page: "+url)
}
