package orchestrator

import (
	"context"
	"fmt"

	"opushelper/internal/menu"
	"opushelper/pkg/domain"
	"opushelper/pkg/errx"

	"github.com/google/uuid"
)

// 全标签执行的汇总消息
const (
	MessageNoMatchingPages = "no matching pages"
	ReasonTabNotReady      = "tab not ready"
)

// RunOnTab 按当前偏好在单个标签页上执行
func (o *Orchestrator) RunOnTab(ctx context.Context, id domain.TabID) (domain.ActionResult, error) {
	s, err := o.GetSettings(ctx)
	if err != nil {
		return domain.ActionResult{}, err
	}
	rep, err := o.execute(ctx, id, BuildExecutionConfig(s))
	if err != nil {
		return domain.ActionResult{}, err
	}
	return *rep.Result, nil
}

// RunOnActiveTab 在当前标签页上执行，页面必须是动态页面
func (o *Orchestrator) RunOnActiveTab(ctx context.Context) (domain.Tab, domain.ActionResult, error) {
	tab, err := o.host.ActiveTab(ctx)
	if err != nil {
		if errx.CodeOf(err) == "" {
			err = errx.Wrap(errx.CodeNoActiveTab, err, "resolve active tab")
		}
		return tab, domain.ActionResult{}, err
	}
	if !o.IsPostPage(tab.URL) {
		return tab, domain.ActionResult{}, notPostPage(tab.URL)
	}
	if err := o.readyTab(ctx, tab.ID); err != nil {
		return tab, domain.ActionResult{}, err
	}
	res, err := o.RunOnTab(ctx, tab.ID)
	return tab, res, err
}

// readyTab 重新获取标签页，未加载完成时返回 TAB_NOT_READY
func (o *Orchestrator) readyTab(ctx context.Context, id domain.TabID) error {
	tab, err := o.host.GetTab(ctx, id)
	if err != nil {
		return err
	}
	if tab.Status != domain.TabStatusComplete {
		return errx.New(errx.CodeTabNotReady, ReasonTabNotReady)
	}
	return nil
}

// RunWithConfig 使用给定执行配置在单个标签页上执行
func (o *Orchestrator) RunWithConfig(ctx context.Context, id domain.TabID, cfg domain.ExecutionConfig) (domain.ActionResult, error) {
	rep, err := o.execute(ctx, id, domain.NewExecutionConfig(domain.Settings(cfg)))
	if err != nil {
		return domain.ActionResult{}, err
	}
	return *rep.Result, nil
}

// execute 探测、按需注入、调用，并转交图片。
// 探测失败视为未注入；注入或调用失败返回带错误码的错误。
func (o *Orchestrator) execute(ctx context.Context, id domain.TabID, cfg domain.ExecutionConfig) (domain.TabExecutionReport, error) {
	rep := domain.TabExecutionReport{TabID: id}
	log := o.log.With("tab", string(id))

	exists, err := o.inj.Probe(ctx, id, o.bridge)
	if err != nil {
		log.Warn("检查脚本失败，按未注入处理", "error", err.Error())
		exists = false
	}

	if !exists {
		if err := o.inj.Inject(ctx, id); err != nil {
			log.Err(err, "注入脚本失败")
			return rep, errx.Wrap(errx.CodeInjectionFailed, err, string(id))
		}
		rep.Injected = true
		log.Debug("已注入脚本")
	} else {
		log.Debug("脚本已存在，跳过注入")
	}

	res, err := o.inj.Invoke(ctx, id, cfg)
	if err != nil {
		log.Err(err, "执行页面动作失败")
		return rep, errx.Wrap(errx.CodeInvocationFailed, err, string(id))
	}
	rep.Result = &res
	log.Info("页面动作完成", "like", res.Like.String(), "favorite", res.Favorite.String(), "images", len(res.ImageURLs))

	if cfg.ImageAction != domain.ImageActionNone && len(res.ImageURLs) > 0 {
		o.HandleImages(ctx, res.ImageURLs, cfg.ImageAction)
	}
	return rep, nil
}

// RunOnAllTabs 依次在所有动态页面上执行。
// 没有匹配页面时返回失败；否则即使全部失败也返回成功并附带计数。
func (o *Orchestrator) RunOnAllTabs(ctx context.Context) domain.SweepSummary {
	log := o.log.With("sweep", uuid.NewString())
	log.Info("开始执行所有页面的快捷操作")

	tabs, err := o.host.QueryTabs(ctx)
	if err != nil {
		log.Err(err, "获取标签页失败")
		return domain.SweepSummary{OverallSuccess: false, Message: err.Error()}
	}

	matching := make([]domain.Tab, 0, len(tabs))
	for _, t := range tabs {
		log.Debug("检查标签页", "tab", string(t.ID), "url", t.URL)
		if o.IsPostPage(t.URL) {
			matching = append(matching, t)
		}
	}
	if len(matching) == 0 {
		log.Info("未检测到任何动态页面")
		return domain.SweepSummary{OverallSuccess: false, Message: MessageNoMatchingPages}
	}
	log.Info("检测到动态页面", "count", len(matching))

	sum := domain.SweepSummary{Reports: make([]domain.TabExecutionReport, 0, len(matching))}
	for i, t := range matching {
		rep := o.sweepTab(ctx, t)
		sum.Reports = append(sum.Reports, rep)
		if rep.HadSuccess() {
			sum.SuccessCount++
			log.Info("标签页执行成功", "tab", string(t.ID))
		} else {
			sum.ErrorCount++
			log.Info("标签页执行失败", "tab", string(t.ID), "reason", rep.Reason)
		}

		if i < len(matching)-1 && !sleep(ctx, o.tabDelay) {
			break
		}
	}

	if err := ctx.Err(); err != nil {
		sum.Message = fmt.Sprintf("canceled after %d of %d pages: %v", len(sum.Reports), len(matching), err)
		log.Warn("执行被取消", "processed", len(sum.Reports))
		return sum
	}

	sum.OverallSuccess = true
	sum.Message = fmt.Sprintf("processed %d pages: %d succeeded, %d failed", len(matching), sum.SuccessCount, sum.ErrorCount)
	log.Info("执行完成", "total", len(matching), "success", sum.SuccessCount, "error", sum.ErrorCount)
	return sum
}

// sweepTab 处理单个标签页，任何错误都记入报告而不向上返回
func (o *Orchestrator) sweepTab(ctx context.Context, t domain.Tab) domain.TabExecutionReport {
	rep := domain.TabExecutionReport{TabID: t.ID, URL: t.URL}

	if err := o.readyTab(ctx, t.ID); err != nil {
		rep.Reason = err.Error()
		if errx.Is(err, errx.CodeTabNotReady) {
			rep.Reason = ReasonTabNotReady
		}
		return rep
	}

	s, err := o.GetSettings(ctx)
	if err != nil {
		rep.Reason = err.Error()
		return rep
	}

	r, err := o.execute(ctx, t.ID, BuildExecutionConfig(s))
	r.URL = t.URL
	if err != nil {
		r.Reason = err.Error()
		return r
	}
	if !r.HadSuccess() {
		r.Reason = "no successful action"
	}
	return r
}

// RunMenuCommand 执行右键菜单命令，子菜单只执行对应的单个动作
func (o *Orchestrator) RunMenuCommand(ctx context.Context, itemID string, id domain.TabID) (domain.ActionResult, error) {
	if _, ok := o.menus.Get(itemID); !ok {
		return domain.ActionResult{}, errx.New(errx.CodeUnknownCommand, "unknown menu item: "+itemID)
	}

	var (
		tab domain.Tab
		err error
	)
	if id == "" {
		tab, err = o.host.ActiveTab(ctx)
	} else {
		tab, err = o.host.GetTab(ctx, id)
	}
	if err != nil {
		return domain.ActionResult{}, err
	}
	if !o.menus.Applies(itemID, tab.URL) {
		return domain.ActionResult{}, notPostPage(tab.URL)
	}

	var cfg domain.ExecutionConfig
	switch itemID {
	case menu.LikeID:
		cfg = domain.ExecutionConfig{LikeEnabled: true, ImageAction: domain.ImageActionNone}
	case menu.FavoriteID:
		cfg = domain.ExecutionConfig{FavoriteEnabled: true, ImageAction: domain.ImageActionNone}
	case menu.DownloadImageID:
		cfg = domain.ExecutionConfig{ImageEnabled: true, ImageAction: domain.ImageActionDownload}
	case menu.OpenImageID:
		cfg = domain.ExecutionConfig{ImageEnabled: true, ImageAction: domain.ImageActionOpen}
	default:
		s, err := o.GetSettings(ctx)
		if err != nil {
			return domain.ActionResult{}, err
		}
		cfg = BuildExecutionConfig(s)
	}

	o.log.Info("执行右键菜单命令", "item", itemID, "tab", string(tab.ID))
	rep, err := o.execute(ctx, tab.ID, cfg)
	if err != nil {
		return domain.ActionResult{}, err
	}
	return *rep.Result, nil
}

// RunActive 在当前标签页执行，供弹窗调用
func (o *Orchestrator) RunActive(ctx context.Context) (domain.ActionResult, error) {
	_, res, err := o.RunOnActiveTab(ctx)
	return res, err
}

// RunAll 在所有动态页面执行，供弹窗调用
func (o *Orchestrator) RunAll(ctx context.Context) (domain.SweepSummary, error) {
	return o.RunOnAllTabs(ctx), nil
}
