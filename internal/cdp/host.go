// Package cdp 通过 Chrome DevTools Protocol 提供标签页枚举、脚本注入与页面动作执行
package cdp

import (
	"context"
	_ "embed"
	"errors"

	"opushelper/internal/dispatcher"
	"opushelper/internal/logger"
	"opushelper/internal/manager"
	"opushelper/pkg/domain"
	"opushelper/pkg/errx"
)

// BridgeName 注入到页面 window 上的桥接对象名
const BridgeName = "__opusQuickActions"

//go:embed bridge.js
var bridgeScript string

// Host 浏览器宿主能力
type Host struct {
	mgr  *manager.Manager
	disp *dispatcher.Dispatcher
	log  logger.Logger
}

// NewHost 创建宿主
func NewHost(mgr *manager.Manager, disp *dispatcher.Dispatcher, log logger.Logger) *Host {
	if log == nil {
		log = logger.NewNop()
	}
	return &Host{mgr: mgr, disp: disp, log: log}
}

// QueryTabs 列出所有标签页，不含加载状态
func (h *Host) QueryTabs(ctx context.Context) ([]domain.Tab, error) {
	return h.mgr.ListTabs(ctx)
}

// GetTab 获取标签页的最新信息，包括加载状态
func (h *Host) GetTab(ctx context.Context, id domain.TabID) (domain.Tab, error) {
	tabs, err := h.mgr.ListTabs(ctx)
	if err != nil {
		return domain.Tab{}, err
	}
	for _, t := range tabs {
		if t.ID != id {
			continue
		}
		s, err := h.mgr.Session(ctx, id)
		if err != nil {
			return t, err
		}
		state, err := evaluate(ctx, s.Client, "document.readyState")
		if err != nil {
			return t, err
		}
		t.Status = domain.TabStatus(state.String())
		return t, nil
	}
	return domain.Tab{}, errx.Wrap(errx.CodeTabNotFound, domain.ErrTargetNotFound, string(id))
}

// ActiveTab 返回当前标签页，取浏览器列出的第一个 page 目标
func (h *Host) ActiveTab(ctx context.Context) (domain.Tab, error) {
	tabs, err := h.mgr.ListTabs(ctx)
	if err != nil {
		return domain.Tab{}, err
	}
	if len(tabs) == 0 {
		return domain.Tab{}, errx.Wrap(errx.CodeNoActiveTab, domain.ErrNoPageTarget, "no page target")
	}
	return h.GetTab(ctx, tabs[0].ID)
}

// OpenTab 新建标签页
func (h *Host) OpenTab(ctx context.Context, url string) error {
	_, err := h.mgr.OpenTab(ctx, url)
	return err
}

// Probe 判断页面上是否已存在指定全局对象
func (h *Host) Probe(ctx context.Context, id domain.TabID, name string) (bool, error) {
	s, err := h.mgr.Session(ctx, id)
	if err != nil {
		return false, err
	}
	r, err := evaluate(ctx, s.Client, globalDefinedExpr(name))
	if err != nil {
		return false, err
	}
	return r.Bool(), nil
}

// Inject 向页面注入桥接脚本，脚本自身保证重复注入无副作用
func (h *Host) Inject(ctx context.Context, id domain.TabID) error {
	s, err := h.mgr.Session(ctx, id)
	if err != nil {
		return err
	}
	r, err := evaluate(ctx, s.Client, bridgeScript)
	if err != nil {
		return err
	}
	if !r.Bool() {
		return errors.New("bridge script returned false")
	}
	h.log.Debug("桥接脚本已注入", "tab", string(id))
	return nil
}

// Invoke 在页面上执行动作
func (h *Host) Invoke(ctx context.Context, id domain.TabID, cfg domain.ExecutionConfig) (domain.ActionResult, error) {
	s, err := h.mgr.Session(ctx, id)
	if err != nil {
		return domain.ActionResult{}, err
	}
	href, err := evaluate(ctx, s.Client, "location.href")
	if err != nil {
		return domain.ActionResult{}, err
	}
	doc, err := NewPageDocument(ctx, s.Client, href.String())
	if err != nil {
		return domain.ActionResult{}, err
	}
	return h.disp.Execute(ctx, doc, cfg), nil
}

// Close 断开所有会话
func (h *Host) Close() {
	h.mgr.DetachAll()
}
