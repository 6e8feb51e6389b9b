// Package images 处理页面提取到的图片：下载或在新标签页打开
package images

import (
	"context"
	"time"

	"opushelper/internal/logger"
	"opushelper/pkg/domain"
)

// Downloader 主下载通道
type Downloader interface {
	SuggestedName() string
	Download(ctx context.Context, url, rel string) (string, error)
}

// Fallback 主通道失败时使用的直链下载
type Fallback interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// TabOpener 新建标签页
type TabOpener interface {
	OpenTab(ctx context.Context, url string) error
}

// Report 一批图片的处理结果
type Report struct {
	Downloaded int `json:"downloaded"`
	Fallback   int `json:"fallback"`
	Opened     int `json:"opened"`
	Failed     int `json:"failed"`
}

// Handler 图片处理器
type Handler struct {
	dl     Downloader
	fb     Fallback
	opener TabOpener
	delay  time.Duration
	log    logger.Logger
}

// NewHandler 创建图片处理器，delay 为相邻两次下载之间的间隔
func NewHandler(dl Downloader, fb Fallback, opener TabOpener, delay time.Duration, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{dl: dl, fb: fb, opener: opener, delay: delay, log: log}
}

// Handle 按 action 顺序处理所有图片，单张失败不影响其余图片
func (h *Handler) Handle(ctx context.Context, urls []string, action domain.ImageAction) Report {
	var rep Report
	switch action.Normalize() {
	case domain.ImageActionDownload:
		h.log.Info("开始下载图片", "count", len(urls))
		for i, u := range urls {
			if i > 0 && !sleep(ctx, h.delay) {
				h.log.Warn("图片下载被取消", "remaining", len(urls)-i)
				rep.Failed += len(urls) - i
				return rep
			}
			h.download(ctx, u, &rep)
		}
	case domain.ImageActionOpen:
		h.log.Info("在新标签页打开图片", "count", len(urls))
		for _, u := range urls {
			if err := h.opener.OpenTab(ctx, u); err != nil {
				h.log.Err(err, "打开图片失败", "url", u)
				rep.Failed++
				continue
			}
			rep.Opened++
		}
	default:
		h.log.Debug("图片处理已关闭", "action", string(action))
	}
	return rep
}

func (h *Handler) download(ctx context.Context, u string, rep *Report) {
	_, err := h.dl.Download(ctx, u, h.dl.SuggestedName())
	if err == nil {
		rep.Downloaded++
		return
	}
	h.log.Warn("主通道下载失败，改用直链", "url", u, "error", err.Error())

	if h.fb == nil {
		rep.Failed++
		return
	}
	if _, err := h.fb.Fetch(ctx, u); err != nil {
		h.log.Err(err, "直链下载失败", "url", u)
		rep.Failed++
		return
	}
	rep.Fallback++
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
