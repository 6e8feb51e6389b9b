// Package dispatcher 在单个页面上执行点赞、收藏与图片提取
package dispatcher

import (
	"context"
	"fmt"

	"opushelper/internal/dom"
	"opushelper/internal/logger"
	"opushelper/pkg/domain"
)

// BaseURLer 可选能力：文档所在页面地址，用于补全相对图片地址
type BaseURLer interface {
	BaseURL() string
}

// Dispatcher 页面动作引擎，本身无状态，可被多个页面复用
type Dispatcher struct {
	sel Selectors
	log logger.Logger
}

// New 使用默认选择器创建引擎
func New(log logger.Logger) *Dispatcher {
	return NewWithSelectors(DefaultSelectors(), log)
}

// NewWithSelectors 使用自定义选择器创建引擎
func NewWithSelectors(sel Selectors, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.NewNop()
	}
	return &Dispatcher{sel: sel, log: log}
}

// Execute 按配置依次执行三类动作。
// 任一动作内部出错只影响该动作的结果，不会中断其余动作。
func (d *Dispatcher) Execute(ctx context.Context, doc dom.Document, cfg domain.ExecutionConfig) domain.ActionResult {
	d.log.Debug("开始执行页面动作", "like", cfg.LikeEnabled, "favorite", cfg.FavoriteEnabled,
		"image", cfg.ImageEnabled, "imageAction", string(cfg.ImageAction))

	res := domain.ActionResult{ImageURLs: []string{}}

	if cfg.LikeEnabled {
		res.Like = d.guard(domain.CapabilityLike, func() (domain.Outcome, error) {
			return d.toggle(ctx, doc, domain.CapabilityLike, d.sel.Like, domain.ReasonAlreadyLiked)
		})
	} else {
		res.Like = domain.Skipped(domain.CapabilityLike)
	}

	if cfg.FavoriteEnabled {
		res.Favorite = d.guard(domain.CapabilityFavorite, func() (domain.Outcome, error) {
			return d.toggle(ctx, doc, domain.CapabilityFavorite, d.sel.Favorite, domain.ReasonAlreadyFavorited)
		})
	} else {
		res.Favorite = domain.Skipped(domain.CapabilityFavorite)
	}

	if cfg.WantsImages() {
		urls, err := d.safeExtract(ctx, doc)
		if err != nil {
			d.log.Err(err, "提取图片失败")
		} else {
			res.ImageURLs = urls
		}
	}

	d.log.Info("页面动作执行完成", "like", res.Like.String(), "favorite", res.Favorite.String(),
		"images", len(res.ImageURLs))
	return res
}

// ExtractImages 仅提取图片地址
func (d *Dispatcher) ExtractImages(ctx context.Context, doc dom.Document) ([]string, error) {
	return d.safeExtract(ctx, doc)
}

// guard 将动作中的错误与 panic 转换为失败结果
func (d *Dispatcher) guard(action domain.Capability, fn func() (domain.Outcome, error)) (out domain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("页面动作异常", "action", string(action), "panic", fmt.Sprint(r))
			out = domain.Failed(action, fmt.Sprintf("dispatch error: %v", r))
		}
	}()

	out, err := fn()
	if err != nil {
		d.log.Err(err, "页面动作出错", "action", string(action))
		return domain.Failed(action, "dispatch error: "+err.Error())
	}
	return out
}

// toggle 定位控件，未激活时点击
func (d *Dispatcher) toggle(ctx context.Context, doc dom.Document, action domain.Capability, t Toggle, alreadyReason string) (domain.Outcome, error) {
	el, active, err := d.locate(ctx, doc, t)
	if err != nil {
		return domain.Outcome{}, err
	}
	if el == nil {
		return domain.Failed(action, domain.ReasonControlNotFound), nil
	}
	if active {
		return domain.Failed(action, alreadyReason), nil
	}
	if err := el.Click(ctx); err != nil {
		return domain.Outcome{}, err
	}
	return domain.Succeeded(action), nil
}

// locate 返回控件及其激活状态，找不到时 el 为 nil
func (d *Dispatcher) locate(ctx context.Context, doc dom.Document, t Toggle) (dom.Element, bool, error) {
	if t.Primary != "" {
		el, err := doc.QueryFirst(ctx, t.Primary)
		if err != nil {
			return nil, false, err
		}
		if el != nil {
			active, err := el.HasClass(ctx, t.PrimaryActive)
			return el, active, err
		}
	}

	if t.Item == "" || t.Icon == "" {
		return nil, false, nil
	}
	items, err := doc.QueryAll(ctx, t.Item)
	if err != nil {
		return nil, false, err
	}
	for _, item := range items {
		icon, err := item.QueryFirst(ctx, t.Icon)
		if err != nil {
			return nil, false, err
		}
		if icon == nil {
			continue
		}
		active, err := item.HasClass(ctx, t.ItemActive)
		return item, active, err
	}
	return nil, false, nil
}

func (d *Dispatcher) safeExtract(ctx context.Context, doc dom.Document) (urls []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch error: %v", r)
		}
	}()
	return d.extract(ctx, doc)
}

// extract 按文档顺序收集容器内的正文图片
func (d *Dispatcher) extract(ctx context.Context, doc dom.Document) ([]string, error) {
	base := ""
	if b, ok := doc.(BaseURLer); ok {
		base = b.BaseURL()
	}

	containers, err := doc.QueryAll(ctx, d.sel.ImageContainers)
	if err != nil {
		return nil, err
	}

	set := newOrderedSet()
	for _, c := range containers {
		imgs, err := c.QueryAll(ctx, d.sel.Image)
		if err != nil {
			return nil, err
		}
		for _, img := range imgs {
			src, err := imageSource(ctx, img)
			if err != nil {
				return nil, err
			}
			if src == "" || !LooksLikeImage(src) {
				continue
			}
			u := NormalizeImageURL(resolveAgainst(base, src))
			if isFetchable(u) && IsContentImage(u) {
				set.Add(u)
			}
		}
	}
	return set.Items(), nil
}

// imageSource 优先使用懒加载地址
func imageSource(ctx context.Context, img dom.Element) (string, error) {
	if v, ok, err := img.Attr(ctx, "data-src"); err != nil {
		return "", err
	} else if ok && v != "" {
		return v, nil
	}
	v, _, err := img.Attr(ctx, "src")
	return v, err
}
