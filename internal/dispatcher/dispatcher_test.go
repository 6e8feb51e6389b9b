package dispatcher_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"opushelper/internal/dispatcher"
	"opushelper/internal/dom"
	"opushelper/internal/dom/htmldoc"
	"opushelper/pkg/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 旧版页面：侧边工具栏
const legacyPage = `<html><body>
<div class="side-toolbar">
  <div class="side-toolbar__action like"></div>
  <div class="side-toolbar__action favorite is-active"></div>
</div>
<div class="opus-module-content">
  <img data-src="//i0.hdslb.com/bfs/new_dyn/abc.jpg@1192w.webp" src="data:image/gif;base64,xx">
  <div class="opus-paragraph-children">
    <img src="http://i0.hdslb.com/bfs/new_dyn/abc.jpg?x=1">
    <img src="https://i0.hdslb.com/bfs/article/def.png@progressive">
  </div>
  <img src="https://static.hdslb.com/images/avatar.png">
  <img src="https://i0.hdslb.com/bfs/emote/not-an-image">
</div>
<img src="https://i0.hdslb.com/bfs/outside.jpg">
</body></html>`

// 新版页面：底部工具栏
const modernPage = `<html><body>
<div class="bili-toolbar">
  <div class="toolbar-item"><i class="icon-share_p"></i></div>
  <div class="toolbar-item toolbar-on"><i class="icon-like_p"></i></div>
  <div class="toolbar-item"><i class="icon-collect_p"></i></div>
</div>
<div class="article-content"><img src="/bfs/article/rel.jpg"></div>
</body></html>`

func parse(t *testing.T, html string) *htmldoc.Document {
	t.Helper()
	doc, err := htmldoc.ParseString(html)
	require.NoError(t, err)
	return doc
}

func allEnabled() domain.ExecutionConfig {
	return domain.NewExecutionConfig(domain.DefaultSettings())
}

func TestExecute_LegacyPage(t *testing.T) {
	doc := parse(t, legacyPage)
	d := dispatcher.New(nil)

	res := d.Execute(context.Background(), doc, allEnabled())

	assert.Equal(t, domain.Succeeded(domain.CapabilityLike), res.Like)
	assert.Equal(t, domain.Failed(domain.CapabilityFavorite, domain.ReasonAlreadyFavorited), res.Favorite)
	assert.Equal(t, []string{
		"https://i0.hdslb.com/bfs/new_dyn/abc.jpg",
		"https://i0.hdslb.com/bfs/article/def.png",
	}, res.ImageURLs)
	assert.Len(t, doc.Clicks(), 1)
}

func TestExecute_ModernPageFallback(t *testing.T) {
	doc := parse(t, modernPage)
	d := dispatcher.New(nil)

	res := d.Execute(context.Background(), doc, allEnabled())

	assert.Equal(t, domain.Failed(domain.CapabilityLike, domain.ReasonAlreadyLiked), res.Like)
	assert.Equal(t, domain.Succeeded(domain.CapabilityFavorite), res.Favorite)
	// 没有页面地址时相对路径无法补全，直接丢弃
	assert.Empty(t, res.ImageURLs)
	assert.NotNil(t, res.ImageURLs)

	clicks := doc.Clicks()
	require.Len(t, clicks, 1)
	icon, _ := clicks[0].QueryFirst(context.Background(), ".icon-collect_p")
	assert.NotNil(t, icon)
}

type basedDoc struct {
	*htmldoc.Document
	base string
}

func (b basedDoc) BaseURL() string { return b.base }

func TestExecute_ResolvesRelativeImages(t *testing.T) {
	doc := basedDoc{Document: parse(t, modernPage), base: "https://www.bilibili.com/read/cv1"}
	res := dispatcher.New(nil).Execute(context.Background(), doc, allEnabled())
	assert.Equal(t, []string{"https://www.bilibili.com/bfs/article/rel.jpg"}, res.ImageURLs)
}

func TestExecute_NoControls(t *testing.T) {
	doc := parse(t, `<html><body><p>empty</p></body></html>`)
	res := dispatcher.New(nil).Execute(context.Background(), doc, allEnabled())

	assert.Equal(t, domain.Failed(domain.CapabilityLike, domain.ReasonControlNotFound), res.Like)
	assert.Equal(t, domain.Failed(domain.CapabilityFavorite, domain.ReasonControlNotFound), res.Favorite)
	assert.Empty(t, res.ImageURLs)
	assert.NotNil(t, res.ImageURLs)
}

func TestExecute_LikeIsIdempotent(t *testing.T) {
	doc := parse(t, legacyPage)
	doc.OnClick(func(el *htmldoc.Element) error {
		el.Selection().AddClass("is-active")
		return nil
	})
	d := dispatcher.New(nil)
	cfg := domain.ExecutionConfig{LikeEnabled: true}

	first := d.Execute(context.Background(), doc, cfg)
	second := d.Execute(context.Background(), doc, cfg)

	assert.True(t, first.Like.IsSuccess())
	assert.Equal(t, domain.Failed(domain.CapabilityLike, domain.ReasonAlreadyLiked), second.Like)
	assert.Len(t, doc.Clicks(), 1)
}

func TestExecute_DisabledCapabilities(t *testing.T) {
	doc := parse(t, legacyPage)
	cfg := domain.NewExecutionConfig(domain.Settings{
		LikeEnabled:     false,
		FavoriteEnabled: false,
		ImageEnabled:    true,
		ImageAction:     domain.ImageActionNone,
	})

	res := dispatcher.New(nil).Execute(context.Background(), doc, cfg)

	assert.True(t, res.Like.IsSkipped())
	assert.True(t, res.Favorite.IsSkipped())
	assert.Empty(t, res.ImageURLs)
	assert.Empty(t, doc.Clicks())
}

func TestExecute_ImagesDisabled(t *testing.T) {
	doc := parse(t, legacyPage)
	cfg := domain.NewExecutionConfig(domain.Settings{ImageEnabled: false, ImageAction: domain.ImageActionDownload})

	res := dispatcher.New(nil).Execute(context.Background(), doc, cfg)
	assert.Empty(t, res.ImageURLs)
}

// faultyDoc 对指定选择器返回错误或 panic
type faultyDoc struct {
	dom.Document
	failOn  string
	panicOn string
}

func (f faultyDoc) QueryFirst(ctx context.Context, selector string) (dom.Element, error) {
	if selector == f.panicOn {
		panic("boom")
	}
	if selector == f.failOn {
		return nil, errors.New("selector exploded")
	}
	return f.Document.QueryFirst(ctx, selector)
}

func TestExecute_FaultIsolation(t *testing.T) {
	inner := parse(t, legacyPage)
	doc := faultyDoc{
		Document: inner,
		failOn:   ".side-toolbar__action.like",
		panicOn:  ".side-toolbar__action.favorite",
	}

	res := dispatcher.New(nil).Execute(context.Background(), doc, allEnabled())

	assert.False(t, res.Like.IsSuccess())
	assert.True(t, strings.HasPrefix(res.Like.Reason, "dispatch error"))
	assert.False(t, res.Favorite.IsSuccess())
	assert.True(t, strings.HasPrefix(res.Favorite.Reason, "dispatch error"))
	assert.Len(t, res.ImageURLs, 2)
}

func TestNormalizeImageURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"//i0.hdslb.com/bfs/a.jpg", "https://i0.hdslb.com/bfs/a.jpg"},
		{"http://i0.hdslb.com/bfs/a.jpg", "https://i0.hdslb.com/bfs/a.jpg"},
		{"https://i0.hdslb.com/bfs/a.jpg@1192w.webp", "https://i0.hdslb.com/bfs/a.jpg"},
		{"https://i0.hdslb.com/bfs/a.jpg?token=1", "https://i0.hdslb.com/bfs/a.jpg"},
		{"https://i0.hdslb.com/bfs/a.jpg@100w?x=1", "https://i0.hdslb.com/bfs/a.jpg"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := dispatcher.NormalizeImageURL(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, dispatcher.NormalizeImageURL(got), "归一化应当幂等")
		})
	}
}

func TestImageFilters(t *testing.T) {
	assert.True(t, dispatcher.LooksLikeImage("a.webp@1w"))
	assert.False(t, dispatcher.LooksLikeImage("https://x/bfs/y"))
	assert.True(t, dispatcher.IsContentImage("https://i0.hdslb.com/bfs/a.jpg"))
	assert.True(t, dispatcher.IsContentImage("https://x.com/new_dyn/a.jpg"))
	assert.False(t, dispatcher.IsContentImage("https://static.hdslb.com/images/a.png"))
}
