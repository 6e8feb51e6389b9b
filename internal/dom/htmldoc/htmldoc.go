// Package htmldoc 基于静态 HTML 的文档实现，用于离线提取与测试
package htmldoc

import (
	"context"
	"io"
	"strings"
	"sync"

	"opushelper/internal/dom"

	"github.com/PuerkitoBio/goquery"
)

// ClickFunc 元素被点击时的回调，可在其中修改元素以模拟页面响应
type ClickFunc func(el *Element) error

// Document 静态 HTML 文档
type Document struct {
	doc     *goquery.Document
	base    string
	onClick ClickFunc

	mu     sync.Mutex
	clicks []*Element
}

// Parse 从 reader 解析 HTML
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return &Document{doc: doc}, nil
}

// ParseString 从字符串解析 HTML
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// SetBaseURL 设置页面地址，用于补全相对地址
func (d *Document) SetBaseURL(u string) { d.base = u }

// BaseURL 返回页面地址
func (d *Document) BaseURL() string { return d.base }

// OnClick 设置点击回调
func (d *Document) OnClick(fn ClickFunc) {
	d.onClick = fn
}

// Clicks 返回按顺序记录的点击
func (d *Document) Clicks() []*Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Element(nil), d.clicks...)
}

// QueryFirst 实现 dom.Node
func (d *Document) QueryFirst(ctx context.Context, selector string) (dom.Element, error) {
	return d.first(d.doc.Selection, selector)
}

// QueryAll 实现 dom.Node
func (d *Document) QueryAll(ctx context.Context, selector string) ([]dom.Element, error) {
	return d.all(d.doc.Selection, selector), nil
}

func (d *Document) first(scope *goquery.Selection, selector string) (dom.Element, error) {
	found := scope.Find(selector).First()
	if found.Length() == 0 {
		return nil, nil
	}
	return &Element{doc: d, sel: found}, nil
}

func (d *Document) all(scope *goquery.Selection, selector string) []dom.Element {
	found := scope.Find(selector)
	out := make([]dom.Element, 0, found.Length())
	found.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &Element{doc: d, sel: s})
	})
	return out
}

// Element 静态文档中的元素
type Element struct {
	doc *Document
	sel *goquery.Selection
}

// Selection 返回底层的 goquery 选择集
func (e *Element) Selection() *goquery.Selection { return e.sel }

// QueryFirst 实现 dom.Node
func (e *Element) QueryFirst(ctx context.Context, selector string) (dom.Element, error) {
	return e.doc.first(e.sel, selector)
}

// QueryAll 实现 dom.Node
func (e *Element) QueryAll(ctx context.Context, selector string) ([]dom.Element, error) {
	return e.doc.all(e.sel, selector), nil
}

// Attr 实现 dom.Element
func (e *Element) Attr(ctx context.Context, name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

// HasClass 实现 dom.Element
func (e *Element) HasClass(ctx context.Context, name string) (bool, error) {
	return e.sel.HasClass(name), nil
}

// Click 记录点击并执行回调
func (e *Element) Click(ctx context.Context) error {
	e.doc.mu.Lock()
	e.doc.clicks = append(e.doc.clicks, e)
	e.doc.mu.Unlock()

	if e.doc.onClick != nil {
		return e.doc.onClick(e)
	}
	return nil
}
