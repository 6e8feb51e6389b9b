package cdp

import (
	"context"
	"errors"

	"opushelper/internal/dom"
	"opushelper/pkg/domain"

	"github.com/mafredri/cdp"
	cdpdom "github.com/mafredri/cdp/protocol/dom"
	"github.com/mafredri/cdp/protocol/runtime"
)

// clickDecl 通过注入的桥接对象点击 this 元素
const clickDecl = `function () { return window.` + BridgeName + `.click(this); }`

// PageDocument 基于 CDP DOM 域的页面文档，节点 ID 在页面重新加载后失效
type PageDocument struct {
	client  *cdp.Client
	root    cdpdom.NodeID
	baseURL string
}

// NewPageDocument 获取当前页面的文档根节点
func NewPageDocument(ctx context.Context, client *cdp.Client, baseURL string) (*PageDocument, error) {
	reply, err := client.DOM.GetDocument(ctx, cdpdom.NewGetDocumentArgs().SetDepth(0))
	if err != nil {
		return nil, err
	}
	return &PageDocument{client: client, root: reply.Root.NodeID, baseURL: baseURL}, nil
}

// BaseURL 页面地址
func (d *PageDocument) BaseURL() string { return d.baseURL }

// QueryFirst 实现 dom.Node
func (d *PageDocument) QueryFirst(ctx context.Context, selector string) (dom.Element, error) {
	return d.queryFirst(ctx, d.root, selector)
}

// QueryAll 实现 dom.Node
func (d *PageDocument) QueryAll(ctx context.Context, selector string) ([]dom.Element, error) {
	return d.queryAll(ctx, d.root, selector)
}

func (d *PageDocument) queryFirst(ctx context.Context, scope cdpdom.NodeID, selector string) (dom.Element, error) {
	reply, err := d.client.DOM.QuerySelector(ctx, cdpdom.NewQuerySelectorArgs(scope, selector))
	if err != nil {
		return nil, err
	}
	if reply.NodeID == 0 {
		return nil, nil
	}
	return &pageElement{doc: d, id: reply.NodeID}, nil
}

func (d *PageDocument) queryAll(ctx context.Context, scope cdpdom.NodeID, selector string) ([]dom.Element, error) {
	reply, err := d.client.DOM.QuerySelectorAll(ctx, cdpdom.NewQuerySelectorAllArgs(scope, selector))
	if err != nil {
		return nil, err
	}
	out := make([]dom.Element, 0, len(reply.NodeIDs))
	for _, id := range reply.NodeIDs {
		out = append(out, &pageElement{doc: d, id: id})
	}
	return out, nil
}

// pageElement 页面中的一个 DOM 节点
type pageElement struct {
	doc   *PageDocument
	id    cdpdom.NodeID
	attrs map[string]string
}

func (e *pageElement) QueryFirst(ctx context.Context, selector string) (dom.Element, error) {
	return e.doc.queryFirst(ctx, e.id, selector)
}

func (e *pageElement) QueryAll(ctx context.Context, selector string) ([]dom.Element, error) {
	return e.doc.queryAll(ctx, e.id, selector)
}

func (e *pageElement) Attr(ctx context.Context, name string) (string, bool, error) {
	if e.attrs == nil {
		reply, err := e.doc.client.DOM.GetAttributes(ctx, cdpdom.NewGetAttributesArgs(e.id))
		if err != nil {
			return "", false, err
		}
		// 属性以 name, value 交替排列
		e.attrs = make(map[string]string, len(reply.Attributes)/2)
		for i := 0; i+1 < len(reply.Attributes); i += 2 {
			e.attrs[reply.Attributes[i]] = reply.Attributes[i+1]
		}
	}
	v, ok := e.attrs[name]
	return v, ok, nil
}

func (e *pageElement) HasClass(ctx context.Context, name string) (bool, error) {
	class, _, err := e.Attr(ctx, "class")
	if err != nil {
		return false, err
	}
	return dom.ClassListContains(class, name), nil
}

func (e *pageElement) Click(ctx context.Context) error {
	c := e.doc.client
	resolved, err := c.DOM.ResolveNode(ctx, cdpdom.NewResolveNodeArgs().SetNodeID(e.id))
	if err != nil {
		return err
	}
	if resolved.Object.ObjectID == nil {
		return domain.ErrElementDetached
	}
	oid := *resolved.Object.ObjectID
	defer func() {
		_ = c.Runtime.ReleaseObject(ctx, runtime.NewReleaseObjectArgs(oid))
	}()

	reply, err := c.Runtime.CallFunctionOn(ctx, runtime.NewCallFunctionOnArgs(clickDecl).
		SetObjectID(oid).
		SetReturnByValue(true))
	if err != nil {
		return err
	}
	if reply.ExceptionDetails != nil {
		return exceptionError(reply.ExceptionDetails)
	}
	if string(reply.Result.Value) != "true" {
		return errors.New("click rejected by page")
	}
	// 点击后 class 可能变化
	e.attrs = nil
	return nil
}
