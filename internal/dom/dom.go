// Package dom 定义动作引擎访问页面结构所需的最小能力
package dom

import (
	"context"
	"slices"
	"strings"
)

// Node 可以按 CSS 选择器向下查询的节点
type Node interface {
	// QueryFirst 返回第一个匹配元素，没有匹配时返回 nil, nil
	QueryFirst(ctx context.Context, selector string) (Element, error)
	// QueryAll 按文档顺序返回所有匹配元素
	QueryAll(ctx context.Context, selector string) ([]Element, error)
}

// Document 页面文档
type Document interface {
	Node
}

// Element 页面元素
type Element interface {
	Node
	// Attr 读取属性值，属性不存在时 ok 为 false
	Attr(ctx context.Context, name string) (value string, ok bool, err error)
	// HasClass 判断 class 列表是否包含 name
	HasClass(ctx context.Context, name string) (bool, error)
	// Click 触发元素点击
	Click(ctx context.Context) error
}

// ClassListContains 判断空白分隔的 class 属性中是否包含 name
func ClassListContains(classAttr, name string) bool {
	return slices.Contains(strings.Fields(classAttr), name)
}
