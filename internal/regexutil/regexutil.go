// Package regexutil 缓存由站点 match pattern 转换出的正则表达式
package regexutil

import (
	"regexp"
	"sync"
)

// Cache 按 pattern 文本缓存编译结果，可并发使用
type Cache struct {
	cache sync.Map
}

// New 创建空缓存
func New() *Cache {
	return &Cache{}
}

// Get 返回编译后的正则，未命中时编译并缓存
func (c *Cache) Get(p string) (*regexp.Regexp, error) {
	if val, ok := c.cache.Load(p); ok {
		return val.(*regexp.Regexp), nil
	}

	compiled, err := regexp.Compile(p)
	if err != nil {
		return nil, err
	}

	// 并发编译同一 pattern 时以先存入的为准
	actual, _ := c.cache.LoadOrStore(p, compiled)
	return actual.(*regexp.Regexp), nil
}

// Match 判断 s 是否匹配 pattern，pattern 非法时返回 false
func (c *Cache) Match(p, s string) bool {
	re, err := c.Get(p)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}
