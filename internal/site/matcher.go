// Package site 判断 URL 是否属于可执行快捷操作的动态页面
package site

import (
	"regexp"
	"strings"

	"opushelper/internal/regexutil"
)

// Matcher 按浏览器扩展 match pattern 语法匹配 URL
type Matcher struct {
	patterns []string
	exprs    []string
	cache    *regexutil.Cache
}

// NewMatcher 创建匹配器，非法 pattern 会被忽略
func NewMatcher(patterns []string) *Matcher {
	m := &Matcher{cache: regexutil.New()}
	for _, p := range patterns {
		expr, ok := PatternToRegexp(p)
		if !ok {
			continue
		}
		m.patterns = append(m.patterns, p)
		m.exprs = append(m.exprs, expr)
	}
	return m
}

// Patterns 返回有效的原始 pattern
func (m *Matcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}

// Match 任一 pattern 命中即返回 true
func (m *Matcher) Match(url string) bool {
	for _, expr := range m.exprs {
		if m.cache.Match(expr, url) {
			return true
		}
	}
	return false
}

// PatternToRegexp 将 "<scheme>://<host><path>" 形式的 pattern 转为正则。
// scheme 为 * 时匹配 http 与 https；host 为 *.example.com 时同时匹配裸域名。
func PatternToRegexp(pattern string) (string, bool) {
	scheme, rest, ok := strings.Cut(pattern, "://")
	if !ok || scheme == "" {
		return "", false
	}
	host, path := rest, "/"
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		host, path = rest[:i], rest[i:]
	}
	if host == "" {
		return "", false
	}

	var b strings.Builder
	b.WriteString("^")
	switch scheme {
	case "*":
		b.WriteString("https?")
	case "http", "https":
		b.WriteString(scheme)
	default:
		return "", false
	}
	b.WriteString("://")

	switch {
	case host == "*":
		b.WriteString(`[^/]+`)
	case strings.HasPrefix(host, "*."):
		b.WriteString(`([^/]+\.)?`)
		b.WriteString(regexp.QuoteMeta(host[2:]))
	case strings.Contains(host, "*"):
		return "", false
	default:
		b.WriteString(regexp.QuoteMeta(host))
	}

	// 端口不属于 pattern 的一部分
	b.WriteString(`(:\d+)?`)

	for _, part := range strings.Split(path, "*") {
		b.WriteString(regexp.QuoteMeta(part))
		b.WriteString(".*")
	}
	expr := strings.TrimSuffix(b.String(), ".*") + "$"
	return expr, true
}
