package dispatcher

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}
	imageMarkers    = []string{"/bfs/", "new_dyn"}
	sizeSuffix      = regexp.MustCompile(`@[^\s]*`)
)

// LooksLikeImage 原始地址中是否包含常见图片扩展名
func LooksLikeImage(src string) bool {
	for _, ext := range imageExtensions {
		if strings.Contains(src, ext) {
			return true
		}
	}
	return false
}

// NormalizeImageURL 补全协议、统一为 https，并去掉尺寸后缀与查询串。
// 对已归一的地址再次调用结果不变。
func NormalizeImageURL(src string) string {
	u := src
	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	}
	if strings.HasPrefix(u, "http:") {
		u = "https:" + strings.TrimPrefix(u, "http:")
	}
	if loc := sizeSuffix.FindStringIndex(u); loc != nil {
		u = u[:loc[0]] + u[loc[1]:]
	}
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	return u
}

// IsContentImage 归一后的地址是否为站点图床上的正文图片
func IsContentImage(u string) bool {
	for _, m := range imageMarkers {
		if strings.Contains(u, m) {
			return true
		}
	}
	return false
}

// isFetchable 归一后的地址是否为带主机名的 https 绝对地址
func isFetchable(u string) bool {
	p, err := url.Parse(u)
	return err == nil && p.Scheme == "https" && p.Host != ""
}

// resolveAgainst 将相对地址按页面地址补全，协议相对地址保持原样交给归一化处理
func resolveAgainst(base, src string) string {
	if base == "" || strings.HasPrefix(src, "//") {
		return src
	}
	ref, err := url.Parse(src)
	if err != nil || ref.IsAbs() {
		return src
	}
	b, err := url.Parse(base)
	if err != nil {
		return src
	}
	return b.ResolveReference(ref).String()
}

// orderedSet 保持首次出现顺序的去重集合
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) Add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *orderedSet) Items() []string {
	if s.items == nil {
		return []string{}
	}
	return s.items
}
