// Package menu 维护页面上下文菜单命令
package menu

import (
	"errors"
	"sync"

	"opushelper/internal/site"
)

// 菜单项 ID
const (
	ParentID        = "bilibili-opus-actions"
	LikeID          = "like-opus"
	FavoriteID      = "favorite-opus"
	DownloadImageID = "download-images"
	OpenImageID     = "open-images-tab"
)

// ErrDuplicateID 菜单项 ID 重复
var ErrDuplicateID = errors.New("duplicate menu id")

// Entry 菜单项
type Entry struct {
	ID       string   `json:"id"`
	ParentID string   `json:"parentId,omitempty"`
	Title    string   `json:"title"`
	Patterns []string `json:"documentUrlPatterns,omitempty"`
}

// Registry 内存中的菜单注册表，并发安全
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
	matcher map[string]*site.Matcher
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{matcher: make(map[string]*site.Matcher)}
}

// RemoveAll 清空所有菜单项
func (r *Registry) RemoveAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	r.matcher = make(map[string]*site.Matcher)
}

// Create 添加菜单项
func (r *Registry) Create(e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.entries {
		if existing.ID == e.ID {
			return ErrDuplicateID
		}
	}
	e.Patterns = append([]string(nil), e.Patterns...)
	r.entries = append(r.entries, e)
	r.matcher[e.ID] = site.NewMatcher(e.Patterns)
	return nil
}

// List 按创建顺序返回所有菜单项
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Entry(nil), r.entries...)
}

// Get 按 ID 查找菜单项
func (r *Registry) Get(id string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Applies 菜单项是否在 url 上可见，未限定范围的菜单项总是可见
func (r *Registry) Applies(id, url string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matcher[id]
	if !ok {
		return false
	}
	if len(m.Patterns()) == 0 {
		return true
	}
	return m.Match(url)
}

// ForURL 返回在 url 上可见的菜单项
func (r *Registry) ForURL(url string) []Entry {
	out := make([]Entry, 0)
	for _, e := range r.List() {
		if r.Applies(e.ID, url) {
			out = append(out, e)
		}
	}
	return out
}

// Register 清空后重新注册父菜单与四个子菜单
func Register(r *Registry, patterns []string) error {
	r.RemoveAll()
	entries := []Entry{
		{ID: ParentID, Title: "B站动态快捷操作", Patterns: patterns},
		{ID: LikeID, ParentID: ParentID, Title: "点赞动态", Patterns: patterns},
		{ID: FavoriteID, ParentID: ParentID, Title: "收藏动态", Patterns: patterns},
		{ID: DownloadImageID, ParentID: ParentID, Title: "下载图片", Patterns: patterns},
		{ID: OpenImageID, ParentID: ParentID, Title: "在新标签页打开图片", Patterns: patterns},
	}
	for _, e := range entries {
		if err := r.Create(e); err != nil {
			return err
		}
	}
	return nil
}
