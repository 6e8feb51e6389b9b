package manager_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"opushelper/internal/manager"
	"opushelper/pkg/domain"
)

const targetsJSON = `[
  {"id":"T1","type":"page","title":"动态","url":"https://www.bilibili.com/opus/1","webSocketDebuggerUrl":"ws://127.0.0.1:1/devtools/page/T1"},
  {"id":"SW","type":"service_worker","title":"sw","url":"https://www.bilibili.com/sw.js","webSocketDebuggerUrl":"ws://127.0.0.1:1/devtools/page/SW"},
  {"id":"T2","type":"page","title":"首页","url":"https://www.bilibili.com/","webSocketDebuggerUrl":"ws://127.0.0.1:1/devtools/page/T2"}
]`

// newDevTools 模拟浏览器的 DevTools HTTP 端点
func newDevTools(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/json/version"):
			_, _ = w.Write([]byte(`{"Browser":"Chrome/120.0","Protocol-Version":"1.3","webSocketDebuggerUrl":"ws://127.0.0.1:1/devtools/browser/x"}`))
		case r.URL.Path == "/json/list" || r.URL.Path == "/json":
			_, _ = w.Write([]byte(targetsJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestListTabs 仅返回 page 类型目标并保持顺序
func TestListTabs(t *testing.T) {
	srv := newDevTools(t)
	m := manager.New(srv.URL, nil)

	tabs, err := m.ListTabs(context.Background())
	if err != nil {
		t.Fatalf("列出标签页失败: %v", err)
	}
	if len(tabs) != 2 {
		t.Fatalf("预期 2 个标签页，实际 %d", len(tabs))
	}
	if tabs[0].ID != "T1" || tabs[1].ID != "T2" {
		t.Errorf("标签页顺序不符合预期: %+v", tabs)
	}
	if tabs[0].URL != "https://www.bilibili.com/opus/1" {
		t.Errorf("URL 不符合预期: %s", tabs[0].URL)
	}
}

// TestPing 测试连通性检查
func TestPing(t *testing.T) {
	srv := newDevTools(t)
	if err := manager.New(srv.URL, nil).Ping(context.Background()); err != nil {
		t.Errorf("Ping 失败: %v", err)
	}

	err := manager.New("", nil).Ping(context.Background())
	if !errors.Is(err, domain.ErrDevToolsUnreachable) {
		t.Errorf("空地址预期 ErrDevToolsUnreachable，实际 %v", err)
	}
}

// TestSession_UnknownTab 附加不存在的标签页返回 ErrTargetNotFound
func TestSession_UnknownTab(t *testing.T) {
	srv := newDevTools(t)
	m := manager.New(srv.URL, nil)

	_, err := m.Session(context.Background(), "missing")
	if !errors.Is(err, domain.ErrTargetNotFound) {
		t.Errorf("预期 ErrTargetNotFound，实际 %v", err)
	}
	if m.Attached() != 0 {
		t.Errorf("不应留下会话")
	}
}
