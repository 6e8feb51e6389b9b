package manager

import (
	"context"
	"fmt"
	"sync"

	"opushelper/internal/logger"
	"opushelper/pkg/domain"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/devtool"
	"github.com/mafredri/cdp/rpcc"
)

// Manager 负责枚举标签页并管理每个标签页的 CDP 会话
type Manager struct {
	devtoolsURL     string
	writeBufferSize int
	log             logger.Logger
	mu              sync.RWMutex
	sessions        map[domain.TabID]*Session
}

// Session 表示一个已附加的标签页会话
type Session struct {
	ID     domain.TabID
	Conn   *rpcc.Conn
	Client *cdp.Client
	Ctx    context.Context
	Cancel context.CancelFunc
}

// alive 连接是否仍然可用，标签页关闭后连接会被浏览器断开
func (s *Session) alive() bool {
	if s == nil || s.Conn == nil {
		return false
	}
	select {
	case <-s.Conn.Context().Done():
		return false
	case <-s.Ctx.Done():
		return false
	default:
		return true
	}
}

// New 创建会话管理器
func New(devtoolsURL string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{
		devtoolsURL:     devtoolsURL,
		writeBufferSize: 4 * 1024 * 1024,
		log:             log,
		sessions:        make(map[domain.TabID]*Session),
	}
}

// DevToolsURL 返回浏览器 DevTools 地址
func (m *Manager) DevToolsURL() string { return m.devtoolsURL }

// Ping 测试与浏览器的连通性
func (m *Manager) Ping(ctx context.Context) error {
	if m.devtoolsURL == "" {
		return fmt.Errorf("%w: devtools url empty", domain.ErrDevToolsUnreachable)
	}
	if _, err := devtool.New(m.devtoolsURL).Version(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDevToolsUnreachable, err)
	}
	return nil
}

// ListTabs 按浏览器返回的顺序列出所有 page 目标
func (m *Manager) ListTabs(ctx context.Context) ([]domain.Tab, error) {
	targets, err := m.listPages(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Tab, 0, len(targets))
	for _, t := range targets {
		out = append(out, domain.Tab{ID: domain.TabID(t.ID), URL: t.URL, Title: t.Title})
	}
	return out, nil
}

// OpenTab 在浏览器中新建标签页
func (m *Manager) OpenTab(ctx context.Context, url string) (domain.Tab, error) {
	if m.devtoolsURL == "" {
		return domain.Tab{}, fmt.Errorf("%w: devtools url empty", domain.ErrDevToolsUnreachable)
	}
	t, err := devtool.New(m.devtoolsURL).CreateURL(ctx, url)
	if err != nil {
		m.log.Err(err, "新建标签页失败", "url", url)
		return domain.Tab{}, err
	}
	m.log.Debug("新建标签页", "tab", t.ID, "url", url)
	return domain.Tab{ID: domain.TabID(t.ID), URL: t.URL, Title: t.Title}, nil
}

// Session 返回标签页的会话，不存在或已断开时重新附加
func (m *Manager) Session(ctx context.Context, id domain.TabID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok && s.alive() {
		return s, nil
	}
	return m.attach(ctx, id)
}

// attach 附加到指定标签页并建立 CDP 会话
func (m *Manager) attach(ctx context.Context, id domain.TabID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		if s.alive() {
			return s, nil
		}
		m.closeSession(s)
		delete(m.sessions, id)
	}

	targets, err := m.listPages(ctx)
	if err != nil {
		return nil, err
	}
	var target *devtool.Target
	for _, t := range targets {
		if domain.TabID(t.ID) == id {
			target = t
			break
		}
	}
	if target == nil {
		m.log.Warn("标签页未找到", "tab", string(id))
		return nil, fmt.Errorf("%w: %s", domain.ErrTargetNotFound, id)
	}

	// 会话生命周期独立于单次请求
	sessionCtx, sessionCancel := context.WithCancel(context.Background())
	conn, err := rpcc.DialContext(ctx, target.WebSocketDebuggerURL,
		rpcc.WithWriteBufferSize(m.writeBufferSize),
		rpcc.WithCompression())
	if err != nil {
		sessionCancel()
		m.log.Err(err, "连接标签页 DevTools 失败", "tab", string(id))
		return nil, err
	}

	s := &Session{
		ID:     id,
		Conn:   conn,
		Client: cdp.NewClient(conn),
		Ctx:    sessionCtx,
		Cancel: sessionCancel,
	}
	m.sessions[id] = s
	m.log.Info("附加标签页成功", "tab", string(id), "url", target.URL)
	return s, nil
}

// Detach 断开单个标签页连接并释放资源
func (m *Manager) Detach(id domain.TabID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		m.closeSession(s)
		delete(m.sessions, id)
	}
}

// DetachAll 断开所有标签页连接
func (m *Manager) DetachAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, s := range m.sessions {
		m.closeSession(s)
		delete(m.sessions, id)
	}
}

// Attached 返回当前已附加的标签页数量
func (m *Manager) Attached() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) listPages(ctx context.Context) ([]*devtool.Target, error) {
	if m.devtoolsURL == "" {
		return nil, fmt.Errorf("%w: devtools url empty", domain.ErrDevToolsUnreachable)
	}
	targets, err := devtool.New(m.devtoolsURL).List(ctx)
	if err != nil {
		m.log.Err(err, "获取标签页列表失败")
		return nil, fmt.Errorf("%w: %v", domain.ErrDevToolsUnreachable, err)
	}
	out := make([]*devtool.Target, 0, len(targets))
	for _, t := range targets {
		if t == nil || t.Type != devtool.Page {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// closeSession 先取消 context 再关闭连接
func (m *Manager) closeSession(s *Session) {
	if s == nil {
		return
	}
	if s.Cancel != nil {
		s.Cancel()
	}
	if s.Conn != nil {
		_ = s.Conn.Close()
	}
}
