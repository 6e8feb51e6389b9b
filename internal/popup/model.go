// Package popup 终端弹窗：编辑偏好并手动触发执行
package popup

import (
	"context"
	"time"

	"opushelper/internal/status"
	"opushelper/pkg/domain"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// BannerDuration 状态横幅的显示时长
const BannerDuration = 3 * time.Second

// Controller 弹窗依赖的后台能力
type Controller interface {
	GetSettings(ctx context.Context) (domain.Settings, error)
	SaveSettings(ctx context.Context, s domain.Settings) error
	RunActive(ctx context.Context) (domain.ActionResult, error)
	RunAll(ctx context.Context) (domain.SweepSummary, error)
}

// item 可聚焦的控件
type item int

const (
	itemLike item = iota
	itemFavorite
	itemImage
	itemActionDownload
	itemActionOpen
	itemSave
	itemRunActive
	itemRunAll
	itemCount
)

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Save   key.Binding
	Run    key.Binding
	RunAll key.Binding
	Quit   key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "上移")),
		Down:   key.NewBinding(key.WithKeys("down", "j", "tab"), key.WithHelp("↓/j", "下移")),
		Select: key.NewBinding(key.WithKeys(" ", "space", "enter"), key.WithHelp("space", "切换/执行")),
		Save:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "保存设置")),
		Run:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "当前页执行")),
		RunAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "所有动态页执行")),
		Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "退出")),
	}
}

// Model 弹窗状态
type Model struct {
	ctx  context.Context
	ctrl Controller
	keys keyMap

	settings domain.Settings
	loaded   bool
	cursor   item

	busy      bool
	busyLabel string
	spinner   spinner.Model

	banner    *status.Status
	bannerSeq int

	width int
}

// NewModel 创建弹窗
func NewModel(ctx context.Context, ctrl Controller) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return Model{
		ctx:      ctx,
		ctrl:     ctrl,
		keys:     defaultKeys(),
		settings: domain.DefaultSettings(),
		spinner:  s,
		width:    48,
	}
}

// Init 加载偏好
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, loadSettingsCmd(m.ctx, m.ctrl))
}

// Settings 返回当前编辑中的偏好
func (m Model) Settings() domain.Settings { return m.settings }

// Banner 返回当前横幅，没有时返回 nil
func (m Model) Banner() *status.Status { return m.banner }

// Busy 是否有操作进行中
func (m Model) Busy() bool { return m.busy }

// openSelected 图片处理方式是否为新标签页打开
func (m Model) openSelected() bool {
	return m.settings.ImageAction.Normalize() == domain.ImageActionOpen
}
