package popup

import (
	"opushelper/internal/status"
	"opushelper/pkg/domain"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Update 处理消息
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case settingsLoadedMsg:
		m.loaded = true
		if msg.err != nil {
			return m.showBanner(status.Status{Kind: status.KindError, Message: msg.err.Error()})
		}
		m.settings = msg.settings
		return m, nil

	case statusMsg:
		m.busy = false
		m.busyLabel = ""
		return m.showBanner(msg.status)

	case clearBannerMsg:
		if msg.seq == m.bannerSeq {
			m.banner = nil
		}
		return m, nil
	}
	return m, nil
}

func (m Model) showBanner(s status.Status) (tea.Model, tea.Cmd) {
	m.bannerSeq++
	m.banner = &s
	return m, clearBannerCmd(m.bannerSeq)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.cursor = (m.cursor + itemCount - 1) % itemCount
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.cursor = (m.cursor + 1) % itemCount
		return m, nil
	case key.Matches(msg, m.keys.Save):
		return m.trigger(itemSave)
	case key.Matches(msg, m.keys.Run):
		return m.trigger(itemRunActive)
	case key.Matches(msg, m.keys.RunAll):
		return m.trigger(itemRunAll)
	case key.Matches(msg, m.keys.Select):
		return m.activate(m.cursor)
	}
	return m, nil
}

// activate 切换复选框、单选框，或触发按钮
func (m Model) activate(it item) (tea.Model, tea.Cmd) {
	switch it {
	case itemLike:
		m.settings.LikeEnabled = !m.settings.LikeEnabled
	case itemFavorite:
		m.settings.FavoriteEnabled = !m.settings.FavoriteEnabled
	case itemImage:
		m.settings.ImageEnabled = !m.settings.ImageEnabled
	case itemActionDownload:
		m.settings.ImageAction = domain.ImageActionDownload
	case itemActionOpen:
		m.settings.ImageAction = domain.ImageActionOpenTab
	default:
		return m.trigger(it)
	}
	return m, nil
}

// trigger 启动一个异步操作，进行中时忽略新的触发
func (m Model) trigger(it item) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	var cmd tea.Cmd
	switch it {
	case itemSave:
		m.busyLabel = "保存中..."
		cmd = saveCmd(m.ctx, m.ctrl, m.settings)
	case itemRunActive:
		m.busyLabel = "执行中..."
		cmd = runActiveCmd(m.ctx, m.ctrl)
	case itemRunAll:
		m.busyLabel = "正在执行所有动态页面..."
		cmd = runAllCmd(m.ctx, m.ctrl)
	default:
		return m, nil
	}
	m.busy = true
	return m, tea.Batch(cmd, m.spinner.Tick)
}
