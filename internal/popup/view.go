package popup

import (
	"strings"

	"opushelper/internal/status"

	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor = lipgloss.Color("#FB7299")
	mutedColor   = lipgloss.Color("#6B7280")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(primaryColor).MarginBottom(1)
	cursorStyle  = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	buttonStyle  = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder()).BorderForeground(mutedColor)
	activeButton = buttonStyle.BorderForeground(primaryColor).Foreground(primaryColor)
	spinnerStyle = lipgloss.NewStyle().Foreground(primaryColor)

	bannerStyles = map[status.Kind]lipgloss.Style{
		status.KindSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("#155724")).Background(lipgloss.Color("#D4EDDA")).Padding(0, 1),
		status.KindWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("#856404")).Background(lipgloss.Color("#FFF3CD")).Padding(0, 1),
		status.KindError:   lipgloss.NewStyle().Foreground(lipgloss.Color("#721C24")).Background(lipgloss.Color("#F8D7DA")).Padding(0, 1),
	}
)

// View 渲染弹窗
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("B站动态快捷操作"))
	b.WriteString("\n")

	if !m.loaded {
		b.WriteString(m.spinner.View() + " 加载设置中...\n")
		return b.String()
	}

	b.WriteString(m.checkbox(itemLike, "自动点赞", m.settings.LikeEnabled))
	b.WriteString(m.checkbox(itemFavorite, "自动收藏", m.settings.FavoriteEnabled))
	b.WriteString(m.checkbox(itemImage, "处理图片", m.settings.ImageEnabled))
	b.WriteString(m.radio(itemActionDownload, "下载到本地", !m.openSelected()))
	b.WriteString(m.radio(itemActionOpen, "在新标签页打开", m.openSelected()))
	b.WriteString("\n")

	buttons := lipgloss.JoinHorizontal(lipgloss.Top,
		m.button(itemSave, "保存设置"),
		m.button(itemRunActive, "执行快捷操作"),
		m.button(itemRunAll, "所有动态页执行"),
	)
	b.WriteString(buttons)
	b.WriteString("\n")

	if m.busy {
		b.WriteString(m.spinner.View() + " " + m.busyLabel + "\n")
	}
	if m.banner != nil {
		b.WriteString(bannerStyles[m.banner.Kind].Render(m.banner.Icon() + " " + m.banner.Message))
		b.WriteString("\n")
	}

	b.WriteString(mutedStyle.Render("↑/↓ 移动 · space 切换 · s 保存 · r 当前页 · a 所有页 · q 退出"))
	return b.String()
}

func (m Model) prefix(it item) string {
	if m.cursor == it {
		return cursorStyle.Render("› ")
	}
	return "  "
}

func (m Model) checkbox(it item, label string, on bool) string {
	box := "[ ]"
	if on {
		box = "[x]"
	}
	return m.prefix(it) + box + " " + label + "\n"
}

func (m Model) radio(it item, label string, on bool) string {
	dot := "( )"
	if on {
		dot = "(•)"
	}
	line := "    " + dot + " " + label
	if !m.settings.ImageEnabled {
		line = mutedStyle.Render(line)
	}
	return m.prefix(it) + line + "\n"
}

func (m Model) button(it item, label string) string {
	if m.cursor == it {
		return activeButton.Render(label)
	}
	return buttonStyle.Render(label)
}
