package popup

import (
	"context"
	"time"

	"opushelper/internal/status"
	"opushelper/pkg/domain"

	tea "github.com/charmbracelet/bubbletea"
)

type settingsLoadedMsg struct {
	settings domain.Settings
	err      error
}

type statusMsg struct {
	status status.Status
}

type clearBannerMsg struct {
	seq int
}

func loadSettingsCmd(ctx context.Context, ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		s, err := ctrl.GetSettings(ctx)
		return settingsLoadedMsg{settings: s, err: err}
	}
}

func saveCmd(ctx context.Context, ctrl Controller, s domain.Settings) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{status: status.Saved(ctrl.SaveSettings(ctx, s))}
	}
}

func runActiveCmd(ctx context.Context, ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{status: status.FromResult(ctrl.RunActive(ctx))}
	}
}

func runAllCmd(ctx context.Context, ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{status: status.FromSweep(ctrl.RunAll(ctx))}
	}
}

func clearBannerCmd(seq int) tea.Cmd {
	return tea.Tick(BannerDuration, func(time.Time) tea.Msg {
		return clearBannerMsg{seq: seq}
	})
}
