package main

import (
	"opushelper/internal/popup"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newPopupCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "popup",
		Short: "打开终端弹窗",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, closeFn, err := flags.openBackend(withoutConsole)
			if err != nil {
				return err
			}
			defer closeFn()

			p := tea.NewProgram(popup.NewModel(cmd.Context(), b), tea.WithContext(cmd.Context()))
			_, err = p.Run()
			return err
		},
	}
}
