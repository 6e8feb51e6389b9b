package main

import (
	"fmt"

	"opushelper/internal/status"
	"opushelper/pkg/domain"

	"github.com/spf13/cobra"
)

func newMenuCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "右键菜单命令",
	}

	var url string
	list := &cobra.Command{
		Use:   "list",
		Short: "列出菜单项",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, closeFn, err := flags.openBackend()
			if err != nil {
				return err
			}
			defer closeFn()

			entries, err := b.ListMenus(cmd.Context(), url)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				indent := ""
				if e.ParentID != "" {
					indent = "  "
				}
				fmt.Fprintf(out, "%s%-22s %s\n", indent, e.ID, e.Title)
			}
			return nil
		},
	}
	list.Flags().StringVar(&url, "url", "", "只列出在该页面可见的菜单项")

	var tab string
	click := &cobra.Command{
		Use:   "click ITEM",
		Short: "触发菜单命令",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, closeFn, err := flags.openBackend()
			if err != nil {
				return err
			}
			defer closeFn()

			return finish(cmd.OutOrStdout(), status.FromResult(b.MenuClick(cmd.Context(), args[0], domain.TabID(tab))))
		},
	}
	click.Flags().StringVarP(&tab, "tab", "t", "", "标签页 ID，为空时使用当前标签页")

	cmd.AddCommand(list, click)
	return cmd
}
