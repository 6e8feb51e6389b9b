package main

import (
	"fmt"
	"io"

	"opushelper/internal/status"
	"opushelper/pkg/domain"

	"github.com/spf13/cobra"
)

func newRunCmd(flags *rootFlags) *cobra.Command {
	var (
		all bool
		tab string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "在当前标签页或所有动态页面执行快捷操作",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, closeFn, err := flags.openBackend()
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			var st status.Status
			switch {
			case all:
				sum, err := b.RunAll(ctx)
				printReports(out, sum.Reports)
				st = status.FromSweep(sum, err)
			case tab != "":
				st = status.FromResult(b.RunOnTab(ctx, domain.TabID(tab)))
			default:
				st = status.FromResult(b.RunActive(ctx))
			}
			return finish(out, st)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "依次处理所有动态页面")
	cmd.Flags().StringVarP(&tab, "tab", "t", "", "指定标签页 ID")
	cmd.MarkFlagsMutuallyExclusive("all", "tab")

	return cmd
}

// printReports 输出每个标签页的处理结果
func printReports(w io.Writer, reports []domain.TabExecutionReport) {
	for _, r := range reports {
		if r.HadSuccess() {
			fmt.Fprintf(w, "  %s  %s  ok\n", r.TabID, r.URL)
			continue
		}
		fmt.Fprintf(w, "  %s  %s  %s\n", r.TabID, r.URL, r.Reason)
	}
}

// finish 输出最终状态，错误状态以非零码退出
func finish(w io.Writer, st status.Status) error {
	st.Fprint(w)
	if st.Kind == status.KindError {
		return errFailed
	}
	return nil
}
