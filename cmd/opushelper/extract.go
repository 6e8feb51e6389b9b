package main

import (
	"fmt"
	"io"
	"os"

	"opushelper/internal/dispatcher"
	"opushelper/internal/dom/htmldoc"
	"opushelper/internal/logger"

	"github.com/spf13/cobra"
)

func newExtractCmd(flags *rootFlags) *cobra.Command {
	var base string

	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "从保存的页面 HTML 中提取正文图片地址",
		Long:  `离线解析页面 HTML，按与浏览器内相同的规则提取并归一化正文图片地址。FILE 为 - 时读取标准输入。`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			doc, err := htmldoc.Parse(r)
			if err != nil {
				return err
			}
			doc.SetBaseURL(base)

			var log logger.Logger = logger.NewNop()
			if flags.verbose {
				cfg, err := flags.loadConfig()
				if err != nil {
					return err
				}
				log = logger.NewZeroLogger(cfg)
			}

			urls, err := dispatcher.New(log).ExtractImages(cmd.Context(), doc)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, u := range urls {
				fmt.Fprintln(out, u)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&base, "base", "", "页面地址，用于补全相对图片地址")

	return cmd
}
