package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"opushelper/internal/browser"
	"opushelper/internal/httpapi"
	"opushelper/internal/logger"

	"github.com/spf13/cobra"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var launch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动本地消息端点",
		Long:  `连接浏览器并在本地监听消息端点，供弹窗、命令行 --remote 与页面脚本调用。`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			log := logger.NewZeroLogger(cfg)

			if launch {
				b, err := browser.Start(ctx, browser.OptionsFromConfig(cfg.Browser), log)
				if err != nil {
					return err
				}
				defer func() { _ = b.Stop(5 * time.Second) }()
				cfg.Browser.DevToolsURL = b.DevToolsURL
			}

			a, err := newApp(cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if err := a.mgr.Ping(pingCtx); err != nil {
				log.Warn("浏览器暂不可用，将在收到请求时重试", "devtools", cfg.Browser.DevToolsURL, "error", err.Error())
			}
			cancel()

			srv := httpapi.NewServer(a.orc, log, httpapi.WithStatus(a.status))
			return srv.ListenAndServe(ctx, cfg.HTTP.Listen)
		},
	}

	cmd.Flags().BoolVar(&launch, "launch", false, "启动一个带远程调试端口的 Chrome")

	return cmd
}
