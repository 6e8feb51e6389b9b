package main

import (
	"errors"
	"slices"

	"opushelper/internal/config"

	"github.com/spf13/cobra"
)

// errFailed 状态已输出，只需以非零码退出
var errFailed = errors.New("command failed")

type rootFlags struct {
	configPath string
	verbose    bool
	remote     bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "opushelper",
		Short:         "B站动态快捷操作：点赞、收藏与图片处理",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "配置文件路径 (YAML)")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "输出调试日志")
	cmd.PersistentFlags().BoolVar(&flags.remote, "remote", false, "通过正在运行的 serve 执行，而不是直接连接浏览器")

	cmd.AddCommand(newServeCmd(flags))
	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newSettingsCmd(flags))
	cmd.AddCommand(newMenuCmd(flags))
	cmd.AddCommand(newExtractCmd(flags))
	cmd.AddCommand(newPopupCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadConfig 读取配置，--verbose 时提升日志级别
func (f *rootFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// withoutConsole 去掉控制台日志输出，终端界面运行时使用
func withoutConsole(cfg *config.Config) {
	cfg.Log.Writer = slices.DeleteFunc(slices.Clone(cfg.Log.Writer), func(w string) bool {
		return w == "console"
	})
}
