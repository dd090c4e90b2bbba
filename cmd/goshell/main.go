package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"goshell/internal/config"
	"goshell/internal/shell"
)

// exitStatus 让 main 以指定的退出码结束，不打印额外的消息
type exitStatus struct {
	code int
}

func (e *exitStatus) Error() string {
	return fmt.Sprintf("退出码 %d", e.code)
}

// options 所有子命令共用的选项
type options struct {
	configPath string
	maxDepth   int
	noColor    bool
}

// load 读取配置文件并应用命令行选项
func (o *options) load(cmd *cobra.Command) (*config.Configuration, error) {
	path := o.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(afero.NewOsFs(), path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("max-depth") {
		cfg.MaxDepth = o.maxDepth
	}
	if o.noColor {
		cfg.Color = false
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newRootCmd() *cobra.Command {
	var (
		opts    options
		command string
	)

	rootCmd := &cobra.Command{
		Use:           "goshell [script]",
		Short:         "一个支持管道、重定向和命令替换的小型shell",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}

			sh := shell.New(
				shell.WithConfig(cfg),
				shell.WithLogger(cfg.NewLogger(cmd.ErrOrStderr())),
				shell.WithStdio(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr()),
			)

			var status int
			switch {
			case cmd.Flags().Changed("command"):
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
				defer stop()
				status, err = sh.ExecuteReader(ctx, strings.NewReader(command))
			case len(args) == 1:
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
				defer stop()
				status, err = sh.ExecuteScript(ctx, args[0])
			default:
				status = sh.Run(cmd.Context())
			}
			if err != nil {
				return err
			}
			if status != 0 {
				return &exitStatus{code: status}
			}
			return nil
		},
	}

	rootCmd.Flags().StringVarP(&command, "command", "c", "", "执行命令字符串")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "配置文件路径（默认 ~/"+config.ConfigurationName+"）")
	rootCmd.PersistentFlags().IntVar(&opts.maxDepth, "max-depth", 0, "命令替换的最大嵌套深度")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "不输出颜色")

	rootCmd.AddCommand(newParseCmd(&opts), newFmtCmd(&opts))
	return rootCmd
}

func main() {
	err := newRootCmd().ExecuteContext(context.Background())
	var status *exitStatus
	switch {
	case err == nil:
	case errors.As(err, &status):
		os.Exit(status.code)
	default:
		fmt.Fprintf(os.Stderr, "goshell: %v\n", err)
		os.Exit(1)
	}
}

// inputs 返回命令行参数，没有参数时逐行读取 r 中的非空行
func inputs(args []string, r io.Reader) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
