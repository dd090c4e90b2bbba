package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"goshell/internal/parser"
	"goshell/internal/shell"
)

// newParseCmd parse 子命令：打印语法树
func newParseCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "parse [input...]",
		Short: "解析命令行并打印语法树",
		Long:  "解析每个参数（没有参数时解析标准输入的每一行）并打印语法树。",
		RunE: func(cmd *cobra.Command, args []string) error {
			return eachCommandLine(cmd, opts, args, func(w io.Writer, cl *parser.CommandLine) {
				fmt.Fprint(w, parser.Dump(cl))
			})
		},
	}
}

// newFmtCmd fmt 子命令：打印规范化的命令行
func newFmtCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "fmt [input...]",
		Short: "把命令行重写为规范形式",
		Long:  "解析每个参数（没有参数时解析标准输入的每一行）并按规范形式输出，输出可以被重新解析为相同的语法树。",
		RunE: func(cmd *cobra.Command, args []string) error {
			return eachCommandLine(cmd, opts, args, func(w io.Writer, cl *parser.CommandLine) {
				fmt.Fprintln(w, cl.String())
			})
		},
	}
}

// eachCommandLine 解析每条输入并交给 emit 输出；有语法错误时报告并继续，最后以退出码2结束
func eachCommandLine(cmd *cobra.Command, opts *options, args []string, emit func(io.Writer, *parser.CommandLine)) error {
	cfg, err := opts.load(cmd)
	if err != nil {
		return err
	}
	lines, err := inputs(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	reporter := shell.NewErrorReporter(cmd.ErrOrStderr(), "", false, shell.ColorEnabled(cfg, cmd.ErrOrStderr()))
	failed := false
	for i, line := range lines {
		cl, err := parser.Parse(line, parser.WithMaxDepth(cfg.MaxDepth))
		if err != nil {
			failed = true
			reporter.SetLineNum(i + 1)
			reporter.ReportError(err, line)
			continue
		}
		emit(cmd.OutOrStdout(), cl)
	}
	if failed {
		return &exitStatus{code: 2}
	}
	return nil
}
