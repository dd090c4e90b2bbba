// Package builtin 提供在shell进程内执行的内置命令
package builtin

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pborman/getopt/v2"

	"goshell/internal/env"
	"goshell/internal/lexer"
	"goshell/pkg/platform"
)

// Context 内置命令的执行上下文
// 标准输入输出已经按管道和重定向接好，内置命令不能直接使用 os.Stdout
type Context struct {
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	Env     *env.Env
	History func() []string // 可以为 nil
}

// BuiltinFunc 内置命令函数类型
type BuiltinFunc func(ctx *Context, args []string) error

// ExitError 由 exit 返回，要求shell以 Code 退出
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit %d", e.Code)
}

// StatusError 内置命令失败但不需要打印额外消息时使用，只携带退出码
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("退出码 %d", e.Code)
}

var builtins map[string]BuiltinFunc

func init() {
	builtins = map[string]BuiltinFunc{
		"cd":      cd,
		"pwd":     pwd,
		"echo":    echo,
		"exit":    exit,
		"export":  export,
		"unset":   unset,
		"env":     printEnv,
		"history": history,
		"true":    func(*Context, []string) error { return nil },
		"false":   func(*Context, []string) error { return &StatusError{Code: 1} },
		"command": command,
	}
}

// GetBuiltins 获取所有内置命令
func GetBuiltins() map[string]BuiltinFunc {
	return builtins
}

// Names 返回按字母排序的内置命令名
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExitCode 把内置命令返回的错误转换为退出码
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code
	}
	return 1
}

// cd 改变目录
func cd(ctx *Context, args []string) error {
	var dir string
	switch len(args) {
	case 0:
		dir = ctx.Env.Get("HOME")
		if dir == "" {
			return errors.New("HOME 未设置")
		}
	case 1:
		dir = args[0]
		if dir == "-" {
			dir = ctx.Env.Get("OLDPWD")
			if dir == "" {
				return errors.New("OLDPWD 未设置")
			}
			fmt.Fprintln(ctx.Stdout, dir)
		}
		dir = platform.ExpandHome(dir, ctx.Env.Get("HOME"))
	default:
		return errors.New("参数过多")
	}

	old, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		return err
	}

	// 更新PWD环境变量
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	if old != "" {
		ctx.Env.Set("OLDPWD", old)
	}
	ctx.Env.Set("PWD", wd)
	return nil
}

// pwd 打印当前工作目录
func pwd(ctx *Context, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(ctx.Stdout, dir)
	return err
}

// echo 打印参数，-n 不输出末尾换行
// 和 bash 一样，无法识别的选项和 -- 都按普通参数输出
func echo(ctx *Context, args []string) error {
	opts := getopt.New()
	noNewline := opts.Bool('n', "不输出末尾换行")

	words, newline := args, true
	if err := opts.Getopt(append([]string{"echo"}, args...), nil); err == nil {
		words, newline = opts.Args(), !*noNewline
		if consumed := len(args) - len(words); consumed > 0 && args[consumed-1] == "--" {
			words = args[consumed-1:]
		}
	}

	output := strings.Join(words, " ")
	if newline {
		output += "\n"
	}
	_, err := io.WriteString(ctx.Stdout, output)
	return err
}

// exit 退出shell
func exit(ctx *Context, args []string) error {
	switch len(args) {
	case 0:
		return &ExitError{Code: 0}
	case 1:
		code, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("需要数字参数: %s", args[0])
		}
		return &ExitError{Code: code & 0xff}
	default:
		return errors.New("参数过多")
	}
}

// export 设置环境变量，没有参数时列出所有变量
func export(ctx *Context, args []string) error {
	if len(args) == 0 {
		for _, kv := range ctx.Env.Environ() {
			fmt.Fprintf(ctx.Stdout, "export %s\n", kv)
		}
		return nil
	}

	var bad []string
	for _, arg := range args {
		name, value, hasValue := strings.Cut(arg, "=")
		if !lexer.IsIdentifier(name) {
			bad = append(bad, arg)
			continue
		}
		// 所有变量都会传给子进程，只有名字时无需处理
		if hasValue {
			ctx.Env.Set(name, value)
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("不是合法的标识符: %s", strings.Join(bad, ", "))
	}
	return nil
}

// unset 删除环境变量，只支持变量，-v 可以省略
func unset(ctx *Context, args []string) error {
	opts := newOptions("unset", "[名字 ...]", "删除环境变量。")
	opts.Bool('v', "把名字当作变量")
	names, done, err := opts.parse(ctx, args)
	if done {
		return err
	}

	for _, name := range names {
		if !lexer.IsIdentifier(name) {
			return fmt.Errorf("不是合法的标识符: %s", name)
		}
		ctx.Env.Unset(name)
	}
	return nil
}

// printEnv 按名称顺序显示环境变量
func printEnv(ctx *Context, args []string) error {
	if len(args) > 0 {
		return errors.New("不支持参数")
	}
	for _, kv := range ctx.Env.Environ() {
		if _, err := fmt.Fprintln(ctx.Stdout, kv); err != nil {
			return err
		}
	}
	return nil
}

// history 显示命令历史，history N 只显示最后N条
func history(ctx *Context, args []string) error {
	opts := newOptions("history", "[N]", "显示带行号的命令历史，指定 N 时只显示最后N条。")
	rest, done, err := opts.parse(ctx, args)
	if done {
		return err
	}
	if len(rest) > 1 {
		return errors.New("参数过多")
	}

	if ctx.History == nil {
		return nil
	}
	entries := ctx.History()
	start := 0
	if len(rest) == 1 {
		n, err := strconv.Atoi(rest[0])
		if err != nil || n < 0 {
			return fmt.Errorf("需要非负整数参数: %s", rest[0])
		}
		if n < len(entries) {
			start = len(entries) - n
		}
	}
	for i := start; i < len(entries); i++ {
		fmt.Fprintf(ctx.Stdout, "%5d  %s\n", i+1, entries[i])
	}
	return nil
}
