package builtin

import (
	"fmt"
	"io"

	"github.com/pborman/getopt/v2"
)

// options 内置命令的选项集合，每个内置命令都可以使用 -h/--help
type options struct {
	*getopt.Set
	name       string
	parameters string
	summary    string
	help       *bool
}

func newOptions(name, parameters, summary string) *options {
	set := getopt.New()
	return &options{
		Set:        set,
		name:       name,
		parameters: parameters,
		summary:    summary,
		help:       set.BoolLong("help", 'h', "显示帮助并退出"),
	}
}

// parse 解析不含命令名的参数，返回选项之后的参数
// done 为 true 时命令应该直接返回 err：选项无效时错误和用法写到标准错误，
// err 为退出码2的 StatusError；使用 --help 时用法写到标准输出，err 为 nil
func (o *options) parse(ctx *Context, args []string) (rest []string, done bool, err error) {
	if err := o.Getopt(append([]string{o.name}, args...), nil); err != nil {
		fmt.Fprintf(ctx.Stderr, "%s: %v\n", o.name, err)
		o.usage(ctx.Stderr)
		return nil, true, &StatusError{Code: 2}
	}
	if *o.help {
		o.usage(ctx.Stdout)
		return nil, true, nil
	}
	return o.Args(), false, nil
}

func (o *options) usage(w io.Writer) {
	fmt.Fprintf(w, "用法: %s [选项] %s\n", o.name, o.parameters)
	fmt.Fprintln(w, o.summary)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "选项:")
	o.PrintOptions(w)
}
