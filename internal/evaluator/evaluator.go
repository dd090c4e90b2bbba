// Package evaluator 把AST展开为可以直接执行的字符串
//
// 环境变量引用替换为当前的值（未设置时为空字符串），命令替换交给 Runner
// 执行并把输出拼接到单词中。AST本身不会被修改。
package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"goshell/internal/parser"
)

// Environ 变量查找
type Environ interface {
	Get(name string) string
}

// Runner 执行命令替换内的命令行并返回标准输出
type Runner interface {
	Capture(ctx context.Context, cl *parser.CommandLine) (string, error)
}

// Var 命令前缀的环境变量赋值
type Var struct {
	Name  string
	Value string
}

// Redirect 展开后的重定向
type Redirect struct {
	Fd     parser.RedirectFd
	Type   parser.RedirectType
	Target string
}

func (r Redirect) String() string {
	return r.Fd.String() + r.Type.String() + " " + r.Target
}

// Flattened 展开后的单条命令
type Flattened struct {
	Env       []Var
	Command   string
	Args      []string
	Redirects []Redirect // 按出现顺序
}

// EnvMap 返回前缀赋值组成的表，后出现的赋值覆盖先出现的
func (f *Flattened) EnvMap() map[string]string {
	vars := make(map[string]string, len(f.Env))
	for _, v := range f.Env {
		vars[v.Name] = v.Value
	}
	return vars
}

// Evaluator 展开器
type Evaluator struct {
	env    Environ
	runner Runner
	logger *slog.Logger
}

// New 创建展开器，runner 为 nil 时命令替换会报错
func New(env Environ, runner Runner, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Evaluator{env: env, runner: runner, logger: logger}
}

// Flatten 展开命令链上的当前命令，忽略 Next
// 前缀赋值只对命令本身生效，不影响同一条命令中参数的展开
func (ev *Evaluator) Flatten(ctx context.Context, cl *parser.CommandLine) (*Flattened, error) {
	flat := &Flattened{}

	for _, a := range cl.Assignments {
		value, err := ev.Word(ctx, a.Value)
		if err != nil {
			return nil, err
		}
		flat.Env = append(flat.Env, Var{Name: a.Name, Value: value})
	}

	command, err := ev.Word(ctx, cl.Command)
	if err != nil {
		return nil, err
	}
	flat.Command = command

	for _, item := range cl.Items {
		switch it := item.(type) {
		case *parser.Word:
			arg, err := ev.Word(ctx, it)
			if err != nil {
				return nil, err
			}
			flat.Args = append(flat.Args, arg)
		case *parser.Redirection:
			target, err := ev.Word(ctx, it.Target)
			if err != nil {
				return nil, err
			}
			flat.Redirects = append(flat.Redirects, Redirect{Fd: it.Fd, Type: it.Type, Target: target})
		}
	}

	ev.logger.Debug("展开命令", "command", flat.Command, "args", flat.Args)
	return flat, nil
}

// Word 展开单个单词
func (ev *Evaluator) Word(ctx context.Context, w *parser.Word) (string, error) {
	var out strings.Builder
	for _, seg := range w.Segments {
		switch s := seg.(type) {
		case *parser.Literal:
			out.WriteString(s.Value)
		case *parser.EnvVar:
			out.WriteString(ev.env.Get(s.Name))
		case *parser.Substitution:
			text, err := ev.substitute(ctx, s)
			if err != nil {
				return "", err
			}
			out.WriteString(text)
		}
	}
	return out.String(), nil
}

// substitute 执行命令替换，去掉输出末尾的换行
func (ev *Evaluator) substitute(ctx context.Context, s *parser.Substitution) (string, error) {
	if ev.runner == nil {
		return "", fmt.Errorf("命令替换不可用: $(%s)", s.Line)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ev.logger.Debug("执行命令替换", "line", s.Line.String())
	out, err := ev.runner.Capture(ctx, s.Line)
	if err != nil {
		return "", fmt.Errorf("命令替换 $(%s) 失败: %w", s.Line, err)
	}
	return strings.TrimRight(out, "\n"), nil
}
