package parser

import (
	"strings"

	"goshell/internal/lexer"
)

// Node AST节点接口
// String 返回规范化的 shell 文本，重新解析后得到相等的AST
type Node interface {
	String() string
}

// Item 命令行中的参数或重定向，按出现顺序保存
type Item interface {
	Node
	itemNode()
}

// Segment 单词的组成片段：字面量、环境变量引用或命令替换
type Segment interface {
	Node
	segmentNode()
}

// CommandLine 一条命令及其后继
// Separator 为 SepNone 时没有后继；Separator 不为 SepNone 而 Next 为 nil
// 表示末尾的分隔符（例如 `cmd &`）
type CommandLine struct {
	Assignments []*Assignment
	Command     *Word
	Items       []Item
	Separator   Separator
	Next        *CommandLine
}

// Arguments 返回所有参数单词
func (cl *CommandLine) Arguments() []*Word {
	var args []*Word
	for _, item := range cl.Items {
		if w, ok := item.(*Word); ok {
			args = append(args, w)
		}
	}
	return args
}

// Len 返回链上命令的数量
func (cl *CommandLine) Len() int {
	n := 0
	for c := cl; c != nil; c = c.Next {
		n++
	}
	return n
}

// Depth 返回命令替换的最大嵌套深度
func (cl *CommandLine) Depth() int {
	depth := 0
	for c := cl; c != nil; c = c.Next {
		words := []*Word{c.Command}
		for _, a := range c.Assignments {
			words = append(words, a.Value)
		}
		for _, item := range c.Items {
			switch it := item.(type) {
			case *Word:
				words = append(words, it)
			case *Redirection:
				words = append(words, it.Target)
			}
		}
		for _, w := range words {
			if d := w.depth(); d > depth {
				depth = d
			}
		}
	}
	return depth
}

func (cl *CommandLine) String() string {
	var out strings.Builder
	for c := cl; c != nil; c = c.Next {
		if c != cl {
			out.WriteString(" ")
		}
		out.WriteString(c.SimpleString())
		if c.Separator != SepNone {
			out.WriteString(" " + c.Separator.String())
		}
	}
	return out.String()
}

// SimpleString 只输出链上的当前命令，不包括分隔符
func (cl *CommandLine) SimpleString() string {
	var parts []string
	for _, a := range cl.Assignments {
		parts = append(parts, a.String())
	}
	if cl.Command != nil {
		parts = append(parts, cl.Command.String())
	}
	for _, item := range cl.Items {
		parts = append(parts, item.String())
	}
	return strings.Join(parts, " ")
}

// Assignment 命令前缀的环境变量赋值 NAME=value
type Assignment struct {
	Name  string
	Value *Word
}

func (a *Assignment) String() string {
	return a.Name + "=" + a.Value.String()
}

// Word 一个参数或命令名，由若干片段拼接而成
// 空的引号字符串（'' 或 ""）得到没有片段的单词
type Word struct {
	Segments []Segment
}

func (w *Word) itemNode() {}

// Literal 返回单词只包含字面量时的文本
func (w *Word) Literal() (string, bool) {
	var out strings.Builder
	for _, seg := range w.Segments {
		lit, ok := seg.(*Literal)
		if !ok {
			return "", false
		}
		out.WriteString(lit.Value)
	}
	return out.String(), true
}

// appendLiteral 追加字面文本，与前一个字面量片段合并
func (w *Word) appendLiteral(s string) {
	if s == "" {
		return
	}
	if n := len(w.Segments); n > 0 {
		if lit, ok := w.Segments[n-1].(*Literal); ok {
			w.Segments[n-1] = &Literal{Value: lit.Value + s}
			return
		}
	}
	w.Segments = append(w.Segments, &Literal{Value: s})
}

// onlySubstitutions 单词是否完全由命令替换组成
func (w *Word) onlySubstitutions() bool {
	if len(w.Segments) == 0 {
		return false
	}
	for _, seg := range w.Segments {
		if _, ok := seg.(*Substitution); !ok {
			return false
		}
	}
	return true
}

func (w *Word) depth() int {
	depth := 0
	for _, seg := range w.Segments {
		if sub, ok := seg.(*Substitution); ok {
			if d := 1 + sub.Line.Depth(); d > depth {
				depth = d
			}
		}
	}
	return depth
}

func (w *Word) String() string {
	if len(w.Segments) == 0 {
		return "''"
	}

	var out strings.Builder
	for i, seg := range w.Segments {
		lit, ok := seg.(*Literal)
		if !ok {
			out.WriteString(seg.String())
			continue
		}
		afterVar := false
		if i > 0 {
			_, afterVar = w.Segments[i-1].(*EnvVar)
		}
		if afterVar && lit.Value != "" && lexer.IsIdentChar(lit.Value[0]) || !isBareSafe(lit.Value) {
			out.WriteString(lit.quoted())
		} else {
			out.WriteString(lit.Value)
		}
	}

	// 单独的命令替换不能作为命令名，统一加双引号
	if w.onlySubstitutions() {
		return `"` + out.String() + `"`
	}
	return out.String()
}

// Literal 字面文本片段（转义已解码）
type Literal struct {
	Value string
}

func (l *Literal) segmentNode() {}
func (l *Literal) String() string {
	return l.quoted()
}

// quoted 使用单引号输出，单引号本身放在双引号里
func (l *Literal) quoted() string {
	parts := strings.Split(l.Value, "'")
	var out strings.Builder
	for i, part := range parts {
		if i > 0 {
			out.WriteString(`"'"`)
		}
		if part != "" {
			out.WriteString("'" + part + "'")
		}
	}
	return out.String()
}

// EnvVar 环境变量引用 $NAME
type EnvVar struct {
	Name string
}

func (v *EnvVar) segmentNode() {}
func (v *EnvVar) String() string {
	return "$" + v.Name
}

// Substitution 命令替换 $(...)，嵌套的命令行由该节点独占
type Substitution struct {
	Line *CommandLine
}

func (s *Substitution) segmentNode() {}
func (s *Substitution) String() string {
	return "$(" + s.Line.String() + ")"
}

// Redirection 重定向
type Redirection struct {
	Fd     RedirectFd
	Type   RedirectType
	Target *Word
}

func (r *Redirection) itemNode() {}
func (r *Redirection) String() string {
	return r.Fd.String() + r.Type.String() + " " + r.Target.String()
}

// RedirectFd 重定向的文件描述符选择符
type RedirectFd int

const (
	FdDefault RedirectFd = iota // 省略，按方向决定
	FdAll                       // & 标准输出和标准错误
	FdStdin                     // 0
	FdStdout                    // 1
	FdStderr                    // 2
)

func (fd RedirectFd) String() string {
	switch fd {
	case FdAll:
		return "&"
	case FdStdin:
		return "0"
	case FdStdout:
		return "1"
	case FdStderr:
		return "2"
	default:
		return ""
	}
}

func redirectFdFromByte(b byte) RedirectFd {
	switch b {
	case '&':
		return FdAll
	case '0':
		return FdStdin
	case '1':
		return FdStdout
	case '2':
		return FdStderr
	default:
		return FdDefault
	}
}

// RedirectType 重定向方向
type RedirectType int

const (
	RedirectOut    RedirectType = iota // > 截断写入
	RedirectAppend                     // >> 追加
	RedirectIn                         // < 读取
)

func (t RedirectType) String() string {
	switch t {
	case RedirectAppend:
		return ">>"
	case RedirectIn:
		return "<"
	default:
		return ">"
	}
}

// Separator 连接两条命令的分隔符
type Separator int

const (
	SepNone       Separator = iota
	SepSequence             // ;
	SepPipe                 // |
	SepBackground           // &
)

func (s Separator) String() string {
	switch s {
	case SepSequence:
		return ";"
	case SepPipe:
		return "|"
	case SepBackground:
		return "&"
	default:
		return ""
	}
}

// isBareSafe 字面量不加引号输出时是否仍然解析为同样的文本
func isBareSafe(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case lexer.IsIdentChar(c):
		case strings.IndexByte("-./,:+@%^~", c) >= 0:
		default:
			return false
		}
	}
	return true
}
