package shell

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"

	"goshell/internal/builtin"
	"goshell/internal/parser"
)

// ErrorReporter 错误报告器
type ErrorReporter struct {
	w             io.Writer
	scriptPath    string // 脚本文件路径（如果是在执行脚本）
	lineNum       int    // 当前语句的起始行号
	isInteractive bool

	prefix *color.Color
	caret  *color.Color
}

// NewErrorReporter 创建新的错误报告器，useColor 为 false 时不输出颜色
func NewErrorReporter(w io.Writer, scriptPath string, isInteractive, useColor bool) *ErrorReporter {
	er := &ErrorReporter{
		w:             w,
		scriptPath:    scriptPath,
		isInteractive: isInteractive,
		prefix:        color.New(color.FgRed, color.Bold),
		caret:         color.New(color.FgGreen, color.Bold),
	}
	for _, c := range []*color.Color{er.prefix, er.caret} {
		if useColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return er
}

// SetLineNum 设置当前语句的起始行号
func (er *ErrorReporter) SetLineNum(lineNum int) {
	er.lineNum = lineNum
}

// ReportError 报告错误，格式参考 bash：goshell: 文件名: 第N行: 错误消息
// 词法和语法错误还会显示出错的那一行源码，并用 ^ 标出位置
func (er *ErrorReporter) ReportError(err error, source string) {
	if err == nil {
		return
	}
	// 只携带退出码的错误已经由命令自己报告过
	var statusErr *builtin.StatusError
	if errors.As(err, &statusErr) {
		return
	}

	fmt.Fprintf(er.w, "%s %v\n", er.prefix.Sprint(er.location()+":"), err)

	if offset := parser.Offset(err); offset >= 0 && source != "" {
		line, column := sourceLine(source, offset)
		fmt.Fprintf(er.w, "  %s\n  %s%s\n", line, column, er.caret.Sprint("^"))
	}
}

// location 返回错误消息的前缀
func (er *ErrorReporter) location() string {
	parts := []string{"goshell"}
	if er.scriptPath != "" {
		parts = append(parts, er.scriptPath)
	}
	if !er.isInteractive && er.lineNum > 0 {
		parts = append(parts, fmt.Sprintf("第%d行", er.lineNum))
	}
	return strings.Join(parts, ": ")
}

// sourceLine 返回 offset 所在的那一行，以及把 ^ 对齐到 offset 所需的缩进
// 缩进保留原行中的制表符
func sourceLine(source string, offset int) (line, indent string) {
	if offset > len(source) {
		offset = len(source)
	}
	start := strings.LastIndexByte(source[:offset], '\n') + 1
	end := strings.IndexByte(source[offset:], '\n')
	if end < 0 {
		end = len(source)
	} else {
		end += offset
	}

	var b strings.Builder
	for _, r := range source[start:offset] {
		if r == '\t' {
			b.WriteByte('\t')
			continue
		}
		// 全角字符占两列
		if utf8.RuneLen(r) > 2 {
			b.WriteString("  ")
			continue
		}
		b.WriteByte(' ')
	}
	return source[start:end], b.String()
}
