package parser

import (
	"errors"
	"fmt"

	"goshell/internal/lexer"
)

// ParseError 表示解析错误
type ParseError struct {
	Type     ErrorType
	Message  string
	Offset   int // 字节偏移
	Line     int
	Column   int
	Depth    int    // 出错时所在的命令替换嵌套深度，顶层为0
	Found    string // 出错位置的内容
	Expected string // 期望的内容

	eof bool // 出错时已到达输入末尾
}

// ErrorType 错误类型
type ErrorType int

const (
	ErrorTypeMissingCommand       ErrorType = iota // 缺少命令名
	ErrorTypeInvalidCommand                        // 命令名不能是单独的命令替换
	ErrorTypeDanglingRedirect                      // 重定向操作符之后没有目标
	ErrorTypeUnclosedSubstitution                  // 未闭合的命令替换
	ErrorTypeUnexpectedToken                       // 意外的内容
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeMissingCommand:
		return "missing command"
	case ErrorTypeInvalidCommand:
		return "invalid command"
	case ErrorTypeDanglingRedirect:
		return "dangling redirect"
	case ErrorTypeUnclosedSubstitution:
		return "unclosed substitution"
	case ErrorTypeUnexpectedToken:
		return "unexpected token"
	default:
		return "syntax error"
	}
}

// Error 实现 error 接口
func (e *ParseError) Error() string {
	found := e.Found
	if found == "" {
		found = "输入结束"
	}
	if e.Expected != "" {
		return fmt.Sprintf("第%d行第%d列: 语法错误：%s，期望 %s，得到 %s",
			e.Line, e.Column, e.Message, e.Expected, found)
	}
	return fmt.Sprintf("第%d行第%d列: 语法错误：%s，得到 %s",
		e.Line, e.Column, e.Message, found)
}

// String 返回错误的字符串表示
func (e *ParseError) String() string {
	return e.Error()
}

// ErrResourceLimit 嵌套超过配置的最大深度
var ErrResourceLimit = errors.New("resource limit exceeded")

// ResourceLimitError 表示输入对于当前配置的限制过于复杂
type ResourceLimitError struct {
	Limit  int
	Offset int
	Line   int
	Column int
}

func (e *ResourceLimitError) Error() string {
	return fmt.Sprintf("第%d行第%d列: 命令替换嵌套超过最大深度 %d", e.Line, e.Column, e.Limit)
}

func (e *ResourceLimitError) Is(target error) bool {
	return target == ErrResourceLimit
}

// ErrorKind 顶层错误分类
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindLex
	KindParse
	KindResourceLimit
	KindOther
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindLex:
		return "LexError"
	case KindParse:
		return "ParseError"
	case KindResourceLimit:
		return "ResourceLimitExceeded"
	default:
		return "other"
	}
}

// KindOf 返回解析错误的分类
func KindOf(err error) ErrorKind {
	var lexErr *lexer.LexerError
	var parseErr *ParseError
	var limitErr *ResourceLimitError
	switch {
	case err == nil:
		return KindNone
	case errors.As(err, &lexErr):
		return KindLex
	case errors.As(err, &parseErr):
		return KindParse
	case errors.As(err, &limitErr):
		return KindResourceLimit
	default:
		return KindOther
	}
}

// Offset 返回错误的字节偏移，无法确定时返回 -1
func Offset(err error) int {
	var lexErr *lexer.LexerError
	var parseErr *ParseError
	var limitErr *ResourceLimitError
	switch {
	case errors.As(err, &lexErr):
		return lexErr.Offset
	case errors.As(err, &parseErr):
		return parseErr.Offset
	case errors.As(err, &limitErr):
		return limitErr.Offset
	default:
		return -1
	}
}

// errorAt 在指定偏移处创建解析错误
func (p *Parser) errorAt(errType ErrorType, offset int, message, expected string) *ParseError {
	line, column := p.l.Position(offset)
	return &ParseError{
		Type:     errType,
		Message:  message,
		Offset:   offset,
		Line:     line,
		Column:   column,
		Depth:    p.depth,
		Found:    p.describe(offset),
		Expected: expected,
		eof:      p.l.AtEOF(),
	}
}

// describe 描述偏移处的内容，用于错误消息
func (p *Parser) describe(offset int) string {
	input := p.l.Input()
	if offset >= len(input) {
		return ""
	}
	rest := []rune(input[offset:])
	if len(rest) > 10 {
		return string(rest[:10]) + "..."
	}
	return string(rest)
}
