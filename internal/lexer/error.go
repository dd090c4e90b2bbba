package lexer

import (
	"fmt"
)

// LexerErrorType 词法分析器错误类型
type LexerErrorType int

const (
	LexerErrorTypeUnclosedQuote         LexerErrorType = iota // 未闭合的引号
	LexerErrorTypeInvalidEscape                               // 无效的转义序列
	LexerErrorTypeInvalidUnicodeEscape                        // 无效的 \uXXXX 转义
)

func (t LexerErrorType) String() string {
	switch t {
	case LexerErrorTypeUnclosedQuote:
		return "unclosed quote"
	case LexerErrorTypeInvalidEscape:
		return "invalid escape"
	case LexerErrorTypeInvalidUnicodeEscape:
		return "invalid unicode escape"
	default:
		return "lexer error"
	}
}

// LexerError 表示词法分析器错误
type LexerError struct {
	Type    LexerErrorType
	Message string
	Offset  int // 字节偏移
	Line    int
	Column  int
	Char    string // 导致错误的字符
}

// Error 实现 error 接口
func (e *LexerError) Error() string {
	switch e.Type {
	case LexerErrorTypeUnclosedQuote:
		return fmt.Sprintf("第%d行第%d列: 词法错误：未闭合的引号 `%s'",
			e.Line, e.Column, e.Char)
	case LexerErrorTypeInvalidEscape:
		return fmt.Sprintf("第%d行第%d列: 词法错误：无效的转义序列 `%s'",
			e.Line, e.Column, e.Char)
	case LexerErrorTypeInvalidUnicodeEscape:
		return fmt.Sprintf("第%d行第%d列: 词法错误：\\u 之后必须是4个十六进制数字，且不能是代理区字符 `%s'",
			e.Line, e.Column, e.Char)
	default:
		return fmt.Sprintf("第%d行第%d列: 词法错误：%s",
			e.Line, e.Column, e.Message)
	}
}

// String 返回错误的字符串表示
func (e *LexerError) String() string {
	return e.Error()
}

// Errorf 在指定偏移处构造词法错误，行列号由输入计算
func (l *Lexer) Errorf(errType LexerErrorType, offset int, char string) *LexerError {
	line, column := l.Position(offset)
	return &LexerError{
		Type:    errType,
		Message: errType.String(),
		Offset:  offset,
		Line:    line,
		Column:  column,
		Char:    char,
	}
}
