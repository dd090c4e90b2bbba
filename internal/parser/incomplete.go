package parser

import (
	"errors"

	"goshell/internal/lexer"
)

// IsIncomplete 判断错误是否由输入提前结束引起
// 对这类错误，交互式前端应当读取续行后重新解析，而不是报告错误
func IsIncomplete(err error) bool {
	var lexErr *lexer.LexerError
	if errors.As(err, &lexErr) {
		return lexErr.Type == lexer.LexerErrorTypeUnclosedQuote
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		switch parseErr.Type {
		case ErrorTypeUnclosedSubstitution, ErrorTypeDanglingRedirect:
			return parseErr.eof
		}
	}
	return false
}
