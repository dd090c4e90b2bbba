// Package lexer 提供词法分析功能：识别引号上下文、跳过空白和注释、解码转义序列
package lexer

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// Lexer 词法分析器
// 以字节游标的方式工作，由语法分析器逐个片段驱动；
// Pos/Reset 用于语法分析器在有序选择失败时回退
type Lexer struct {
	input      string
	pos        int   // 当前位置
	lineStarts []int // 每一行起始位置的偏移，用于计算行列号
}

// New 创建新的词法分析器
func New(input string) *Lexer {
	l := &Lexer{
		input:      input,
		lineStarts: []int{0},
	}
	for i := 0; i < len(input); i++ {
		if input[i] == '\n' {
			l.lineStarts = append(l.lineStarts, i+1)
		}
	}
	return l
}

// Input 返回完整输入
func (l *Lexer) Input() string {
	return l.input
}

// Pos 返回当前位置
func (l *Lexer) Pos() int {
	return l.pos
}

// Reset 回退到之前保存的位置
func (l *Lexer) Reset(pos int) {
	l.pos = pos
}

// AtEOF 是否已到达输入末尾
func (l *Lexer) AtEOF() bool {
	return l.pos >= len(l.input)
}

// Peek 查看当前字符但不移动位置，到达末尾时返回0
func (l *Lexer) Peek() byte {
	return l.peekAt(0)
}

func (l *Lexer) peekAt(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

// Consume 当前字符等于ch时消耗它
func (l *Lexer) Consume(ch byte) bool {
	if l.Peek() != ch || l.AtEOF() {
		return false
	}
	l.pos++
	return true
}

// Position 把字节偏移换算成从1开始的行号和列号（列号按字符计）
func (l *Lexer) Position(offset int) (line, column int) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(l.input) {
		offset = len(l.input)
	}
	idx := sort.Search(len(l.lineStarts), func(i int) bool {
		return l.lineStarts[i] > offset
	}) - 1
	start := l.lineStarts[idx]
	return idx + 1, utf8.RuneCountInString(l.input[start:offset]) + 1
}

// SkipBlank 跳过空白字符和注释
// 注释只在token边界处识别，从 # 开始一直到行尾
func (l *Lexer) SkipBlank() {
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case isBlank(ch):
			l.pos++
		case ch == '#':
			for l.pos < len(l.input) && l.input[l.pos] != '\n' {
				l.pos++
			}
		default:
			return
		}
	}
}

// PeekOperator 查看当前位置的操作符但不消耗
// 重定向按最长匹配识别：可选的 fd（&、0、1、2）紧跟 >>、> 或 <；
// 单独的 & 是后台分隔符。没有操作符时返回 ILLEGAL，末尾返回 EOF
func (l *Lexer) PeekOperator() Token {
	start := l.pos
	if l.AtEOF() {
		return l.newToken(EOF, "", start)
	}

	switch ch := l.input[start]; ch {
	case ';':
		return l.newToken(SEMICOLON, ";", start)
	case '|':
		return l.newToken(PIPE, "|", start)
	case '(':
		return l.newToken(LPAREN, "(", start)
	case ')':
		return l.newToken(RPAREN, ")", start)
	case '>', '<':
		return l.readRedirect(start, start, 0)
	case '&', '0', '1', '2':
		if next := l.peekAt(1); next == '>' || next == '<' {
			return l.readRedirect(start, start+1, ch)
		}
		if ch == '&' {
			return l.newToken(AMPERSAND, "&", start)
		}
	}
	return l.newToken(ILLEGAL, "", start)
}

// ReadOperator 读取并消耗当前位置的操作符
func (l *Lexer) ReadOperator() Token {
	tok := l.PeekOperator()
	if tok.Type != ILLEGAL && tok.Type != EOF {
		l.pos += len(tok.Literal)
	}
	return tok
}

// readRedirect 从 at 处读取重定向类型，start 为包括 fd 在内的起始位置
func (l *Lexer) readRedirect(start, at int, fd byte) Token {
	var tok Token
	switch {
	case l.input[at] == '<':
		tok = l.newToken(REDIRECT_IN, l.input[start:at+1], start)
	case at+1 < len(l.input) && l.input[at+1] == '>':
		tok = l.newToken(REDIRECT_APPEND, l.input[start:at+2], start)
	default:
		tok = l.newToken(REDIRECT_OUT, l.input[start:at+1], start)
	}
	tok.Fd = fd
	return tok
}

// ReadIdentifier 读取环境变量标识符 [A-Za-z_][A-Za-z0-9_]*
// 当前位置不是标识符时不移动位置
func (l *Lexer) ReadIdentifier() (string, bool) {
	if !IsIdentStart(l.Peek()) {
		return "", false
	}
	start := l.pos
	l.pos++
	for IsIdentChar(l.Peek()) {
		l.pos++
	}
	return l.input[start:l.pos], true
}

// NextSegment 读取当前单词在给定引号模式下的下一个片段
//
// 未加引号：遇到空白、括号、分隔符或重定向字符时返回 WORD_END；
// ' 开始的单引号串整体作为 SINGLE_QUOTED 返回；" 返回 DOUBLE_QUOTE，
// 由调用者切换到双引号模式。
// 双引号：再次遇到 " 时返回 DOUBLE_QUOTE，输入结束时返回 EOF。
// 两种模式下 $NAME 返回 VAR，$( 返回 SUBST_OPEN，其他 $ 都是普通字符。
func (l *Lexer) NextSegment(mode Mode) (Token, error) {
	start := l.pos
	if l.AtEOF() {
		if mode == ModeDouble {
			return l.newToken(EOF, "", start), nil
		}
		return l.newToken(WORD_END, "", start), nil
	}

	ch := l.input[start]
	switch mode {
	case ModeUnquoted:
		if isWordBreak(ch) {
			return l.newToken(WORD_END, "", start), nil
		}
		switch ch {
		case '\'':
			return l.readSingleQuoted()
		case '"':
			l.pos++
			return l.newToken(DOUBLE_QUOTE, `"`, start), nil
		}
	case ModeDouble:
		if ch == '"' {
			l.pos++
			return l.newToken(DOUBLE_QUOTE, `"`, start), nil
		}
	case ModeSingle:
		return l.readSingleQuoted()
	}

	if ch == '$' {
		switch next := l.peekAt(1); {
		case next == '(':
			l.pos += 2
			return l.newToken(SUBST_OPEN, "$(", start), nil
		case IsIdentStart(next):
			l.pos++
			name, _ := l.ReadIdentifier()
			return l.newToken(VAR, name, start), nil
		}
	}

	return l.readLiteral(mode)
}

// readSingleQuoted 读取单引号字符串，内容不做任何解码
func (l *Lexer) readSingleQuoted() (Token, error) {
	start := l.pos
	end := strings.IndexByte(l.input[start+1:], '\'')
	if end < 0 {
		return Token{}, l.Errorf(LexerErrorTypeUnclosedQuote, start, "'")
	}
	body := l.input[start+1 : start+1+end]
	l.pos = start + end + 2
	return l.newToken(SINGLE_QUOTED, body, start), nil
}

// readLiteral 读取一段字面文本并解码其中的转义序列
func (l *Lexer) readLiteral(mode Mode) (Token, error) {
	start := l.pos
	var literal strings.Builder

	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		if mode == ModeUnquoted && (isWordBreak(ch) || ch == '\'' || ch == '"') {
			break
		}
		if mode == ModeDouble && ch == '"' {
			break
		}
		if ch == '$' && l.pos > start && l.startsExpansion() {
			break
		}
		if ch == '\\' {
			decoded, n, err := l.decodeEscape()
			if err != nil {
				return Token{}, err
			}
			literal.WriteString(decoded)
			l.pos += n
			continue
		}
		literal.WriteByte(ch)
		l.pos++
	}

	return l.newToken(LITERAL, literal.String(), start), nil
}

// startsExpansion 当前的 $ 是否开始一个变量引用或命令替换
func (l *Lexer) startsExpansion() bool {
	next := l.peekAt(1)
	return next == '(' || IsIdentStart(next)
}

// decodeEscape 解码当前位置的转义序列，返回解码结果和消耗的字节数
func (l *Lexer) decodeEscape() (string, int, error) {
	start := l.pos
	if start+1 >= len(l.input) {
		return "", 0, l.Errorf(LexerErrorTypeInvalidEscape, start, `\`)
	}

	switch c := l.input[start+1]; c {
	case '"', '\\', '/':
		return string(c), 2, nil
	case 'b':
		return "\b", 2, nil
	case 'f':
		return "\f", 2, nil
	case 'n':
		return "\n", 2, nil
	case 'r':
		return "\r", 2, nil
	case 't':
		return "\t", 2, nil
	case 'u':
		end := start + 6
		if end > len(l.input) {
			end = len(l.input)
		}
		var code rune
		for i := start + 2; i < start+6; i++ {
			if i >= len(l.input) || !isHex(l.input[i]) {
				return "", 0, l.Errorf(LexerErrorTypeInvalidUnicodeEscape, start, l.input[start:end])
			}
			code = code<<4 | rune(hexValue(l.input[i]))
		}
		// 代理区不是合法字符，无法编码为 UTF-8
		if utf8.ValidRune(code) {
			return string(code), 6, nil
		}
		return "", 0, l.Errorf(LexerErrorTypeInvalidUnicodeEscape, start, l.input[start:end])
	}

	_, size := utf8.DecodeRuneInString(l.input[start+1:])
	return "", 0, l.Errorf(LexerErrorTypeInvalidEscape, start, l.input[start:start+1+size])
}

// newToken 创建新token
func (l *Lexer) newToken(tokenType TokenType, literal string, offset int) Token {
	line, column := l.Position(offset)
	return Token{
		Type:    tokenType,
		Literal: literal,
		Offset:  offset,
		Line:    line,
		Column:  column,
	}
}

// IsIdentStart 判断是否可以作为标识符的首字符
func IsIdentStart(ch byte) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

// IsIdentChar 判断是否可以作为标识符的后续字符
func IsIdentChar(ch byte) bool {
	return IsIdentStart(ch) || isDigit(ch)
}

// IsIdentifier 判断整个字符串是否为合法标识符
func IsIdentifier(s string) bool {
	if s == "" || !IsIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !IsIdentChar(s[i]) {
			return false
		}
	}
	return true
}

// isBlank 判断是否为空白字符
func isBlank(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

// isWordBreak 未加引号的单词在这些字符处结束
func isWordBreak(ch byte) bool {
	switch ch {
	case ' ', '\t', '\n', '\r', '(', ')', ';', '|', '&', '<', '>':
		return true
	}
	return false
}

// isDigit 判断是否为数字
func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func isHex(ch byte) bool {
	return isDigit(ch) || 'a' <= ch && ch <= 'f' || 'A' <= ch && ch <= 'F'
}

func hexValue(ch byte) byte {
	switch {
	case isDigit(ch):
		return ch - '0'
	case 'a' <= ch && ch <= 'f':
		return ch - 'a' + 10
	default:
		return ch - 'A' + 10
	}
}
