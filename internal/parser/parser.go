// Package parser 提供语法分析功能，将命令行解析为抽象语法树（AST）
package parser

import (
	"log/slog"

	"goshell/internal/lexer"
)

// DefaultMaxDepth 默认的命令替换最大嵌套深度
const DefaultMaxDepth = 64

// Parser 语法分析器
// 递归下降实现，每条规则按优先级依次尝试，失败时通过 Pos/Reset 显式回退。
// 同一个 Parser 不能被多个 goroutine 同时使用，需要并发解析时各自创建。
type Parser struct {
	l        *lexer.Lexer
	depth    int // 当前命令替换嵌套深度
	maxDepth int
	logger   *slog.Logger
}

// Option 解析器选项
type Option func(*Parser)

// WithMaxDepth 设置命令替换的最大嵌套深度，小于1时使用默认值
func WithMaxDepth(depth int) Option {
	return func(p *Parser) {
		if depth > 0 {
			p.maxDepth = depth
		}
	}
}

// WithLogger 设置调试日志输出
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New 创建新的解析器
func New(l *lexer.Lexer, opts ...Option) *Parser {
	p := &Parser{
		l:        l,
		maxDepth: DefaultMaxDepth,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse 解析一行完整的命令
func Parse(input string, opts ...Option) (*CommandLine, error) {
	return New(lexer.New(input), opts...).ParseCommandLine()
}

// IsBlank 输入是否只包含空白和注释
func IsBlank(input string) bool {
	l := lexer.New(input)
	l.SkipBlank()
	return l.AtEOF()
}

// ParseCommandLine 从当前位置解析命令行，直到输入结束
func (p *Parser) ParseCommandLine() (*CommandLine, error) {
	p.depth = 0
	cl, err := p.parseCommandLine()
	if err != nil {
		p.logger.Debug("解析失败", "error", err)
		return nil, err
	}

	p.l.SkipBlank()
	if !p.l.AtEOF() {
		return nil, p.errorAt(ErrorTypeUnexpectedToken, p.l.Pos(), "多余的内容", "输入结束")
	}
	return cl, nil
}

// parseCommandLine 解析由分隔符连接的命令链
// 链上的命令按顺序迭代解析，只有命令替换会增加递归深度。
// 在输入结束或 ) 处停止，) 由调用者处理。
func (p *Parser) parseCommandLine() (*CommandLine, error) {
	var head, tail *CommandLine
	for {
		cl, err := p.parseSimpleCommand()
		if err != nil {
			return nil, err
		}
		if head == nil {
			head = cl
		} else {
			tail.Next = cl
		}
		tail = cl

		p.l.SkipBlank()
		sep, ok := p.parseSeparator()
		if !ok {
			return head, nil
		}
		cl.Separator = sep

		// 末尾的分隔符后面可以没有命令
		p.l.SkipBlank()
		if p.l.AtEOF() || p.l.Peek() == ')' {
			return head, nil
		}
	}
}

// parseSeparator 解析 ; | &
func (p *Parser) parseSeparator() (Separator, bool) {
	var sep Separator
	switch p.l.PeekOperator().Type {
	case lexer.SEMICOLON:
		sep = SepSequence
	case lexer.PIPE:
		sep = SepPipe
	case lexer.AMPERSAND:
		sep = SepBackground
	default:
		return SepNone, false
	}
	p.l.ReadOperator()
	return sep, true
}

// parseSimpleCommand 解析单条命令：赋值前缀、命令名、参数和重定向
func (p *Parser) parseSimpleCommand() (*CommandLine, error) {
	p.l.SkipBlank()
	p.logger.Debug("解析命令", "offset", p.l.Pos(), "depth", p.depth)

	cl := &CommandLine{}
	for {
		assign, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		if assign == nil {
			break
		}
		cl.Assignments = append(cl.Assignments, assign)
		p.l.SkipBlank()
	}

	cmd, err := p.parseCommandWord()
	if err != nil {
		return nil, err
	}
	cl.Command = cmd

	for {
		p.l.SkipBlank()
		item, err := p.parseItem()
		if err != nil {
			return nil, err
		}
		if item == nil {
			return cl, nil
		}
		cl.Items = append(cl.Items, item)
	}
}

// parseAssignment 尝试解析 NAME=value
// 前瞻不是 标识符= 时回退并返回 nil
func (p *Parser) parseAssignment() (*Assignment, error) {
	start := p.l.Pos()
	name, ok := p.l.ReadIdentifier()
	if !ok || !p.l.Consume('=') {
		p.l.Reset(start)
		return nil, nil
	}

	value, _, err := p.parseWord()
	if err != nil {
		return nil, err
	}
	return &Assignment{Name: name, Value: value}, nil
}

// parseCommandWord 解析命令名
// 命令名不能由未加引号的命令替换单独组成
func (p *Parser) parseCommandWord() (*Word, error) {
	start := p.l.Pos()
	switch tok := p.l.PeekOperator(); tok.Type {
	case lexer.ILLEGAL:
	case lexer.LPAREN:
		return nil, p.errorAt(ErrorTypeInvalidCommand, start, "命令替换不能作为命令名", "命令")
	case lexer.RPAREN:
		if p.depth == 0 {
			return nil, p.errorAt(ErrorTypeUnexpectedToken, start, "没有匹配的 (", "命令")
		}
		return nil, p.errorAt(ErrorTypeMissingCommand, start, "缺少命令", "命令")
	default:
		return nil, p.errorAt(ErrorTypeMissingCommand, start, "缺少命令", "命令")
	}

	word, quoted, err := p.parseWord()
	if err != nil {
		return nil, err
	}
	if !quoted && word.onlySubstitutions() {
		return nil, p.errorAt(ErrorTypeInvalidCommand, start, "命令替换不能作为命令名", "命令")
	}
	return word, nil
}

// parseItem 解析一个参数或重定向，按顺序尝试：
// 重定向、裸括号命令替换、普通单词。没有可解析的内容时返回 nil
func (p *Parser) parseItem() (Item, error) {
	tok := p.l.PeekOperator()
	switch {
	case tok.Type.IsRedirect():
		return p.parseRedirection()
	case tok.Type == lexer.LPAREN:
		return p.parseBareSubstitution()
	case tok.Type == lexer.ILLEGAL:
		word, _, err := p.parseWord()
		if err != nil {
			return nil, err
		}
		return word, nil
	default:
		return nil, nil
	}
}

// parseRedirection 解析 [fd]操作符 目标
func (p *Parser) parseRedirection() (*Redirection, error) {
	start := p.l.Pos()
	tok := p.l.ReadOperator()
	redir := &Redirection{Fd: redirectFdFromByte(tok.Fd)}
	switch tok.Type {
	case lexer.REDIRECT_APPEND:
		redir.Type = RedirectAppend
	case lexer.REDIRECT_IN:
		redir.Type = RedirectIn
	default:
		redir.Type = RedirectOut
	}

	p.l.SkipBlank()
	switch p.l.PeekOperator().Type {
	case lexer.ILLEGAL:
		target, _, err := p.parseWord()
		if err != nil {
			return nil, err
		}
		redir.Target = target
	case lexer.LPAREN:
		target, err := p.parseBareSubstitution()
		if err != nil {
			return nil, err
		}
		redir.Target = target
	default:
		return nil, p.errorAt(ErrorTypeDanglingRedirect, start,
			"重定向 "+tok.Literal+" 缺少目标", "文件名")
	}
	return redir, nil
}

// parseWord 解析一个单词，在单词边界处停止
// quoted 表示单词中出现过引号
func (p *Parser) parseWord() (word *Word, quoted bool, err error) {
	word = &Word{}
	for {
		tok, err := p.l.NextSegment(lexer.ModeUnquoted)
		if err != nil {
			return nil, false, err
		}

		switch tok.Type {
		case lexer.WORD_END:
			return word, quoted, nil
		case lexer.LITERAL:
			word.appendLiteral(tok.Literal)
		case lexer.SINGLE_QUOTED:
			quoted = true
			word.appendLiteral(tok.Literal)
		case lexer.DOUBLE_QUOTE:
			quoted = true
			if err := p.parseDoubleQuoted(word, tok.Offset); err != nil {
				return nil, false, err
			}
		case lexer.VAR:
			word.Segments = append(word.Segments, &EnvVar{Name: tok.Literal})
		case lexer.SUBST_OPEN:
			sub, err := p.parseSubstitution(tok.Offset)
			if err != nil {
				return nil, false, err
			}
			word.Segments = append(word.Segments, sub)
		}
	}
}

// parseDoubleQuoted 解析双引号字符串的内容，追加到单词上
// 左引号已经被消耗，open 是它的偏移
func (p *Parser) parseDoubleQuoted(word *Word, open int) error {
	for {
		tok, err := p.l.NextSegment(lexer.ModeDouble)
		if err != nil {
			return err
		}

		switch tok.Type {
		case lexer.DOUBLE_QUOTE:
			return nil
		case lexer.EOF:
			return p.l.Errorf(lexer.LexerErrorTypeUnclosedQuote, open, `"`)
		case lexer.LITERAL:
			word.appendLiteral(tok.Literal)
		case lexer.VAR:
			word.Segments = append(word.Segments, &EnvVar{Name: tok.Literal})
		case lexer.SUBST_OPEN:
			sub, err := p.parseSubstitution(tok.Offset)
			if err != nil {
				return err
			}
			word.Segments = append(word.Segments, sub)
		}
	}
}

// parseBareSubstitution 解析不带 $ 的 (...)，它总是单独构成一个单词
func (p *Parser) parseBareSubstitution() (*Word, error) {
	start := p.l.Pos()
	p.l.ReadOperator()
	sub, err := p.parseSubstitution(start)
	if err != nil {
		return nil, err
	}

	if !p.l.AtEOF() && !isSpace(p.l.Peek()) && p.l.PeekOperator().Type == lexer.ILLEGAL {
		return nil, p.errorAt(ErrorTypeUnexpectedToken, p.l.Pos(), "(...) 之后缺少空白", "空白")
	}
	return &Word{Segments: []Segment{sub}}, nil
}

// parseSubstitution 递归解析命令替换的内容并消耗右括号
// 左括号已经被消耗，open 是 ( 或 $( 的偏移
func (p *Parser) parseSubstitution(open int) (*Substitution, error) {
	p.depth++
	defer func() { p.depth-- }()

	if p.depth > p.maxDepth {
		line, column := p.l.Position(open)
		return nil, &ResourceLimitError{
			Limit:  p.maxDepth,
			Offset: open,
			Line:   line,
			Column: column,
		}
	}
	p.logger.Debug("进入命令替换", "offset", open, "depth", p.depth)

	p.l.SkipBlank()
	if p.l.AtEOF() {
		return nil, p.errorAt(ErrorTypeUnclosedSubstitution, open, "命令替换没有闭合", ")")
	}

	inner, err := p.parseCommandLine()
	if err != nil {
		return nil, err
	}

	p.l.SkipBlank()
	if !p.l.Consume(')') {
		return nil, p.errorAt(ErrorTypeUnclosedSubstitution, open, "命令替换没有闭合", ")")
	}
	return &Substitution{Line: inner}, nil
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
