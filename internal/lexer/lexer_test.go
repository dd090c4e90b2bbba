package lexer

import (
	"testing"
)

// collect 在给定模式下读取片段，直到单词结束、双引号或输入结束
func collect(t *testing.T, l *Lexer, mode Mode) []Token {
	t.Helper()
	var tokens []Token
	for {
		tok, err := l.NextSegment(mode)
		if err != nil {
			t.Fatalf("意外的错误: %v", err)
		}
		tokens = append(tokens, tok)
		if tok.Type == WORD_END || tok.Type == EOF || tok.Type == DOUBLE_QUOTE {
			return tokens
		}
	}
}

func TestNextSegmentUnquoted(t *testing.T) {
	tests := []struct {
		input    string
		expected []Token
		rest     string
	}{
		{
			input: "hello world",
			expected: []Token{
				{Type: LITERAL, Literal: "hello"},
				{Type: WORD_END},
			},
			rest: " world",
		},
		{
			input: "$HOME/bin",
			expected: []Token{
				{Type: VAR, Literal: "HOME"},
				{Type: LITERAL, Literal: "/bin"},
				{Type: WORD_END},
			},
		},
		{
			input: "a$_x1$9",
			expected: []Token{
				{Type: LITERAL, Literal: "a"},
				{Type: VAR, Literal: "_x1"},
				{Type: LITERAL, Literal: "$9"},
				{Type: WORD_END},
			},
		},
		{
			input: "pre$(date)",
			expected: []Token{
				{Type: LITERAL, Literal: "pre"},
				{Type: SUBST_OPEN, Literal: "$("},
			},
			rest: "date)",
		},
		{
			input: "out>file",
			expected: []Token{
				{Type: LITERAL, Literal: "out"},
				{Type: WORD_END},
			},
			rest: ">file",
		},
		{
			input: "a#b c",
			expected: []Token{
				{Type: LITERAL, Literal: "a#b"},
				{Type: WORD_END},
			},
			rest: " c",
		},
		{
			input: `tab\there`,
			expected: []Token{
				{Type: LITERAL, Literal: "tab\there"},
				{Type: WORD_END},
			},
		},
		{
			input: "it'(s)'x",
			expected: []Token{
				{Type: LITERAL, Literal: "it"},
				{Type: SINGLE_QUOTED, Literal: "(s)"},
				{Type: LITERAL, Literal: "x"},
				{Type: WORD_END},
			},
		},
		{
			input: `"x"`,
			expected: []Token{
				{Type: DOUBLE_QUOTE, Literal: `"`},
			},
			rest: `x"`,
		},
		{
			input: "中文参数 x",
			expected: []Token{
				{Type: LITERAL, Literal: "中文参数"},
				{Type: WORD_END},
			},
			rest: " x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			l := New(tt.input)
			var got []Token
			for {
				tok, err := l.NextSegment(ModeUnquoted)
				if err != nil {
					t.Fatalf("意外的错误: %v", err)
				}
				got = append(got, tok)
				if tok.Type == WORD_END || tok.Type == SUBST_OPEN || tok.Type == DOUBLE_QUOTE {
					break
				}
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("token数量错误，期望 %d，得到 %d: %v", len(tt.expected), len(got), got)
			}
			for i, want := range tt.expected {
				if got[i].Type != want.Type || got[i].Literal != want.Literal {
					t.Errorf("token[%d] 期望 %s(%q)，得到 %s(%q)",
						i, want.Type, want.Literal, got[i].Type, got[i].Literal)
				}
			}
			if rest := l.Input()[l.Pos():]; rest != tt.rest {
				t.Errorf("剩余输入期望 %q，得到 %q", tt.rest, rest)
			}
		})
	}
}

func TestNextSegmentDoubleQuoted(t *testing.T) {
	// 从左引号之后开始读取
	l := New(`"hello $USER (a; b | c) $(whoami) 'x' #y"`)
	if tok, _ := l.NextSegment(ModeUnquoted); tok.Type != DOUBLE_QUOTE {
		t.Fatalf("期望 DOUBLE_QUOTE，得到 %s", tok.Type)
	}

	expected := []Token{
		{Type: LITERAL, Literal: "hello "},
		{Type: VAR, Literal: "USER"},
		{Type: LITERAL, Literal: " (a; b | c) "},
		{Type: SUBST_OPEN, Literal: "$("},
	}
	for i, want := range expected {
		tok, err := l.NextSegment(ModeDouble)
		if err != nil {
			t.Fatalf("意外的错误: %v", err)
		}
		if tok.Type != want.Type || tok.Literal != want.Literal {
			t.Fatalf("token[%d] 期望 %s(%q)，得到 %s(%q)", i, want.Type, want.Literal, tok.Type, tok.Literal)
		}
	}

	// 跳过替换内容，由语法分析器负责
	l.Reset(l.Pos() + len("whoami)"))
	tokens := collect(t, l, ModeDouble)
	if tokens[0].Type != LITERAL || tokens[0].Literal != " 'x' #y" {
		t.Errorf("期望字面量 \" 'x' #y\"，得到 %s(%q)", tokens[0].Type, tokens[0].Literal)
	}
	if last := tokens[len(tokens)-1]; last.Type != DOUBLE_QUOTE {
		t.Errorf("期望以 DOUBLE_QUOTE 结束，得到 %s", last.Type)
	}
	if !l.AtEOF() {
		t.Errorf("应该到达输入末尾，剩余 %q", l.Input()[l.Pos():])
	}
}

func TestDoubleQuotedPreservesControlCharacters(t *testing.T) {
	l := New("\"a\tb\nc\"")
	l.NextSegment(ModeUnquoted)
	tokens := collect(t, l, ModeDouble)
	if tokens[0].Literal != "a\tb\nc" {
		t.Errorf("原始控制字符应该原样保留，得到 %q", tokens[0].Literal)
	}
}

func TestDoubleQuotedEOF(t *testing.T) {
	l := New(`"abc`)
	l.NextSegment(ModeUnquoted)
	tokens := collect(t, l, ModeDouble)
	if last := tokens[len(tokens)-1]; last.Type != EOF {
		t.Errorf("未闭合的双引号应该以 EOF 结束，得到 %s", last.Type)
	}
}

func TestSingleQuotedIsRaw(t *testing.T) {
	bodies := []string{
		"",
		"a(b",
		`$HOME $(x) \n \u12 \q`,
		"  spaces\tand\nnewlines  ",
		`"double" ; | & > < ) #`,
	}
	for _, body := range bodies {
		l := New("'" + body + "'")
		tok, err := l.NextSegment(ModeUnquoted)
		if err != nil {
			t.Fatalf("%q: 意外的错误: %v", body, err)
		}
		if tok.Type != SINGLE_QUOTED {
			t.Fatalf("%q: 期望 SINGLE_QUOTED，得到 %s", body, tok.Type)
		}
		// 重新加上引号必须得到原始字节
		if got := "'" + tok.Literal + "'"; got != l.Input() {
			t.Errorf("单引号往返失败：期望 %q，得到 %q", l.Input(), got)
		}
	}
}

func TestEscapeDecoding(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`\"`, `"`},
		{`\\`, `\`},
		{`\/`, `/`},
		{`\b`, "\b"},
		{`\f`, "\f"},
		{`\n`, "\n"},
		{`\r`, "\r"},
		{`\t`, "\t"},
		{`A`, "A"},
		{`é`, "é"},
		{`中`, "中"},
		{`ABC`, "ABC"},
	}

	for _, tt := range tests {
		for _, mode := range []Mode{ModeUnquoted, ModeDouble} {
			t.Run(mode.String()+" "+tt.input, func(t *testing.T) {
				l := New(tt.input)
				tok, err := l.NextSegment(mode)
				if err != nil {
					t.Fatalf("意外的错误: %v", err)
				}
				if tok.Type != LITERAL || tok.Literal != tt.expected {
					t.Errorf("期望 %q，得到 %s(%q)", tt.expected, tok.Type, tok.Literal)
				}
			})
		}
	}
}

func TestPeekOperator(t *testing.T) {
	tests := []struct {
		input   string
		tokType TokenType
		literal string
		fd      byte
	}{
		{";", SEMICOLON, ";", 0},
		{"|", PIPE, "|", 0},
		{"&", AMPERSAND, "&", 0},
		{"& x", AMPERSAND, "&", 0},
		{"(", LPAREN, "(", 0},
		{")", RPAREN, ")", 0},
		{">", REDIRECT_OUT, ">", 0},
		{">>", REDIRECT_APPEND, ">>", 0},
		{">>>", REDIRECT_APPEND, ">>", 0},
		{"<", REDIRECT_IN, "<", 0},
		{"2>", REDIRECT_OUT, "2>", '2'},
		{"2>>x", REDIRECT_APPEND, "2>>", '2'},
		{"&>", REDIRECT_OUT, "&>", '&'},
		{"&>>", REDIRECT_APPEND, "&>>", '&'},
		{"0<", REDIRECT_IN, "0<", '0'},
		{"1>", REDIRECT_OUT, "1>", '1'},
		{"3>", ILLEGAL, "", 0},
		{"2", ILLEGAL, "", 0},
		{"echo", ILLEGAL, "", 0},
		{"", EOF, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			l := New(tt.input)
			tok := l.PeekOperator()
			if tok.Type != tt.tokType || tok.Literal != tt.literal || tok.Fd != tt.fd {
				t.Errorf("期望 %s(%q, fd=%q)，得到 %s(%q, fd=%q)",
					tt.tokType, tt.literal, tt.fd, tok.Type, tok.Literal, tok.Fd)
			}
			if l.Pos() != 0 {
				t.Errorf("PeekOperator 不应该移动位置")
			}
			l.ReadOperator()
			if l.Pos() != len(tt.literal) {
				t.Errorf("ReadOperator 应该消耗 %d 个字节，实际 %d", len(tt.literal), l.Pos())
			}
		})
	}
}

func TestSkipBlank(t *testing.T) {
	tests := []struct {
		input string
		rest  string
	}{
		{"   \t\n x", "x"},
		{"# comment\nnext", "next"},
		{"  # comment only", ""},
		{"#a\n#b\n  c # d", "c # d"},
		{"x", "x"},
	}

	for _, tt := range tests {
		l := New(tt.input)
		l.SkipBlank()
		if rest := l.Input()[l.Pos():]; rest != tt.rest {
			t.Errorf("%q: 期望剩余 %q，得到 %q", tt.input, tt.rest, rest)
		}
	}
}

func TestReadIdentifier(t *testing.T) {
	tests := []struct {
		input string
		ident string
		ok    bool
	}{
		{"FOO=bar", "FOO", true},
		{"_a1 b", "_a1", true},
		{"1abc", "", false},
		{"-x", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		l := New(tt.input)
		ident, ok := l.ReadIdentifier()
		if ident != tt.ident || ok != tt.ok {
			t.Errorf("%q: 期望 (%q, %v)，得到 (%q, %v)", tt.input, tt.ident, tt.ok, ident, ok)
		}
		if !ok && l.Pos() != 0 {
			t.Errorf("%q: 失败时不应该移动位置", tt.input)
		}
	}

	if !IsIdentifier("PATH") || IsIdentifier("9x") || IsIdentifier("") || IsIdentifier("a-b") {
		t.Error("IsIdentifier 结果错误")
	}
}

func TestPosition(t *testing.T) {
	l := New("echo a\n中文 b\nc")
	tests := []struct {
		offset int
		line   int
		column int
	}{
		{0, 1, 1},
		{5, 1, 6},
		{7, 2, 1},
		{len("echo a\n中文"), 2, 3},
		{len("echo a\n中文 b\n"), 3, 1},
		{100, 3, 2},
	}
	for _, tt := range tests {
		line, column := l.Position(tt.offset)
		if line != tt.line || column != tt.column {
			t.Errorf("偏移 %d: 期望 %d:%d，得到 %d:%d", tt.offset, tt.line, tt.column, line, column)
		}
	}
}
