package lexer

// TokenType 表示token的类型
type TokenType int

const (
	// 基础token
	ILLEGAL TokenType = iota
	EOF

	// 单词片段
	LITERAL       // 已解码的字面文本
	VAR           // $NAME
	SUBST_OPEN    // $( 命令替换开始
	SINGLE_QUOTED // '...' 原样内容
	DOUBLE_QUOTE  // " 双引号开始或结束
	WORD_END      // 当前单词结束（不消耗字符）

	// 操作符
	SEMICOLON       // ;
	PIPE            // |
	AMPERSAND       // &
	LPAREN          // (
	RPAREN          // )
	REDIRECT_OUT    // >
	REDIRECT_APPEND // >>
	REDIRECT_IN     // <
)

// Token 表示一个词法单元
type Token struct {
	Type    TokenType
	Literal string
	Fd      byte // 重定向的文件描述符选择符：0 表示省略，否则为 '&'、'0'、'1'、'2'
	Offset  int  // 字节偏移
	Line    int
	Column  int
}

// String 返回token的字符串表示
func (t TokenType) String() string {
	switch t {
	case ILLEGAL:
		return "ILLEGAL"
	case EOF:
		return "EOF"
	case LITERAL:
		return "LITERAL"
	case VAR:
		return "VAR"
	case SUBST_OPEN:
		return "SUBST_OPEN"
	case SINGLE_QUOTED:
		return "SINGLE_QUOTED"
	case DOUBLE_QUOTE:
		return "DOUBLE_QUOTE"
	case WORD_END:
		return "WORD_END"
	case SEMICOLON:
		return "SEMICOLON"
	case PIPE:
		return "PIPE"
	case AMPERSAND:
		return "AMPERSAND"
	case LPAREN:
		return "LPAREN"
	case RPAREN:
		return "RPAREN"
	case REDIRECT_OUT:
		return "REDIRECT_OUT"
	case REDIRECT_APPEND:
		return "REDIRECT_APPEND"
	case REDIRECT_IN:
		return "REDIRECT_IN"
	default:
		return "UNKNOWN"
	}
}

// IsRedirect 判断是否为重定向操作符
func (t TokenType) IsRedirect() bool {
	return t == REDIRECT_OUT || t == REDIRECT_APPEND || t == REDIRECT_IN
}

// Mode 引号模式，只在解析期间存在
type Mode int

const (
	ModeUnquoted Mode = iota // 未加引号
	ModeSingle               // 单引号
	ModeDouble               // 双引号
)

func (m Mode) String() string {
	switch m {
	case ModeSingle:
		return "single-quoted"
	case ModeDouble:
		return "double-quoted"
	default:
		return "unquoted"
	}
}
