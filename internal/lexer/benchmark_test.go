package lexer

import (
	"testing"
)

// readWord 读取一个未加引号单词的全部片段
func readWord(l *Lexer) error {
	for {
		tok, err := l.NextSegment(ModeUnquoted)
		if err != nil {
			return err
		}
		if tok.Type == WORD_END {
			return nil
		}
	}
}

// BenchmarkNextSegment 基准测试片段读取性能
func BenchmarkNextSegment(b *testing.B) {
	input := `echo hello world ; ls -la | grep test > out.txt`

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l := New(input)
		for !l.AtEOF() {
			l.SkipBlank()
			if tok := l.ReadOperator(); tok.Type != ILLEGAL {
				continue
			}
			if err := readWord(l); err != nil {
				b.Fatal(err)
			}
		}
	}
}

// BenchmarkReadIdentifier 基准测试标识符读取性能
func BenchmarkReadIdentifier(b *testing.B) {
	input := "variable_name_123"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l := New(input)
		_, _ = l.ReadIdentifier()
	}
}

// BenchmarkEscapes 基准测试转义解码性能
func BenchmarkEscapes(b *testing.B) {
	input := `hello\tworldé\n\"quoted\"`

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l := New(input)
		if err := readWord(l); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkUTF8Support 基准测试 UTF-8 支持性能
func BenchmarkUTF8Support(b *testing.B) {
	input := "变量名 中文参数 'единица' \"ü$HOME\""

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		l := New(input)
		for !l.AtEOF() {
			l.SkipBlank()
			_ = readWord(l)
		}
	}
}
