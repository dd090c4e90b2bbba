package shell

import (
	"context"
	"strings"
	"testing"
)

// TestIsStatementComplete 测试语句完成检测
func TestIsStatementComplete(t *testing.T) {
	tests := []struct {
		name      string
		statement string
		expected  bool
	}{
		{name: "简单命令", statement: "echo hello", expected: true},
		{name: "未闭合的双引号", statement: `echo "hello`, expected: false},
		{name: "未闭合的单引号", statement: `echo 'a\`, expected: false},
		{name: "未闭合的命令替换", statement: "echo $(ls", expected: false},
		{name: "未闭合的裸括号", statement: "echo (ls | wc", expected: false},
		{name: "重定向缺少目标", statement: "echo a >", expected: false},
		{name: "反斜杠行继续符", statement: `echo hello \`, expected: false},
		{name: "多余的右括号", statement: "echo )", expected: true},
		{name: "管道结尾", statement: "echo a |", expected: true},
		{name: "空语句", statement: "", expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestShell(t)
			if _, got := s.appendLine("", tt.statement); got != tt.expected {
				t.Errorf("语句完成状态不匹配。\n语句: %q\n期望: %v, 得到: %v", tt.statement, tt.expected, got)
			}
		})
	}
}

// TestMultilineInput 测试多行输入处理
func TestMultilineInput(t *testing.T) {
	tests := []struct {
		name           string
		input          []string
		expectedOutput string
	}{
		{
			name:           "反斜杠行继续符",
			input:          []string{`echo hello \`, "world"},
			expectedOutput: "hello world\n",
		},
		{
			name:           "引号中的换行",
			input:          []string{`echo "a`, `b"`},
			expectedOutput: "a\nb\n",
		},
		{
			name:           "跨行的命令替换",
			input:          []string{"echo $(echo x", ")"},
			expectedOutput: "x\n",
		},
		{
			name:           "跨行的重定向",
			input:          []string{"echo to-file >", "out.txt", "echo done"},
			expectedOutput: "done\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, out := newTestShell(t)
			if _, err := s.ExecuteReader(context.Background(), strings.NewReader(strings.Join(tt.input, "\n"))); err != nil {
				t.Fatalf("执行失败: %v", err)
			}
			if got := out.stdout.String(); got != tt.expectedOutput {
				t.Errorf("输出不匹配。\n期望: %q\n得到: %q", tt.expectedOutput, got)
			}
			if errOut := out.stderr.String(); errOut != "" {
				t.Errorf("不应该有错误输出: %q", errOut)
			}
		})
	}
}
