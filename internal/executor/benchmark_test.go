package executor

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"goshell/internal/env"
	"goshell/internal/parser"
)

func newBenchExecutor() *Executor {
	return New(
		WithEnv(env.NewEmpty()),
		WithFs(afero.NewMemMapFs()),
		WithStdio(strings.NewReader(""), io.Discard, io.Discard),
	)
}

// BenchmarkBuiltin 基准测试内置命令执行性能
func BenchmarkBuiltin(b *testing.B) {
	e := newBenchExecutor()
	cl, _ := parser.Parse("echo hello world > out.txt")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Run(context.Background(), cl)
	}
}

// BenchmarkSubstitution 基准测试命令替换性能
func BenchmarkSubstitution(b *testing.B) {
	e := newBenchExecutor()
	e.Env().Set("NAME", "value")
	cl, _ := parser.Parse(`echo "$NAME $(echo $(echo nested))"`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Run(context.Background(), cl)
	}
}
