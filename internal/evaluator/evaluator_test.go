package evaluator

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goshell/internal/parser"
)

type mapEnv map[string]string

func (m mapEnv) Get(name string) string { return m[name] }

// fakeRunner 把命令行的规范化文本作为输出
type fakeRunner struct {
	calls []string
	err   error
}

func (r *fakeRunner) Capture(ctx context.Context, cl *parser.CommandLine) (string, error) {
	r.calls = append(r.calls, cl.String())
	if r.err != nil {
		return "", r.err
	}
	return "<" + cl.String() + ">\n\n", nil
}

func flatten(t *testing.T, ev *Evaluator, input string) *Flattened {
	t.Helper()
	cl, err := parser.Parse(input)
	require.NoError(t, err)
	flat, err := ev.Flatten(context.Background(), cl)
	require.NoError(t, err)
	return flat
}

func TestFlatten(t *testing.T) {
	env := mapEnv{"HOME": "/home/u", "FOO": "a b"}

	tests := []struct {
		input    string
		expected *Flattened
	}{
		{
			input:    "ls -la",
			expected: &Flattened{Command: "ls", Args: []string{"-la"}},
		},
		{
			input: "FOO=bar echo $FOO $MISSING x",
			expected: &Flattened{
				Env:     []Var{{Name: "FOO", Value: "bar"}},
				Command: "echo",
				Args:    []string{"a b", "", "x"},
			},
		},
		{
			input: `echo "hello $(whoami)" $HOME/bin`,
			expected: &Flattened{
				Command: "echo",
				Args:    []string{"hello <whoami>", "/home/u/bin"},
			},
		},
		{
			input: "cat < in.txt 2>> $HOME/err > out.txt",
			expected: &Flattened{
				Command: "cat",
				Redirects: []Redirect{
					{Type: parser.RedirectIn, Target: "in.txt"},
					{Fd: parser.FdStderr, Type: parser.RedirectAppend, Target: "/home/u/err"},
					{Type: parser.RedirectOut, Target: "out.txt"},
				},
			},
		},
		{
			input: `'$HOME' "$(a (b))" ''`,
			expected: &Flattened{
				Command: "$HOME",
				Args:    []string{"<a <b>>", ""},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := flatten(t, New(env, nestedRunner{env: env}, nil), tt.input)
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("展开结果不匹配 (-期望 +得到):\n%s", diff)
			}
		})
	}
}

// nestedRunner 递归展开命令行，输出 <命令 参数...>
type nestedRunner struct {
	env Environ
}

func (r nestedRunner) Capture(ctx context.Context, cl *parser.CommandLine) (string, error) {
	flat, err := New(r.env, r, nil).Flatten(ctx, cl)
	if err != nil {
		return "", err
	}
	out := "<" + flat.Command
	for _, a := range flat.Args {
		out += " " + a
	}
	return out + ">\n", nil
}

func TestFlattenIgnoresChain(t *testing.T) {
	flat := flatten(t, New(mapEnv{}, &fakeRunner{}, nil), "a x; b y | c")
	assert.Equal(t, "a", flat.Command)
	assert.Equal(t, []string{"x"}, flat.Args)
}

func TestSubstitutionTrimsTrailingNewlines(t *testing.T) {
	runner := &fakeRunner{}
	flat := flatten(t, New(mapEnv{}, runner, nil), "echo x$(date)y")
	assert.Equal(t, []string{"x<date>y"}, flat.Args)
	assert.Equal(t, []string{"date"}, runner.calls)
}

func TestSubstitutionError(t *testing.T) {
	boom := errors.New("boom")
	cl, err := parser.Parse("echo $(fail)")
	require.NoError(t, err)

	_, err = New(mapEnv{}, &fakeRunner{err: boom}, nil).Flatten(context.Background(), cl)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	_, err = New(mapEnv{}, nil, nil).Flatten(context.Background(), cl)
	assert.Error(t, err)
}

func TestSubstitutionCancelled(t *testing.T) {
	cl, err := parser.Parse("echo $(sleep 10)")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := &fakeRunner{}
	_, err = New(mapEnv{}, runner, nil).Flatten(ctx, cl)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, runner.calls)
}

func TestEnvMap(t *testing.T) {
	flat := flatten(t, New(mapEnv{}, nil, nil), "A=1 B=2 A=3 env")
	assert.Equal(t, map[string]string{"A": "3", "B": "2"}, flat.EnvMap())
}

func TestRedirectString(t *testing.T) {
	r := Redirect{Fd: parser.FdAll, Type: parser.RedirectAppend, Target: "log"}
	assert.Equal(t, "&>> log", r.String())
}
