package main

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute 运行根命令，HOME 指向临时目录，避免读取真实的配置和历史文件
func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NO_COLOR", "1")

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return 0
	}
	var status *exitStatus
	require.True(t, errors.As(err, &status), "期望退出码错误，得到 %v", err)
	return status.code
}

func TestParseCommand(t *testing.T) {
	stdout, stderr, err := execute(t, "", "parse", "cat < in.txt > out.txt")
	require.NoError(t, err)
	assert.Empty(t, stderr)
	assert.Equal(t, "CommandLine\n  Command\n    Literal \"cat\"\n  Redirection <\n    Literal \"in.txt\"\n  Redirection >\n    Literal \"out.txt\"\n", stdout)
}

func TestFmtCommand(t *testing.T) {
	stdout, _, err := execute(t, "echo   a;b  |c\n\n  X=1   env &\n", "fmt")
	require.NoError(t, err)
	assert.Equal(t, "echo a ; b | c\nX=1 env &\n", stdout)
}

func TestFmtSyntaxError(t *testing.T) {
	stdout, stderr, err := execute(t, "", "fmt", "echo ok", "echo )", "echo 'a b'")
	assert.Equal(t, 2, exitCode(t, err))
	assert.Equal(t, "echo ok\necho 'a b'\n", stdout)
	assert.True(t, strings.HasPrefix(stderr, "goshell: 第2行: "), "错误消息: %q", stderr)
}

func TestMaxDepthFlag(t *testing.T) {
	_, stderr, err := execute(t, "", "--max-depth", "1", "parse", "echo $(a $(b))")
	assert.Equal(t, 2, exitCode(t, err))
	assert.Contains(t, stderr, "最大深度 1")

	_, _, err = execute(t, "", "--max-depth", "0", "parse", "echo")
	assert.Error(t, err, "深度必须为正数")
}

func TestCommandFlag(t *testing.T) {
	for _, name := range []string{"cat", "printenv"} {
		if _, err := exec.LookPath(name); err != nil {
			t.Skipf("需要外部命令 %s", name)
		}
	}

	stdout, _, err := execute(t, "", "-c", "echo hello | cat; X=1 printenv X")
	require.NoError(t, err)
	assert.Equal(t, "hello\n1\n", stdout)

	_, _, err = execute(t, "", "-c", "exit 4")
	assert.Equal(t, 4, exitCode(t, err))
}

func TestScriptArgument(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "s.sh")
	out := filepath.Join(dir, "out.txt")
	require.NoError(t, os.WriteFile(script, []byte("#!/usr/bin/env goshell\necho from-script > "+out+"\nfalse\n"), 0o644))

	_, _, err := execute(t, "", script)
	assert.Equal(t, 1, exitCode(t, err))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "from-script\n", string(data))
}

func TestStdinScript(t *testing.T) {
	stdout, _, err := execute(t, "echo one\necho two\n")
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", stdout)
}

func TestConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_depth: 1\n"), 0o644))

	_, _, err := execute(t, "", "--config", path, "parse", "echo $(a $(b))")
	assert.Equal(t, 2, exitCode(t, err))

	require.NoError(t, os.WriteFile(path, []byte("unknown: 1\n"), 0o644))
	_, _, err = execute(t, "", "--config", path, "parse", "echo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}
