package builtin

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// command -v 显示命令的类型或路径
// command -v name [name ...]
// 内置命令输出名字本身，外部命令输出在 PATH 中找到的路径；
// 有任何一个找不到时退出码为1
func command(ctx *Context, args []string) error {
	opts := newOptions("command", "-v 命令名 ...", "显示命令的类型或路径。")
	verbose := opts.Bool('v', "输出命令名或路径")
	names, done, err := opts.parse(ctx, args)
	if done {
		return err
	}
	if !*verbose {
		return errors.New("用法: command -v 命令名 ...")
	}

	missing := false
	for _, name := range names {
		path, err := Resolve(name, ctx.Env.Get("PATH"))
		if err != nil {
			missing = true
			continue
		}
		fmt.Fprintln(ctx.Stdout, path)
	}
	if missing {
		return &StatusError{Code: 1}
	}
	return nil
}

// Resolve 查找命令：内置命令返回名字本身，包含路径分隔符的名字直接检查文件，
// 其他名字在 path 指定的目录中查找
func Resolve(name, path string) (string, error) {
	if _, ok := builtins[name]; ok {
		return name, nil
	}
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, filepath.Separator) {
		return exec.LookPath(name)
	}

	for _, dir := range filepath.SplitList(path) {
		candidate := filepath.Join(dir, name)
		if !strings.ContainsRune(candidate, filepath.Separator) {
			candidate = "." + string(filepath.Separator) + candidate
		}
		if found, err := exec.LookPath(candidate); err == nil {
			return found, nil
		}
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}
