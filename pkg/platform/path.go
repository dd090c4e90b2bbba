package platform

import (
	"os"
	"path/filepath"
	"strings"
)

// HomeDir 返回用户主目录，依次查看 HOME、USERPROFILE，最后询问操作系统
// lookup 为 nil 时使用进程环境
func HomeDir(lookup func(string) string) string {
	if lookup == nil {
		lookup = os.Getenv
	}
	for _, key := range []string{"HOME", "USERPROFILE"} {
		if home := lookup(key); home != "" {
			return home
		}
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

// ExpandHome 把开头的 ~ 或 ~/ 替换为 home，其他形式（如 ~user）保持不变
func ExpandHome(path, home string) string {
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// NormalizePath 展开 ~ 并清理路径
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Clean(ExpandHome(path, HomeDir(nil)))
}
