package shell

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/anmitsu/go-shlex"
	"github.com/spf13/afero"

	"goshell/internal/builtin"
	"goshell/internal/env"
)

// Completer 实现readline的自动补全接口
type Completer struct {
	env *env.Env
	fs  afero.Fs
}

// NewCompleter 创建新的补全器
func NewCompleter(e *env.Env, fs afero.Fs) *Completer {
	return &Completer{env: e, fs: fs}
}

// Do 执行自动补全
// 返回候选项中光标之后需要补上的部分，以及它们和输入共有的前缀长度
func (c *Completer) Do(line []rune, pos int) (newLine [][]rune, length int) {
	words, current := splitWords(string(line[:pos]))

	var candidates []string
	switch {
	case strings.HasPrefix(current, "$"):
		candidates = c.completeVariables(current[1:])
		current = current[1:]
	case len(words) == 0 || isAssignment(words):
		candidates = c.completeCommands(current)
	default:
		var prefix string
		candidates, prefix = c.completeFiles(current)
		current = prefix
	}

	for _, candidate := range candidates {
		newLine = append(newLine, []rune(candidate[len(current):]))
	}
	return newLine, len([]rune(current))
}

// splitWords 把光标之前的内容按POSIX规则分词，返回已经完成的词和正在输入的词
// 引号没有闭合时退回到按空白分割，并去掉正在输入的词开头的引号
func splitWords(text string) (words []string, current string) {
	words, err := shlex.Split(text, true)
	if err != nil {
		words = strings.Fields(text)
	}
	if len(words) == 0 || strings.HasSuffix(text, " ") || strings.HasSuffix(text, "\t") {
		return words, ""
	}
	current = words[len(words)-1]
	if err != nil {
		current = strings.TrimLeft(current, `"'`)
	}
	return words[:len(words)-1], current
}

// isAssignment 已完成的词都是 NAME=value 时，下一个词仍然是命令名
func isAssignment(words []string) bool {
	for _, w := range words {
		name, _, ok := strings.Cut(w, "=")
		if !ok || name == "" {
			return false
		}
	}
	return true
}

// completeCommands 补全内置命令和 PATH 中的外部命令
func (c *Completer) completeCommands(prefix string) []string {
	seen := make(map[string]bool)
	var matches []string
	add := func(name string) {
		if strings.HasPrefix(name, prefix) && !seen[name] {
			seen[name] = true
			matches = append(matches, name)
		}
	}

	for _, name := range builtin.Names() {
		add(name)
	}
	for _, dir := range filepath.SplitList(c.env.Get("PATH")) {
		if dir == "" {
			continue
		}
		entries, err := afero.ReadDir(c.fs, dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || entry.Mode().Perm()&0o111 == 0 {
				continue
			}
			// 移除.exe扩展名（Windows）
			add(strings.TrimSuffix(entry.Name(), ".exe"))
		}
	}

	sort.Strings(matches)
	return matches
}

// completeVariables 补全环境变量名
func (c *Completer) completeVariables(prefix string) []string {
	var matches []string
	for name := range c.env.Map() {
		if strings.HasPrefix(name, prefix) {
			matches = append(matches, name)
		}
	}
	sort.Strings(matches)
	return matches
}

// completeFiles 补全文件名，目录后面加上 /
// 返回的 prefix 是参与匹配的文件名部分
func (c *Completer) completeFiles(word string) (matches []string, prefix string) {
	dir, prefix := ".", word
	if i := strings.LastIndexAny(word, `/\`); i >= 0 {
		dir, prefix = word[:i+1], word[i+1:]
	}

	entries, err := afero.ReadDir(c.fs, dir)
	if err != nil {
		return nil, prefix
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		// 隐藏文件只在明确输入了 . 时补全
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
			continue
		}
		if entry.IsDir() {
			name += "/"
		}
		matches = append(matches, name)
	}
	return matches, prefix
}
