package shell

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// History 命令历史管理器
type History struct {
	mu       sync.Mutex
	commands []string
	maxSize  int
}

// NewHistory 创建新的历史管理器
func NewHistory(maxSize int) *History {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &History{maxSize: maxSize}
}

// Add 添加命令到历史
func (h *History) Add(cmd string) {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// 避免重复添加相同的命令
	if len(h.commands) > 0 && h.commands[len(h.commands)-1] == cmd {
		return
	}
	h.commands = append(h.commands, cmd)
	if len(h.commands) > h.maxSize {
		h.commands = h.commands[len(h.commands)-h.maxSize:]
	}
}

// Get 获取指定索引的历史命令
func (h *History) Get(index int) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if index < 0 || index >= len(h.commands) {
		return ""
	}
	return h.commands[index]
}

// GetAll 获取所有历史命令的副本
func (h *History) GetAll() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.commands))
	copy(out, h.commands)
	return out
}

// Size 获取历史记录数量
func (h *History) Size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.commands)
}

// LoadFromFile 从文件加载历史记录，超过上限时保留最新的部分
func (h *History) LoadFromFile(fs afero.Fs, filename string) error {
	data, err := afero.ReadFile(fs, filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil // 文件不存在不算错误
		}
		return err
	}

	for _, line := range strings.Split(string(data), "\n") {
		h.Add(line)
	}
	return nil
}

// SaveToFile 保存历史记录到文件
// 多行语句无法按行读回，不写入文件
func (h *History) SaveToFile(fs afero.Fs, filename string) error {
	if err := fs.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	var b strings.Builder
	for _, cmd := range h.GetAll() {
		if strings.Contains(cmd, "\n") {
			continue
		}
		b.WriteString(cmd)
		b.WriteByte('\n')
	}
	return afero.WriteFile(fs, filename, []byte(b.String()), 0o600)
}
