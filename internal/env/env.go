// Package env 提供shell的环境变量表
package env

import (
	"os"
	"sort"
	"strings"
	"sync"
)

// Env 环境变量表
// 启动时从进程环境复制一份，之后的修改只影响shell自己和它启动的子进程。
// 通过 Overlay 创建的子表读取时优先使用自己的变量，写入时修改父表。
type Env struct {
	mu     sync.RWMutex
	vars   map[string]string
	parent *Env
}

// New 从当前进程环境创建环境变量表
func New() *Env {
	e := NewEmpty()
	for _, kv := range os.Environ() {
		key, value := split(kv)
		if key != "" {
			e.vars[key] = value
		}
	}
	return e
}

// NewEmpty 创建空的环境变量表
func NewEmpty() *Env {
	return &Env{vars: make(map[string]string)}
}

// Get 获取变量的值，未设置时返回空字符串
func (e *Env) Get(name string) string {
	value, _ := e.Lookup(name)
	return value
}

// Lookup 获取变量的值以及它是否已设置
func (e *Env) Lookup(name string) (string, bool) {
	e.mu.RLock()
	value, ok := e.vars[name]
	e.mu.RUnlock()
	if ok || e.parent == nil {
		return value, ok
	}
	return e.parent.Lookup(name)
}

// Set 设置变量
func (e *Env) Set(name, value string) {
	if e.parent != nil {
		e.mu.Lock()
		delete(e.vars, name)
		e.mu.Unlock()
		e.parent.Set(name, value)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars[name] = value
}

// Unset 删除变量
func (e *Env) Unset(name string) {
	e.mu.Lock()
	delete(e.vars, name)
	e.mu.Unlock()
	if e.parent != nil {
		e.parent.Unset(name)
	}
}

// Overlay 创建一个子表，vars 只对子表可见
func (e *Env) Overlay(vars map[string]string) *Env {
	child := &Env{vars: make(map[string]string, len(vars)), parent: e}
	for k, v := range vars {
		child.vars[k] = v
	}
	return child
}

// Map 返回所有变量的副本，子表中的变量覆盖父表
func (e *Env) Map() map[string]string {
	var out map[string]string
	if e.parent != nil {
		out = e.parent.Map()
	} else {
		out = make(map[string]string)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	for k, v := range e.vars {
		out[k] = v
	}
	return out
}

// Environ 返回按名称排序的 KEY=VALUE 列表，用于启动子进程
func (e *Env) Environ() []string {
	vars := e.Map()
	out := make([]string, 0, len(vars))
	for k, v := range vars {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// split 分割环境变量字符串
func split(kv string) (string, string) {
	key, value, _ := strings.Cut(kv, "=")
	return key, value
}
