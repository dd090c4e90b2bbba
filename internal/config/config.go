// Package config 读取并校验 goshell 的配置文件
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"

	"goshell/pkg/platform"
)

//go:embed default/config.yaml
var defaultConfigData []byte

const (
	// ConfigurationName 用户主目录下的配置文件名
	ConfigurationName = ".goshell.yaml"
	// LogEnvVar 覆盖 log_level 的环境变量
	LogEnvVar = "GOSHELL_LOG"
)

// Configuration shell配置
type Configuration struct {
	Prompt             string `json:"prompt"`
	ContinuationPrompt string `json:"continuation_prompt"`
	HistoryFile        string `json:"history_file"`
	HistoryLimit       int    `json:"history_limit" validate:"gte=1,lte=100000"`
	MaxDepth           int    `json:"max_depth" validate:"gte=1,lte=4096"`
	LogLevel           string `json:"log_level" validate:"oneof=debug info warn error"`
	Color              bool   `json:"color"`
}

// Validate 检查配置中的语义错误
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	return validate.Struct(c)
}

// Default 返回内置的默认配置
func Default() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

// DefaultPath 返回默认配置文件的路径，找不到主目录时返回空字符串
func DefaultPath() string {
	home := platform.HomeDir(os.Getenv)
	if home == "" {
		return ""
	}
	return filepath.Join(home, ConfigurationName)
}

// Load 从 fs 读取配置文件，文件中没有的字段使用默认值
// path 为空或文件不存在时返回默认配置
func Load(fs afero.Fs, path string) (*Configuration, error) {
	out := Default()
	if path == "" {
		return out, nil
	}

	data, err := afero.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.UnmarshalStrict(data, out); err != nil {
		return nil, fmt.Errorf("配置文件 %s: %w", path, err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("配置文件 %s: %w", path, err)
	}
	return out, nil
}

// HistoryPath 返回展开 ~ 之后的历史文件路径
func (c *Configuration) HistoryPath() string {
	if c.HistoryFile == "" {
		return ""
	}
	return platform.ExpandHome(c.HistoryFile, platform.HomeDir(os.Getenv))
}

// Level 返回日志级别，环境变量 GOSHELL_LOG 优先
func (c *Configuration) Level(lookup func(string) string) slog.Level {
	name := c.LogLevel
	if lookup != nil {
		if v := lookup(LogEnvVar); v != "" {
			name = v
		}
	}

	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger 创建写到 w 的文本日志，去掉时间和级别字段
func (c *Configuration) NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: c.Level(os.Getenv),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && (a.Key == slog.TimeKey || a.Key == slog.LevelKey) {
				return slog.Attr{}
			}
			return a
		},
	}))
}
