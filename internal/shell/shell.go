// Package shell 实现交互式前端：读取输入、处理续行、维护历史、报告错误
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/afero"
	"golang.org/x/term"

	"goshell/internal/builtin"
	"goshell/internal/config"
	"goshell/internal/env"
	"goshell/internal/executor"
	"goshell/internal/parser"
	"goshell/pkg/platform"
)

// Shell Shell主结构
type Shell struct {
	cfg      *config.Configuration
	fs       afero.Fs
	env      *env.Env
	executor *executor.Executor
	history  *History
	reporter *ErrorReporter
	logger   *slog.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	interactive bool
	status      int // 最后一个前台管道的退出码
}

// Option Shell选项
type Option func(*Shell)

// WithConfig 使用指定的配置
func WithConfig(cfg *config.Configuration) Option {
	return func(s *Shell) { s.cfg = cfg }
}

// WithFs 使用指定的文件系统读写历史文件和重定向目标
func WithFs(fs afero.Fs) Option {
	return func(s *Shell) { s.fs = fs }
}

// WithEnv 使用指定的环境变量表
func WithEnv(e *env.Env) Option {
	return func(s *Shell) { s.env = e }
}

// WithStdio 设置标准输入输出
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(s *Shell) {
		s.stdin = stdin
		s.stdout = stdout
		s.stderr = stderr
	}
}

// WithLogger 设置日志
func WithLogger(logger *slog.Logger) Option {
	return func(s *Shell) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New 创建新的Shell实例
func New(opts ...Option) *Shell {
	s := &Shell{
		cfg:    config.Default(),
		fs:     afero.NewOsFs(),
		logger: slog.New(slog.DiscardHandler),
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.env == nil {
		s.env = env.New()
	}

	s.history = NewHistory(s.cfg.HistoryLimit)
	if path := s.cfg.HistoryPath(); path != "" {
		if err := s.history.LoadFromFile(s.fs, path); err != nil {
			s.logger.Warn("无法加载历史记录", "path", path, "error", err)
		} else {
			s.logger.Debug("加载历史记录", "path", path, "entries", s.history.Size())
		}
	}

	s.executor = executor.New(
		executor.WithEnv(s.env),
		executor.WithFs(s.fs),
		executor.WithStdio(s.stdin, s.stdout, s.stderr),
		executor.WithHistory(s.history.GetAll),
		executor.WithLogger(s.logger),
	)
	s.reporter = NewErrorReporter(s.stderr, "", false, s.useColor())
	return s
}

// Executor 返回Shell使用的执行器
func (s *Shell) Executor() *executor.Executor {
	return s.executor
}

// History 返回命令历史
func (s *Shell) History() *History {
	return s.history
}

// Status 返回最后一个前台管道的退出码
func (s *Shell) Status() int {
	return s.status
}

// lineReader 逐行读取输入，readline.Instance 实现了这个接口
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// promptReader 标准输入不是终端或 readline 不可用时使用
type promptReader struct {
	scanner *bufio.Scanner
	out     io.Writer
	prompt  string
}

func newPromptReader(in io.Reader, out io.Writer) *promptReader {
	return &promptReader{scanner: bufio.NewScanner(in), out: out}
}

func (r *promptReader) SetPrompt(prompt string) {
	r.prompt = prompt
}

func (r *promptReader) Readline() (string, error) {
	if r.out != nil {
		io.WriteString(r.out, r.prompt)
	}
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

// Run 运行交互式Shell，返回shell的退出码
// 标准输入不是终端时按脚本逐行执行
func (s *Shell) Run(ctx context.Context) int {
	if !isTerminal(s.stdin) {
		status, err := s.ExecuteReader(ctx, s.stdin)
		if err != nil {
			s.reporter.ReportError(err, "")
		}
		return status
	}

	s.interactive = true
	s.reporter = NewErrorReporter(s.stderr, "", true, s.useColor())
	defer s.saveHistory()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 s.prompt(),
		HistoryLimit:           s.cfg.HistoryLimit,
		DisableAutoSaveHistory: true,
		AutoComplete:           NewCompleter(s.env, s.fs),
		InterruptPrompt:        "^C",
		EOFPrompt:              "exit",
	})
	if err != nil {
		// readline初始化失败时回退到简单的逐行读取
		s.logger.Debug("readline 不可用", "error", err)
		return s.interact(ctx, newPromptReader(s.stdin, s.stdout))
	}
	defer rl.Close()

	for _, entry := range s.history.GetAll() {
		rl.SaveHistory(entry)
	}
	return s.interact(ctx, rl)
}

// interact 读取、解析并执行语句，直到输入结束或执行了 exit
func (s *Shell) interact(ctx context.Context, lr lineReader) int {
	saver, _ := lr.(interface{ SaveHistory(string) error })

	pending := ""
	for {
		if pending == "" {
			lr.SetPrompt(s.prompt())
		} else {
			lr.SetPrompt(s.cfg.ContinuationPrompt)
		}

		line, err := lr.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			// Ctrl+C 丢弃已经输入的部分
			pending = ""
			continue
		}
		if err != nil {
			// 输入在语句中间结束时仍然执行已经读入的部分，未闭合的语句报告语法错误
			if pending != "" {
				if code, exited := s.runStatement(ctx, pending); exited {
					return code
				}
			}
			return s.status
		}

		text, complete := s.appendLine(pending, line)
		if !complete {
			pending = text
			continue
		}
		pending = ""
		if parser.IsBlank(text) {
			continue
		}

		s.history.Add(text)
		if saver != nil && !strings.Contains(text, "\n") {
			saver.SaveHistory(text)
		}

		if code, exited := s.runStatement(ctx, text); exited {
			return code
		}
	}
}

// runStatement 执行一条语句并报告错误，执行了 exit 时返回 true
// 交互式模式下 Ctrl+C 只中断这条语句
func (s *Shell) runStatement(ctx context.Context, text string) (int, bool) {
	if s.interactive {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
	}

	status, err := s.ExecuteLine(ctx, text)
	if code, ok := exitRequested(err); ok {
		return code, true
	}
	if err != nil {
		s.reporter.ReportError(err, text)
	}
	return status, false
}

// appendLine 把 line 接到已经读入的 pending 之后
// 返回的 complete 为 false 时需要继续读入下一行：
// 引号或命令替换没有闭合时保留换行，行尾的 \ 被删除后与下一行直接相连
func (s *Shell) appendLine(pending, line string) (text string, complete bool) {
	text = pending + line
	if _, err := parser.Parse(text, parser.WithMaxDepth(s.cfg.MaxDepth)); parser.IsIncomplete(err) {
		return text + "\n", false
	}
	if trimmed := strings.TrimRight(text, " \t"); strings.HasSuffix(trimmed, `\`) {
		return strings.TrimSuffix(trimmed, `\`), false
	}
	return text, true
}

// ExecuteLine 解析并执行一条完整的语句
// 语法错误的退出码为2；exit 返回 *builtin.ExitError
func (s *Shell) ExecuteLine(ctx context.Context, line string) (int, error) {
	if parser.IsBlank(line) {
		return s.status, nil
	}

	cl, err := parser.Parse(line, parser.WithMaxDepth(s.cfg.MaxDepth), parser.WithLogger(s.logger))
	if err != nil {
		s.status = 2
		return s.status, err
	}

	s.logger.Debug("执行命令", "line", cl.String())
	status, err := s.executor.Run(ctx, cl)
	s.status = status
	s.reapJobs()
	return status, err
}

// ExecuteScript 执行脚本文件
func (s *Shell) ExecuteScript(ctx context.Context, scriptPath string) (int, error) {
	file, err := s.fs.Open(scriptPath)
	if err != nil {
		return 127, fmt.Errorf("无法打开脚本文件: %w", err)
	}
	defer file.Close()

	saved := s.reporter
	s.reporter = NewErrorReporter(s.stderr, scriptPath, false, s.useColor())
	defer func() { s.reporter = saved }()

	return s.ExecuteReader(ctx, file)
}

// ExecuteReader 从Reader逐条执行语句
// 出错的语句报告后继续执行下一条；exit 立即结束并返回它的退出码
func (s *Shell) ExecuteReader(ctx context.Context, reader io.Reader) (int, error) {
	scanner := bufio.NewScanner(reader)
	pending := ""
	startLine := 0
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		// 跳过shebang行
		if lineNum == 1 && strings.HasPrefix(line, "#!") {
			continue
		}
		if pending == "" {
			startLine = lineNum
		}

		text, complete := s.appendLine(pending, line)
		if !complete {
			pending = text
			continue
		}
		pending = ""

		s.reporter.SetLineNum(startLine)
		if code, exited := s.runStatement(ctx, text); exited {
			s.Wait()
			return code, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return s.status, err
	}

	if pending != "" {
		s.reporter.SetLineNum(startLine)
		if code, exited := s.runStatement(ctx, pending); exited {
			s.Wait()
			return code, nil
		}
	}
	s.Wait()
	return s.status, nil
}

// Wait 等待所有后台管道结束
func (s *Shell) Wait() {
	s.executor.Jobs().Wait()
	s.reapJobs()
}

// reapJobs 收取已经结束的后台管道，交互式模式下像 bash 一样报告
func (s *Shell) reapJobs() {
	for _, job := range s.executor.Jobs().Reap() {
		status, code := job.Status()
		s.logger.Debug("后台命令已收取", "id", job.ID, "cmd", job.Cmd, "code", code)
		if err := job.Err(); err != nil {
			s.reporter.ReportError(err, "")
		}
		if s.interactive {
			fmt.Fprintf(s.stderr, "[%d]  %s\t%s\n", job.ID, status, job.Cmd)
		}
	}
}

// saveHistory 保存历史记录
func (s *Shell) saveHistory() {
	path := s.cfg.HistoryPath()
	if path == "" {
		return
	}
	if err := s.history.SaveToFile(s.fs, path); err != nil {
		s.logger.Warn("无法保存历史记录", "path", path, "error", err)
	}
}

// prompt 展开配置中的提示符
func (s *Shell) prompt() string {
	return expandPrompt(s.cfg.Prompt, s.env)
}

func (s *Shell) useColor() bool {
	return ColorEnabled(s.cfg, s.stderr)
}

// ColorEnabled 配置允许、没有设置 NO_COLOR 并且 w 是终端时才输出颜色
func ColorEnabled(cfg *config.Configuration, w io.Writer) bool {
	return cfg.Color && os.Getenv("NO_COLOR") == "" && isTerminal(w)
}

// expandPrompt 展开提示符中的转义：\u 用户名，\h 主机名，\w 当前目录（主目录显示为 ~），\$ 和 \\
func expandPrompt(format string, e *env.Env) string {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		ch := format[i]
		if ch != '\\' || i+1 == len(format) {
			b.WriteByte(ch)
			continue
		}
		i++
		switch format[i] {
		case 'u':
			b.WriteString(username(e))
		case 'h':
			host, _ := os.Hostname()
			if host == "" {
				host = "host"
			}
			b.WriteString(host)
		case 'w':
			b.WriteString(workingDir(e))
		case '$':
			b.WriteByte('$')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte('\\')
			b.WriteByte(format[i])
		}
	}
	return b.String()
}

func username(e *env.Env) string {
	for _, key := range []string{"USER", "USERNAME"} {
		if name := e.Get(key); name != "" {
			return name
		}
	}
	return "user"
}

// workingDir 返回当前目录，主目录开头的部分替换为 ~，统一使用正斜杠显示
func workingDir(e *env.Env) string {
	wd, _ := os.Getwd()
	if wd == "" {
		return "~"
	}
	wd = filepath.ToSlash(platform.NormalizePath(wd))
	home := filepath.ToSlash(platform.NormalizePath(platform.HomeDir(e.Get)))
	if home != "" && (wd == home || strings.HasPrefix(wd, home+"/")) {
		wd = "~" + wd[len(home):]
	}
	return wd
}

// exitRequested 判断错误是否来自 exit 内置命令
func exitRequested(err error) (int, bool) {
	var exitErr *builtin.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

// isTerminal 判断 v 是否是连接到终端的文件
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
