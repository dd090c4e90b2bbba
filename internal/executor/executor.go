// Package executor 执行解析后的命令行：展开参数、连接管道、应用重定向、启动进程
package executor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/afero"

	"goshell/internal/builtin"
	"goshell/internal/env"
	"goshell/internal/evaluator"
	"goshell/internal/parser"
)

// Executor 执行器
// 内置命令在进程内运行，外部命令通过 os/exec 启动；重定向的目标文件通过 afero.Fs 打开
type Executor struct {
	env      *env.Env
	fs       afero.Fs
	builtins map[string]builtin.BuiltinFunc
	eval     *evaluator.Evaluator
	jobs     *JobTable
	history  func() []string
	logger   *slog.Logger

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// Option 执行器选项
type Option func(*Executor)

// WithEnv 使用指定的环境变量表
func WithEnv(e *env.Env) Option {
	return func(ex *Executor) { ex.env = e }
}

// WithFs 使用指定的文件系统打开重定向目标
func WithFs(fs afero.Fs) Option {
	return func(ex *Executor) { ex.fs = fs }
}

// WithStdio 设置标准输入输出
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(ex *Executor) {
		ex.stdin = stdin
		ex.stdout = stdout
		ex.stderr = stderr
	}
}

// WithHistory 设置 history 内置命令的数据来源
func WithHistory(history func() []string) Option {
	return func(ex *Executor) { ex.history = history }
}

// WithLogger 设置日志
func WithLogger(logger *slog.Logger) Option {
	return func(ex *Executor) {
		if logger != nil {
			ex.logger = logger
		}
	}
}

// New 创建新的执行器
func New(opts ...Option) *Executor {
	e := &Executor{
		fs:       afero.NewOsFs(),
		builtins: builtin.GetBuiltins(),
		logger:   slog.New(slog.DiscardHandler),
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.env == nil {
		e.env = env.New()
	}
	e.eval = evaluator.New(e.env, e, e.logger)
	e.jobs = NewJobTable(e.logger)
	return e
}

// Env 返回执行器使用的环境变量表
func (e *Executor) Env() *env.Env {
	return e.env
}

// Jobs 返回后台管道表
func (e *Executor) Jobs() *JobTable {
	return e.jobs
}

// pipeline 由 | 连接的一组命令
type pipeline struct {
	commands   []*parser.CommandLine
	background bool
}

func (p *pipeline) String() string {
	parts := make([]string, len(p.commands))
	for i, c := range p.commands {
		parts[i] = c.SimpleString()
	}
	return strings.Join(parts, " | ")
}

// splitPipelines 在 ; 和 & 处把命令链切分为管道
func splitPipelines(cl *parser.CommandLine) ([]*pipeline, error) {
	var pipelines []*pipeline
	current := &pipeline{}
	for c := cl; c != nil; c = c.Next {
		current.commands = append(current.commands, c)
		switch c.Separator {
		case parser.SepPipe:
			if c.Next == nil {
				return nil, newExecutionError(ExecutionErrorTypeDanglingPipe, "", "", nil, nil)
			}
			continue
		case parser.SepBackground:
			current.background = true
		}
		pipelines = append(pipelines, current)
		current = &pipeline{}
	}
	return pipelines, nil
}

// Run 执行命令链，返回最后一个前台管道的退出码
// 管道启动失败时停止执行后面的命令并返回错误；命令以非零退出码结束不算错误。
// exit 内置命令返回 *builtin.ExitError。
func (e *Executor) Run(ctx context.Context, cl *parser.CommandLine) (int, error) {
	pipelines, err := splitPipelines(cl)
	if err != nil {
		return exitCodeOf(err), err
	}

	status := 0
	for _, p := range pipelines {
		if ctx.Err() != nil {
			err := newExecutionError(ExecutionErrorTypeInterrupted, "", "", nil, ctx.Err())
			return err.ExitCode(), err
		}

		if p.background {
			bg := *e
			bg.stdin = strings.NewReader("")
			commands := p.commands
			e.jobs.Start(ctx, p.String(), func(ctx context.Context) (int, error) {
				return bg.runPipeline(ctx, commands)
			})
			status = 0
			continue
		}

		status, err = e.runPipeline(ctx, p.commands)
		if err != nil {
			return status, err
		}
	}
	return status, nil
}

// Capture 执行命令链并返回它的标准输出，用于命令替换
// 命令替换中的 exit 只结束替换本身
func (e *Executor) Capture(ctx context.Context, cl *parser.CommandLine) (string, error) {
	var out lockedBuffer
	child := *e
	child.stdout = &out

	_, err := child.Run(ctx, cl)
	var exitErr *builtin.ExitError
	if errors.As(err, &exitErr) {
		err = nil
	}
	return out.String(), err
}

// stage 管道中的一条命令
type stage struct {
	flat    *evaluator.Flattened
	builtin builtin.BuiltinFunc
	path    string // 外部命令的路径

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	pipes []io.Closer // 属于这条命令的管道端
	files []io.Closer // 重定向打开的文件
}

// closePipes 关闭管道端，外部命令启动后父进程不再需要它们
func (s *stage) closePipes() {
	for _, c := range s.pipes {
		c.Close()
	}
	s.pipes = nil
}

func (s *stage) close() {
	s.closePipes()
	for _, c := range s.files {
		c.Close()
	}
	s.files = nil
}

// runPipeline 展开、连接并运行一个管道，等待所有命令结束
func (e *Executor) runPipeline(ctx context.Context, commands []*parser.CommandLine) (int, error) {
	stages := make([]*stage, 0, len(commands))
	cleanup := func() {
		for _, st := range stages {
			st.close()
		}
	}

	for _, c := range commands {
		st, err := e.prepare(ctx, c)
		if err != nil {
			cleanup()
			return exitCodeOf(err), err
		}
		st.stdin, st.stdout, st.stderr = e.stdin, e.stdout, e.stderr
		stages = append(stages, st)
	}

	for i := 0; i < len(stages)-1; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			cleanup()
			err := newExecutionError(ExecutionErrorTypePipeError, err.Error(), "", nil, err)
			return err.ExitCode(), err
		}
		stages[i].stdout = w
		stages[i].pipes = append(stages[i].pipes, w)
		stages[i+1].stdin = r
		stages[i+1].pipes = append(stages[i+1].pipes, r)
	}

	for _, st := range stages {
		if err := e.applyRedirects(st); err != nil {
			cleanup()
			return exitCodeOf(err), err
		}
	}

	statuses := make([]int, len(stages))
	errs := make([]error, len(stages))
	var wg sync.WaitGroup
	for i, st := range stages {
		if st.builtin != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer st.close()
				statuses[i], errs[i] = e.runBuiltin(st, i < len(stages)-1)
			}()
			continue
		}

		cmd := exec.CommandContext(ctx, st.path, st.flat.Args...)
		cmd.Args[0] = st.flat.Command
		cmd.Env = e.env.Overlay(st.flat.EnvMap()).Environ()
		cmd.Stdin, cmd.Stdout, cmd.Stderr = st.stdin, st.stdout, st.stderr

		e.logger.Debug("启动命令", "path", st.path, "args", st.flat.Args)
		if err := cmd.Start(); err != nil {
			st.close()
			errs[i] = newExecutionError(ExecutionErrorTypeCommandFailed, "", st.flat.Command, st.flat.Args, err)
			statuses[i] = exitCodeOf(errs[i])
			continue
		}
		st.closePipes()

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer st.close()
			statuses[i] = waitStatus(cmd.Wait())
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		err := newExecutionError(ExecutionErrorTypeInterrupted, "", "", nil, ctx.Err())
		return err.ExitCode(), err
	}

	last := len(stages) - 1
	for i, err := range errs {
		var exitErr *builtin.ExitError
		if err == nil || errors.As(err, &exitErr) && len(stages) > 1 {
			continue
		}
		return statuses[last], errs[i]
	}
	return statuses[last], nil
}

// prepare 展开一条命令并确定如何执行它
func (e *Executor) prepare(ctx context.Context, c *parser.CommandLine) (*stage, error) {
	flat, err := e.eval.Flatten(ctx, c)
	if err != nil {
		if ctx.Err() != nil {
			return nil, newExecutionError(ExecutionErrorTypeInterrupted, "", "", nil, err)
		}
		return nil, newExecutionError(ExecutionErrorTypeSubstitutionError, "", "", nil, err)
	}

	st := &stage{flat: flat}
	if fn, ok := e.builtins[flat.Command]; ok {
		st.builtin = fn
		return st, nil
	}

	path := e.env.Overlay(flat.EnvMap()).Get("PATH")
	resolved, err := builtin.Resolve(flat.Command, path)
	if err != nil || flat.Command == "" {
		return nil, newExecutionError(ExecutionErrorTypeCommandNotFound, "", flat.Command, flat.Args, nil)
	}
	st.path = resolved
	return st, nil
}

// applyRedirects 按出现顺序应用重定向，后面的重定向覆盖前面的
// 先检查全部组合是否有效，避免无效的命令行创建文件
func (e *Executor) applyRedirects(st *stage) error {
	for _, r := range st.flat.Redirects {
		if !validRedirect(r) {
			return newExecutionError(ExecutionErrorTypeInvalidRedirect, r.String(), st.flat.Command, st.flat.Args, nil)
		}
	}

	for _, r := range st.flat.Redirects {
		if r.Target == "" {
			return newExecutionError(ExecutionErrorTypeRedirectError, "重定向目标为空", st.flat.Command, st.flat.Args, nil)
		}

		flag := os.O_RDONLY
		switch r.Type {
		case parser.RedirectOut:
			flag = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		case parser.RedirectAppend:
			flag = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		}
		file, err := e.fs.OpenFile(r.Target, flag, 0o644)
		if err != nil {
			return newExecutionError(ExecutionErrorTypeRedirectError, r.Target, st.flat.Command, st.flat.Args, err)
		}
		st.files = append(st.files, file)

		switch {
		case r.Type == parser.RedirectIn:
			st.stdin = file
		case r.Fd == parser.FdStderr:
			st.stderr = file
		case r.Fd == parser.FdAll:
			st.stdout = file
			st.stderr = file
		default:
			st.stdout = file
		}
	}
	return nil
}

// validRedirect < 只能用于标准输入，> 和 >> 不能用于标准输入
func validRedirect(r evaluator.Redirect) bool {
	if r.Type == parser.RedirectIn {
		return r.Fd == parser.FdDefault || r.Fd == parser.FdStdin
	}
	return r.Fd != parser.FdStdin
}

// runBuiltin 在当前进程中运行内置命令
// piped 为 true 时标准输出连着下一段管道，下游已经退出导致的 EPIPE 不报告
func (e *Executor) runBuiltin(st *stage, piped bool) (int, error) {
	ctx := &builtin.Context{
		Stdin:   st.stdin,
		Stdout:  st.stdout,
		Stderr:  st.stderr,
		Env:     e.env,
		History: e.history,
	}
	if len(st.flat.Env) > 0 {
		ctx.Env = e.env.Overlay(st.flat.EnvMap())
	}

	e.logger.Debug("执行内置命令", "command", st.flat.Command, "args", st.flat.Args)
	err := st.builtin(ctx, st.flat.Args)
	if err == nil {
		return 0, nil
	}

	var exitErr *builtin.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, err
	}
	if piped && errors.Is(err, syscall.EPIPE) {
		e.logger.Debug("管道读端已关闭", "command", st.flat.Command)
		return 128 + int(syscall.SIGPIPE), nil
	}
	var statusErr *builtin.StatusError
	if !errors.As(err, &statusErr) {
		io.WriteString(st.stderr, st.flat.Command+": "+err.Error()+"\n")
	}
	return builtin.ExitCode(err), nil
}

// waitStatus 把 Wait 的结果转换为退出码
func waitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code
		}
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return 128 + int(syscall.SIGKILL)
	}
	return 1
}

// exitCodeOf 返回错误对应的退出码
func exitCodeOf(err error) int {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.ExitCode()
	}
	return builtin.ExitCode(err)
}

// lockedBuffer 可以被多个命令并发写入的缓冲区
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
