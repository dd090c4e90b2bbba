package executor

import (
	"fmt"
	"strings"
)

// ExecutionErrorType 执行器错误类型
type ExecutionErrorType int

const (
	ExecutionErrorTypeCommandNotFound ExecutionErrorType = iota // 命令未找到
	ExecutionErrorTypeCommandFailed                             // 命令无法启动
	ExecutionErrorTypeRedirectError                             // 重定向文件无法打开
	ExecutionErrorTypeInvalidRedirect                           // 文件描述符和方向的组合无效
	ExecutionErrorTypePipeError                                 // 管道错误
	ExecutionErrorTypeDanglingPipe                              // 命令链以 | 结尾
	ExecutionErrorTypeSubstitutionError                         // 展开参数时命令替换失败
	ExecutionErrorTypeInterrupted                               // 命令被中断
)

// ExecutionError 表示执行器错误
type ExecutionError struct {
	Type        ExecutionErrorType
	Message     string
	Command     string   // 命令名
	Args        []string // 命令参数
	OriginalErr error    // 原始错误（如果可用）
}

// Error 实现 error 接口
func (e *ExecutionError) Error() string {
	var msg string
	switch e.Type {
	case ExecutionErrorTypeCommandNotFound:
		msg = fmt.Sprintf("命令未找到: %s", e.Command)
	case ExecutionErrorTypeCommandFailed:
		msg = fmt.Sprintf("无法执行命令: %s", e.Command)
	case ExecutionErrorTypeRedirectError:
		msg = fmt.Sprintf("重定向错误: %s", e.Message)
	case ExecutionErrorTypeInvalidRedirect:
		msg = fmt.Sprintf("无效的重定向: %s", e.Message)
	case ExecutionErrorTypePipeError:
		msg = fmt.Sprintf("管道错误: %s", e.Message)
	case ExecutionErrorTypeDanglingPipe:
		msg = "管道 | 之后缺少命令"
	case ExecutionErrorTypeSubstitutionError:
		msg = "命令替换失败"
	case ExecutionErrorTypeInterrupted:
		msg = "命令被中断"
	default:
		msg = e.Message
	}

	// 添加命令和参数信息
	if e.Command != "" && e.Type != ExecutionErrorTypeCommandNotFound && e.Type != ExecutionErrorTypeCommandFailed {
		cmdStr := e.Command
		if len(e.Args) > 0 {
			cmdStr += " " + strings.Join(e.Args, " ")
		}
		msg = fmt.Sprintf("%s: %s", msg, cmdStr)
	}

	// 添加原始错误信息
	if e.OriginalErr != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.OriginalErr)
	}

	return msg
}

// Unwrap 返回原始错误
func (e *ExecutionError) Unwrap() error {
	return e.OriginalErr
}

// ExitCode 返回退出码
func (e *ExecutionError) ExitCode() int {
	// 根据错误类型返回退出码
	switch e.Type {
	case ExecutionErrorTypeCommandNotFound:
		return 127 // bash 中命令未找到的退出码
	case ExecutionErrorTypeCommandFailed:
		return 126
	case ExecutionErrorTypeDanglingPipe:
		return 2
	case ExecutionErrorTypeInterrupted:
		return 130 // bash 中被中断的退出码
	default:
		return 1
	}
}

// String 返回错误的字符串表示
func (e *ExecutionError) String() string {
	return e.Error()
}

// newExecutionError 创建新的执行器错误
func newExecutionError(errType ExecutionErrorType, message, command string, args []string, originalErr error) *ExecutionError {
	return &ExecutionError{
		Type:        errType,
		Message:     message,
		Command:     command,
		Args:        args,
		OriginalErr: originalErr,
	}
}
