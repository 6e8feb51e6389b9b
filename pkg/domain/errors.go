package domain

import "errors"

// 目标相关错误
var (
	ErrTargetNotFound = errors.New("target not found")
	ErrNoPageTarget   = errors.New("no page target")
)

// 连接相关错误
var (
	ErrDevToolsUnreachable = errors.New("devtools unreachable")
	ErrEvaluateFailed      = errors.New("evaluate failed")
)

// 配置相关错误
var (
	ErrInvalidConfig = errors.New("invalid config")
)

// 数据库相关错误
var (
	ErrDatabaseNotInitialized = errors.New("database not initialized")
)

// 页面控件相关错误
var (
	ErrElementDetached = errors.New("element detached")
)
