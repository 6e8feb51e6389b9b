package api

import (
	"context"

	"opushelper/internal/protocol"
)

// Service 后台消息处理接口
type Service interface {
	// HandleMessage 处理一条消息，返回值作为响应的 result
	HandleMessage(ctx context.Context, req protocol.Request) (any, error)
}

// Status 后台运行状态
type Status struct {
	Version     string `json:"version"`
	DevToolsURL string `json:"devToolsUrl"`
	Browser     bool   `json:"browser"`
	Attached    int    `json:"attached"`
	Menus       int    `json:"menus"`
	ImageQueue  Queue  `json:"imageQueue"`
}

// Queue 后台图片队列统计
type Queue struct {
	Queued    int   `json:"queued"`
	Capacity  int   `json:"capacity"`
	Submitted int64 `json:"submitted"`
	Dropped   int64 `json:"dropped"`
}

// StatusFunc 采集运行状态
type StatusFunc func(ctx context.Context) Status
