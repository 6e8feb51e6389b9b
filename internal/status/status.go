// Package status 将执行结果归纳为一条面向用户的状态消息
package status

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"opushelper/internal/orchestrator"
	"opushelper/pkg/domain"
	"opushelper/pkg/errx"

	"github.com/fatih/color"
)

// Kind 状态类别
type Kind int

const (
	KindSuccess Kind = iota
	KindWarning
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindWarning:
		return "warning"
	default:
		return "error"
	}
}

// Status 一次操作的最终状态
type Status struct {
	Kind    Kind
	Message string
}

// 消息文本
const (
	MsgSaved           = "设置已保存"
	MsgSaveFailed      = "保存失败，请重试"
	MsgNothingDone     = "未执行任何操作或操作失败"
	MsgNoPostPages     = "未检测到任何动态页面"
	MsgNotPostPage     = "请在哔哩哔哩动态页面使用此功能"
	MsgNoActiveTab     = "未找到活跃标签页"
	MsgRefreshAndRetry = "执行失败，请刷新页面重试"
	MsgRetry           = "执行失败，请重试"
)

// coded 带错误码的错误，远端错误也实现该接口
type coded interface {
	ErrorCode() string
}

// Saved 保存偏好后的状态
func Saved(err error) Status {
	if err != nil {
		return Status{Kind: KindError, Message: MsgSaveFailed}
	}
	return Status{Kind: KindSuccess, Message: MsgSaved}
}

// FromResult 单页执行后的状态，成功时列出成功的动作
func FromResult(res domain.ActionResult, err error) Status {
	if err != nil {
		return Status{Kind: KindError, Message: errorMessage(err)}
	}
	names := succeeded(res)
	if len(names) == 0 {
		return Status{Kind: KindWarning, Message: MsgNothingDone}
	}
	return Status{Kind: KindSuccess, Message: "快捷操作执行成功：" + strings.Join(names, "、")}
}

// FromSweep 全标签执行后的状态
func FromSweep(sum domain.SweepSummary, err error) Status {
	if err != nil {
		return Status{Kind: KindError, Message: errorMessage(err)}
	}
	if !sum.OverallSuccess {
		if sum.Message == orchestrator.MessageNoMatchingPages {
			return Status{Kind: KindWarning, Message: MsgNoPostPages}
		}
		if sum.Message == "" {
			return Status{Kind: KindError, Message: MsgRetry}
		}
		return Status{Kind: KindError, Message: sum.Message}
	}
	msg := fmt.Sprintf("已完成所有动态页面的快捷操作：成功 %d 个，失败 %d 个", sum.SuccessCount, sum.ErrorCount)
	if sum.SuccessCount == 0 {
		return Status{Kind: KindWarning, Message: msg}
	}
	return Status{Kind: KindSuccess, Message: msg}
}

func succeeded(res domain.ActionResult) []string {
	names := make([]string, 0, 3)
	if res.Like.IsSuccess() {
		names = append(names, "点赞")
	}
	if res.Favorite.IsSuccess() {
		names = append(names, "收藏")
	}
	if len(res.ImageURLs) > 0 {
		names = append(names, "图片处理")
	}
	return names
}

func errorMessage(err error) string {
	code := string(errx.CodeOf(err))
	var c coded
	if code == "" && errors.As(err, &c) {
		code = c.ErrorCode()
	}
	switch errx.Code(code) {
	case errx.CodeNotPostPage:
		return MsgNotPostPage
	case errx.CodeNoActiveTab:
		return MsgNoActiveTab
	case errx.CodeInjectionFailed, errx.CodeInvocationFailed, errx.CodeTabNotReady:
		return MsgRefreshAndRetry
	case errx.CodeSettingsFailed:
		return MsgSaveFailed
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return MsgRetry
}

var (
	colorSuccess = color.New(color.FgGreen, color.Bold)
	colorWarning = color.New(color.FgYellow, color.Bold)
	colorError   = color.New(color.FgRed, color.Bold)
)

// Icon 状态前缀符号
func (s Status) Icon() string {
	switch s.Kind {
	case KindSuccess:
		return "✓"
	case KindWarning:
		return "!"
	default:
		return "✗"
	}
}

// Fprint 以带颜色的形式输出一行状态
func (s Status) Fprint(w io.Writer) {
	c := colorError
	switch s.Kind {
	case KindSuccess:
		c = colorSuccess
	case KindWarning:
		c = colorWarning
	}
	_, _ = c.Fprintf(w, "%s %s\n", s.Icon(), s.Message)
}
