package domain

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// TabID 标签页ID（即 CDP page target ID）
type TabID string

// TabStatus 标签页加载状态，取值同 document.readyState
type TabStatus string

const (
	TabStatusLoading     TabStatus = "loading"
	TabStatusInteractive TabStatus = "interactive"
	TabStatusComplete    TabStatus = "complete"
)

// Tab 标签页信息
type Tab struct {
	ID     TabID     `json:"id"`
	URL    string    `json:"url"`
	Title  string    `json:"title"`
	Status TabStatus `json:"status,omitempty"`
}

// Capability 页面动作类别
type Capability string

const (
	CapabilityLike     Capability = "like"
	CapabilityFavorite Capability = "favorite"
	CapabilityImage    Capability = "image"
)

// OutcomeStatus 单个动作的结果类别，零值表示没有结果
type OutcomeStatus int

const (
	OutcomeUnknown OutcomeStatus = iota
	OutcomeSucceeded
	OutcomeSkipped
	OutcomeFailed
)

// 失败原因
const (
	ReasonAlreadyLiked     = "already liked"
	ReasonAlreadyFavorited = "already favorited"
	ReasonControlNotFound  = "control not found"
	ReasonNoResult         = "no result"
)

// Outcome 单个动作的结果，状态互斥；零值按失败处理
type Outcome struct {
	Status OutcomeStatus
	Action Capability
	Reason string
}

// Succeeded 构造成功结果
func Succeeded(action Capability) Outcome {
	return Outcome{Status: OutcomeSucceeded, Action: action}
}

// Skipped 构造跳过结果
func Skipped(action Capability) Outcome {
	return Outcome{Status: OutcomeSkipped, Action: action}
}

// Failed 构造失败结果
func Failed(action Capability, reason string) Outcome {
	return Outcome{Status: OutcomeFailed, Action: action, Reason: reason}
}

// IsSuccess 是否成功
func (o Outcome) IsSuccess() bool { return o.Status == OutcomeSucceeded }

// IsSkipped 是否跳过
func (o Outcome) IsSkipped() bool { return o.Status == OutcomeSkipped }

// String 返回便于日志阅读的形式
func (o Outcome) String() string {
	switch o.Status {
	case OutcomeSucceeded:
		return fmt.Sprintf("%s: success", o.Action)
	case OutcomeSkipped:
		return fmt.Sprintf("%s: skipped", o.Action)
	default:
		return fmt.Sprintf("%s: failed (%s)", o.Action, o.reason())
	}
}

func (o Outcome) reason() string {
	if o.Status == OutcomeUnknown && o.Reason == "" {
		return ReasonNoResult
	}
	return o.Reason
}

type outcomeWire struct {
	Success *bool      `json:"success,omitempty"`
	Skipped bool       `json:"skipped,omitempty"`
	Action  Capability `json:"action"`
	Reason  string     `json:"reason,omitempty"`
}

// MarshalJSON 输出 {success,action,reason?} 或 {skipped:true,action}
func (o Outcome) MarshalJSON() ([]byte, error) {
	w := outcomeWire{Action: o.Action}
	switch o.Status {
	case OutcomeSkipped:
		w.Skipped = true
	case OutcomeSucceeded:
		ok := true
		w.Success = &ok
	default:
		ok := false
		w.Success = &ok
		w.Reason = o.reason()
	}
	return json.Marshal(w)
}

// UnmarshalJSON 解析 MarshalJSON 的输出
func (o *Outcome) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid outcome json")
	}
	r := gjson.ParseBytes(data)
	o.Action = Capability(r.Get("action").String())
	o.Reason = ""
	switch {
	case r.Get("skipped").Bool():
		o.Status = OutcomeSkipped
	case r.Get("success").Bool():
		o.Status = OutcomeSucceeded
	default:
		o.Status = OutcomeFailed
		o.Reason = r.Get("reason").String()
	}
	return nil
}

// ActionResult 一次页面执行的完整结果
type ActionResult struct {
	Like      Outcome  `json:"like"`
	Favorite  Outcome  `json:"favorite"`
	ImageURLs []string `json:"imageUrls"`
}

// AnySuccess 点赞、收藏任一成功或提取到图片即视为成功
func (r ActionResult) AnySuccess() bool {
	return r.Like.IsSuccess() || r.Favorite.IsSuccess() || len(r.ImageURLs) > 0
}

// TabExecutionReport 全标签执行时单个标签页的记录
type TabExecutionReport struct {
	TabID    TabID         `json:"tabId"`
	URL      string        `json:"url"`
	Injected bool          `json:"injected"`
	Result   *ActionResult `json:"result,omitempty"`
	Reason   string        `json:"reason,omitempty"`
}

// HadSuccess 该标签页是否计入成功
func (r TabExecutionReport) HadSuccess() bool {
	return r.Result != nil && r.Result.AnySuccess()
}

// SweepSummary 全标签执行的汇总
type SweepSummary struct {
	OverallSuccess bool                 `json:"success"`
	Message        string               `json:"message"`
	SuccessCount   int                  `json:"successCount"`
	ErrorCount     int                  `json:"errorCount"`
	Reports        []TabExecutionReport `json:"reports,omitempty"`
}
