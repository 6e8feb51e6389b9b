// Package protocol 定义控制端与后台之间的消息格式
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"opushelper/internal/menu"
	"opushelper/pkg/domain"

	"github.com/tidwall/gjson"
)

// Action 消息类型
type Action string

const (
	ActionGetSettings         Action = "getSettings"
	ActionSaveSettings        Action = "saveSettings"
	ActionResetSettings       Action = "resetSettings"
	ActionHandleImages        Action = "handleImages"
	ActionLog                 Action = "log"
	ActionExecuteQuickActions Action = "executeQuickActions"
	ActionRunOnTab            Action = "runOnTab"
	ActionExecuteOnAllTabs    Action = "executeOnAllTabs"
	ActionMenuClick           Action = "menuClick"
	ActionListMenus           Action = "listMenus"
	ActionListTabs            Action = "listTabs"
	ActionCheckScript         Action = "checkScript"
	ActionLoadScript          Action = "loadScript"
)

var (
	// ErrMissingAction 消息缺少 action
	ErrMissingAction = errors.New("missing action")
	// ErrInvalidParams 消息参数缺失或不合法
	ErrInvalidParams = errors.New("invalid params")
)

// Request 请求消息，各 action 只使用其中部分字段
type Request struct {
	ID           string             `json:"id,omitempty"`
	Action       Action             `json:"action"`
	TabID        domain.TabID       `json:"tabId,omitempty"`
	Settings     json.RawMessage    `json:"settings,omitempty"`
	ImageURLs    []string           `json:"imageUrls,omitempty"`
	ImageAction  domain.ImageAction `json:"imageAction,omitempty"`
	Message      string             `json:"message,omitempty"`
	MenuItemID   string             `json:"menuItemId,omitempty"`
	FunctionName string             `json:"functionName,omitempty"`
	URL          string             `json:"url,omitempty"`
}

// SourceTag 日志来源标记，带标签页的消息来自页面，否则来自弹窗
func (r Request) SourceTag() string {
	if r.TabID != "" {
		return "[Content]"
	}
	return "[Popup]"
}

// Decode 解析请求。
// 同时接受 {"action":...} 平铺格式与 {"method":...,"params":{...}} 信封格式。
func Decode(data []byte) (Request, error) {
	var req Request
	if !gjson.ValidBytes(data) {
		return req, fmt.Errorf("invalid json")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return req, fmt.Errorf("request must be an object")
	}

	body := data
	action := root.Get("action")
	if !action.Exists() {
		action = root.Get("method")
		if p := root.Get("params"); p.IsObject() {
			body = []byte(p.Raw)
		}
	}
	if action.Type != gjson.String || action.String() == "" {
		return req, ErrMissingAction
	}

	if err := json.Unmarshal(body, &req); err != nil {
		return req, err
	}
	req.Action = Action(action.String())
	req.ID = root.Get("id").String()
	return req, nil
}

// Response 响应信封
type Response struct {
	ID     string       `json:"id,omitempty"`
	Result any          `json:"result,omitempty"`
	Error  *ErrorObject `json:"error,omitempty"`
}

// ErrorObject 错误信息
type ErrorObject struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SettingsReply getSettings 的结果
type SettingsReply struct {
	Settings domain.Settings `json:"settings"`
}

// Ack 仅表示已受理
type Ack struct {
	Success bool `json:"success"`
}

// OK 已受理
var OK = Ack{Success: true}

// ScriptReply checkScript 的结果
type ScriptReply struct {
	Exists bool `json:"exists"`
}

// MenusReply listMenus 的结果
type MenusReply struct {
	Menus []menu.Entry `json:"menus"`
}

// TabsReply listTabs 的结果
type TabsReply struct {
	Tabs []domain.Tab `json:"tabs"`
}
