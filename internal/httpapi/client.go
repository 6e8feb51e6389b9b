package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"opushelper/internal/menu"
	"opushelper/internal/protocol"
	"opushelper/pkg/api"
	"opushelper/pkg/domain"

	"github.com/google/uuid"
)

// ErrEmptyResult 后台应答缺少 result
var ErrEmptyResult = errors.New("empty result")

// RemoteError 后台返回的错误
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorCode 返回后台错误码
func (e *RemoteError) ErrorCode() string { return e.Code }

// Client 消息端点客户端
type Client struct {
	base string
	hc   *http.Client
}

// NewClient 创建客户端，base 形如 http://127.0.0.1:17321
func NewClient(base string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 2 * time.Minute}
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{base: strings.TrimRight(base, "/"), hc: hc}
}

type envelope struct {
	ID     string          `json:"id"`
	Method protocol.Action `json:"method"`
	Params any             `json:"params,omitempty"`
}

type rawResponse struct {
	ID     string                `json:"id"`
	Result json.RawMessage       `json:"result"`
	Error  *protocol.ErrorObject `json:"error"`
}

// Call 发送一条消息，out 非空时解析 result
func (c *Client) Call(ctx context.Context, action protocol.Action, params any, out any) error {
	body, err := json.Marshal(envelope{ID: uuid.NewString(), Method: action, Params: params})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+PathMessage, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var res rawResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return err
	}
	if res.Error != nil {
		return &RemoteError{Code: res.Error.Code, Message: res.Error.Message}
	}
	if out == nil {
		return nil
	}
	if len(res.Result) == 0 || string(res.Result) == "null" {
		return fmt.Errorf("%w: %s", ErrEmptyResult, action)
	}
	return json.Unmarshal(res.Result, out)
}

// Status 查询后台运行状态
func (c *Client) Status(ctx context.Context) (api.Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+PathStatus, nil)
	if err != nil {
		return api.Status{}, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return api.Status{}, err
	}
	defer resp.Body.Close()

	var res api.Response[api.Status]
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return api.Status{}, err
	}
	if !res.Success {
		return api.Status{}, &RemoteError{Code: res.Code, Message: res.Message}
	}
	return res.Data, nil
}

// GetSettings 读取偏好
func (c *Client) GetSettings(ctx context.Context) (domain.Settings, error) {
	var out protocol.SettingsReply
	err := c.Call(ctx, protocol.ActionGetSettings, nil, &out)
	return out.Settings, err
}

// SaveSettings 保存偏好
func (c *Client) SaveSettings(ctx context.Context, s domain.Settings) error {
	return c.Call(ctx, protocol.ActionSaveSettings, map[string]any{"settings": s}, nil)
}

// SaveSettingsRaw 保存部分偏好字段，raw 为 JSON 对象
func (c *Client) SaveSettingsRaw(ctx context.Context, raw json.RawMessage) error {
	return c.Call(ctx, protocol.ActionSaveSettings, map[string]any{"settings": raw}, nil)
}

// ResetSettings 恢复默认偏好
func (c *Client) ResetSettings(ctx context.Context) (domain.Settings, error) {
	var out protocol.SettingsReply
	err := c.Call(ctx, protocol.ActionResetSettings, nil, &out)
	return out.Settings, err
}

// RunOnTab 在指定标签页执行，id 为空时使用当前标签页
func (c *Client) RunOnTab(ctx context.Context, id domain.TabID) (domain.ActionResult, error) {
	var out domain.ActionResult
	err := c.Call(ctx, protocol.ActionRunOnTab, map[string]any{"tabId": id}, &out)
	return out, err
}

// RunActive 在当前标签页执行
func (c *Client) RunActive(ctx context.Context) (domain.ActionResult, error) {
	return c.RunOnTab(ctx, "")
}

// RunAll 在所有动态页面执行
func (c *Client) RunAll(ctx context.Context) (domain.SweepSummary, error) {
	var out domain.SweepSummary
	err := c.Call(ctx, protocol.ActionExecuteOnAllTabs, nil, &out)
	return out, err
}

// ListTabs 列出标签页
func (c *Client) ListTabs(ctx context.Context) ([]domain.Tab, error) {
	var out protocol.TabsReply
	err := c.Call(ctx, protocol.ActionListTabs, nil, &out)
	return out.Tabs, err
}

// ListMenus 列出菜单项，url 非空时只返回在该页面可见的菜单项
func (c *Client) ListMenus(ctx context.Context, url string) ([]menu.Entry, error) {
	var out protocol.MenusReply
	err := c.Call(ctx, protocol.ActionListMenus, map[string]any{"url": url}, &out)
	return out.Menus, err
}

// MenuClick 触发菜单命令
func (c *Client) MenuClick(ctx context.Context, itemID string, id domain.TabID) (domain.ActionResult, error) {
	var out domain.ActionResult
	err := c.Call(ctx, protocol.ActionMenuClick, map[string]any{"menuItemId": itemID, "tabId": id}, &out)
	return out, err
}
