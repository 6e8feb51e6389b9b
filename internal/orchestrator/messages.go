package orchestrator

import (
	"context"
	"fmt"

	"opushelper/internal/protocol"
	"opushelper/internal/settings"
	"opushelper/pkg/domain"
	"opushelper/pkg/errx"
)

func invalidParams(format string, args ...any) error {
	return fmt.Errorf("%w: %s", protocol.ErrInvalidParams, fmt.Sprintf(format, args...))
}

// HandleMessage 按 action 路由消息，返回值直接作为响应的 result
func (o *Orchestrator) HandleMessage(ctx context.Context, req protocol.Request) (any, error) {
	o.log.Debug("收到消息", "action", string(req.Action), "id", req.ID, "tab", string(req.TabID))

	switch req.Action {
	case protocol.ActionGetSettings:
		s, err := o.GetSettings(ctx)
		if err != nil {
			return nil, err
		}
		return protocol.SettingsReply{Settings: s}, nil

	case protocol.ActionSaveSettings:
		if len(req.Settings) == 0 {
			return nil, invalidParams("settings is required")
		}
		cur, err := o.GetSettings(ctx)
		if err != nil {
			return nil, err
		}
		next := settings.Apply(cur, string(req.Settings))
		if err := o.SaveSettings(ctx, next); err != nil {
			return nil, err
		}
		return protocol.OK, nil

	case protocol.ActionResetSettings:
		s, err := o.ResetSettings(ctx)
		if err != nil {
			return nil, err
		}
		return protocol.SettingsReply{Settings: s}, nil

	case protocol.ActionHandleImages:
		action := req.ImageAction.Normalize()
		o.log.Info("收到图片处理请求", "count", len(req.ImageURLs), "action", string(action))
		return protocol.Ack{Success: o.HandleImagesAsync(ctx, req.ImageURLs, action)}, nil

	case protocol.ActionLog:
		o.log.Info(req.SourceTag() + " " + req.Message)
		return protocol.OK, nil

	case protocol.ActionExecuteQuickActions:
		cfg := domain.ExecutionConfig(settings.Apply(domain.Settings{ImageAction: domain.ImageActionNone}, string(req.Settings)))
		id, err := o.resolveTab(ctx, req.TabID)
		if err != nil {
			return nil, err
		}
		return o.RunWithConfig(ctx, id, cfg)

	case protocol.ActionRunOnTab:
		if req.TabID == "" {
			_, res, err := o.RunOnActiveTab(ctx)
			if err != nil {
				return nil, err
			}
			return res, nil
		}
		return o.RunOnTab(ctx, req.TabID)

	case protocol.ActionExecuteOnAllTabs:
		return o.RunOnAllTabs(ctx), nil

	case protocol.ActionMenuClick:
		if req.MenuItemID == "" {
			return nil, invalidParams("menuItemId is required")
		}
		return o.RunMenuCommand(ctx, req.MenuItemID, req.TabID)

	case protocol.ActionListMenus:
		if req.URL != "" {
			return protocol.MenusReply{Menus: o.menus.ForURL(req.URL)}, nil
		}
		return protocol.MenusReply{Menus: o.menus.List()}, nil

	case protocol.ActionListTabs:
		tabs, err := o.host.QueryTabs(ctx)
		if err != nil {
			return nil, err
		}
		return protocol.TabsReply{Tabs: tabs}, nil

	case protocol.ActionCheckScript:
		if req.TabID == "" {
			return nil, invalidParams("tabId is required")
		}
		name := req.FunctionName
		if name == "" {
			name = o.bridge
		}
		exists, err := o.inj.Probe(ctx, req.TabID, name)
		if err != nil {
			o.log.Warn("检查脚本失败", "tab", string(req.TabID), "error", err.Error())
			return protocol.ScriptReply{Exists: false}, nil
		}
		return protocol.ScriptReply{Exists: exists}, nil

	case protocol.ActionLoadScript:
		if req.TabID == "" {
			return nil, invalidParams("tabId is required")
		}
		if err := o.inj.Inject(ctx, req.TabID); err != nil {
			return nil, errx.Wrap(errx.CodeInjectionFailed, err, string(req.TabID))
		}
		return protocol.OK, nil
	}

	return nil, errx.New(errx.CodeUnknownCommand, "unknown action: "+string(req.Action))
}

// resolveTab 未指定标签页时使用当前标签页
func (o *Orchestrator) resolveTab(ctx context.Context, id domain.TabID) (domain.TabID, error) {
	if id != "" {
		return id, nil
	}
	tab, err := o.host.ActiveTab(ctx)
	if err != nil {
		return "", err
	}
	return tab.ID, nil
}
