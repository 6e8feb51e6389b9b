package cdp

import (
	"strings"
	"testing"
)

// TestBridgeScript 桥接脚本需定义同名全局对象并提供 click
func TestBridgeScript(t *testing.T) {
	if !strings.Contains(bridgeScript, "'"+BridgeName+"'") {
		t.Errorf("桥接脚本未定义 %s", BridgeName)
	}
	if !strings.Contains(bridgeScript, "click: function (el)") {
		t.Error("桥接脚本缺少 click")
	}
	if !strings.Contains(clickDecl, BridgeName+".click(this)") {
		t.Errorf("点击声明不符合预期: %s", clickDecl)
	}
}

func TestGlobalDefinedExpr(t *testing.T) {
	got := globalDefinedExpr(BridgeName)
	want := `typeof window["__opusQuickActions"] !== 'undefined'`
	if got != want {
		t.Errorf("预期 %s，实际 %s", want, got)
	}
}
