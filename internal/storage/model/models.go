package model

import (
	"time"
)

// Setting 键值设置表
type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`  // 设置键
	Value     string    `gorm:"type:text" json:"value"` // 设置值
	UpdatedAt time.Time `json:"updatedAt"`              // 更新时间
}

// 预定义的设置 Key
const (
	SettingKeyUserSettings = "settings" // 用户偏好（JSON）
)

// All 返回需要迁移的全部模型
func All() []any {
	return []any{&Setting{}}
}
