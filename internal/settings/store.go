// Package settings 负责用户偏好的读取与持久化
package settings

import (
	"context"
	"errors"

	"opushelper/internal/logger"
	"opushelper/internal/storage/model"
	"opushelper/internal/storage/repo"
	"opushelper/pkg/domain"
	"opushelper/pkg/errx"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// KV 持久化键值存储
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Update(ctx context.Context, key string, fn func(old string) (string, error)) error
	DeleteByKey(ctx context.Context, key string) error
}

// Store 用户偏好存储，每次读取都访问底层存储，不做缓存
type Store struct {
	kv  KV
	key string
	log logger.Logger
}

// NewStore 创建偏好存储
func NewStore(kv KV, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{kv: kv, key: model.SettingKeyUserSettings, log: log}
}

// Load 读取偏好，存储中缺失或类型不对的字段使用默认值
func (s *Store) Load(ctx context.Context) (domain.Settings, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, repo.ErrSettingNotFound) {
			return domain.DefaultSettings(), nil
		}
		return domain.DefaultSettings(), errx.Wrap(errx.CodeSettingsFailed, err, "load settings")
	}
	return Merge(raw), nil
}

// Save 写入偏好，保留存储记录中的其他字段
func (s *Store) Save(ctx context.Context, v domain.Settings) error {
	if !v.ImageAction.Valid() {
		return errx.New(errx.CodeSettingsFailed, "invalid imageAction: "+string(v.ImageAction))
	}
	err := s.kv.Update(ctx, s.key, func(old string) (string, error) {
		return Patch(old, v)
	})
	if err != nil {
		return errx.Wrap(errx.CodeSettingsFailed, err, "save settings")
	}
	s.log.Debug("偏好已保存", "like", v.LikeEnabled, "favorite", v.FavoriteEnabled,
		"image", v.ImageEnabled, "imageAction", string(v.ImageAction))
	return nil
}

// Reset 删除存储记录，之后的读取返回默认偏好
func (s *Store) Reset(ctx context.Context) error {
	if err := s.kv.DeleteByKey(ctx, s.key); err != nil {
		return errx.Wrap(errx.CodeSettingsFailed, err, "reset settings")
	}
	s.log.Info("偏好已恢复默认")
	return nil
}

// Merge 将存储记录逐字段合并到默认值上
func Merge(raw string) domain.Settings {
	return Apply(domain.DefaultSettings(), raw)
}

// Apply 将 raw 中出现且类型正确的字段覆盖到 base 上
func Apply(base domain.Settings, raw string) domain.Settings {
	out := base
	if raw == "" || !gjson.Valid(raw) {
		return out
	}
	r := gjson.Parse(raw)
	if !r.IsObject() {
		return out
	}

	boolField := func(name string, dst *bool) {
		if v := r.Get(name); v.IsBool() {
			*dst = v.Bool()
		}
	}
	boolField("likeEnabled", &out.LikeEnabled)
	boolField("favoriteEnabled", &out.FavoriteEnabled)
	boolField("imageEnabled", &out.ImageEnabled)

	if v := r.Get("imageAction"); v.Type == gjson.String {
		if a := domain.ImageAction(v.String()); a.Valid() {
			out.ImageAction = a
		}
	}
	return out
}

// Patch 在原始记录上写入偏好字段
func Patch(raw string, v domain.Settings) (string, error) {
	if raw == "" || !gjson.Valid(raw) || !gjson.Parse(raw).IsObject() {
		raw = "{}"
	}
	var err error
	fields := []struct {
		path  string
		value any
	}{
		{"likeEnabled", v.LikeEnabled},
		{"favoriteEnabled", v.FavoriteEnabled},
		{"imageEnabled", v.ImageEnabled},
		{"imageAction", string(v.ImageAction)},
	}
	for _, f := range fields {
		raw, err = sjson.Set(raw, f.path, f.value)
		if err != nil {
			return "", err
		}
	}
	return raw, nil
}
