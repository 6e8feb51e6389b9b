package repo

import (
	"context"
	"errors"
	"time"

	"opushelper/internal/storage/model"
	"opushelper/pkg/domain"

	"gorm.io/gorm"
)

// ErrSettingNotFound 设置键不存在
var ErrSettingNotFound = errors.New("setting not found")

// SettingsRepo 键值设置仓库
type SettingsRepo struct {
	BaseRepository[model.Setting]
}

// NewSettingsRepo 创建设置仓库实例
func NewSettingsRepo(db *gorm.DB) *SettingsRepo {
	return &SettingsRepo{
		BaseRepository: *NewBaseRepository[model.Setting](db),
	}
}

// Get 获取设置值，不存在时返回 ErrSettingNotFound
func (r *SettingsRepo) Get(ctx context.Context, key string) (string, error) {
	if r == nil || r.Db == nil {
		return "", domain.ErrDatabaseNotInitialized
	}
	setting, err := r.FindOne(ctx, byKey(key))
	if err != nil {
		return "", err
	}
	if setting == nil {
		return "", ErrSettingNotFound
	}
	return setting.Value, nil
}

// Set 设置值（存在则更新，不存在则创建）
func (r *SettingsRepo) Set(ctx context.Context, key, value string) error {
	if r == nil || r.Db == nil {
		return domain.ErrDatabaseNotInitialized
	}
	setting := model.Setting{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	return r.Db.WithContext(ctx).Save(&setting).Error
}

// Update 在事务中读取旧值并写入 fn 返回的新值，旧值不存在时传入空串
func (r *SettingsRepo) Update(ctx context.Context, key string, fn func(old string) (string, error)) error {
	if r == nil || r.Db == nil {
		return domain.ErrDatabaseNotInitialized
	}
	return r.Db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old := ""
		setting, err := r.FindOne(ctx, byKey(key), WithTx(tx))
		if err != nil {
			return err
		}
		if setting != nil {
			old = setting.Value
		}
		value, err := fn(old)
		if err != nil {
			return err
		}
		return tx.Save(&model.Setting{Key: key, Value: value, UpdatedAt: time.Now()}).Error
	})
}

// DeleteByKey 根据 key 删除设置，key 不存在时不报错
func (r *SettingsRepo) DeleteByKey(ctx context.Context, key string) error {
	if r == nil || r.Db == nil {
		return domain.ErrDatabaseNotInitialized
	}
	return r.Delete(ctx, byKey(key))
}

// byKey 按键筛选
func byKey(key string) Filter {
	return FilterFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where("key = ?", key)
	})
}
