package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Filter 筛选器接口
type Filter interface {
	Apply(db *gorm.DB) *gorm.DB
}

// FilterFunc 函数形式的筛选器
type FilterFunc func(db *gorm.DB) *gorm.DB

// Apply 实现 Filter
func (f FilterFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// QueryOption 查询选项
type QueryOption func(*QueryConfig)

// QueryConfig 查询配置
type QueryConfig struct {
	tx *gorm.DB
}

// WithTx 在指定事务中执行查询
func WithTx(tx *gorm.DB) QueryOption {
	return func(c *QueryConfig) {
		c.tx = tx
	}
}

// BaseRepository 基础DAO层
type BaseRepository[T any] struct {
	Db *gorm.DB
}

// NewBaseRepository 创建基础DAO层
func NewBaseRepository[T any](db *gorm.DB) *BaseRepository[T] {
	return &BaseRepository[T]{
		Db: db,
	}
}

// Delete 删除记录，id 可以是主键或 Filter
func (r *BaseRepository[T]) Delete(ctx context.Context, id any, opts ...QueryOption) error {
	query := r.buildQuery(ctx, opts...)
	if filter, ok := id.(Filter); ok {
		return filter.Apply(query).Delete(new(T)).Error
	}
	return query.Delete(new(T), id).Error
}

// FindOne 根据主键或 Filter 查询记录，不存在时返回 nil, nil
func (r *BaseRepository[T]) FindOne(ctx context.Context, id any, opts ...QueryOption) (*T, error) {
	item := new(T)
	query := r.buildQuery(ctx, opts...)
	var err error

	if filter, ok := id.(Filter); ok {
		err = filter.Apply(query).First(item).Error
	} else {
		err = query.First(item, id).Error
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

// buildQuery 构建查询
func (r *BaseRepository[T]) buildQuery(ctx context.Context, opts ...QueryOption) *gorm.DB {
	cfg := &QueryConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.tx != nil {
		return cfg.tx.WithContext(ctx)
	}
	return r.Db.WithContext(ctx)
}
