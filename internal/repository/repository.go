package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Field         FieldRepository
	Plot          PlotRepository
	ImportSession ImportSessionRepository

	db *gorm.DB
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Field:         NewFieldRepo(db),
		Plot:          NewPlotRepo(db),
		ImportSession: NewImportSessionRepo(db),
		db:            db,
	}
}

// DB 返回底层连接（备份等需要原生 SQL 的场景）
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// WithTx 返回绑定到指定事务的 Repository 聚合
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// Transaction 在单个数据库事务中执行 fn，fn 返回错误时整体回滚
// 未绑定连接时（单元测试中的 mock 聚合）直接执行 fn
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
