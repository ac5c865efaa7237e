package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/RodrigoBertipalha/AppColheita/internal/model"
)

// FieldRepository 田块数据访问接口
type FieldRepository interface {
	Create(ctx context.Context, field *model.Field) error
	Upsert(ctx context.Context, field *model.Field) error
	GetByID(ctx context.Context, id uint) (*model.Field, error)
	GetLatest(ctx context.Context) (*model.Field, error)
	List(ctx context.Context) ([]model.Field, error)
	Delete(ctx context.Context, id uint) error
	DeleteAll(ctx context.Context) error
}

// fieldRepo FieldRepository 的 GORM 实现
type fieldRepo struct {
	db *gorm.DB
}

// NewFieldRepo 创建 FieldRepository 实例
func NewFieldRepo(db *gorm.DB) FieldRepository {
	return &fieldRepo{db: db}
}

func (r *fieldRepo) Create(ctx context.Context, field *model.Field) error {
	return r.db.WithContext(ctx).Create(field).Error
}

// Upsert 按主键写入：ID 已存在则覆盖全部字段，ID 为 0 时新建
func (r *fieldRepo) Upsert(ctx context.Context, field *model.Field) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(field).Error
}

func (r *fieldRepo) GetByID(ctx context.Context, id uint) (*model.Field, error) {
	var field model.Field
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&field).Error
	if err != nil {
		return nil, err
	}
	return &field, nil
}

// GetLatest 最近一次导入的田块；同一时刻导入的按 ID 倒序
func (r *fieldRepo) GetLatest(ctx context.Context) (*model.Field, error) {
	var field model.Field
	err := r.db.WithContext(ctx).
		Order("imported_at DESC").
		Order("id DESC").
		First(&field).Error
	if err != nil {
		return nil, err
	}
	return &field, nil
}

func (r *fieldRepo) List(ctx context.Context) ([]model.Field, error) {
	var fields []model.Field
	err := r.db.WithContext(ctx).
		Order("imported_at DESC").
		Order("id DESC").
		Find(&fields).Error
	return fields, err
}

// Delete 删除田块及其全部地块
// 外键已声明 ON DELETE CASCADE，这里仍显式删除地块，不依赖连接是否开启外键
func (r *fieldRepo) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("field_id = ?", id).Delete(&model.Plot{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&model.Field{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// DeleteAll 清空全部田块与地块（Replace 导入使用）
func (r *fieldRepo) DeleteAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.Plot{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&model.Field{}).Error
	})
}
