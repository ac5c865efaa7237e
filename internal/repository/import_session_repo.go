package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/RodrigoBertipalha/AppColheita/internal/model"
)

// ImportSessionRepository 导入记录数据访问接口
type ImportSessionRepository interface {
	Create(ctx context.Context, session *model.ImportSession) error
	ListRecent(ctx context.Context, limit int) ([]model.ImportSession, error)
}

type importSessionRepo struct {
	db *gorm.DB
}

// NewImportSessionRepo 创建 ImportSessionRepository 实例
func NewImportSessionRepo(db *gorm.DB) ImportSessionRepository {
	return &importSessionRepo{db: db}
}

func (r *importSessionRepo) Create(ctx context.Context, session *model.ImportSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *importSessionRepo) ListRecent(ctx context.Context, limit int) ([]model.ImportSession, error) {
	var sessions []model.ImportSession
	query := r.db.WithContext(ctx).
		Order("imported_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&sessions).Error
	return sessions, err
}
