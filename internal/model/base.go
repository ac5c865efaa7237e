package model

import "time"

// BaseModel 通用审计字段（所有业务模型嵌入）
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// AllModels 返回需要建表的全部模型，顺序即外键依赖顺序
func AllModels() []interface{} {
	return []interface{}{
		&Field{},
		&Plot{},
		&ImportSession{},
	}
}
