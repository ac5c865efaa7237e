package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/RodrigoBertipalha/AppColheita/internal/model"
	"github.com/RodrigoBertipalha/AppColheita/internal/repository"
)

// ── 地块定位错误 ──

var (
	ErrPlotNotFound = errors.New("地块不存在")
	ErrEmptyRecid   = errors.New("recid 不能为空")
)

// suggestionLimit 未找到时最多返回的候选数
const suggestionLimit = 3

// NotFoundError 未找到地块，附带近似候选
// errors.Is(err, ErrPlotNotFound) 成立
type NotFoundError struct {
	Recid       string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("地块不存在: %s", e.Recid)
	}
	return fmt.Sprintf("地块不存在: %s（可能是: %s）", e.Recid, strings.Join(e.Suggestions, ", "))
}

// Is 与 ErrPlotNotFound 等价
func (e *NotFoundError) Is(target error) bool {
	return target == ErrPlotNotFound
}

// MatchTier 命中的匹配层级
type MatchTier string

const (
	MatchExact   MatchTier = "exact"   // 精确匹配
	MatchPartial MatchTier = "partial" // 田块内双向包含
	MatchPattern MatchTier = "pattern" // 全库模糊匹配
)

// Resolver 按层级解析扫码得到的 recid
// 扫码枪可能带前后缀，也可能截断，精确匹配失败不算错误
type Resolver struct {
	plots repository.PlotRepository
}

// NewResolver 创建 Resolver
func NewResolver(plots repository.PlotRepository) *Resolver {
	return &Resolver{plots: plots}
}

// Resolve 解析 target，最多返回一个地块；fieldID 为 0 表示不限定田块
//  1. 精确匹配
//  2. 限定田块时：田块内按 recid 升序，取第一个与 target 互相包含的地块
//  3. 未限定田块时：全库 LIKE %target%，按 recid 升序取第一条
func (r *Resolver) Resolve(ctx context.Context, fieldID uint, target string) (*model.Plot, MatchTier, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, "", ErrEmptyRecid
	}

	plot, err := r.plots.GetByRecidInField(ctx, fieldID, target)
	if err == nil {
		return plot, MatchExact, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	if fieldID != 0 {
		candidates, err := r.plots.ListByField(ctx, fieldID)
		if err != nil {
			return nil, "", err
		}
		for i := range candidates {
			recid := candidates[i].Recid
			if strings.Contains(target, recid) || strings.Contains(recid, target) {
				return &candidates[i], MatchPartial, nil
			}
		}
		return nil, "", ErrPlotNotFound
	}

	plot, err = r.plots.FindByRecidContaining(ctx, target)
	if err == nil {
		return plot, MatchPattern, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrPlotNotFound
	}
	return nil, "", err
}

// Suggest 忽略大小写的双向包含候选，按 recid 升序取前 limit 个
func (r *Resolver) Suggest(ctx context.Context, fieldID uint, target string, limit int) ([]string, error) {
	needle := strings.ToLower(strings.TrimSpace(target))
	if needle == "" || limit <= 0 {
		return nil, nil
	}
	candidates, _, err := r.plots.List(ctx, repository.PlotFilter{FieldID: fieldID, IncludeDiscarded: true})
	if err != nil {
		return nil, err
	}

	suggestions := make([]string, 0, limit)
	for _, p := range candidates {
		recid := strings.ToLower(p.Recid)
		if strings.Contains(recid, needle) || strings.Contains(needle, recid) {
			suggestions = append(suggestions, p.Recid)
			if len(suggestions) == limit {
				break
			}
		}
	}
	return suggestions, nil
}
