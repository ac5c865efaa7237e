package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/RodrigoBertipalha/AppColheita/internal/dto"
	"github.com/RodrigoBertipalha/AppColheita/internal/model"
)

func setupTestFieldService() (FieldService, *mockRepos, *model.Field) {
	repos := newMockRepos()
	field := repos.seed("talhao",
		model.Plot{Recid: "A01", GroupID: "G1", Harvested: true},
		model.Plot{Recid: "A02", GroupID: "G1"},
		model.Plot{Recid: "A03", GroupID: "G2", Discarded: true},
		model.Plot{Recid: "B01", GroupID: "G2"},
	)
	return NewFieldService(repos.repo, zap.NewNop()), repos, field
}

func TestFieldService_CurrentWithoutImport(t *testing.T) {
	repos := newMockRepos()
	svc := NewFieldService(repos.repo, zap.NewNop())

	if _, err := svc.Current(context.Background()); !errors.Is(err, ErrNoField) {
		t.Fatalf("期望 ErrNoField，实际 %v", err)
	}
}

func TestFieldService_CurrentIsLatest(t *testing.T) {
	svc, repos, _ := setupTestFieldService()
	newer := &model.Field{Name: "novo", ImportedAt: time.Now().UTC().Add(time.Hour), SourcePath: "/tmp/novo.xlsx"}
	_ = repos.fields.Create(context.Background(), newer)

	current, err := svc.Current(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if current.ID != newer.ID || current.Name != "novo" {
		t.Errorf("当前田块应为最近导入的一条，实际 %+v", current)
	}

	list, err := svc.List(context.Background())
	if err != nil || len(list) != 2 || list[0].ID != newer.ID {
		t.Errorf("列表应按导入时间倒序: %+v, %v", list, err)
	}
}

func TestFieldService_GetNotFound(t *testing.T) {
	svc, _, _ := setupTestFieldService()
	if _, err := svc.Get(context.Background(), 42); !errors.Is(err, ErrFieldNotFound) {
		t.Fatalf("期望 ErrFieldNotFound，实际 %v", err)
	}
}

func TestFieldService_Dashboard(t *testing.T) {
	svc, _, field := setupTestFieldService()

	dash, err := svc.Dashboard(context.Background(), field.ID)
	if err != nil {
		t.Fatalf("Dashboard 应成功: %v", err)
	}
	if dash.Counts != model.NewHarvestCounts(4, 1, 1) {
		t.Errorf("计数错误: %+v", dash.Counts)
	}
	if len(dash.Groups) != 2 || dash.Groups[0].GroupID != "G1" {
		t.Fatalf("分组应按 group_id 排序: %+v", dash.Groups)
	}
	if dash.Groups[0].HarvestedPercentage != 50 {
		t.Errorf("G1 收获比例应为 50，实际 %v", dash.Groups[0].HarvestedPercentage)
	}
	if dash.Groups[1].Discarded != 1 {
		t.Errorf("G2 应有 1 个淘汰地块，实际 %d", dash.Groups[1].Discarded)
	}
}

func TestFieldService_ListPlots(t *testing.T) {
	svc, _, field := setupTestFieldService()
	ctx := context.Background()

	plots, total, err := svc.ListPlots(ctx, field.ID, &dto.PlotListRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(plots) != 3 {
		t.Errorf("默认不含淘汰地块，期望 3，实际 %d/%d", total, len(plots))
	}

	plots, total, err = svc.ListPlots(ctx, field.ID, &dto.PlotListRequest{
		PaginationRequest: dto.PaginationRequest{Page: 2, PageSize: 1},
		Search:            "a0",
		IncludeDiscarded:  true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 || len(plots) != 1 || plots[0].Recid != "A02" {
		t.Errorf("搜索分页结果错误: total=%d plots=%+v", total, plots)
	}
	if plots[0].Status != model.PlotStatusPending {
		t.Errorf("A02 状态应为 pending，实际 %s", plots[0].Status)
	}
}

func TestFieldService_GroupPlots(t *testing.T) {
	svc, _, field := setupTestFieldService()
	ctx := context.Background()

	plots, err := svc.GroupPlots(ctx, field.ID, "G2", false)
	if err != nil || len(plots) != 1 || plots[0].Recid != "B01" {
		t.Errorf("G2 未淘汰地块应只有 B01: %+v, %v", plots, err)
	}
	plots, err = svc.GroupPlots(ctx, field.ID, "G2", true)
	if err != nil || len(plots) != 2 {
		t.Errorf("包含淘汰时 G2 应有 2 个地块: %+v, %v", plots, err)
	}
	if _, err := svc.GroupPlots(ctx, field.ID, "G404", false); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("期望 ErrGroupNotFound，实际 %v", err)
	}

	groups, err := svc.ListGroups(ctx, field.ID)
	if err != nil || len(groups) != 2 {
		t.Errorf("应有 2 个分组: %+v, %v", groups, err)
	}
}

func TestFieldService_DeleteCascades(t *testing.T) {
	svc, repos, field := setupTestFieldService()
	ctx := context.Background()

	if err := svc.Delete(ctx, field.ID); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if len(repos.plots.plots) != 0 {
		t.Errorf("删除田块后地块应一并删除，剩余 %d", len(repos.plots.plots))
	}
	if err := svc.Delete(ctx, field.ID); !errors.Is(err, ErrFieldNotFound) {
		t.Errorf("重复删除期望 ErrFieldNotFound，实际 %v", err)
	}
}
