package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/RodrigoBertipalha/AppColheita/internal/model"
	"github.com/RodrigoBertipalha/AppColheita/internal/repository"
)

// ── Mock FieldRepository ──

type mockFieldRepo struct {
	fields map[uint]*model.Field
	nextID uint
	plots  *mockPlotRepo // 删除田块时级联
}

func newMockFieldRepo(plots *mockPlotRepo) *mockFieldRepo {
	return &mockFieldRepo{fields: make(map[uint]*model.Field), nextID: 1, plots: plots}
}

func (m *mockFieldRepo) Create(_ context.Context, field *model.Field) error {
	field.ID = m.nextID
	m.nextID++
	cp := *field
	m.fields[field.ID] = &cp
	return nil
}

func (m *mockFieldRepo) Upsert(ctx context.Context, field *model.Field) error {
	if field.ID == 0 {
		return m.Create(ctx, field)
	}
	cp := *field
	m.fields[field.ID] = &cp
	if field.ID >= m.nextID {
		m.nextID = field.ID + 1
	}
	return nil
}

func (m *mockFieldRepo) GetByID(_ context.Context, id uint) (*model.Field, error) {
	if f, ok := m.fields[id]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockFieldRepo) GetLatest(ctx context.Context) (*model.Field, error) {
	fields, _ := m.List(ctx)
	if len(fields) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &fields[0], nil
}

func (m *mockFieldRepo) List(_ context.Context) ([]model.Field, error) {
	result := make([]model.Field, 0, len(m.fields))
	for _, f := range m.fields {
		result = append(result, *f)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].ImportedAt.Equal(result[j].ImportedAt) {
			return result[i].ImportedAt.After(result[j].ImportedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (m *mockFieldRepo) Delete(ctx context.Context, id uint) error {
	if _, ok := m.fields[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.fields, id)
	return m.plots.DeleteByField(ctx, id)
}

func (m *mockFieldRepo) DeleteAll(_ context.Context) error {
	m.fields = make(map[uint]*model.Field)
	m.plots.plots = make(map[string]*model.Plot)
	return nil
}

// ── Mock PlotRepository ──

type mockPlotRepo struct {
	plots       map[string]*model.Plot
	upsertErr   error // 非空时 UpsertBatch 返回该错误
	upsertCalls int
}

func newMockPlotRepo() *mockPlotRepo {
	return &mockPlotRepo{plots: make(map[string]*model.Plot)}
}

// query 按 recid 升序返回满足条件的地块副本
func (m *mockPlotRepo) query(fieldID uint, pred func(p *model.Plot) bool) []model.Plot {
	var result []model.Plot
	for _, p := range m.plots {
		if fieldID != 0 && p.FieldID != fieldID {
			continue
		}
		if pred != nil && !pred(p) {
			continue
		}
		result = append(result, *p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Recid < result[j].Recid })
	return result
}

func (m *mockPlotRepo) UpsertBatch(_ context.Context, plots []model.Plot) error {
	m.upsertCalls++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	for _, p := range plots {
		cp := p
		m.plots[p.Recid] = &cp
	}
	return nil
}

func (m *mockPlotRepo) GetByRecid(ctx context.Context, recid string) (*model.Plot, error) {
	return m.GetByRecidInField(ctx, 0, recid)
}

func (m *mockPlotRepo) GetByRecidInField(_ context.Context, fieldID uint, recid string) (*model.Plot, error) {
	p, ok := m.plots[recid]
	if !ok || (fieldID != 0 && p.FieldID != fieldID) {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPlotRepo) FindByRecidContaining(_ context.Context, fragment string) (*model.Plot, error) {
	found := m.query(0, func(p *model.Plot) bool { return strings.Contains(p.Recid, fragment) })
	if len(found) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &found[0], nil
}

func (m *mockPlotRepo) ListByField(_ context.Context, fieldID uint) ([]model.Plot, error) {
	return m.query(fieldID, func(p *model.Plot) bool { return p.FieldID == fieldID }), nil
}

func (m *mockPlotRepo) List(_ context.Context, f repository.PlotFilter) ([]model.Plot, int64, error) {
	all := m.query(f.FieldID, func(p *model.Plot) bool {
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Recid), strings.ToLower(f.Search)) {
			return false
		}
		if f.GroupID != "" && p.GroupID != f.GroupID {
			return false
		}
		return f.IncludeDiscarded || !p.Discarded
	})
	total := int64(len(all))
	if f.Limit > 0 {
		start := min(f.Offset, len(all))
		end := min(start+f.Limit, len(all))
		all = all[start:end]
	}
	return all, total, nil
}

func (m *mockPlotRepo) ListByGroup(_ context.Context, fieldID uint, groupID string, includeDiscarded bool) ([]model.Plot, error) {
	return m.query(fieldID, func(p *model.Plot) bool {
		return p.GroupID == groupID && (includeDiscarded || !p.Discarded)
	}), nil
}

func (m *mockPlotRepo) UpdateStatus(_ context.Context, recid string, harvested bool) error {
	p, ok := m.plots[recid]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Harvested = harvested
	return nil
}

func (m *mockPlotRepo) UpdateStatusByGroup(_ context.Context, fieldID uint, groupID string, harvested bool) (int64, error) {
	var n int64
	for _, p := range m.plots {
		if (fieldID != 0 && p.FieldID != fieldID) || p.GroupID != groupID {
			continue
		}
		if harvested && p.Discarded {
			continue
		}
		p.Harvested = harvested
		n++
	}
	return n, nil
}

func (m *mockPlotRepo) UpdateStatusByRecids(_ context.Context, fieldID uint, recids []string, harvested bool) (int64, error) {
	var n int64
	for _, id := range recids {
		p, ok := m.plots[id]
		if !ok || (fieldID != 0 && p.FieldID != fieldID) {
			continue
		}
		if harvested && p.Discarded {
			continue
		}
		p.Harvested = harvested
		n++
	}
	return n, nil
}

func (m *mockPlotRepo) CountTotal(_ context.Context, fieldID uint) (int64, error) {
	return int64(len(m.query(fieldID, nil))), nil
}

func (m *mockPlotRepo) CountHarvested(_ context.Context, fieldID uint) (int64, error) {
	return int64(len(m.query(fieldID, func(p *model.Plot) bool { return p.Harvested }))), nil
}

func (m *mockPlotRepo) CountDiscarded(_ context.Context, fieldID uint) (int64, error) {
	return int64(len(m.query(fieldID, func(p *model.Plot) bool { return p.Discarded }))), nil
}

func (m *mockPlotRepo) GetGroupStats(_ context.Context, fieldID uint, groupID string) (*model.GroupStats, error) {
	stats := &model.GroupStats{GroupID: groupID}
	for _, p := range m.query(fieldID, func(p *model.Plot) bool { return p.GroupID == groupID }) {
		stats.Total++
		if p.Harvested {
			stats.Harvested++
		}
		if p.Discarded {
			stats.Discarded++
		}
	}
	return stats, nil
}

func (m *mockPlotRepo) ListDistinctGroups(_ context.Context, fieldID uint) ([]string, error) {
	seen := make(map[string]struct{})
	var groups []string
	for _, p := range m.query(fieldID, nil) {
		if _, ok := seen[p.GroupID]; !ok {
			seen[p.GroupID] = struct{}{}
			groups = append(groups, p.GroupID)
		}
	}
	sort.Strings(groups)
	return groups, nil
}

func (m *mockPlotRepo) ListGroupStats(ctx context.Context, fieldID uint) ([]model.GroupStats, error) {
	groups, _ := m.ListDistinctGroups(ctx, fieldID)
	result := make([]model.GroupStats, 0, len(groups))
	for _, g := range groups {
		stats, _ := m.GetGroupStats(ctx, fieldID, g)
		result = append(result, *stats)
	}
	return result, nil
}

func (m *mockPlotRepo) GetLastHarvested(_ context.Context, fieldID uint) (*model.Plot, error) {
	harvested := m.query(fieldID, func(p *model.Plot) bool { return p.Harvested })
	if len(harvested) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &harvested[len(harvested)-1], nil
}

func (m *mockPlotRepo) DeleteByField(_ context.Context, fieldID uint) error {
	for recid, p := range m.plots {
		if p.FieldID == fieldID {
			delete(m.plots, recid)
		}
	}
	return nil
}

// ── Mock ImportSessionRepository ──

type mockImportSessionRepo struct {
	sessions []model.ImportSession
}

func newMockImportSessionRepo() *mockImportSessionRepo {
	return &mockImportSessionRepo{}
}

func (m *mockImportSessionRepo) Create(_ context.Context, session *model.ImportSession) error {
	session.ID = uint(len(m.sessions) + 1)
	m.sessions = append(m.sessions, *session)
	return nil
}

func (m *mockImportSessionRepo) ListRecent(_ context.Context, limit int) ([]model.ImportSession, error) {
	var result []model.ImportSession
	for i := len(m.sessions) - 1; i >= 0 && (limit <= 0 || len(result) < limit); i-- {
		result = append(result, m.sessions[i])
	}
	return result, nil
}

// ── Mock Locker ──

type mockLocker struct {
	held     bool
	acquired int
	released int
}

func (m *mockLocker) AcquireLock(_ context.Context, _ string, _ time.Duration) (string, bool, error) {
	if m.held {
		return "", false, nil
	}
	m.held = true
	m.acquired++
	return "token", true, nil
}

func (m *mockLocker) ReleaseLock(_ context.Context, _ string, token string) error {
	if token == "token" {
		m.held = false
		m.released++
	}
	return nil
}

// ── Mock BackupService ──

type mockBackup struct {
	calls int
	err   error
}

func (m *mockBackup) Backup(_ context.Context) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return "/tmp/colheita_backup_1.db", nil
}

func (m *mockBackup) RestoreLatest(_ context.Context) (string, error) { return "", ErrNoBackup }

func (m *mockBackup) List() ([]BackupInfo, error) { return nil, nil }

// ── 测试辅助 ──

type mockRepos struct {
	repo     *repository.Repository
	fields   *mockFieldRepo
	plots    *mockPlotRepo
	sessions *mockImportSessionRepo
}

func newMockRepos() *mockRepos {
	plots := newMockPlotRepo()
	fields := newMockFieldRepo(plots)
	sessions := newMockImportSessionRepo()
	return &mockRepos{
		repo: &repository.Repository{
			Field:         fields,
			Plot:          plots,
			ImportSession: sessions,
		},
		fields:   fields,
		plots:    plots,
		sessions: sessions,
	}
}

// seed 创建一个田块并写入地块
func (m *mockRepos) seed(name string, plots ...model.Plot) *model.Field {
	field := &model.Field{Name: name, ImportedAt: time.Now().UTC(), SourcePath: "/tmp/" + name + ".xlsx"}
	_ = m.fields.Create(context.Background(), field)
	for i := range plots {
		plots[i].FieldID = field.ID
	}
	_ = m.plots.UpsertBatch(context.Background(), plots)
	return field
}
