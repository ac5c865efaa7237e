package spreadsheet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNoSheet 工作簿中没有任何工作表
var ErrNoSheet = errors.New("工作簿中没有工作表")

// SourceUnreadableError 源表格无法打开或读取
type SourceUnreadableError struct {
	Path string
	Err  error
}

func (e *SourceUnreadableError) Error() string {
	return fmt.Sprintf("无法读取表格 %s: %v", e.Path, e.Err)
}

func (e *SourceUnreadableError) Unwrap() error { return e.Err }

// 导出时追加的状态列
const (
	ColumnHarvested = "harvested"
	ColumnDiscarded = "discarded"
)

// patchAliases 导出状态列的表头别名（Fold 后的形式）
var patchAliases = map[string][]string{
	ColumnHarvested: {"harvested", "colhido"},
	ColumnDiscarded: {"discarded"},
}

var wholeNumberRe = regexp.MustCompile(`^-?\d+\.0+$`)

// FormatNumeric 数值单元格为整数时去掉尾部的 ".0"；文本单元格保持原样
func FormatNumeric(value string, cellType excelize.CellType) string {
	if cellType != excelize.CellTypeNumber && cellType != excelize.CellTypeUnset {
		return value
	}
	if !wholeNumberRe.MatchString(value) {
		return value
	}
	return value[:strings.IndexByte(value, '.')]
}

// openFirstSheet 打开工作簿并读取第一个工作表的原始值
func openFirstSheet(path string) (*excelize.File, string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, "", nil, &SourceUnreadableError{Path: path, Err: err}
	}
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, "", nil, &SourceUnreadableError{Path: path, Err: ErrNoSheet}
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		_ = f.Close()
		return nil, "", nil, &SourceUnreadableError{Path: path, Err: err}
	}

	for r, row := range rows {
		for c, v := range row {
			if !wholeNumberRe.MatchString(v) {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				continue
			}
			cellType, err := f.GetCellType(sheet, cell)
			if err != nil {
				continue
			}
			row[c] = FormatNumeric(v, cellType)
		}
	}
	return f, sheet, rows, nil
}

// ReadRows 读取第一个工作表：首行为表头，其余为数据行
func ReadRows(path string) ([]string, [][]string, error) {
	f, _, rows, err := openFirstSheet(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	if len(rows) == 0 {
		return nil, nil, nil
	}
	return rows[0], rows[1:], nil
}

// Cell 预览中的一个单元格
type Cell struct {
	Header string `json:"header"`
	Value  string `json:"value"`
}

// PreviewRow 按列顺序排列的一行预览
type PreviewRow struct {
	Cells []Cell `json:"cells"`
}

// Get 按表头取值
func (r PreviewRow) Get(header string) (string, bool) {
	for _, c := range r.Cells {
		if c.Header == header {
			return c.Value, true
		}
	}
	return "", false
}

// Preview 前 limit 行数据的预览，只包含非空表头的列
func Preview(path string, limit int) ([]string, []PreviewRow, error) {
	header, rows, err := ReadRows(path)
	if err != nil {
		return nil, nil, err
	}

	type column struct {
		index  int
		header string
	}
	var columns []column
	headers := make([]string, 0, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		columns = append(columns, column{index: i, header: h})
		headers = append(headers, h)
	}

	preview := make([]PreviewRow, 0, limit)
	for _, row := range rows {
		if len(preview) >= limit {
			break
		}
		if isBlankRow(row) {
			continue
		}
		pr := PreviewRow{Cells: make([]Cell, 0, len(columns))}
		for _, col := range columns {
			pr.Cells = append(pr.Cells, Cell{Header: col.header, Value: cellAt(row, col.index)})
		}
		preview = append(preview, pr)
	}
	return headers, preview, nil
}

// PatchColumns 按 recid 写入数值标记并另存为 dst
// updates: recid -> 列名 -> 值；缺失的列追加在最宽一行之后，其余单元格保持不变
func PatchColumns(src, dst string, updates map[string]map[string]float64) error {
	f, sheet, rows, err := openFirstSheet(src)
	if err != nil {
		return err
	}
	defer f.Close()

	var header []string
	if len(rows) > 0 {
		header = rows[0]
	}

	recidIdx := -1
	for i, h := range header {
		if c, ok := aliasIndex[Fold(h)]; ok && c == ColRecid {
			recidIdx = i
			break
		}
	}
	if recidIdx < 0 {
		return &MissingColumnsError{Missing: []Canonical{ColRecid}}
	}

	// 追加列放在最宽一行之后，避免覆盖表头外的数据单元格
	next := 0
	for _, row := range rows {
		next = max(next, len(row))
	}

	columnIdx := make(map[string]int)
	for _, name := range patchColumnNames(updates) {
		idx := findPatchColumn(header, name)
		if idx < 0 {
			idx = next
			next++
			cell, err := excelize.CoordinatesToCellName(idx+1, 1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, name); err != nil {
				return fmt.Errorf("写入表头失败: %w", err)
			}
		}
		columnIdx[name] = idx
	}

	for r := 1; r < len(rows); r++ {
		recid := cellAt(rows[r], recidIdx)
		if recid == "" {
			continue
		}
		values, ok := updates[recid]
		if !ok {
			continue
		}
		for name, v := range values {
			cell, err := excelize.CoordinatesToCellName(columnIdx[name]+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("写入单元格 %s 失败: %w", cell, err)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("创建导出目录失败: %w", err)
	}
	if err := f.SaveAs(dst); err != nil {
		return fmt.Errorf("保存导出文件失败: %w", err)
	}
	return nil
}

// patchColumnNames 待写入的列名：状态列固定在前，其余按名称排序
func patchColumnNames(updates map[string]map[string]float64) []string {
	seen := make(map[string]struct{})
	for _, values := range updates {
		for name := range values {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for _, name := range []string{ColumnHarvested, ColumnDiscarded} {
		if _, ok := seen[name]; ok {
			names = append(names, name)
			delete(seen, name)
		}
	}
	rest := make([]string, 0, len(seen))
	for name := range seen {
		rest = append(rest, name)
	}
	sort.Strings(rest)
	return append(names, rest...)
}

func findPatchColumn(header []string, name string) int {
	aliases, ok := patchAliases[name]
	if !ok {
		aliases = []string{Fold(name)}
	}
	for i, h := range header {
		key := Fold(h)
		for _, a := range aliases {
			if key == a {
				return i
			}
		}
	}
	return -1
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
