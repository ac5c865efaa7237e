package spreadsheet

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// writeWorkbook 生成测试用工作簿，rows[0] 为表头
func writeWorkbook(t *testing.T, name string, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func sampleRows() [][]interface{} {
	return [][]interface{}{
		{"Loc Seq", "entry book name", "range", "row", "recid", "tier", "plot", "GrupoId", "obs"},
		{1, "EB-1", 10, 1, "R001", "A", 101, "G1", "ok"},
		{2, "EB-1", 10, 2, "R002", "A", 102, "G1", "y"},
		{3, "EB-2", 11, 1, "R003", "B", 103, "G2", "x"},
	}
}

func TestFormatNumeric(t *testing.T) {
	assert.Equal(t, "12", FormatNumeric("12.0", excelize.CellTypeNumber))
	assert.Equal(t, "-3", FormatNumeric("-3.00", excelize.CellTypeUnset))
	assert.Equal(t, "12.5", FormatNumeric("12.5", excelize.CellTypeNumber))
	assert.Equal(t, "12.0", FormatNumeric("12.0", excelize.CellTypeSharedString))
	assert.Equal(t, "12.0", FormatNumeric("12.0", excelize.CellTypeInlineString))
	assert.Equal(t, "abc", FormatNumeric("abc", excelize.CellTypeNumber))
}

func TestReadRows_NumericCells(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"a", "b", "c", "d"}))
	require.NoError(t, f.SetCellDefault("Sheet1", "A2", "12.0"))
	require.NoError(t, f.SetCellStr("Sheet1", "B2", "12.0"))
	require.NoError(t, f.SetCellValue("Sheet1", "C2", 12.5))
	require.NoError(t, f.SetCellValue("Sheet1", "D2", 7))
	path := filepath.Join(t.TempDir(), "num.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	header, rows, err := ReadRows(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, header)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"12", "12.0", "12.5", "7"}, rows[0])
}

func TestReadRows_Unreadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a workbook"), 0o644))

	_, _, err := ReadRows(path)
	var sue *SourceUnreadableError
	require.True(t, errors.As(err, &sue))
	assert.Equal(t, path, sue.Path)

	_, _, err = ReadRows(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.True(t, errors.As(err, &sue))
}

func TestParseFile(t *testing.T) {
	path := writeWorkbook(t, "upload-123.xlsx", sampleRows())

	result, err := ParseFile(path, "Talhao Norte.xlsx", zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "Talhao Norte", result.FieldName)
	assert.Equal(t, path, result.SourcePath)
	require.Len(t, result.Plots, 3)
	assert.Equal(t, "1", result.Plots[0].LocSeq)
	assert.Equal(t, "101", result.Plots[0].PlotLabel)
	assert.Equal(t, "G2", result.Plots[2].GroupID)
}

func TestPreview(t *testing.T) {
	rows := sampleRows()
	rows[0] = append(rows[0], "")
	rows = append(rows[:2], append([][]interface{}{{}}, rows[2:]...)...)
	path := writeWorkbook(t, "preview.xlsx", rows)

	headers, preview, err := Preview(path, 2)
	require.NoError(t, err)
	assert.Len(t, headers, 9)
	require.Len(t, preview, 2, "空行不计入预览")

	v, ok := preview[0].Get("recid")
	require.True(t, ok)
	assert.Equal(t, "R001", v)
	assert.Equal(t, "Loc Seq", preview[0].Cells[0].Header)
	v, _ = preview[1].Get("recid")
	assert.Equal(t, "R002", v)

	_, ok = preview[0].Get("nope")
	assert.False(t, ok)
}

func TestPatchColumns_RoundTrip(t *testing.T) {
	src := writeWorkbook(t, "campo.xlsx", sampleRows())
	dst := filepath.Join(t.TempDir(), "out", "campo_export.xlsx")

	updates := map[string]map[string]float64{
		"R001": {ColumnHarvested: 1, ColumnDiscarded: 0},
		"R003": {ColumnHarvested: 0, ColumnDiscarded: 1},
	}
	require.NoError(t, PatchColumns(src, dst, updates))

	header, rows, err := ReadRows(dst)
	require.NoError(t, err)
	require.Len(t, header, 11)
	assert.Equal(t, "harvested", header[9])
	assert.Equal(t, "discarded", header[10])

	assert.Equal(t, "1", rows[0][9])
	assert.Equal(t, "0", rows[0][10])
	assert.Len(t, rows[1], 9, "未知 recid 的行不写入")
	assert.Equal(t, "0", rows[2][9])
	assert.Equal(t, "1", rows[2][10])

	// 其余单元格保持不变
	_, srcRows, err := ReadRows(src)
	require.NoError(t, err)
	for i := range srcRows {
		assert.Equal(t, srcRows[i], rows[i][:len(srcRows[i])])
	}

	// 导出结果可以再次导入
	result, err := ParseFile(dst, "campo.xlsx", zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, result.Plots, 3)
}

func TestPatchColumns_ReusesColhidoColumn(t *testing.T) {
	rows := sampleRows()
	rows[0] = append(rows[0], "Colhido")
	rows[1] = append(rows[1], 0)
	src := writeWorkbook(t, "colhido.xlsx", rows)
	dst := filepath.Join(t.TempDir(), "colhido_out.xlsx")

	require.NoError(t, PatchColumns(src, dst, map[string]map[string]float64{
		"R001": {ColumnHarvested: 1},
	}))

	header, out, err := ReadRows(dst)
	require.NoError(t, err)
	assert.Len(t, header, 10)
	assert.Equal(t, "1", out[0][9])
}

func TestPatchColumns_KeepsCellsBeyondHeader(t *testing.T) {
	rows := sampleRows()
	rows[1] = append(rows[1], "nota-na-coluna-J")
	src := writeWorkbook(t, "largo.xlsx", rows)
	dst := filepath.Join(t.TempDir(), "largo_out.xlsx")

	require.NoError(t, PatchColumns(src, dst, map[string]map[string]float64{
		"R001": {ColumnHarvested: 1, ColumnDiscarded: 0},
	}))

	header, out, err := ReadRows(dst)
	require.NoError(t, err)
	require.Len(t, header, 12)
	assert.Equal(t, "", header[9])
	assert.Equal(t, "harvested", header[10])
	assert.Equal(t, "discarded", header[11])
	assert.Equal(t, "nota-na-coluna-J", out[0][9])
	assert.Equal(t, "1", out[0][10])
	assert.Equal(t, "0", out[0][11])
}

func TestPatchColumns_MissingRecid(t *testing.T) {
	src := writeWorkbook(t, "norecid.xlsx", [][]interface{}{{"a", "b"}, {1, 2}})
	err := PatchColumns(src, filepath.Join(t.TempDir(), "x.xlsx"), nil)
	var mce *MissingColumnsError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, []Canonical{ColRecid}, mce.Missing)
}
