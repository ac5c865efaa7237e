package spreadsheet

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/RodrigoBertipalha/AppColheita/internal/model"
)

// MaxRecidLength recid 最大字符数，与 plots.recid 列宽一致
const MaxRecidLength = 128

// RowParseError 单行解析失败，只影响该行
type RowParseError struct {
	Row    int // 表格中的行号（表头为第 1 行）
	Recid  string
	Reason string
}

func (e *RowParseError) Error() string {
	return fmt.Sprintf("第 %d 行解析失败: %s", e.Row, e.Reason)
}

// ParseResult 解析结果；Plots 的 FieldID 尚未设置
type ParseResult struct {
	FieldName   string
	SourcePath  string
	Plots       []model.Plot
	RowsRead    int // 数据行数（不含表头）
	RowsSkipped int // recid 为空或解析失败被跳过的行数
	Errors      []*RowParseError
}

// IsDiscardDecision 决策文本是否表示淘汰
func IsDiscardDecision(text string) bool {
	d := strings.ToLower(strings.TrimSpace(text))
	if d == "" {
		return false
	}
	if strings.HasPrefix(d, "d") || strings.Contains(d, "discard") || strings.Contains(d, "descart") {
		return true
	}
	switch d {
	case "1", "true", "yes", "sim":
		return true
	}
	return false
}

// FieldNameFromFile 文件显示名去掉扩展名作为田块名
func FieldNameFromFile(displayName string) string {
	base := filepath.Base(displayName)
	if i := strings.LastIndex(base, "."); i > 0 {
		return base[:i]
	}
	return base
}

// ParseRows 解析表头与数据行
// 表头缺列时直接返回 MissingColumnsError，不解析任何数据行
func ParseRows(header []string, rows [][]string, logger *zap.Logger) (*ParseResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	hm, err := Normalize(header, logger)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{Plots: make([]model.Plot, 0, len(rows))}
	for i, row := range rows {
		result.RowsRead++
		rowNum := i + 2

		recid := cellAt(row, hm.Columns[ColRecid])
		if recid == "" {
			result.RowsSkipped++
			continue
		}
		if perr := validateRecid(rowNum, recid); perr != nil {
			logger.Warn("跳过无法解析的行",
				zap.Int("row", rowNum),
				zap.String("reason", perr.Reason),
			)
			result.RowsSkipped++
			result.Errors = append(result.Errors, perr)
			continue
		}

		decision := ""
		if hm.Decision >= 0 {
			decision = cellAt(row, hm.Decision)
		}

		result.Plots = append(result.Plots, model.Plot{
			Recid:         recid,
			LocSeq:        cellAt(row, hm.Columns[ColLocSeq]),
			EntryBookName: cellAt(row, hm.Columns[ColEntryBookName]),
			Range:         cellAt(row, hm.Columns[ColRange]),
			Row:           cellAt(row, hm.Columns[ColRow]),
			Tier:          cellAt(row, hm.Columns[ColTier]),
			PlotLabel:     cellAt(row, hm.Columns[ColPlot]),
			GroupID:       cellAt(row, hm.Columns[ColGroupID]),
			Harvested:     false,
			Discarded:     IsDiscardDecision(decision),
			Decision:      decision,
		})
	}
	return result, nil
}

// ParseFile 读取表格文件并解析
func ParseFile(path, displayName string, logger *zap.Logger) (*ParseResult, error) {
	header, rows, err := ReadRows(path)
	if err != nil {
		return nil, err
	}
	result, err := ParseRows(header, rows, logger)
	if err != nil {
		return nil, err
	}
	if displayName == "" {
		displayName = filepath.Base(path)
	}
	result.FieldName = FieldNameFromFile(displayName)
	result.SourcePath = path
	return result, nil
}

func validateRecid(rowNum int, recid string) *RowParseError {
	if utf8.RuneCountInString(recid) > MaxRecidLength {
		return &RowParseError{Row: rowNum, Recid: string([]rune(recid)[:MaxRecidLength]), Reason: fmt.Sprintf("recid 超过 %d 个字符", MaxRecidLength)}
	}
	for _, r := range recid {
		if unicode.IsControl(r) {
			return &RowParseError{Row: rowNum, Recid: recid, Reason: "recid 含有控制字符"}
		}
	}
	return nil
}

// cellAt 取单元格去空白后的值，越界返回空串
func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
