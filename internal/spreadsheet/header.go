package spreadsheet

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Canonical 标准列名
type Canonical string

const (
	ColLocSeq        Canonical = "loc_seq"
	ColEntryBookName Canonical = "entry_book_name"
	ColRange         Canonical = "range"
	ColRow           Canonical = "row"
	ColRecid         Canonical = "recid"
	ColTier          Canonical = "tier"
	ColPlot          Canonical = "plot"
	ColGroupID       Canonical = "group_id"
)

// CanonicalOrder 必需列，缺列报告按此顺序输出
var CanonicalOrder = []Canonical{
	ColLocSeq, ColEntryBookName, ColRange, ColRow, ColRecid, ColTier, ColPlot, ColGroupID,
}

// primarySpellings 原始表格中的表头写法
var primarySpellings = map[Canonical]string{
	ColLocSeq:        "Loc Seq",
	ColEntryBookName: "entry book name",
	ColRange:         "range",
	ColRow:           "row",
	ColRecid:         "recid",
	ColTier:          "tier",
	ColPlot:          "plot",
	ColGroupID:       "GrupoId",
}

// headerAliases 别名均以 Fold 后的形式存放，各列之间互不重叠
var headerAliases = map[Canonical][]string{
	ColLocSeq:        {"loc seq", "locseq", "loc_seq", "loc-seq", "location sequence"},
	ColEntryBookName: {"entry book name", "entrybookname", "entry_book_name", "entry book"},
	ColRange:         {"range", "faixa"},
	ColRow:           {"row", "linha", "fila"},
	ColRecid:         {"recid", "rec_id", "rec id", "record id"},
	ColTier:          {"tier", "nivel"},
	ColPlot:          {"plot", "parcela", "plot label"},
	ColGroupID:       {"grupoid", "grupo id", "grupo_id", "grupo", "group id", "group_id", "groupid", "group"},
}

// decisionAliases 可选的决策列
var decisionAliases = []string{"decision", "descartado", "discard"}

// Header 标准列在原始表格中的写法
func (c Canonical) Header() string {
	if s, ok := primarySpellings[c]; ok {
		return s
	}
	return string(c)
}

// Fold 表头匹配键：去首尾空白、转小写、去掉重音符号
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return folded
}

// aliasIndex Fold 后的别名 -> 标准列
var aliasIndex = func() map[string]Canonical {
	idx := make(map[string]Canonical)
	for c, aliases := range headerAliases {
		for _, a := range aliases {
			idx[a] = c
		}
	}
	return idx
}()

// HeaderMap 表头解析结果
type HeaderMap struct {
	Columns  map[Canonical]int // 标准列 -> 列下标
	Raw      map[string]int    // 去空白后的原始表头 -> 列下标（仅非空表头）
	Decision int               // 决策列下标，不存在时为 -1
}

// Index 标准列的列下标
func (h *HeaderMap) Index(c Canonical) (int, bool) {
	i, ok := h.Columns[c]
	return i, ok
}

// MissingColumnsError 缺少必需列
type MissingColumnsError struct {
	Missing []Canonical
}

func (e *MissingColumnsError) Error() string {
	names := make([]string, len(e.Missing))
	for i, c := range e.Missing {
		names[i] = c.Header()
	}
	return fmt.Sprintf("缺少必需列: %s", strings.Join(names, ", "))
}

// Normalize 将首行表头映射为标准列
// 同一标准列被多列命中时取下标最小的一列，并记录告警
func Normalize(header []string, logger *zap.Logger) (*HeaderMap, error) {
	hm := &HeaderMap{
		Columns:  make(map[Canonical]int, len(CanonicalOrder)),
		Raw:      make(map[string]int, len(header)),
		Decision: -1,
	}

	for i, cell := range header {
		trimmed := strings.TrimSpace(cell)
		if trimmed == "" {
			continue
		}
		if _, seen := hm.Raw[trimmed]; !seen {
			hm.Raw[trimmed] = i
		}

		key := Fold(trimmed)
		if c, ok := aliasIndex[key]; ok {
			if prev, dup := hm.Columns[c]; dup {
				if logger != nil {
					logger.Warn("表头重复命中同一列，保留靠前的列",
						zap.String("column", string(c)),
						zap.Int("kept_index", prev),
						zap.Int("ignored_index", i),
					)
				}
				continue
			}
			hm.Columns[c] = i
			continue
		}
		if hm.Decision < 0 && slices.Contains(decisionAliases, key) {
			hm.Decision = i
		}
	}

	var missing []Canonical
	for _, c := range CanonicalOrder {
		if _, ok := hm.Columns[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Missing: missing}
	}
	return hm, nil
}
