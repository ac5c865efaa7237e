package spreadsheet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIsDiscardDecision(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"D", true},
		{"d", true},
		{"  Descartar ", true},
		{"descartado", true},
		{"Discard", true},
		{"to discard", true},
		{"vai descartar", true},
		{"1", true},
		{"true", true},
		{"YES", true},
		{"Sim", true},
		{"", false},
		{"   ", false},
		{"keep", false},
		{"manter", false},
		{"0", false},
		{"no", false},
		{"não", false},
		{"undecided", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsDiscardDecision(tt.text), "text=%q", tt.text)
	}
}

func TestParseRows(t *testing.T) {
	header := append(primaryHeader(), "decision")
	rows := [][]string{
		{"1", "EB", "3", "4", " R1 ", "A", "P1", "G1", "keep"},
		{"2", "EB", "3", "5", "", "A", "P2", "G1", "D"},
		{"3", "EB", "3", "6", "R3", "A", "P3", "G2", " Descartar "},
		{"4", "EB", "3", "7", strings.Repeat("x", MaxRecidLength+1), "A", "P4", "G2"},
		{"5", "EB", "3", "8", "R\x075", "A", "P5", "G2"},
		{"6", "EB", "3", "9", "R6"}, // 行尾空单元格被截断
	}

	result, err := ParseRows(header, rows, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 6, result.RowsRead)
	assert.Equal(t, 3, result.RowsSkipped)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, 5, result.Errors[0].Row)
	assert.Equal(t, 6, result.Errors[1].Row)

	require.Len(t, result.Plots, 3)
	p := result.Plots[0]
	assert.Equal(t, "R1", p.Recid)
	assert.Equal(t, "1", p.LocSeq)
	assert.Equal(t, "EB", p.EntryBookName)
	assert.Equal(t, "3", p.Range)
	assert.Equal(t, "4", p.Row)
	assert.Equal(t, "A", p.Tier)
	assert.Equal(t, "P1", p.PlotLabel)
	assert.Equal(t, "G1", p.GroupID)
	assert.False(t, p.Discarded)
	assert.False(t, p.Harvested)
	assert.Zero(t, p.FieldID)

	assert.True(t, result.Plots[1].Discarded)
	assert.Equal(t, "Descartar", result.Plots[1].Decision)

	last := result.Plots[2]
	assert.Equal(t, "R6", last.Recid)
	assert.Equal(t, "", last.GroupID)
	assert.Equal(t, "", last.Decision)
}

func TestParseRows_MissingColumnsParsesNothing(t *testing.T) {
	result, err := ParseRows([]string{"recid"}, [][]string{{"R1"}}, zap.NewNop())
	assert.Nil(t, result)
	var mce *MissingColumnsError
	assert.ErrorAs(t, err, &mce)
}

func TestFieldNameFromFile(t *testing.T) {
	assert.Equal(t, "Talhao 3", FieldNameFromFile("Talhao 3.xlsx"))
	assert.Equal(t, "safra.2024", FieldNameFromFile("/tmp/up/safra.2024.xlsx"))
	assert.Equal(t, "semext", FieldNameFromFile("semext"))
	assert.Equal(t, ".hidden", FieldNameFromFile(".hidden"))
}
