package service

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// fillTemplate writes the import template and appends rows to its data sheet.
func fillTemplate(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	var tpl bytes.Buffer
	require.NoError(t, WriteImportTemplate(&tpl))

	f, err := excelize.OpenReader(&tpl)
	require.NoError(t, err)
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(importSheetName, cell, &row))
	}

	var out bytes.Buffer
	require.NoError(t, f.Write(&out))
	return &out
}

func TestWriteImportTemplate(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteImportTemplate(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{importSheetName, "Instrucoes"}, f.GetSheetList())

	rows, err := f.GetRows(importSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "codigo *", rows[0][0])
	assert.Equal(t, "nome", rows[0][1])
	assert.Len(t, rows[0], len(importColumns))
}

func TestParseImportWorkbook_GroupsByCode(t *testing.T) {
	buf := fillTemplate(t, [][]interface{}{
		{"CH-001", "Chinelo Praia", "Chinelos", "Casual", "Masculino", "", "59,90", "não", "Azul", "39,90", "Grade Masculina", "https://img.example.com/a.jpg", "CH-001-AZ"},
		{},
		{"CH-002", "Sandália", "Sandálias", "Casual", "", "", "", "", "Rosa", "49.9", "Grade Feminina", "", ""},
		{"CH-001", "", "", "", "", "", "", "sim", "Preto", "39.90", "Grade Masculina", "", ""},
	})

	products, err := ParseImportWorkbook(buf)
	require.NoError(t, err)
	require.Len(t, products, 2)

	p := products[0]
	assert.Equal(t, "CH-001", p.Code)
	assert.Equal(t, "Chinelo Praia", p.Name)
	assert.Equal(t, "Masculino", p.Gender)
	require.NotNil(t, p.SuggestedPrice)
	assert.InDelta(t, 59.9, *p.SuggestedPrice, 0.001)
	require.NotNil(t, p.AllowOversell)
	assert.False(t, *p.AllowOversell)
	require.Len(t, p.Variants, 2)
	assert.Equal(t, ImportVariant{Color: "Azul", Price: 39.9, Grade: "Grade Masculina", Photo: "https://img.example.com/a.jpg", SKU: "CH-001-AZ"}, p.Variants[0])
	assert.Equal(t, "Preto", p.Variants[1].Color)

	assert.Equal(t, "CH-002", products[1].Code)
	assert.Nil(t, products[1].SuggestedPrice)
	assert.InDelta(t, 49.9, products[1].Variants[0].Price, 0.001)
}

func TestParseImportWorkbook_RowErrors(t *testing.T) {
	okRow := []interface{}{"A", "X", "", "", "", "", "", "", "Azul", "10", "G"}
	tests := []struct {
		name   string
		rows   [][]interface{}
		field  string
		record int
	}{
		{"missing code", [][]interface{}{{"", "X", "", "", "", "", "", "", "Azul", "10", "G"}}, "linha 2.codigo", 0},
		{"bad price", [][]interface{}{{"A", "X", "", "", "", "", "", "", "Azul", "dez", "G"}}, "linha 2.preco", 0},
		{"NaN price", [][]interface{}{{"A", "X", "", "", "", "", "", "", "Azul", "NaN", "G"}}, "linha 2.preco", 0},
		{"Inf suggested price", [][]interface{}{{"A", "X", "", "", "", "", "Inf", "", "Azul", "10", "G"}}, "linha 2.preco_sugerido", 0},
		{"bad oversell", [][]interface{}{{"A", "X", "", "", "", "", "", "talvez", "Azul", "10", "G"}}, "linha 2.vender_infinito", 0},
		{"second product", [][]interface{}{okRow, {"B", "Y", "", "", "", "", "", "", "Azul", "dez", "G"}}, "linha 3.preco", 1},
		{"repeated code", [][]interface{}{okRow, {"B", "Y", "", "", "", "", "", "", "Azul", "10", "G"}, {"A", "", "", "", "", "", "", "", "Preto", "-Inf", "G"}}, "linha 4.preco", 0},
		{"missing code after products", [][]interface{}{okRow, {"", "Y", "", "", "", "", "", "", "Azul", "10", "G"}}, "linha 3.codigo", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseImportWorkbook(fillTemplate(t, tt.rows))
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, tt.record, verr.Record)
		})
	}
}

func TestParseImportWorkbook_MissingColumn(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"codigo", "cor", "preco"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"A", "Azul", "10"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	_, err := ParseImportWorkbook(&buf)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "cabecalho", verr.Field)
	assert.Contains(t, verr.Message, "grade")
}

func TestParseImportWorkbook_NoData(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteImportTemplate(&buf))

	_, err := ParseImportWorkbook(&buf)
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = ParseImportWorkbook(bytes.NewReader([]byte("not a workbook")))
	assert.Error(t, err)
}

func TestParseDecimal(t *testing.T) {
	tests := map[string]float64{
		"39.90":    39.9,
		"39,90":    39.9,
		"1.234,50": 1234.5,
		" 10 ":     10,
	}
	for in, want := range tests {
		got, err := parseDecimal(in)
		require.NoError(t, err, in)
		assert.InDelta(t, want, got, 0.0001, in)
	}
	for _, in := range []string{"", "NaN", "nan", "Inf", "+Inf", "-inf", "infinity"} {
		_, err := parseDecimal(in)
		assert.Error(t, err, in)
	}
}
