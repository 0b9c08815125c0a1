package service

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const importSheetName = "Produtos"

type importColumn struct {
	Name        string
	Description string
	Required    bool
	Example     string
}

// importColumns is the XLSX layout: one row per variant, product fields
// repeated or left blank on follow-up rows of the same codigo.
var importColumns = []importColumn{
	{"codigo", "Código do produto (chave única)", true, "CH-001"},
	{"nome", "Nome do produto (obrigatório para produto novo)", false, "Chinelo Praia"},
	{"categoria", "Categoria (obrigatória para produto novo)", false, "Chinelos"},
	{"tipo", "Tipo (obrigatório para produto novo)", false, "Casual"},
	{"genero", "Gênero", false, "Masculino"},
	{"descricao", "Descrição", false, "Chinelo de borracha"},
	{"preco_sugerido", "Preço sugerido de revenda", false, "59.90"},
	{"vender_infinito", "Vender sem estoque (sim/não)", false, "não"},
	{"cor", "Cor da variante", true, "Azul"},
	{"preco", "Preço unitário da variante", true, "39.90"},
	{"grade", "Nome da grade", true, "Grade Masculina"},
	{"foto", "URL da foto", false, "https://example.com/azul.jpg"},
	{"sku", "SKU da variante", false, "CH-001-AZ"},
}

// ParseImportWorkbook reads an import workbook and groups its rows by codigo
// in order of first appearance. For product fields the first non-empty value
// of a code wins.
func ParseImportWorkbook(r io.Reader) ([]ImportProduct, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, invalid(0, "arquivo", "no sheets found")
	}
	sheetName := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(name, importSheetName) {
			sheetName = name
			break
		}
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, invalid(0, "arquivo", "a header row and at least one data row are required")
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(h)), " *")
		index[strings.TrimSpace(h)] = i
	}
	for _, col := range importColumns {
		if _, ok := index[col.Name]; col.Required && !ok {
			return nil, invalid(0, "cabecalho", fmt.Sprintf("missing column %s", col.Name))
		}
	}

	var (
		products []ImportProduct
		byCode   = map[string]int{}
	)
	for i, row := range rows[1:] {
		rowNum := i + 2
		cell := func(name string) string {
			idx, ok := index[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		if isBlankRow(row) {
			continue
		}

		// Errors carry the record position the row folds into; the sheet
		// row only appears in the field path.
		code := cell("codigo")
		pos, seen := byCode[code]
		if !seen {
			pos = len(products)
		}
		if code == "" {
			return nil, invalid(pos, rowField(rowNum, "codigo"), "is required")
		}

		price, err := parseDecimal(cell("preco"))
		if err != nil {
			return nil, invalid(pos, rowField(rowNum, "preco"), err.Error())
		}

		if !seen {
			products = append(products, ImportProduct{Code: code})
			byCode[code] = pos
		}
		p := &products[pos]

		fillString(&p.Name, cell("nome"))
		fillString(&p.Category, cell("categoria"))
		fillString(&p.Type, cell("tipo"))
		fillString(&p.Gender, cell("genero"))
		fillString(&p.Description, cell("descricao"))

		if raw := cell("preco_sugerido"); raw != "" && p.SuggestedPrice == nil {
			v, err := parseDecimal(raw)
			if err != nil {
				return nil, invalid(pos, rowField(rowNum, "preco_sugerido"), err.Error())
			}
			p.SuggestedPrice = &v
		}
		if raw := cell("vender_infinito"); raw != "" && p.AllowOversell == nil {
			v, err := parseYesNo(raw)
			if err != nil {
				return nil, invalid(pos, rowField(rowNum, "vender_infinito"), err.Error())
			}
			p.AllowOversell = &v
		}

		p.Variants = append(p.Variants, ImportVariant{
			Color: cell("cor"),
			Price: price,
			Grade: cell("grade"),
			Photo: cell("foto"),
			SKU:   cell("sku"),
		})
	}

	if len(products) == 0 {
		return nil, invalid(0, "arquivo", "no data rows found")
	}
	return products, nil
}

// WriteImportTemplate writes an empty import workbook with an instructions
// sheet to w.
func WriteImportTemplate(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", importSheetName); err != nil {
		return err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})
	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 1}},
	})

	for i, col := range importColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		header := col.Name
		style := headerStyle
		if col.Required {
			header += " *"
			style = requiredStyle
		}
		f.SetCellValue(importSheetName, cell, header)
		f.SetCellStyle(importSheetName, cell, cell, style)

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(importSheetName, colName, colName, 20)
	}

	const instructions = "Instrucoes"
	if _, err := f.NewSheet(instructions); err != nil {
		return err
	}
	f.SetCellValue(instructions, "A1", "Importação de produtos")
	f.SetCellValue(instructions, "A2", "Uma linha por cor. Repita o código para adicionar cores ao mesmo produto.")
	f.SetCellValue(instructions, "A4", "Coluna")
	f.SetCellValue(instructions, "B4", "Descrição")
	f.SetCellValue(instructions, "C4", "Obrigatória")
	f.SetCellValue(instructions, "D4", "Exemplo")
	for i, col := range importColumns {
		row := i + 5
		required := "não"
		if col.Required {
			required = "sim"
		}
		f.SetCellValue(instructions, fmt.Sprintf("A%d", row), col.Name)
		f.SetCellValue(instructions, fmt.Sprintf("B%d", row), col.Description)
		f.SetCellValue(instructions, fmt.Sprintf("C%d", row), required)
		f.SetCellValue(instructions, fmt.Sprintf("D%d", row), col.Example)
	}
	f.SetColWidth(instructions, "A", "A", 20)
	f.SetColWidth(instructions, "B", "B", 55)
	f.SetColWidth(instructions, "C", "C", 12)
	f.SetColWidth(instructions, "D", "D", 35)

	sheetIdx, _ := f.GetSheetIndex(importSheetName)
	f.SetActiveSheet(sheetIdx)

	return f.Write(w)
}

func rowField(row int, column string) string {
	return fmt.Sprintf("linha %d.%s", row, column)
}

func fillString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseDecimal accepts both 39.90 and 39,90.
func parseDecimal(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("is required")
	}
	if strings.Contains(raw, ",") {
		raw = strings.ReplaceAll(raw, ".", "")
		raw = strings.ReplaceAll(raw, ",", ".")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || !finite(v) {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return v, nil
}

func parseYesNo(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sim", "s", "true", "1", "yes", "y":
		return true, nil
	case "não", "nao", "n", "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected sim or não, got %q", raw)
}
