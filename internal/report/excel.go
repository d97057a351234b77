// Package report renders spreadsheets and printable documents.
package report

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const sheet = "Report"

const (
	colorHeaderBg   = "4472C4"
	colorHeaderText = "FFFFFF"
	colorTotalBg    = "D9E1F2"
	colorTotalText  = "1F4788"
	colorPercentBg  = "E2EFDA"
	colorPercentTxt = "548235"
)

// ValueKind selects the number format of a cell.
type ValueKind int

const (
	KindText ValueKind = iota
	KindNumber
	KindCurrency
	KindPercent
	KindDate
)

// Exporter builds a single-sheet workbook row by row. The first error is kept
// and returned by Bytes; later calls are no-ops.
type Exporter struct {
	f      *excelize.File
	row    int
	cols   int
	kinds  []ValueKind
	styles map[string]int
	err    error
}

func NewExporter(currency string, rtl bool) *Exporter {
	e := &Exporter{f: excelize.NewFile(), row: 1, styles: map[string]int{}}
	if e.err = e.f.SetSheetName("Sheet1", sheet); e.err != nil {
		return e
	}
	if rtl {
		e.err = e.f.SetSheetView(sheet, -1, &excelize.ViewOptions{RightToLeft: &rtl})
	}
	e.buildStyles(currency)
	return e
}

func border() []excelize.Border {
	out := make([]excelize.Border, 0, 4)
	for _, side := range []string{"left", "right", "top", "bottom"} {
		out = append(out, excelize.Border{Type: side, Color: "000000", Style: 1})
	}
	return out
}

func (e *Exporter) buildStyles(currency string) {
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}
	money := fmt.Sprintf(`#,##0.00 "%s"`, currency)
	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
	}

	defs := map[string]*excelize.Style{
		"title": {
			Font:      &excelize.Font{Family: "Arial", Size: 16, Bold: true, Color: colorHeaderText},
			Fill:      fill(colorHeaderBg),
			Alignment: center, Border: border(),
		},
		"header": {
			Font:      &excelize.Font{Family: "Arial", Size: 12, Bold: true, Color: colorHeaderText},
			Fill:      fill(colorHeaderBg),
			Alignment: center, Border: border(),
		},
		"text":     {Font: &excelize.Font{Family: "Arial", Size: 10}, Alignment: center, Border: border()},
		"number":   {Font: &excelize.Font{Family: "Arial", Size: 10}, Alignment: center, Border: border(), NumFmt: 3},
		"currency": {Font: &excelize.Font{Family: "Arial", Size: 10}, Alignment: center, Border: border(), CustomNumFmt: &money},
		"percent":  {Font: &excelize.Font{Family: "Arial", Size: 10}, Alignment: center, Border: border(), NumFmt: 10},
		"date":     {Font: &excelize.Font{Family: "Arial", Size: 10}, Alignment: center, Border: border(), NumFmt: 14},
		"total": {
			Font:      &excelize.Font{Family: "Arial", Size: 12, Bold: true, Color: colorTotalText},
			Fill:      fill(colorTotalBg),
			Alignment: center, Border: border(),
		},
		"total_number": {
			Font:      &excelize.Font{Family: "Arial", Size: 12, Bold: true, Color: colorTotalText},
			Fill:      fill(colorTotalBg),
			Alignment: center, Border: border(), NumFmt: 3,
		},
		"total_currency": {
			Font:      &excelize.Font{Family: "Arial", Size: 12, Bold: true, Color: colorTotalText},
			Fill:      fill(colorTotalBg),
			Alignment: center, Border: border(), CustomNumFmt: &money,
		},
		"pct_label": {
			Font:      &excelize.Font{Family: "Arial", Size: 11, Bold: true, Color: colorPercentTxt},
			Fill:      fill(colorPercentBg),
			Alignment: center, Border: border(),
		},
		"pct_value": {
			Font:      &excelize.Font{Family: "Arial", Size: 11, Bold: true, Color: colorPercentTxt},
			Fill:      fill(colorPercentBg),
			Alignment: center, Border: border(), NumFmt: 10,
		},
	}
	for name, st := range defs {
		if e.err != nil {
			return
		}
		e.styles[name], e.err = e.f.NewStyle(st)
	}
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func (e *Exporter) set(col int, v any, style string) {
	if e.err != nil {
		return
	}
	c := cell(col, e.row)
	if e.err = e.f.SetCellValue(sheet, c, v); e.err != nil {
		return
	}
	e.err = e.f.SetCellStyle(sheet, c, c, e.styles[style])
}

func (e *Exporter) merge(from, to int, style string) {
	if e.err != nil || to <= from {
		return
	}
	if e.err = e.f.MergeCell(sheet, cell(from, e.row), cell(to, e.row)); e.err != nil {
		return
	}
	e.err = e.f.SetCellStyle(sheet, cell(from, e.row), cell(to, e.row), e.styles[style])
}

// Title writes a merged banner across cols columns.
func (e *Exporter) Title(text string, cols int) *Exporter {
	e.cols = cols
	e.set(1, text, "title")
	e.merge(1, cols, "title")
	if e.err == nil {
		e.err = e.f.SetRowHeight(sheet, e.row, 28)
	}
	e.row++
	return e
}

// Header writes the column titles and fixes the kind of each data column.
func (e *Exporter) Header(headers []string, kinds []ValueKind) *Exporter {
	if e.cols == 0 {
		e.cols = len(headers)
	}
	e.kinds = kinds
	for i, h := range headers {
		e.set(i+1, h, "header")
	}
	e.row++
	return e
}

func (e *Exporter) kind(i int) ValueKind {
	if i < len(e.kinds) {
		return e.kinds[i]
	}
	return KindText
}

func cellValue(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64()
	case *string:
		if x == nil {
			return ""
		}
		return *x
	}
	return v
}

// Row writes one data row formatted by the header kinds.
func (e *Exporter) Row(values ...any) *Exporter {
	for i, v := range values {
		style := "text"
		switch e.kind(i) {
		case KindNumber:
			style = "number"
		case KindCurrency:
			style = "currency"
		case KindPercent:
			style = "percent"
		case KindDate:
			style = "date"
		}
		e.set(i+1, cellValue(v), style)
	}
	e.row++
	return e
}

// Blank leaves an empty row.
func (e *Exporter) Blank() *Exporter {
	e.row++
	return e
}

// Total writes a label merged over every column but the last, and the value
// in the last column.
func (e *Exporter) Total(label string, value any, kind ValueKind) *Exporter {
	last := max(e.cols, 2)
	e.set(1, label, "total")
	e.merge(1, last-1, "total")
	style := "total"
	switch kind {
	case KindNumber:
		style = "total_number"
	case KindCurrency:
		style = "total_currency"
	}
	e.set(last, cellValue(value), style)
	e.row++
	return e
}

// Percent writes a share row; pct is a percentage such as 66.7.
func (e *Exporter) Percent(label string, pct decimal.Decimal) *Exporter {
	last := max(e.cols, 2)
	e.set(1, label, "pct_label")
	e.merge(1, last-1, "pct_label")
	e.set(last, pct.Div(decimal.NewFromInt(100)).InexactFloat64(), "pct_value")
	e.row++
	return e
}

// Widths sets the column widths from the first column on.
func (e *Exporter) Widths(widths ...float64) *Exporter {
	for i, w := range widths {
		if e.err != nil {
			break
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		e.err = e.f.SetColWidth(sheet, col, col, w)
	}
	return e
}

// Bytes returns the xlsx file.
func (e *Exporter) Bytes() ([]byte, error) {
	defer e.f.Close()
	if e.err != nil {
		return nil, e.err
	}
	var buf bytes.Buffer
	if _, err := e.f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
