package report

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-pdf/fpdf"
)

const (
	pdfFamily = "report"
	lineH     = 7.0
)

type pdfWriter struct {
	pdf     *fpdf.Fpdf
	unicode bool
	tr      func(string) string
	width   float64
}

func newPDFWriter(fontPath string) (*pdfWriter, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)

	w := &pdfWriter{pdf: pdf, tr: func(s string) string { return s }}
	if fontPath != "" {
		font, err := os.ReadFile(fontPath)
		if err != nil {
			return nil, fmt.Errorf("read pdf font: %w", err)
		}
		pdf.AddUTF8FontFromBytes(pdfFamily, "", font)
		pdf.AddUTF8FontFromBytes(pdfFamily, "B", font)
		w.unicode = true
	} else {
		// Core fonts cover Latin-1 only; Arabic captions are left out.
		w.tr = pdf.UnicodeTranslatorFromDescriptor("")
	}
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	w.width = pageW - left - right
	return w, pdf.Error()
}

func (w *pdfWriter) font(style string, size float64) {
	if w.unicode {
		w.pdf.SetFont(pdfFamily, style, size)
		return
	}
	w.pdf.SetFont("Helvetica", style, size)
}

// caption renders both languages when the font can show Arabic.
func (w *pdfWriter) caption(l Label) string {
	if w.unicode && l.AR != "" && l.AR != l.EN {
		return l.EN + " / " + l.AR
	}
	return w.tr(l.EN)
}

func (w *pdfWriter) text(s string) string {
	if w.unicode {
		return s
	}
	return w.tr(s)
}

func (w *pdfWriter) header(d *Document) {
	w.pdf.SetFillColor(0x44, 0x72, 0xC4)
	w.pdf.SetTextColor(255, 255, 255)
	w.font("B", 16)
	w.pdf.CellFormat(w.width, 12, w.text(d.Title.EN), "", 1, "C", true, 0, "")
	if w.unicode && d.Title.AR != "" {
		w.pdf.CellFormat(w.width, 10, d.Title.AR, "", 1, "C", true, 0, "")
	}
	w.pdf.SetTextColor(0, 0, 0)
	w.font("", 10)
	w.pdf.CellFormat(w.width, lineH, "Report date: "+d.Date.Format("2006-01-02"), "", 1, "R", false, 0, "")
	w.pdf.Ln(3)
}

func (w *pdfWriter) section(s Section) {
	if s.Title.EN != "" {
		w.font("B", 12)
		w.pdf.SetTextColor(0x1F, 0x47, 0x88)
		w.pdf.CellFormat(w.width, 9, w.caption(s.Title), "B", 1, "L", false, 0, "")
		w.pdf.SetTextColor(0, 0, 0)
		w.pdf.Ln(2)
	}
	w.font("", 10)
	for _, line := range s.Lines {
		w.pdf.MultiCell(w.width, 5.5, w.text(line), "", "L", false)
	}
	if len(s.Lines) > 0 {
		w.pdf.Ln(2)
	}
	if s.Table != nil {
		w.table(s.Table)
	}
	if len(s.Summary) > 0 {
		w.summary(s.Summary)
	}
	w.pdf.Ln(4)
}

func (w *pdfWriter) columnWidths(t *Table) []float64 {
	n := len(t.Headers)
	out := make([]float64, n)
	total := 0.0
	for i := range n {
		rel := 1.0
		if i < len(t.Widths) && t.Widths[i] > 0 {
			rel = t.Widths[i]
		}
		out[i] = rel
		total += rel
	}
	for i := range out {
		out[i] = out[i] / total * w.width
	}
	return out
}

func (w *pdfWriter) table(t *Table) {
	widths := w.columnWidths(t)
	w.font("B", 9)
	w.pdf.SetFillColor(0x44, 0x72, 0xC4)
	w.pdf.SetTextColor(255, 255, 255)
	for i, h := range t.Headers {
		w.pdf.CellFormat(widths[i], lineH, w.caption(h), "1", 0, "C", true, 0, "")
	}
	w.pdf.Ln(-1)

	w.pdf.SetTextColor(0, 0, 0)
	w.font("", 9)
	for r, row := range t.Rows {
		fill := r%2 == 1
		w.pdf.SetFillColor(0xF2, 0xF2, 0xF2)
		for i := range widths {
			v := ""
			if i < len(row) {
				v = row[i]
			}
			w.pdf.CellFormat(widths[i], lineH, w.text(v), "1", 0, "C", fill, 0, "")
		}
		w.pdf.Ln(-1)
	}
	w.pdf.Ln(2)
}

func (w *pdfWriter) summary(lines []SummaryLine) {
	w.pdf.SetFillColor(0xD9, 0xE1, 0xF2)
	labelW := w.width * 0.65
	for _, l := range lines {
		w.font("B", 10)
		w.pdf.CellFormat(labelW, lineH, w.caption(l.Label), "1", 0, "L", true, 0, "")
		w.font("", 10)
		w.pdf.CellFormat(w.width-labelW, lineH, w.text(l.Value), "1", 1, "R", false, 0, "")
	}
}

// PDF renders d. fontPath may point at a TTF with Arabic glyphs.
func PDF(d *Document, fontPath string) ([]byte, error) {
	w, err := newPDFWriter(fontPath)
	if err != nil {
		return nil, err
	}
	w.pdf.SetTitle(d.Title.EN, true)
	w.pdf.AddPage()
	w.header(d)
	for _, s := range d.Sections {
		w.section(s)
	}
	var buf bytes.Buffer
	if err := w.pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
