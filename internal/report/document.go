package report

import "time"

// Document is a printable report. It is rendered to PDF, or to HTML when the
// PDF cannot be produced.
type Document struct {
	Title    Label
	Date     time.Time
	Sections []Section
}

type Section struct {
	Title   Label
	Lines   []string // free text paragraphs
	Table   *Table
	Summary []SummaryLine
}

type Table struct {
	Headers []Label
	Rows    [][]string
	Widths  []float64 // relative; empty means equal columns
}

type SummaryLine struct {
	Label Label
	Value string
}
