package export

import "fmt"

// Table is a captioned grid of string cells.
type Table struct {
	Caption string
	Headers []string
	Rows    [][]string
}

// Block is a headed run of text lines, used for problem sheets.
type Block struct {
	Heading string
	Lines   []string
}

// Document is the renderer-neutral export content.
type Document struct {
	Title    string
	Subtitle string
	Tables   []Table
	Blocks   []Block
}

func (t Table) validate() error {
	if len(t.Headers) == 0 {
		return fmt.Errorf("table %q requires at least one header", t.Caption)
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Headers) {
			return fmt.Errorf("table %q row %d has %d cells, want %d", t.Caption, i, len(row), len(t.Headers))
		}
	}
	return nil
}
