package export

import (
	"bytes"
	"fmt"
	"strings"
	"text/tabwriter"
)

// TextRenderer renders documents as plain UTF-8 text.
type TextRenderer struct{}

// NewTextRenderer constructs a text renderer.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

// Render writes the title underlined, tables as aligned columns and blocks as paragraphs.
func (r *TextRenderer) Render(doc Document) ([]byte, error) {
	buf := &bytes.Buffer{}
	if doc.Title != "" {
		fmt.Fprintln(buf, doc.Title)
		fmt.Fprintln(buf, strings.Repeat("=", len([]rune(doc.Title))))
	}
	if doc.Subtitle != "" {
		fmt.Fprintln(buf, doc.Subtitle)
	}
	if doc.Title != "" || doc.Subtitle != "" {
		fmt.Fprintln(buf)
	}

	for _, table := range doc.Tables {
		if err := table.validate(); err != nil {
			return nil, err
		}
		if table.Caption != "" {
			fmt.Fprintln(buf, table.Caption)
		}
		tw := tabwriter.NewWriter(buf, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(table.Headers, "\t"))
		for _, row := range table.Rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return nil, fmt.Errorf("flush text table: %w", err)
		}
		fmt.Fprintln(buf)
	}

	for _, block := range doc.Blocks {
		if block.Heading != "" {
			fmt.Fprintln(buf, block.Heading)
		}
		for _, line := range block.Lines {
			fmt.Fprintln(buf, line)
		}
		fmt.Fprintln(buf)
	}
	return buf.Bytes(), nil
}
