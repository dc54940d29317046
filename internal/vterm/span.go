package vterm

import "strings"

// Span is a maximal run of consecutive cells on one line sharing identical
// attributes.
type Span struct {
	Text   string
	Color  ColorTag
	Bold   bool
	Italic bool
}

// spansFromRow collapses a row of cells into its maximal attribute-sharing
// spans, trimming trailing default-attribute spaces (the spec's "trailing
// spaces trimmed by convention at read time, not stored").
func spansFromRow(row []Cell) []Span {
	end := len(row)
	for end > 0 {
		c := row[end-1]
		if c.Ch == ' ' && c.Color == ColorDefault && !c.Bold && !c.Italic {
			end--
			continue
		}
		break
	}
	if end == 0 {
		return nil
	}

	var spans []Span
	var buf strings.Builder
	cur := row[0]
	flush := func() {
		if buf.Len() == 0 {
			return
		}
		spans = append(spans, Span{Text: buf.String(), Color: cur.Color, Bold: cur.Bold, Italic: cur.Italic})
		buf.Reset()
	}
	for i := 0; i < end; i++ {
		c := row[i]
		if i > 0 && !c.sameAttrs(cur) {
			flush()
			cur = c
		}
		buf.WriteRune(c.Ch)
	}
	flush()
	return spans
}

// PlainText concatenates the text of every span in a line.
func PlainText(spans []Span) string {
	var sb strings.Builder
	for _, s := range spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}
