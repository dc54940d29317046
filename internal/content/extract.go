package content

import (
	"strings"

	"github.com/samsaffron/tuibridge/internal/vterm"
)

// BuildRecords classifies every row of a full screen snapshot and pairs it
// with its attributed spans, the input GroupRegions expects.
func BuildRecords(plain [vterm.Rows]string, attributed [vterm.Rows][]vterm.Span) []LineRecord {
	records := make([]LineRecord, 0, vterm.Rows)
	for r := 0; r < vterm.Rows; r++ {
		records = append(records, LineRecord{
			Kind:  ClassifyLine(plain[r]),
			Text:  strings.TrimRight(plain[r], " "),
			Spans: attributed[r],
		})
	}
	return records
}

// RenderFullDisplay is the finalize re-render path: it drops chrome rows
// (prompt, status bar, separators, box borders, logo, empty) and renders
// everything else into split-ready rich text.
func RenderFullDisplay(plain [vterm.Rows]string, attributed [vterm.Rows][]vterm.Span) string {
	records := BuildRecords(plain, attributed)
	regions := GroupRegions(records)
	return RenderRegions(regions)
}

// RenderAndSplit runs RenderFullDisplay and then splits the result into
// messenger-sized chunks.
func RenderAndSplit(plain [vterm.Rows]string, attributed [vterm.Rows][]vterm.Span) []string {
	return Split(RenderFullDisplay(plain, attributed), maxMessageLen)
}

// RenderDelta is the extract_and_send path (spec §4.3/§4.4): it takes only
// the rows vterm.GetAttributedChanges reports changed, classifies and groups
// just those rows, and renders them the same way RenderFullDisplay does —
// but the caller appends the result to the live message instead of
// replacing it wholesale, so unchanged screen content is never re-sent.
func RenderDelta(changes []vterm.RowSpans) string {
	if len(changes) == 0 {
		return ""
	}
	records := make([]LineRecord, 0, len(changes))
	for _, rc := range changes {
		plain := strings.TrimRight(vterm.PlainText(rc.Spans), " ")
		records = append(records, LineRecord{
			Kind:  ClassifyLine(plain),
			Text:  plain,
			Spans: rc.Spans,
		})
	}
	regions := GroupRegions(records)
	return RenderRegions(regions)
}
