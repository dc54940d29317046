package content

import (
	"strings"

	"github.com/samsaffron/tuibridge/internal/vterm"
)

// RegionKind is the coarse shape a run of content rows is rendered as.
type RegionKind string

const (
	RegionProse     RegionKind = "prose"
	RegionCodeBlock RegionKind = "code_block"
	RegionHeading   RegionKind = "heading"
)

// ContentRegion is a contiguous run of rows sharing a rendering treatment.
type ContentRegion struct {
	Kind    RegionKind
	Records []LineRecord
}

// Lines returns the region's plain text rows.
func (r ContentRegion) Lines() []string {
	return linesOf(r.Records)
}

// LineRecord pairs a row's plain text with its attributed spans and kind,
// the unit GroupRegions consumes.
type LineRecord struct {
	Kind  LineKind
	Text  string
	Spans []vterm.Span
}

// GroupRegions folds a sequence of classified, non-chrome rows into regions.
// A run is a heading when every non-blank span in it is bold; otherwise it
// is a code_block when at least half of its non-blank spans use the agent's
// code tints (dim grey or green), each row with a code-like shape
// (indentation, braces, common keywords) counting as one more code-tinted
// span; otherwise it is prose. Kind changes, or an empty row, end the
// current run.
func GroupRegions(records []LineRecord) []ContentRegion {
	var regions []ContentRegion
	var cur []LineRecord

	flush := func() {
		if len(cur) == 0 {
			return
		}
		regions = append(regions, ContentRegion{Kind: regionKind(cur), Records: append([]LineRecord{}, cur...)})
		cur = nil
	}

	for _, rec := range records {
		if IsChrome(rec.Kind) {
			flush()
			continue
		}
		if len(cur) > 0 && cur[len(cur)-1].Kind != rec.Kind {
			flush()
		}
		cur = append(cur, rec)
	}
	flush()
	return regions
}

func linesOf(records []LineRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Text
	}
	return out
}

func regionKind(records []LineRecord) RegionKind {
	if allBold(records) {
		return RegionHeading
	}
	if looksLikeCode(records) {
		return RegionCodeBlock
	}
	return RegionProse
}

func allBold(records []LineRecord) bool {
	found := false
	for _, r := range records {
		if len(r.Spans) == 0 {
			continue
		}
		for _, sp := range r.Spans {
			if strings.TrimSpace(sp.Text) == "" {
				continue
			}
			if !sp.Bold {
				return false
			}
			found = true
		}
	}
	return found
}

func looksLikeCode(records []LineRecord) bool {
	dimRuns, totalRuns := 0, 0
	for _, r := range records {
		for _, sp := range r.Spans {
			if strings.TrimSpace(sp.Text) == "" {
				continue
			}
			totalRuns++
			if sp.Color == vterm.ColorDimGrey || sp.Color == vterm.ColorGreen {
				dimRuns++
			}
		}
		if hasCodeShape(r.Text) {
			dimRuns++
			totalRuns++
		}
	}
	if totalRuns == 0 {
		return false
	}
	return dimRuns*2 >= totalRuns
}

func hasCodeShape(line string) bool {
	t := strings.TrimRight(line, " ")
	if t == "" {
		return false
	}
	leading := len(t) - len(strings.TrimLeft(t, " "))
	if leading >= 2 {
		return true
	}
	for _, tok := range []string{"func ", "def ", "{", "}", "=>", "const ", "import ", "class "} {
		if strings.Contains(t, tok) {
			return true
		}
	}
	return false
}
