package pdf

import (
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// textLine collects the glyphs sharing one baseline
type textLine struct {
	y       float64
	end     float64
	started bool
	text    strings.Builder
}

// baselineTolerance is how far (in points) a glyph may sit from a line's
// baseline and still belong to it
func baselineTolerance(g pdf.Text) float64 {
	return math.Max(math.Abs(g.FontSize)/2, 1)
}

// wordGap is the horizontal jump (in points) read as a space between glyphs
func wordGap(g pdf.Text) float64 {
	return math.Max(math.Abs(g.FontSize)*0.2, 1)
}

func (l *textLine) add(g pdf.Text) {
	if l.started && g.X > l.end+wordGap(g) && !strings.HasSuffix(l.text.String(), " ") {
		l.text.WriteByte(' ')
	}
	l.text.WriteString(g.S)
	l.end = g.X + g.W
	l.started = true
}

// layoutText rebuilds reading-order text from positioned glyphs. Glyphs on
// the same baseline form one line in content-stream order; lines run top to
// bottom, each terminated by "\n". Positions come from the full text matrix,
// so lines moved with Td, TD, T* or Tm stay separate.
func layoutText(glyphs []pdf.Text) string {
	var lines []*textLine
	for _, g := range glyphs {
		if g.S == "" || (g.S != " " && strings.TrimSpace(g.S) == "") {
			continue
		}
		line := findLine(lines, g)
		if line == nil {
			line = &textLine{y: g.Y}
			lines = append(lines, line)
		}
		line.add(g)
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].y > lines[j].y
	})

	var b strings.Builder
	for _, l := range lines {
		s := strings.TrimSpace(l.text.String())
		if s == "" {
			continue
		}
		b.WriteString(s)
		b.WriteByte('\n')
	}
	return b.String()
}

// findLine returns the most recent line whose baseline matches g
func findLine(lines []*textLine, g pdf.Text) *textLine {
	tol := baselineTolerance(g)
	for i := len(lines) - 1; i >= 0; i-- {
		if math.Abs(lines[i].y-g.Y) <= tol {
			return lines[i]
		}
	}
	return nil
}
